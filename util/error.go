// util/error.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mmp/routeplan/log"
)

// ErrorLogger accumulates recoverable errors while a larger operation
// (parsing a route, loading navigation data, building a procedure)
// continues. It tracks context about what is currently being processed
// so that each error can be reported with where it happened.
type ErrorLogger struct {
	// Tracked via Push()/Pop() calls to remember what we're looking at if
	// an error is found.
	hierarchy []string
	// Actual errors to report.
	errors []error
}

func (e *ErrorLogger) Push(s string) {
	e.hierarchy = append(e.hierarchy, s)
}

func (e *ErrorLogger) Pop() {
	e.hierarchy = e.hierarchy[:len(e.hierarchy)-1]
}

func (e *ErrorLogger) ErrorString(s string, args ...any) {
	e.Error(fmt.Errorf(s, args...))
}

// Error records err; if there is current context, err is wrapped so that
// errors.Is and errors.As still find it.
func (e *ErrorLogger) Error(err error) {
	if len(e.hierarchy) > 0 {
		err = &contextError{context: strings.Join(e.hierarchy, " / "), err: err}
	}
	e.errors = append(e.errors, err)
}

type contextError struct {
	context string
	err     error
}

func (c *contextError) Error() string { return c.context + ": " + c.err.Error() }
func (c *contextError) Unwrap() error { return c.err }

func (e *ErrorLogger) HaveErrors() bool {
	return e != nil && len(e.errors) > 0
}

// Errors returns the accumulated errors in the order they were recorded.
func (e *ErrorLogger) Errors() []error {
	if e == nil {
		return nil
	}
	return e.errors
}

// Join returns all of the errors as a single error, or nil if there are
// none.
func (e *ErrorLogger) Join() error {
	if !e.HaveErrors() {
		return nil
	}
	return errors.Join(e.errors...)
}

func (e *ErrorLogger) PrintErrors(lg *log.Logger) {
	// Two loops so they aren't interleaved with logging to stdout
	if lg != nil {
		for _, err := range e.errors {
			lg.Errorf("%+v", err)
		}
	}
	for _, err := range e.errors {
		fmt.Fprintln(os.Stderr, err)
	}
}

func (e *ErrorLogger) String() string {
	var s []string
	for _, err := range e.errors {
		s = append(s, err.Error())
	}
	return strings.Join(s, "\n")
}

func (e *ErrorLogger) CheckDepth(d int) {
	if e == nil || e.CurrentDepth() == d {
		return
	}

	if r := recover(); r == nil {
		// Don't give spurious warnings when there's a panic.
		fmt.Printf("Initial ErrorLogger depth %d, final %d\n", d, e.CurrentDepth())
		for _, f := range log.Callstack(nil) {
			fmt.Printf("%15s:%d %s\n", f.File, f.Line, f.Function)
		}
		os.Exit(1)
	} else {
		panic(r)
	}
}

func (e *ErrorLogger) CurrentDepth() int {
	if e == nil {
		return 0
	}
	return len(e.hierarchy)
}
