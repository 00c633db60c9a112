// aviation/errors.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrParse                    = errors.New("malformed route")
	ErrNotFound                 = errors.New("not found")
	ErrAmbiguous                = errors.New("ambiguous identifier")
	ErrProcedureRunwayMismatch  = errors.New("no procedure legs for runway")
	ErrMissingFixInProcedure    = errors.New("procedure fix not in database")
	ErrCategoryOrderViolation   = errors.New("leg categories out of order")
	ErrProcedureNotFound        = errors.New("procedure not found")
	ErrTransitionNotFound       = errors.New("transition not found")
	ErrAirwayDirectionViolation = errors.New("airway direction violation")
	ErrAirwayDegenerateRange    = errors.New("airway entry and exit are the same fix")
	ErrAirwayFixNotFound        = errors.New("fix not on airway")
	ErrInvariantViolation       = errors.New("flight plan invariant violation")
	ErrConfiguration            = errors.New("invalid profile configuration")
	ErrRestrictionInfeasible    = errors.New("altitude restriction cannot be met")
)

///////////////////////////////////////////////////////////////////////////
// ParseError

// ParseError is returned when a route string can't be parsed at all,
// i.e. when the departure or destination is missing.
type ParseError struct {
	Route string
	Msg   string
}

func (e *ParseError) Error() string {
	if e.Route == "" {
		return e.Msg
	}
	return fmt.Sprintf("%q: %s", e.Route, e.Msg)
}

func (e *ParseError) Unwrap() error { return ErrParse }

///////////////////////////////////////////////////////////////////////////
// ResolutionError

type ResolutionErrorKind int

const (
	NotFound ResolutionErrorKind = iota
	Ambiguous
)

// ResolutionError reports an identifier that couldn't be resolved to a
// single fix. NotFound errors cause the token to be dropped; Ambiguous
// errors record the choice that was made.
type ResolutionError struct {
	Kind       ResolutionErrorKind
	Ident      string
	Candidates []Fix
	Chosen     Fix
}

func (e *ResolutionError) Error() string {
	switch e.Kind {
	case Ambiguous:
		return fmt.Sprintf("%s: %d candidates; using %s", e.Ident, len(e.Candidates), e.Chosen)
	default:
		return fmt.Sprintf("Nothing found for %s. Ignoring.", e.Ident)
	}
}

func (e *ResolutionError) Unwrap() error {
	if e.Kind == Ambiguous {
		return ErrAmbiguous
	}
	return ErrNotFound
}

///////////////////////////////////////////////////////////////////////////
// ProcedureError

type ProcedureErrorKind int

const (
	RunwayMismatch ProcedureErrorKind = iota
	MissingFix
	CategoryOrderViolation
	UnknownProcedure
	UnknownTransition
)

type ProcedureError struct {
	Kind       ProcedureErrorKind
	Airport    string
	Procedure  string
	Runway     string
	Transition string
	Fix        string
	// Candidates lists the runways (for RunwayMismatch) or transitions
	// (for UnknownTransition) that are available.
	Candidates []string
}

func (e *ProcedureError) Error() string {
	name := e.Airport + "/" + e.Procedure
	switch e.Kind {
	case RunwayMismatch:
		if e.Runway == "" {
			return fmt.Sprintf("%s: runway must be specified; available: %s", name, strings.Join(e.Candidates, ", "))
		}
		return fmt.Sprintf("%s: no legs for runway %s; available: %s", name, e.Runway, strings.Join(e.Candidates, ", "))
	case MissingFix:
		return fmt.Sprintf("%s: fix %s not found in database", name, e.Fix)
	case CategoryOrderViolation:
		return fmt.Sprintf("%s: legs are out of order at %s", name, e.Fix)
	case UnknownProcedure:
		return fmt.Sprintf("%s: procedure not found", name)
	case UnknownTransition:
		return fmt.Sprintf("%s: transition %s not found; available: %s", name, e.Transition, strings.Join(e.Candidates, ", "))
	default:
		return fmt.Sprintf("%s: procedure error", name)
	}
}

func (e *ProcedureError) Unwrap() error {
	switch e.Kind {
	case RunwayMismatch:
		return ErrProcedureRunwayMismatch
	case MissingFix:
		return ErrMissingFixInProcedure
	case CategoryOrderViolation:
		return ErrCategoryOrderViolation
	case UnknownProcedure:
		return ErrProcedureNotFound
	case UnknownTransition:
		return ErrTransitionNotFound
	default:
		return nil
	}
}

///////////////////////////////////////////////////////////////////////////
// AirwayError

type AirwayErrorKind int

const (
	DirectionViolation AirwayErrorKind = iota
	DegenerateRange
	FixNotOnAirway
)

type AirwayError struct {
	Kind   AirwayErrorKind
	Airway string
	Entry  string
	Exit   string
}

func (e *AirwayError) Error() string {
	switch e.Kind {
	case DirectionViolation:
		return fmt.Sprintf("%s: can't be flown from %s to %s", e.Airway, e.Entry, e.Exit)
	case DegenerateRange:
		return fmt.Sprintf("%s: entry and exit are both %s", e.Airway, e.Entry)
	default:
		return fmt.Sprintf("%s: no segment contains both %s and %s", e.Airway, e.Entry, e.Exit)
	}
}

func (e *AirwayError) Unwrap() error {
	switch e.Kind {
	case DirectionViolation:
		return ErrAirwayDirectionViolation
	case DegenerateRange:
		return ErrAirwayDegenerateRange
	default:
		return ErrAirwayFixNotFound
	}
}

///////////////////////////////////////////////////////////////////////////
// InvariantViolation

type InvariantKind int

const (
	EndpointNotAirport InvariantKind = iota
	DuplicateConsecutiveFix
	MultipleProcedures
	CategoryOrder
)

func (k InvariantKind) String() string {
	return [...]string{"EndpointNotAirport", "DuplicateConsecutiveFix", "MultipleProcedures", "CategoryOrder"}[k]
}

// InvariantViolation is returned when a flight plan edit would leave
// the plan in an invalid state; the edit is not applied.
type InvariantViolation struct {
	Kind  InvariantKind
	Index int // offending leg
	Msg   string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("%s at leg %d: %s", e.Kind, e.Index, e.Msg)
}

func (e *InvariantViolation) Unwrap() error { return ErrInvariantViolation }

///////////////////////////////////////////////////////////////////////////
// Profile errors

type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return e.Msg }

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// RestrictionInfeasible reports an altitude restriction that the
// computed vertical profile can't meet.
type RestrictionInfeasible struct {
	Leg         int
	Fix         string
	Restriction AltitudeRestriction
	Altitude    float32 // profile altitude at the leg
}

func (e *RestrictionInfeasible) Error() string {
	return fmt.Sprintf("%s: restriction %s can't be met; profile altitude %.0f", e.Fix, e.Restriction.Encoded(), e.Altitude)
}

func (e *RestrictionInfeasible) Unwrap() error { return ErrRestrictionInfeasible }
