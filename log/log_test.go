// log/log_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNilLogger(t *testing.T) {
	var lg *Logger
	// None of these should crash.
	lg.Debug("debug")
	lg.Debugf("debug %d", 1)
	lg.Info("info")
	lg.Infof("info %d", 2)
	if lg.With("key", "value") != nil {
		t.Errorf("With on a nil Logger should return nil")
	}
}

func TestLoggerCallstack(t *testing.T) {
	var buf bytes.Buffer
	lg := NewWriter(&buf, "debug")
	lg.Info("hello", "fix", "MERIT")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unable to decode log record %q: %v", buf.String(), err)
	}
	if rec["msg"] != "hello" || rec["fix"] != "MERIT" {
		t.Errorf("unexpected record: %v", rec)
	}
	cs, ok := rec["callstack"].([]any)
	if !ok || len(cs) == 0 {
		t.Fatalf("missing callstack in %v", rec)
	}
	frame := cs[0].(map[string]any)
	if !strings.Contains(frame["function"].(string), "TestLoggerCallstack") {
		t.Errorf("expected first frame to be the test function, got %v", frame)
	}
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	lg := NewWriter(&buf, "warn")
	lg.Info("dropped")
	lg.Debugf("dropped %d", 1)
	if buf.Len() != 0 {
		t.Errorf("info/debug should be filtered at warn level, got %q", buf.String())
	}
	lg.Warnf("kept %d", 1)
	if !strings.Contains(buf.String(), "kept 1") {
		t.Errorf("warning missing from output %q", buf.String())
	}
}
