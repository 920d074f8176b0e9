package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewLoggerDefaultInfo(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := newLogger(false, "info", false, false, buf)
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	logger.Debug("debug-msg")
	logger.Info("info-msg")

	out := buf.String()
	if strings.Contains(out, "debug-msg") {
		t.Fatalf("expected debug to be filtered at info level, got %q", out)
	}
	if !strings.Contains(out, "info-msg") {
		t.Fatalf("expected info message, got %q", out)
	}
}

func TestNewLoggerLevelSources(t *testing.T) {
	cases := []struct {
		name      string
		env       string
		level     string
		flagSet   bool
		wantDebug bool
		wantInfo  bool
	}{
		{name: "env when flag unset", env: "trace", level: "info", wantDebug: true, wantInfo: true},
		{name: "flag overrides env", env: "trace", level: "error", flagSet: true},
		{name: "flag default without env", level: "warn"},
		{name: "flag debug", level: "debug", flagSet: true, wantDebug: true, wantInfo: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tc.env)
			buf := &bytes.Buffer{}
			logger, err := newLogger(false, tc.level, tc.flagSet, false, buf)
			if err != nil {
				t.Fatalf("logger: %v", err)
			}
			logger.Debug("debug-msg")
			logger.Info("info-msg")
			out := buf.String()
			if got := strings.Contains(out, "debug-msg"); got != tc.wantDebug {
				t.Fatalf("debug logged = %v, want %v: %q", got, tc.wantDebug, out)
			}
			if got := strings.Contains(out, "info-msg"); got != tc.wantInfo {
				t.Fatalf("info logged = %v, want %v: %q", got, tc.wantInfo, out)
			}
		})
	}
}

func TestNewLoggerRejectsUnknownFlagLevel(t *testing.T) {
	if _, err := newLogger(false, "loud", true, false, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNewLoggerStructured(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	buf := &bytes.Buffer{}
	logger, err := newLogger(true, "info", true, false, buf)
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	logger.Info("step", "actor", "juliet")

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if line["actor"] != "juliet" {
		t.Fatalf("unexpected structured line %v", line)
	}
}
