package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewWritesServiceField(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "encounter", Settings{Level: "debug"})
	logger.Debug().Str("code", "PHASE_VIOLATION").Msg("rejected")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["service"] != "encounter" {
		t.Fatalf("service = %v, want encounter", line["service"])
	}
	if line["code"] != "PHASE_VIOLATION" {
		t.Fatalf("code = %v, want PHASE_VIOLATION", line["code"])
	}
	if line["level"] != "debug" {
		t.Fatalf("level = %v, want debug", line["level"])
	}
}

func TestNewFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "", Settings{Level: "chatty"})
	logger.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected debug to be filtered, got %q", buf.String())
	}
	logger.Info().Msg("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected info line, got %q", buf.String())
	}
}
