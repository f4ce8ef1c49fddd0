package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger_JSONWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := WithProject(WithComponent(newLogger(&buf, "info"), "store"), "My-Reel")
	logger.Debug("hidden")
	logger.Info("saved")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected exactly one JSON record, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "saved" || rec["component"] != "store" || rec["project"] != "My-Reel" {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestSanitizeToken(t *testing.T) {
	if got := SanitizeToken("short"); got != "****" {
		t.Errorf("SanitizeToken(short) = %q", got)
	}
	if got := SanitizeToken("abcdefghijkl"); got != "abcd...ijkl" {
		t.Errorf("SanitizeToken = %q, want abcd...ijkl", got)
	}
}

func TestBytes(t *testing.T) {
	if got := Bytes(1500); got != "1.5 kB" {
		t.Errorf("Bytes(1500) = %q, want 1.5 kB", got)
	}
	if got := Bytes(-3); got != "0 B" {
		t.Errorf("Bytes(-3) = %q, want 0 B", got)
	}
}
