package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		logger := New(level)
		if logger == nil || logger.Logger == nil {
			t.Fatalf("expected logger for level %q", level)
		}
	}
}

func TestDebugSuppressedAtInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("info", &buf)
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected debug record to be suppressed, got %s", buf.String())
	}
	logger.Info("visible", "key", "value")
	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if record["msg"] != "visible" || record["key"] != "value" {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestWithCarriesAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("info", &buf).With("component", "webhooks")
	logger.Info("hello")
	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if record["component"] != "webhooks" {
		t.Fatalf("expected component attribute, got %v", record)
	}
}
