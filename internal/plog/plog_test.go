package plog

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewWritesJSONLinesAtInfoLevelByDefault(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("visible", )
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("expected Debug to be suppressed at non-verbose level")
	}
	if !strings.Contains(out, "visible") {
		t.Error("expected Info to be written")
	}
	if !strings.Contains(out, `"ts"`) {
		t.Error("expected a ts field in the JSON output")
	}
}

func TestNewVerboseEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Error("expected Debug output when verbose is true")
	}
}

func TestNewConsoleWritesHumanReadableLines(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewConsole(&buf, false)
	if err != nil {
		t.Fatalf("NewConsole: %v", err)
	}
	logger.Info("hello console")
	if !strings.Contains(buf.String(), "hello console") {
		t.Error("expected the message in console output")
	}
}

func TestNewNopDiscardsEverything(t *testing.T) {
	logger := NewNop()
	logger.Info("anything") // must not panic, nothing to assert on output
}
