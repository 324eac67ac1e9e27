package logging

import (
	"errors"
	"testing"
)

func TestMockLogger_BasicLogging(t *testing.T) {
	logger := NewMockLoggerWithLevel(DebugLevel)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	entries := logger.GetLogEntries()
	if len(entries) != 4 {
		t.Fatalf("Expected 4 log entries, got %d", len(entries))
	}

	expectedLevels := []Level{DebugLevel, InfoLevel, WarnLevel, ErrorLevel}
	for i, entry := range entries {
		if entry.Level != expectedLevels[i] {
			t.Errorf("Expected level %v, got %v", expectedLevels[i], entry.Level)
		}
	}
}

func TestMockLogger_LevelControl(t *testing.T) {
	logger := NewMockLogger()

	logger.Debug("hidden")
	logger.Infof("Hello %s", "World")

	if logger.GetLogCount() != 1 {
		t.Fatalf("Expected 1 entry at info level, got %d", logger.GetLogCount())
	}
	if !logger.HasLogEntry(InfoLevel, "Hello World") {
		t.Error("formatted message not captured")
	}
}

func TestMockLogger_VariadicFields(t *testing.T) {
	logger := NewMockLogger()

	logger.Warnw("insert failed", "collection", "restaurants", "error", errors.New("timeout"))

	if !logger.HasLogEntryWithField(WarnLevel, "collection", "restaurants") {
		t.Error("collection field not captured")
	}
	if !logger.HasLogEntryWithField(WarnLevel, "error", "timeout") {
		t.Error("error values should be captured as strings")
	}
}

func TestMockLogger_ChildrenShareEntries(t *testing.T) {
	root := NewMockLogger()
	child := root.WithField("component", "ingest").WithError(errors.New("bad doc"))

	child.Error("decode failed")

	if !root.HasLogEntryContaining(ErrorLevel, "decode") {
		t.Fatal("entry logged through child not visible on root")
	}
	entry := root.GetLogEntriesByLevel(ErrorLevel)[0]
	if entry.Fields["component"] != "ingest" || entry.Fields["error"] != "bad doc" {
		t.Errorf("child fields missing: %v", entry.Fields)
	}

	root.Info("root only")
	if _, ok := root.GetLogEntriesByLevel(InfoLevel)[0].Fields["component"]; ok {
		t.Error("child field leaked into root")
	}

	root.ClearLogEntries()
	if root.GetLogCount() != 0 {
		t.Error("ClearLogEntries did not clear")
	}
}

func TestMockLogger_ImplementsLogger(t *testing.T) {
	var _ Logger = NewMockLogger()
	var _ Logger = &ZerologLogger{}
}
