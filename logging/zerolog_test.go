package logging

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const (
	testLoggerName  = "test-logger"
	testServiceName = "test-service"
)

func newFileLogger(t *testing.T, level Level) (*ZerologLogger, string) {
	t.Helper()
	logFile := filepath.Join(t.TempDir(), "test.log")
	logger, err := NewLoggerWithConfig(&LoggerConfig{
		Level:         level,
		FilePath:      logFile,
		LoggerName:    testLoggerName,
		ComponentName: "store",
		ServiceName:   testServiceName,
	})
	if err != nil {
		t.Fatalf("NewLoggerWithConfig() error = %v", err)
	}
	return logger, logFile
}

func readLines(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log file: %v", err)
	}
	defer f.Close()

	var lines []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var m map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			t.Fatalf("log line is not JSON: %q", scanner.Text())
		}
		lines = append(lines, m)
	}
	return lines
}

func TestNewLoggerWithConfigWritesJSON(t *testing.T) {
	logger, logFile := newFileLogger(t, DebugLevel)

	logger.Info("info message")
	logger.Debugw("debug message", "borough", "Bronx", "count", 3)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	lines := readLines(t, logFile)
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}
	if lines[0]["message"] != "info message" || lines[0]["service"] != testServiceName {
		t.Errorf("unexpected first line: %v", lines[0])
	}
	if lines[0]["component"] != "store" || lines[0]["logger"] != testLoggerName {
		t.Errorf("missing static fields: %v", lines[0])
	}
	if lines[1]["borough"] != "Bronx" || lines[1]["count"] != float64(3) {
		t.Errorf("missing structured fields: %v", lines[1])
	}
}

func TestNewLoggerWithConfigFileError(t *testing.T) {
	_, err := NewLoggerWithConfig(&LoggerConfig{
		Level:       InfoLevel,
		FilePath:    "/invalid/path/test.log",
		LoggerName:  testLoggerName,
		ServiceName: testServiceName,
	})
	if err == nil {
		t.Error("expected error for invalid file path")
	}
}

func TestZerologLoggerLevelFiltering(t *testing.T) {
	logger, logFile := newFileLogger(t, WarnLevel)

	logger.Debug("dropped")
	logger.Info("dropped")
	logger.Warn("kept")
	logger.Debugf("dropped %d", 2)
	logger.Errorf("kept %d", 2)
	logger.Close()

	lines := readLines(t, logFile)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines after filtering, got %d", len(lines))
	}
	if lines[1]["message"] != "kept 2" {
		t.Errorf("unexpected message %v", lines[1]["message"])
	}
}

func TestZerologLoggerChildFieldsDoNotLeak(t *testing.T) {
	logger, logFile := newFileLogger(t, InfoLevel)

	child := logger.WithField("op", "top_zipcodes").WithError(errors.New("boom"))
	child.Info("child")
	logger.Info("parent")
	logger.Close()

	lines := readLines(t, logFile)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0]["op"] != "top_zipcodes" || lines[0]["error"] != "boom" {
		t.Errorf("child fields missing: %v", lines[0])
	}
	if _, ok := lines[1]["op"]; ok {
		t.Errorf("parent logger picked up child field: %v", lines[1])
	}
}

func TestNewLoggerStdSinks(t *testing.T) {
	for _, sink := range []string{SinkStdout, SinkStderr} {
		logger, err := NewLogger(&LoggerConfig{
			Level:       InfoLevel,
			FilePath:    sink,
			LoggerName:  testLoggerName,
			ServiceName: testServiceName,
			Console:     true,
		})
		if err != nil {
			t.Fatalf("NewLogger(%s) error = %v", sink, err)
		}
		if err := logger.Close(); err != nil {
			t.Errorf("Close() on %s sink error = %v", sink, err)
		}
	}
}

func TestLoggerConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LoggerConfig
		wantErr bool
	}{
		{"valid", LoggerConfig{FilePath: SinkStderr, LoggerName: "a", ServiceName: "b"}, false},
		{"missing path", LoggerConfig{LoggerName: "a", ServiceName: "b"}, true},
		{"missing logger name", LoggerConfig{FilePath: SinkStderr, ServiceName: "b"}, true},
		{"missing service", LoggerConfig{FilePath: SinkStderr, LoggerName: "a"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		" warn ":  WarnLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"fatal":   FatalLevel,
		"bogus":   InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
