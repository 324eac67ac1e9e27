package logging

import (
	"fmt"
	"strings"
	"sync"
)

// LogEntry represents a captured log entry for testing verification
type LogEntry struct {
	Level   Level
	Message string
	Fields  Fields
}

// entrySink is shared by a MockLogger and every child derived from it,
// so entries logged through WithField children are visible on the root.
type entrySink struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (s *entrySink) add(e LogEntry) {
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
}

func (s *entrySink) snapshot() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LogEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// MockLogger implements Logger and records entries for assertions in tests
type MockLogger struct {
	mu     sync.RWMutex
	level  Level
	fields Fields
	sink   *entrySink
}

// NewMockLogger creates a new mock logger at InfoLevel
func NewMockLogger() *MockLogger {
	return &MockLogger{
		level:  InfoLevel,
		fields: make(Fields),
		sink:   &entrySink{},
	}
}

// NewMockLoggerWithLevel creates a mock logger with a specific level
func NewMockLoggerWithLevel(level Level) *MockLogger {
	m := NewMockLogger()
	m.level = level
	return m
}

func (m *MockLogger) enabled(level Level) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return level >= m.level
}

func (m *MockLogger) Debug(msg string) { m.log(DebugLevel, msg, nil) }
func (m *MockLogger) Info(msg string)  { m.log(InfoLevel, msg, nil) }
func (m *MockLogger) Warn(msg string)  { m.log(WarnLevel, msg, nil) }
func (m *MockLogger) Error(msg string) { m.log(ErrorLevel, msg, nil) }

func (m *MockLogger) Debugf(format string, args ...interface{}) {
	m.log(DebugLevel, fmt.Sprintf(format, args...), nil)
}

func (m *MockLogger) Infof(format string, args ...interface{}) {
	m.log(InfoLevel, fmt.Sprintf(format, args...), nil)
}

func (m *MockLogger) Warnf(format string, args ...interface{}) {
	m.log(WarnLevel, fmt.Sprintf(format, args...), nil)
}

func (m *MockLogger) Errorf(format string, args ...interface{}) {
	m.log(ErrorLevel, fmt.Sprintf(format, args...), nil)
}

func (m *MockLogger) Debugw(msg string, keysAndValues ...interface{}) {
	m.log(DebugLevel, msg, keysAndValuesToFields(keysAndValues...))
}

func (m *MockLogger) Infow(msg string, keysAndValues ...interface{}) {
	m.log(InfoLevel, msg, keysAndValuesToFields(keysAndValues...))
}

func (m *MockLogger) Warnw(msg string, keysAndValues ...interface{}) {
	m.log(WarnLevel, msg, keysAndValuesToFields(keysAndValues...))
}

func (m *MockLogger) Errorw(msg string, keysAndValues ...interface{}) {
	m.log(ErrorLevel, msg, keysAndValuesToFields(keysAndValues...))
}

func (m *MockLogger) WithFields(fields Fields) Logger {
	m.mu.RLock()
	merged := make(Fields, len(m.fields)+len(fields))
	for k, v := range m.fields {
		merged[k] = v
	}
	level := m.level
	m.mu.RUnlock()

	for k, v := range fields {
		merged[k] = v
	}
	return &MockLogger{level: level, fields: merged, sink: m.sink}
}

func (m *MockLogger) WithField(key string, value interface{}) Logger {
	return m.WithFields(Fields{key: value})
}

func (m *MockLogger) WithError(err error) Logger {
	if err == nil {
		return m
	}
	return m.WithFields(Fields{"error": err.Error()})
}

func (m *MockLogger) Close() error {
	return nil
}

func (m *MockLogger) log(level Level, msg string, extra Fields) {
	if !m.enabled(level) {
		return
	}

	m.mu.RLock()
	all := make(Fields, len(m.fields)+len(extra))
	for k, v := range m.fields {
		all[k] = v
	}
	m.mu.RUnlock()
	for k, v := range extra {
		all[k] = v
	}

	m.sink.add(LogEntry{Level: level, Message: msg, Fields: all})
}

// GetLogEntries returns a copy of every captured entry
func (m *MockLogger) GetLogEntries() []LogEntry {
	return m.sink.snapshot()
}

// GetLogEntriesByLevel returns captured entries of one level
func (m *MockLogger) GetLogEntriesByLevel(level Level) []LogEntry {
	var out []LogEntry
	for _, e := range m.sink.snapshot() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// HasLogEntry reports whether an entry with exactly this message was logged at level
func (m *MockLogger) HasLogEntry(level Level, message string) bool {
	for _, e := range m.sink.snapshot() {
		if e.Level == level && e.Message == message {
			return true
		}
	}
	return false
}

// HasLogEntryContaining reports whether an entry at level contains text
func (m *MockLogger) HasLogEntryContaining(level Level, text string) bool {
	for _, e := range m.sink.snapshot() {
		if e.Level == level && strings.Contains(e.Message, text) {
			return true
		}
	}
	return false
}

// HasLogEntryWithField reports whether an entry at level carries key=value
func (m *MockLogger) HasLogEntryWithField(level Level, key string, value interface{}) bool {
	for _, e := range m.sink.snapshot() {
		if e.Level == level {
			if v, ok := e.Fields[key]; ok && v == value {
				return true
			}
		}
	}
	return false
}

// ClearLogEntries drops every captured entry
func (m *MockLogger) ClearLogEntries() {
	m.sink.mu.Lock()
	m.sink.entries = nil
	m.sink.mu.Unlock()
}

// GetLogCount returns the number of captured entries
func (m *MockLogger) GetLogCount() int {
	return len(m.sink.snapshot())
}
