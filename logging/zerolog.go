package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLogger implements Logger using zerolog
type ZerologLogger struct {
	mu       sync.RWMutex
	logger   zerolog.Logger
	level    Level
	fields   Fields
	errorKey string
	config   *LoggerConfig
	file     *os.File // nil for stdout/stderr sinks
}

// NewLoggerWithConfig creates a ZerologLogger writing to the configured sink
func NewLoggerWithConfig(config *LoggerConfig) (*ZerologLogger, error) {
	out, file, err := openSink(config)
	if err != nil {
		return nil, err
	}

	// keep the global level permissive so the per-instance level decides
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	ctx := zerolog.New(out).With().
		Timestamp().
		Str("service", config.ServiceName).
		Str("logger", config.LoggerName)
	if config.ComponentName != "" {
		ctx = ctx.Str("component", config.ComponentName)
	}
	logger := ctx.Logger().Level(levelToZerolog(config.Level))

	return &ZerologLogger{
		logger:   logger,
		level:    config.Level,
		fields:   make(Fields),
		errorKey: "error",
		config:   config,
		file:     file,
	}, nil
}

func openSink(config *LoggerConfig) (io.Writer, *os.File, error) {
	var std *os.File
	switch config.FilePath {
	case SinkStdout:
		std = os.Stdout
	case SinkStderr:
		std = os.Stderr
	}
	if std != nil {
		if config.Console {
			return zerolog.ConsoleWriter{Out: std, TimeFormat: time.RFC3339}, nil, nil
		}
		return std, nil, nil
	}

	file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", config.FilePath, err)
	}
	return file, file, nil
}

// Close closes the log file, if any
func (z *ZerologLogger) Close() error {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.file != nil {
		err := z.file.Close()
		z.file = nil
		return err
	}
	return nil
}

func (z *ZerologLogger) enabled(level Level) bool {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return level >= z.level
}

func levelToZerolog(level Level) zerolog.Level {
	switch level {
	case DebugLevel:
		return zerolog.DebugLevel
	case InfoLevel:
		return zerolog.InfoLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	case FatalLevel:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// event creates a zerolog event carrying the accumulated fields
func (z *ZerologLogger) event(level Level) *zerolog.Event {
	var e *zerolog.Event
	switch level {
	case DebugLevel:
		e = z.logger.Debug()
	case WarnLevel:
		e = z.logger.Warn()
	case ErrorLevel:
		e = z.logger.Error()
	default:
		e = z.logger.Info()
	}

	z.mu.RLock()
	for key, value := range z.fields {
		e = e.Interface(key, value)
	}
	z.mu.RUnlock()

	return e
}

func (z *ZerologLogger) log(level Level, msg string) {
	if !z.enabled(level) {
		return
	}
	z.event(level).Msg(msg)
}

func (z *ZerologLogger) logf(level Level, format string, args ...interface{}) {
	if !z.enabled(level) {
		return
	}
	z.event(level).Msgf(format, args...)
}

func (z *ZerologLogger) Debug(msg string) { z.log(DebugLevel, msg) }
func (z *ZerologLogger) Info(msg string)  { z.log(InfoLevel, msg) }
func (z *ZerologLogger) Warn(msg string)  { z.log(WarnLevel, msg) }
func (z *ZerologLogger) Error(msg string) { z.log(ErrorLevel, msg) }

func (z *ZerologLogger) Debugf(format string, args ...interface{}) {
	z.logf(DebugLevel, format, args...)
}

func (z *ZerologLogger) Infof(format string, args ...interface{}) {
	z.logf(InfoLevel, format, args...)
}

func (z *ZerologLogger) Warnf(format string, args ...interface{}) {
	z.logf(WarnLevel, format, args...)
}

func (z *ZerologLogger) Errorf(format string, args ...interface{}) {
	z.logf(ErrorLevel, format, args...)
}

func (z *ZerologLogger) Debugw(msg string, keysAndValues ...interface{}) {
	z.WithFields(keysAndValuesToFields(keysAndValues...)).Debug(msg)
}

func (z *ZerologLogger) Infow(msg string, keysAndValues ...interface{}) {
	z.WithFields(keysAndValuesToFields(keysAndValues...)).Info(msg)
}

func (z *ZerologLogger) Warnw(msg string, keysAndValues ...interface{}) {
	z.WithFields(keysAndValuesToFields(keysAndValues...)).Warn(msg)
}

func (z *ZerologLogger) Errorw(msg string, keysAndValues ...interface{}) {
	z.WithFields(keysAndValuesToFields(keysAndValues...)).Error(msg)
}

// WithFields returns a child logger carrying the given fields
func (z *ZerologLogger) WithFields(fields Fields) Logger {
	child := z.clone()
	for k, v := range fields {
		child.fields[k] = v
	}
	return child
}

func (z *ZerologLogger) WithField(key string, value interface{}) Logger {
	return z.WithFields(Fields{key: value})
}

func (z *ZerologLogger) WithError(err error) Logger {
	if err == nil {
		return z
	}
	return z.WithField(z.errorKey, err.Error())
}

// clone copies the logger; children share the sink with their parent
func (z *ZerologLogger) clone() *ZerologLogger {
	z.mu.RLock()
	defer z.mu.RUnlock()

	fields := make(Fields, len(z.fields))
	for k, v := range z.fields {
		fields[k] = v
	}

	return &ZerologLogger{
		logger:   z.logger,
		level:    z.level,
		fields:   fields,
		errorKey: z.errorKey,
		config:   z.config,
		file:     z.file,
	}
}
