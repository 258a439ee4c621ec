// Package logging provides the small structured logger shared by the patch
// engine and the command line wrapper.
package logging

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"
)

// Level represents the severity of a log entry.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var levelRank = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// ParseLevel maps a case-insensitive level name onto a Level. Unknown names
// fall back to LevelWarn and report ok=false.
func ParseLevel(name string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	}
	return LevelWarn, false
}

// LogField represents a key-value pair in structured logging.
type LogField struct {
	Key   string
	Value any
}

// Field creates a LogField from a key-value pair.
func Field(key string, value any) LogField {
	return LogField{Key: key, Value: value}
}

// Logger provides structured logging capabilities with context support.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...LogField)
	Info(ctx context.Context, msg string, fields ...LogField)
	Warn(ctx context.Context, msg string, fields ...LogField)
	Error(ctx context.Context, msg string, err error, fields ...LogField)
	WithFields(fields ...LogField) Logger
}

// NoOpLogger is a logger that discards all log entries.
type NoOpLogger struct{}

func (n *NoOpLogger) Debug(_ context.Context, _ string, _ ...LogField)          {}
func (n *NoOpLogger) Info(_ context.Context, _ string, _ ...LogField)           {}
func (n *NoOpLogger) Warn(_ context.Context, _ string, _ ...LogField)           {}
func (n *NoOpLogger) Error(_ context.Context, _ string, _ error, _ ...LogField) {}
func (n *NoOpLogger) WithFields(_ ...LogField) Logger                           { return n }

// OrNoOp returns l, or a NoOpLogger when l is nil.
func OrNoOp(l Logger) Logger {
	if l == nil {
		return &NoOpLogger{}
	}
	return l
}

// StdLogger writes one line per entry through the standard library logger.
type StdLogger struct {
	fields     []LogField
	minLevel   Level
	timestamps bool
	logger     *log.Logger
}

// NewStdLogger creates a logger with the given minimum level. A nil writer
// discards everything.
func NewStdLogger(minLevel Level, writer io.Writer) *StdLogger {
	if writer == nil {
		writer = io.Discard
	}
	return &StdLogger{
		minLevel: minLevel,
		logger:   log.New(writer, "", 0),
	}
}

// WithTimestamps enables an RFC3339 timestamp prefix on every entry.
func (s *StdLogger) WithTimestamps() *StdLogger {
	clone := *s
	clone.timestamps = true
	return &clone
}

func (s *StdLogger) log(level Level, msg string, err error, fields ...LogField) {
	if levelRank[level] < levelRank[s.minLevel] {
		return
	}

	all := make([]LogField, 0, len(s.fields)+len(fields))
	all = append(all, s.fields...)
	all = append(all, fields...)

	var parts []string
	if s.timestamps {
		parts = append(parts, fmt.Sprintf("[%s]", time.Now().Format(time.RFC3339)))
	}
	parts = append(parts, fmt.Sprintf("[%s]", level))
	if err != nil {
		parts = append(parts, fmt.Sprintf("[error=%q]", err.Error()))
	}
	parts = append(parts, msg)

	if len(all) > 0 {
		kv := make([]string, 0, len(all))
		for _, f := range all {
			kv = append(kv, fmt.Sprintf("%s=%v", f.Key, f.Value))
		}
		parts = append(parts, fmt.Sprintf("fields=[%s]", strings.Join(kv, " ")))
	}

	s.logger.Println(strings.Join(parts, " "))
}

func (s *StdLogger) Debug(_ context.Context, msg string, fields ...LogField) {
	s.log(LevelDebug, msg, nil, fields...)
}

func (s *StdLogger) Info(_ context.Context, msg string, fields ...LogField) {
	s.log(LevelInfo, msg, nil, fields...)
}

func (s *StdLogger) Warn(_ context.Context, msg string, fields ...LogField) {
	s.log(LevelWarn, msg, nil, fields...)
}

func (s *StdLogger) Error(_ context.Context, msg string, err error, fields ...LogField) {
	s.log(LevelError, msg, err, fields...)
}

func (s *StdLogger) WithFields(fields ...LogField) Logger {
	merged := make([]LogField, 0, len(s.fields)+len(fields))
	merged = append(merged, s.fields...)
	merged = append(merged, fields...)
	return &StdLogger{
		fields:     merged,
		minLevel:   s.minLevel,
		timestamps: s.timestamps,
		logger:     s.logger,
	}
}
