// Package log provides operator-facing diagnostics for a pipeline run.
//
// Entries are written to stderr as one line each, prefixed by a level
// label ("Warning:", "Fatal:") so build tool output passed through on the
// same terminal stays distinguishable. Every entry carries the run_id.
//
// Two logger variants are available:
//   - Logger: structured fields for pipeline stages
//   - SugaredLogger: printf-style logging for CLI surfaces
package log

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger provides structured logging with run context.
type Logger struct {
	zap *zap.Logger
}

// SugaredLogger provides printf-style logging for CLI surfaces.
type SugaredLogger struct {
	sugar *zap.SugaredLogger
}

// NewRunID returns a fresh identifier for one pipeline run.
func NewRunID() string {
	return uuid.NewString()
}

// NewLoggerWithWriter creates a logger writing to w at the given level
// ("debug", "info", "warn", "error"). Unknown levels fall back to warn.
func NewLoggerWithWriter(runID, level string, w io.Writer) *Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.WarnLevel
	}

	encoderConfig := zapcore.EncoderConfig{
		LevelKey:         "level",
		MessageKey:       "message",
		EncodeLevel:      levelPrefixEncoder(lipgloss.NewRenderer(w)),
		ConsoleSeparator: " ",
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(w),
		lvl,
	)

	return &Logger{zap: zap.New(core).With(zap.String("run_id", runID))}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

// levelPrefixEncoder renders levels as the operator-facing prefixes.
// Colors apply only when w is a terminal.
func levelPrefixEncoder(r *lipgloss.Renderer) zapcore.LevelEncoder {
	muted := r.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	warning := r.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true)
	fatal := r.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	return func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		switch {
		case l >= zapcore.ErrorLevel:
			enc.AppendString(fatal.Render("Fatal:"))
		case l == zapcore.WarnLevel:
			enc.AppendString(warning.Render("Warning:"))
		case l == zapcore.InfoLevel:
			enc.AppendString(muted.Render("Info:"))
		default:
			enc.AppendString(muted.Render("Debug:"))
		}
	}
}

func withFields(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	return []zap.Field{zap.Any("fields", fields)}
}

// Debug logs a debug message.
func (l *Logger) Debug(message string, fields map[string]any) {
	l.zap.Debug(message, withFields(fields)...)
}

// Info logs an info message.
func (l *Logger) Info(message string, fields map[string]any) {
	l.zap.Info(message, withFields(fields)...)
}

// Warn logs a warning message.
func (l *Logger) Warn(message string, fields map[string]any) {
	l.zap.Warn(message, withFields(fields)...)
}

// Error logs a fatal-class message. It does not exit; exiting is the
// CLI's job so cleanup can run first.
func (l *Logger) Error(message string, fields map[string]any) {
	l.zap.Error(message, withFields(fields)...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() {
	_ = l.zap.Sync()
}

// Sugar returns a SugaredLogger for printf-style logging.
func (l *Logger) Sugar() *SugaredLogger {
	return &SugaredLogger{sugar: l.zap.Sugar()}
}

// Infof logs an info message with printf-style formatting.
func (s *SugaredLogger) Infof(template string, args ...any) {
	s.sugar.Infof(template, args...)
}
