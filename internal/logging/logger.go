// Package logging provides the structured event log (C8): one emission
// per directive state transition and provider call, plus a cumulative
// performance tracker. Construction is explicit — callers build a
// *Logger with New and pass it to every collaborator that needs to emit
// events; there is no package-level instance.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap.Logger with the event vocabulary the pipeline
// emits at each lifecycle transition.
type Logger struct {
	z *zap.Logger
}

// Config controls the underlying zap construction.
type Config struct {
	Level string // debug, info, warn, error
	File  string // optional path; empty means stderr-only
	JSON  bool   // true for structured JSON output, false for console encoding
}

// New builds a Logger from the given config. Unrecognized levels fall
// back to info rather than failing construction.
func New(cfg Config) (*Logger, error) {
	level := parseLevel(cfg.Level)

	var zcfg zap.Config
	if cfg.JSON {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	if cfg.File != "" {
		zcfg.OutputPaths = append(zcfg.OutputPaths, cfg.File)
	}

	z, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build zap logger: %w", err)
	}
	return &Logger{z: z}, nil
}

// NewNop returns a Logger that discards everything, for tests and
// components that don't need an observable event stream.
func NewNop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// Sync flushes any buffered log entries. Call on shutdown.
func (l *Logger) Sync() error {
	return l.z.Sync()
}

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// DirectiveCreated records C4 emitting a new directive.
func (l *Logger) DirectiveCreated(directiveID, slug, platform, model string) {
	l.z.Info("directive created",
		zap.String("event_type", "directive_created"),
		zap.String("directive_id", directiveID),
		zap.String("slug", slug),
		zap.String("platform", platform),
		zap.String("model", model),
	)
}

// DirectiveStarted records C7 claiming a directive for processing.
func (l *Logger) DirectiveStarted(directiveID, path string) {
	l.z.Info("directive started",
		zap.String("event_type", "directive_started"),
		zap.String("directive_id", directiveID),
		zap.String("path", path),
	)
}

// DirectiveCompleted records the outcome of one directive's execution.
func (l *Logger) DirectiveCompleted(directiveID string, success bool, durationSeconds float64, tokensIn, tokensOut int, cost float64) {
	status := "failed"
	if success {
		status = "success"
	}
	l.z.Info(fmt.Sprintf("directive %s", status),
		zap.String("event_type", "directive_completed"),
		zap.String("directive_id", directiveID),
		zap.Bool("success", success),
		zap.Float64("duration", durationSeconds),
		zap.Int("tokens_in", tokensIn),
		zap.Int("tokens_out", tokensOut),
		zap.Float64("cost", cost),
	)
}

// ProviderRequest records an outbound call to C1.
func (l *Logger) ProviderRequest(platform, model string, tokensIn int) {
	l.z.Debug("provider request",
		zap.String("event_type", "provider_request"),
		zap.String("platform", platform),
		zap.String("model", model),
		zap.Int("tokens_in", tokensIn),
	)
}

// ProviderResponse records the result of a call to C1, successful or not.
func (l *Logger) ProviderResponse(platform, model string, success bool, tokensOut int, cost float64, errMsg string) {
	if success {
		l.z.Debug("provider response",
			zap.String("event_type", "provider_response"),
			zap.String("platform", platform),
			zap.String("model", model),
			zap.Int("tokens_out", tokensOut),
			zap.Float64("cost", cost),
		)
		return
	}
	l.z.Warn("provider error",
		zap.String("event_type", "provider_error"),
		zap.String("platform", platform),
		zap.String("model", model),
		zap.String("error", errMsg),
	)
}

// SystemStatus records a periodic summary, typically from PerformanceTracker.
func (l *Logger) SystemStatus(fields map[string]any) {
	zfields := make([]zap.Field, 0, len(fields)+1)
	zfields = append(zfields, zap.String("event_type", "system_status"))
	for k, v := range fields {
		zfields = append(zfields, zap.Any(k, v))
	}
	l.z.Info("system status", zfields...)
}

// Warn surfaces a non-fatal error (parse failures, filesystem races)
// without relocating the offending file, per the error-kind taxonomy.
func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.z.Warn(msg, fields...)
}

// Error logs a failure at error level. It does not itself stop the
// caller's pass.
func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.z.Error(msg, fields...)
}

// Info logs a general informational event.
func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.z.Info(msg, fields...)
}
