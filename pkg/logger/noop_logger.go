package logger

import "context"

// noopLogger discards all entries. Used in tests and as a safe default.
type noopLogger struct{}

// NewNoopLogger returns a Logger that discards everything.
func NewNoopLogger() Logger { return &noopLogger{} }

func (n *noopLogger) Debug(ctx context.Context, message string, fields ...Field)            {}
func (n *noopLogger) Info(ctx context.Context, message string, fields ...Field)             {}
func (n *noopLogger) Warn(ctx context.Context, message string, fields ...Field)             {}
func (n *noopLogger) Error(ctx context.Context, message string, err error, fields ...Field) {}
func (n *noopLogger) Fatal(ctx context.Context, message string, err error, fields ...Field) {}
func (n *noopLogger) WithFields(fields ...Field) Logger                                     { return n }
func (n *noopLogger) WithComponent(component string) Logger                                 { return n }
