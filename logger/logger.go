// Package logger defines the gateway's leveled logging interface, with a
// zap-backed implementation and a no-op default.
package logger

// Logger receives structured events from the payment pipeline stages
// (decode, verify, settle, forward) and the HTTP boundary.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// NoopLogger drops everything; the gateway's default until WithLogger is set.
type NoopLogger struct{}

func (NoopLogger) Debug(string, map[string]any) {}
func (NoopLogger) Info(string, map[string]any)  {}
func (NoopLogger) Warn(string, map[string]any)  {}
func (NoopLogger) Error(string, map[string]any) {}
