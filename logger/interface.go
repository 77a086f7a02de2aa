// Package logger provides the structured logger shared by the cache service. Values
// logged under sensitive keys, such as passwords in store URLs, are masked.
package logger

import "time"

// Logger creates leveled events. Implementations must be safe for concurrent use.
type Logger interface {
	Debug() LogEvent
	Info() LogEvent
	Warn() LogEvent
	Error() LogEvent
	Fatal() LogEvent

	// WithContext returns the request-scoped logger carried by a context.Context, if any.
	WithContext(ctx any) Logger
	WithFields(fields map[string]any) Logger
}

// LogEvent accumulates fields and is emitted by Msg or Msgf.
type LogEvent interface {
	Str(key, value string) LogEvent
	Strs(key string, values []string) LogEvent
	Int(key string, value int) LogEvent
	Int64(key string, value int64) LogEvent
	Float64(key string, value float64) LogEvent
	Bool(key string, value bool) LogEvent
	Dur(key string, d time.Duration) LogEvent
	Bytes(key string, val []byte) LogEvent
	Interface(key string, i any) LogEvent
	Err(err error) LogEvent

	Msg(msg string)
	Msgf(format string, args ...any)
}
