package cache

import (
	"errors"
	"fmt"
)

// Sentinel errors for cache and connection operations.
// Use errors.Is() to check for these specific error conditions.
var (
	// ErrNotFound is returned by store primitives when a key doesn't exist or has expired.
	// The Manager turns it into a recorded miss rather than an error.
	ErrNotFound = errors.New("cache: key not found")

	// ErrClientNotInitialized is returned when a primitive is called before the store client
	// exists (zero-value connection, or after an explicit Disconnect). It is never retried.
	ErrClientNotInitialized = errors.New("cache: client not initialized")

	// ErrNotConnected is returned while a connect or reconnect cycle is in progress.
	ErrNotConnected = errors.New("cache: not connected")

	// ErrConnectionFailed is returned once the reconnect budget is exhausted.
	// A new explicit Connect is required to recover.
	ErrConnectionFailed = errors.New("cache: connection failed")

	// ErrInvalidTTL is returned when a TTL value is negative.
	ErrInvalidTTL = errors.New("cache: invalid TTL")

	// ErrCorruptEntry is reported when a stored envelope cannot be decoded.
	ErrCorruptEntry = errors.New("cache: corrupt entry")

	// ErrTypeMismatch is reported when a stored envelope holds a different Go type than requested.
	ErrTypeMismatch = errors.New("cache: entry type mismatch")

	// ErrInvalidTransition is returned by the connection state machine for illegal transitions.
	ErrInvalidTransition = errors.New("cache: invalid connection state transition")
)

// ConfigError represents a configuration error during cache initialization.
// These errors are fail-fast and should stop application startup.
type ConfigError struct {
	Field   string // Configuration field that failed validation
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cache configuration error: %s: %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("cache configuration error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new configuration error.
func NewConfigError(field, message string, err error) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// ConnectionError represents a connection-level failure.
// Connection errors are fatal to the call that observed them; the Manager does not retry them.
type ConnectionError struct {
	Op      string // Operation that failed (e.g., "connect", "ensure", "ping")
	Address string // Store server address
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cache connection error: %s failed for %s: %v", e.Op, e.Address, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// NewConnectionError creates a new connection error.
func NewConnectionError(op, address string, err error) *ConnectionError {
	return &ConnectionError{
		Op:      op,
		Address: address,
		Err:     err,
	}
}

// OperationError represents a failed cache operation (get, set, delete, ...).
type OperationError struct {
	Op  string // Operation that failed (e.g., "get", "set", "invalidate")
	Key string // Cache key involved in the operation
	Err error  // Underlying error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	return fmt.Sprintf("cache operation error: %s failed for key %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *OperationError) Unwrap() error {
	return e.Err
}

// NewOperationError creates a new operation error.
func NewOperationError(op, key string, err error) *OperationError {
	return &OperationError{
		Op:  op,
		Key: key,
		Err: err,
	}
}

// IsConnectionError reports whether err is a connection-level failure
// (uninitialized client, not connected, or exhausted reconnect budget).
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr) ||
		errors.Is(err, ErrClientNotInitialized) ||
		errors.Is(err, ErrNotConnected) ||
		errors.Is(err, ErrConnectionFailed)
}
