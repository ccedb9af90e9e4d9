package store

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionClosed is returned by any operation on a closed session.
	ErrSessionClosed = errors.New("session closed")

	// ErrSessionNotFound is returned when a session id is unknown or
	// already evicted.
	ErrSessionNotFound = errors.New("session not found")
)

// ConfigError reports invalid session configuration. It is raised at
// session construction, before any document is processed, and is never
// retried.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}
