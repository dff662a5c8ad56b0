package backend

import (
	"errors"
	"fmt"
)

// Standard backend errors
var (
	// ErrConnectionFailed is returned when a connection attempt fails
	ErrConnectionFailed = errors.New("connection failed")

	// ErrNoClient is returned when the driver reports success but hands back no client
	ErrNoClient = errors.New("driver returned no client")

	// ErrManagerClosed is returned when the manager is closed while a connection attempt is in flight
	ErrManagerClosed = errors.New("manager closed during open")

	// ErrNotConnected is returned when an operation needs a live handle and there is none
	ErrNotConnected = errors.New("not connected")

	// ErrQueryFailed is returned when a request against an open database fails
	ErrQueryFailed = errors.New("query failed")

	// ErrInvalidConfiguration is returned when the arguments or configuration are invalid
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrBackendNotFound is returned when no driver is registered under a name
	ErrBackendNotFound = errors.New("backend not found")
)

// ConnectionError is returned when the driver cannot establish a connection.
// URL is stored as attempted; Error() prints it redacted.
type ConnectionError struct {
	URL   string
	Cause error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("couldn't connect to mongo at %s: %v", RedactURL(e.URL), e.Cause)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is ErrConnectionFailed.
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnectionFailed
}

// NewConnectionError creates a new ConnectionError.
func NewConnectionError(url string, cause error) *ConnectionError {
	return &ConnectionError{
		URL:   url,
		Cause: cause,
	}
}

// QueryError wraps a failed request against a database handle.
type QueryError struct {
	Operation string
	Database  string
	Cause     error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Database != "" {
		return fmt.Sprintf("%s on %s: %v", e.Operation, e.Database, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Cause)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is ErrQueryFailed.
func (e *QueryError) Is(target error) bool {
	return target == ErrQueryFailed
}

// NewQueryError creates a new QueryError.
func NewQueryError(operation, database string, cause error) *QueryError {
	return &QueryError{
		Operation: operation,
		Database:  database,
		Cause:     cause,
	}
}

// DatabaseError wraps a driver error from a lifecycle operation such as close.
type DatabaseError struct {
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *DatabaseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Operation, e.Cause)
}

// Unwrap returns the underlying error.
func (e *DatabaseError) Unwrap() error {
	return e.Cause
}

// ConfigurationError is returned when an argument or setting is unusable.
type ConfigurationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid configuration: field '%s': %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}

// Is checks if the error is ErrInvalidConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(field, reason string) *ConfigurationError {
	return &ConfigurationError{
		Field:  field,
		Reason: reason,
	}
}

// IsConnectionError checks if an error is a connection error.
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnectionFailed)
}

// IsQueryError checks if an error is a query error.
func IsQueryError(err error) bool {
	return errors.Is(err, ErrQueryFailed)
}

// IsConfigurationError checks if an error is a configuration error.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}
