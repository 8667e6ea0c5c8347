package core

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned by backends used before Connect succeeds.
var ErrNotConnected = errors.New("database connection not established")

// ErrTableNotFound is wrapped by Describe when the table does not exist.
var ErrTableNotFound = errors.New("not found")

// ConnectionError is returned when a backend cannot be reached.
type ConnectionError struct {
	Backend Backend
	Driver  string
	Err     error
}

func (e *ConnectionError) Error() string {
	name := e.Driver
	if name == "" {
		name = e.Backend.String()
	}
	return fmt.Sprintf("%s connection error: %v", name, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// UnknownOperationError is returned for operation names outside the closed set.
// Explanation carries whatever the intent producer said about the request.
type UnknownOperationError struct {
	Operation   string
	Explanation string
}

func (e *UnknownOperationError) Error() string {
	msg := fmt.Sprintf("Operation '%s' not implemented or recognized.", e.Operation)
	if e.Explanation != "" {
		msg += " " + e.Explanation
	}
	return msg
}

// BackendExecutionError wraps a failure reported by the store while running
// an operation.
type BackendExecutionError struct {
	Operation Operation
	Target    string
	Err       error
}

func (e *BackendExecutionError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("%s failed: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("%s on '%s' failed: %v", e.Operation, e.Target, e.Err)
}

func (e *BackendExecutionError) Unwrap() error { return e.Err }

// ImportError is returned when tabular input cannot be read or loaded.
type ImportError struct {
	Target string
	Stage  string // read, create or load
	Err    error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import into '%s' failed during %s: %v", e.Target, e.Stage, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// ParamError is returned when an intent's parameters are missing or malformed.
type ParamError struct {
	Operation Operation
	Param     string
	Reason    string
}

func (e *ParamError) Error() string {
	if e.Operation == "" {
		return fmt.Sprintf("invalid parameter %q: %s", e.Param, e.Reason)
	}
	return fmt.Sprintf("%s: invalid parameter %q: %s", e.Operation, e.Param, e.Reason)
}
