package network

import (
	"fmt"
	"strings"
	"time"
)

// Failure records a component whose body returned an error or panicked
type Failure struct {
	Component string
	Err       error
	At        time.Time
}

// Error implements error
func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Component, f.Err)
}

// Unwrap returns the component's error
func (f Failure) Unwrap() error {
	return f.Err
}

// RunError is returned by Run when the network stopped because of component
// failures
type RunError struct {
	Network  string
	Failures []Failure
}

// Error implements error
func (e *RunError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("network %s failed: %s", e.Network, strings.Join(parts, "; "))
}

// Unwrap exposes every component error to errors.Is and errors.As
func (e *RunError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}
