package model

import "fmt"

// ValidationError reports bad caller input. It is surfaced once to the
// initiating caller; nothing in the core retries on its behalf.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// CapabilityError reports a failed external capability, such as a client
// that could not provide its geolocation. The failure is terminal for the
// operation and requires explicit re-invocation by the caller.
type CapabilityError struct {
	Capability string
	Err        error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Capability, e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }
