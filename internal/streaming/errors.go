package streaming

import "fmt"

// RegistrationException is raised when RegisterStream returns a non-zero
// error code — user-visible at stream construction time (spec.md §7.6).
type RegistrationException struct {
	StreamID string
	Message  string
}

func (e *RegistrationException) Error() string {
	return fmt.Sprintf("streaming: registration failed for %s: %s", e.StreamID, e.Message)
}

// BackendException is raised when Publish or Poll returns a non-zero
// error code — user-visible, but the stream remains registered
// (spec.md §7.7).
type BackendException struct {
	StreamID string
	Op       string
	Message  string
}

func (e *BackendException) Error() string {
	return fmt.Sprintf("streaming: %s failed for %s: %s", e.Op, e.StreamID, e.Message)
}
