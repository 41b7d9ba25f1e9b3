package upstream

import "fmt"

// SessionInitError indicates that session acquisition failed to yield a
// usable identifier. Fallback generation always succeeds, so in practice
// this only surfaces if acquisition is aborted before the fallback runs.
type SessionInitError struct {
	Err error
}

func (e *SessionInitError) Error() string {
	return fmt.Sprintf("session initialization failed: %v", e.Err)
}

func (e *SessionInitError) Unwrap() error {
	return e.Err
}

// RPCCallError indicates that an upstream call failed at the transport or
// protocol level. Status and Body are populated when an HTTP response was
// received; Err carries the underlying cause when one exists.
type RPCCallError struct {
	Status  int
	Body    string
	Message string
	Err     error
}

func (e *RPCCallError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream call failed with status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("upstream call failed: %s", e.Message)
}

func (e *RPCCallError) Unwrap() error {
	return e.Err
}
