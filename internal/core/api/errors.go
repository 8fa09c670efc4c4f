package api

import "fmt"

// StatusError is returned when the backend answers with a non-2xx status
type StatusError struct {
	Op     string // "list sessions", "create session", ...
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
}

// RequestError wraps transport and decoding failures
type RequestError struct {
	Op  string
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
