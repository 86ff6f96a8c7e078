package overallocation

import (
	"errors"
)

var (
	ErrMalformedResponse = errors.New("malformed overallocation check response")
	ErrRemoteRejected    = errors.New("overallocation check rejected by remote")
	ErrInvalidTransition = errors.New("invalid edit session transition")
)

// TransientError is a timeout, connection failure or 5xx from the remote checker.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient network error: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}
