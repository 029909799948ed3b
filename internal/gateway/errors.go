package gateway

import (
	"errors"
	"fmt"
)

// ErrEmptyCredential is returned when the client is built without an API token.
var ErrEmptyCredential = errors.New("gateway: empty credential")

// Error describes a failed gateway call. Its message never carries credentials.
type Error struct {
	Op         string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a gateway failure worth retrying on a later attempt.
func IsRetryable(err error) bool {
	var gwErr *Error
	return errors.As(err, &gwErr) && gwErr.Retryable
}

func retryableStatus(code int) bool {
	return code == 429 || code >= 500
}
