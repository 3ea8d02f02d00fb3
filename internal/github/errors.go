package github

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound marks operations against a remote object that does not exist.
var ErrNotFound = errors.New("not found")

// RateLimitError is returned when the remote API throttles the client. The
// run aborts; there is no automatic wait or retry.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited until %s", e.ResetAt.Format(time.RFC3339))
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
