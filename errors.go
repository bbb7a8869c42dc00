package fontobserver

import (
	"context"
	"strconv"
	"time"
)

// TimeoutError indicates that detection gave up, as the font was not
// confirmed loaded within the timeout. It matches context.DeadlineExceeded,
// via errors.Is.
type TimeoutError struct {
	Timeout time.Duration
}

// Error implements the error interface, e.g. "3000ms timeout exceeded".
func (e *TimeoutError) Error() string {
	return strconv.FormatInt(e.Timeout.Milliseconds(), 10) + `ms timeout exceeded`
}

// Unwrap returns context.DeadlineExceeded.
func (e *TimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}
