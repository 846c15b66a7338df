package reconciler

import (
	"errors"
	"fmt"
)

var ErrInvalidID = errors.New("notification id is required")

// WriteError reports a mark-read patch the store did not apply. Nothing
// local has changed; the next snapshot still shows the records as unread.
type WriteError struct {
	Paths int
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to apply read-state patch(%d paths): %s", e.Paths, e.Err.Error())
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
