package watcher

import "fmt"

// SubscriptionError reports that the live view could not be established.
// The watcher never retries on its own.
type SubscriptionError struct {
	Path string
	Err  error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("unable to watch collection(%s): %s", e.Path, e.Err.Error())
}

func (e *SubscriptionError) Unwrap() error {
	return e.Err
}
