package realtime

import (
	"errors"
	"fmt"
)

var (
	ErrSubscribe   = errors.New("subscription could not be established")
	ErrInvalidPath = errors.New("invalid update path")
	ErrConflict    = errors.New("update kept conflicting with concurrent writers")
	ErrClosed      = errors.New("store is closed")
	ErrFeedLost    = errors.New("change feed was lost")
)

func SubscribeError(path string, err error) error {
	return fmt.Errorf("%w: path(%s): %w", ErrSubscribe, path, err)
}

func FeedLostError(path string, err error) error {
	return fmt.Errorf("%w: path(%s): %w", ErrFeedLost, path, err)
}
