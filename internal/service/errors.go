package service

import "errors"

var (
	ErrInternal            = errors.New("internal server error")
	ErrFeedStarted         = errors.New("notification feed is already started")
	ErrMenuClosed          = errors.New("notification menu is closed")
	ErrInvalidNotification = errors.New("title is required and must not be over 255")
)
