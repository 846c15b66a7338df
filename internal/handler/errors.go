package handler

import "errors"

var (
	errNoToken               = errors.New("there is no token")
	errInvalidJWT            = errors.New("invalid jwt")
	errInvalidUserID         = errors.New("invalid user ID")
	errNotAdmin              = errors.New("you are not an admin")
	errUnableToLoad          = errors.New("unable to load notifications")
	errMarkReadFailed        = errors.New("failed to mark notifications as read")
	errUnknownWSAction       = errors.New("unknown action")
	errInvalidNotificationID = errors.New("notification id is required")
)
