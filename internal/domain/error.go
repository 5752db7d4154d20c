package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound             = errors.New("entity not found")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrUserNotFound         = errors.New("user not found")
	ErrNotApproved          = errors.New("user is not approved")
	ErrInvalidCallback      = errors.New("invalid callback name")
	ErrUnknownJob           = errors.New("unknown job id")
	ErrNoCallbackRegistered = errors.New("no callback to process response")
	ErrTransformFailed      = errors.New("callback transform failed")
)
