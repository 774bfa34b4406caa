package domain

import "errors"

// Sentinel errors for user operations.
var (
	// ErrUserNotFound indicates the users API reported the record as missing.
	// HTTP Status: 404 Not Found
	ErrUserNotFound = errors.New("user not found")

	// ErrUpstream indicates the users API answered with a non-success status
	// or an unreadable body.
	ErrUpstream = errors.New("users api error")

	// ErrInvalidID indicates a path identifier that is not a positive integer.
	// HTTP Status: 400 Bad Request
	ErrInvalidID = errors.New("invalid user id")
)
