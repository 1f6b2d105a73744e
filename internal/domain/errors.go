package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrLoginSessionNotFound = errors.New("login session not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrGroupNotFound        = errors.New("group not found")
	ErrJobNotFound          = errors.New("job not found")
	ErrMalformedResponse    = errors.New("malformed upstream response")
	ErrNoValidMembers       = errors.New("no valid members to create group")
	ErrEmptyMessage         = errors.New("message has no text and no attachments")
	ErrQRExpired            = errors.New("qr code expired")
	ErrInvalidIdentifier    = errors.New("invalid identifier")
)

// UpstreamError wraps a failure returned by the upstream client for one call.
// Code carries the platform error code when the upstream reported one.
type UpstreamError struct {
	Op   string
	Code int
	Err  error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrLoginSessionNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrGroupNotFound) ||
		errors.Is(err, ErrJobNotFound)
}
