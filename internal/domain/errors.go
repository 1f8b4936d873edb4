package domain

import "errors"

var (
	ErrInvalidPayload     = errors.New("invalid payload")
	ErrStoreNotConfigured = errors.New("no active store configured")
	ErrUnknownSession     = errors.New("unknown session")
)
