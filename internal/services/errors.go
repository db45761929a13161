package services

import "errors"

// Sentinel errors returned (wrapped) by the services. Handlers map them to HTTP status codes.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidState    = errors.New("invalid state")
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotEnoughSeats  = errors.New("not enough seats left")
	ErrDuplicate       = errors.New("already exists")
	ErrReviewLocked    = errors.New("review can no longer be edited")
	ErrSessionNotFound = errors.New("session not found")
	ErrUnsupportedFile = errors.New("unsupported file type")
)
