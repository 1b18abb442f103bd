package entity

import "errors"

var (
	// ErrSourceUnavailable is returned when the CMS cannot be reached or fails the primary request.
	ErrSourceUnavailable = errors.New("content source unavailable")

	// ErrNotFound is returned when a requested post or category does not exist.
	ErrNotFound = errors.New("not found")
)
