package domain

import "errors"

var (
	// ErrArtifactNotFound means a derived artifact has not been computed yet.
	ErrArtifactNotFound = errors.New("artifact not computed yet")

	// ErrItemNotFound means a write referenced an item that does not exist.
	ErrItemNotFound = errors.New("item not found")

	// ErrInvalidInput wraps validation failures of user-submitted data.
	ErrInvalidInput = errors.New("invalid input")
)
