package fragment

import (
	"errors"

	"github.com/fragstore/fragstore/pkg/store"
)

var (
	// ErrUnsupportedType is returned when a fragment is created or updated
	// with a media type outside the supported set.
	ErrUnsupportedType = errors.New("unsupported fragment type")

	// ErrInvalidData is returned when an update carries no payload.
	ErrInvalidData = errors.New("fragment data must not be empty")

	// ErrNotFound mirrors the backend sentinel so callers can check either
	// package's error against the same condition.
	ErrNotFound = store.ErrNotFound
)
