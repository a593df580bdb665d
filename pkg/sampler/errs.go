package sampler

import "errors"

var (
	// ErrNoSessionID is returned when Sample is called with a non-positive
	// session id.
	ErrNoSessionID = errors.New("sampler: invalid session id")
)
