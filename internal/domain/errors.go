package domain

import (
	"errors"
	"fmt"
)

// ErrTransientFetch marks a fetch failure worth retrying (network hiccup,
// timeout, upstream 5xx). Wrapped errors carry the underlying detail.
var ErrTransientFetch = errors.New("transient fetch error")

// ErrPermanentFetch marks a fetch failure that retrying cannot fix
// (unsupported URL, removed or private video, bad format selection).
var ErrPermanentFetch = errors.New("permanent fetch error")

// ErrJobNotFound indicates a command referenced an id missing from the
// job table.
var ErrJobNotFound = errors.New("job not found")

// ValidationError rejects a command before any job is created or mutated.
// It is the only error class surfaced synchronously to callers.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
