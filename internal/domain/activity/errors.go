package activity

import "errors"

// ErrInvalidInput is returned for a nil or untyped entry.
var ErrInvalidInput = errors.New("invalid activity entry")
