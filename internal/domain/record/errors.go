package record

import "errors"

var (
	// ErrInvalidRecord indicates a document that cannot form a record.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrUnknownKind indicates an unrecognised kind name.
	ErrUnknownKind = errors.New("unknown kind")
	// ErrMalformedBody indicates a response body that is not the expected JSON shape.
	ErrMalformedBody = errors.New("malformed response body")
)
