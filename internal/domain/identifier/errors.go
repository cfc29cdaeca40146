package identifier

import "errors"

var (
	// ErrEmptyIdentifier indicates an identifier that is blank after cleanup.
	ErrEmptyIdentifier = errors.New("empty identifier")
	// ErrInvalidAccession indicates an accession number without a UUID suffix.
	ErrInvalidAccession = errors.New("invalid accession number")
	// ErrInvalidPattern indicates a barcode pattern that does not compile.
	ErrInvalidPattern = errors.New("invalid barcode pattern")
)
