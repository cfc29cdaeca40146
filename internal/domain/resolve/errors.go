package resolve

import (
	"errors"
	"fmt"

	"github.com/rpggio/catalogbulk/internal/domain/record"
)

// ErrUnsupportedCombination is wrapped by every ResolutionError.
var ErrUnsupportedCombination = errors.New("unsupported resolution")

// ResolutionError reports an identifier kind that has no route to a target
// record kind.
type ResolutionError struct {
	IDKind record.IdentifierKind
	Target record.RecordKind
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve %s identifiers to %s records", e.IDKind, e.Target)
}

func (e *ResolutionError) Unwrap() error { return ErrUnsupportedCombination }
