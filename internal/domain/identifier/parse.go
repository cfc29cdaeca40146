package identifier

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// UserBarcodeWidth is the fixed width the user module stores barcodes at.
const UserBarcodeWidth = 10

// Clean strips backslash and space characters left behind by data entry.
func Clean(raw string) string {
	return strings.Map(func(r rune) rune {
		if r == '\\' || r == ' ' {
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
}

// UniqueIdentifiers splits free text on commas, semicolons and whitespace.
// Tokens without a digit are dropped and the first occurrence of each
// identifier wins.
func UniqueIdentifiers(text string) []string {
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		tok = Clean(tok)
		if tok == "" || !strings.ContainsFunc(tok, unicode.IsDigit) {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// PadUserBarcode left-pads a numeric barcode with zeros to UserBarcodeWidth.
// It reports false when s is not numeric or already wide enough.
func PadUserBarcode(s string) (string, bool) {
	if s == "" || len(s) >= UserBarcodeWidth {
		return s, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return s, false
		}
	}
	return strings.Repeat("0", UserBarcodeWidth-len(s)) + s, true
}

// InstanceIDFromAccession extracts the instance UUID encoded in the last
// five dot-separated segments of an accession number.
func InstanceIDFromAccession(acc string) (string, error) {
	parts := strings.Split(Clean(acc), ".")
	if len(parts) < 5 {
		return "", fmt.Errorf("%w: %q", ErrInvalidAccession, acc)
	}
	candidate := strings.Join(parts[len(parts)-5:], "-")
	id, err := uuid.Parse(candidate)
	if err != nil || len(candidate) != 36 {
		return "", fmt.Errorf("%w: %q", ErrInvalidAccession, acc)
	}
	return id.String(), nil
}
