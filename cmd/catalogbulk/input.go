package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/rpggio/catalogbulk/internal/domain/bulk"
	"github.com/rpggio/catalogbulk/internal/domain/identifier"
	"github.com/rpggio/catalogbulk/internal/domain/record"
)

// readIdentifiers collects identifiers from args and, when path is set,
// from a file ("-" reads stdin). Duplicates and tokens without digits are
// dropped.
func readIdentifiers(args []string, path string, stdin io.Reader) ([]string, error) {
	text := strings.Join(args, "\n")
	if path != "" {
		var (
			data []byte
			err  error
		)
		if path == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(path)
		}
		if err != nil {
			return nil, fmt.Errorf("reading identifiers: %w", err)
		}
		text += "\n" + string(data)
	}
	ids := identifier.UniqueIdentifiers(text)
	if len(ids) == 0 {
		return nil, fmt.Errorf("no identifiers given")
	}
	return ids, nil
}

func kindStyle(kind record.IdentifierKind) *color.Color {
	if kind == record.IDUnknown || kind == "" {
		return color.New(color.FgYellow)
	}
	return color.New(color.FgGreen)
}

func outcomeStyle(o bulk.Outcome) *color.Color {
	switch o {
	case bulk.OutcomeOK:
		return color.New(color.FgGreen)
	case bulk.OutcomeSkipped:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func newTable(w io.Writer, header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(header)
	return t
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func joinKinds(kinds []record.RecordKind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}
