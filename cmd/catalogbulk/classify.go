package main

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/rpggio/catalogbulk/internal/api"
)

func newClassifyCommand(flags *globalFlags) *cobra.Command {
	var (
		file   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "classify [identifier...]",
		Short: "Name the kind of each identifier and the record kinds it resolves to",
		Example: `  catalogbulk classify 350470000001 it00000123
  catalogbulk classify --file barcodes.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := readIdentifiers(args, file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			a, closeApp, err := openApp(flags)
			if err != nil {
				return err
			}
			defer closeApp()

			out, err := a.Handler.Classify(cmd.Context(), ids)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			renderClassifications(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read identifiers from a file, - for stdin")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func renderClassifications(w io.Writer, cs []api.Classification) {
	t := newTable(w, table.Row{"Identifier", "Kind", "Targets"})
	for _, c := range cs {
		if c.Error != "" {
			t.AppendRow(table.Row{c.Identifier, errorStyle.Sprint(c.Category), c.Error})
			continue
		}
		t.AppendRow(table.Row{c.Identifier, kindStyle(c.Kind).Sprint(c.Kind), joinKinds(c.Targets)})
	}
	t.Render()
}
