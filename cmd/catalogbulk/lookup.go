package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/rpggio/catalogbulk/internal/domain/bulk"
	"github.com/rpggio/catalogbulk/internal/domain/record"
)

func newLookupCommand(flags *globalFlags) *cobra.Command {
	var (
		file   string
		target string
		asJSON bool
		req    bulk.Request
	)
	cmd := &cobra.Command{
		Use:   "lookup --target KIND [identifier...]",
		Short: "Resolve identifiers to records of one kind",
		Example: `  catalogbulk lookup --target instance 350470000001
  catalogbulk lookup --target item --open-loans-only --file patrons.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := record.ParseRecordKind(target)
			if err != nil {
				return err
			}
			ids, err := readIdentifiers(args, file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			a, closeApp, err := openApp(flags)
			if err != nil {
				return err
			}
			defer closeApp()

			req.Identifiers = ids
			req.Target = kind
			snap, err := a.Jobs.Lookup(cmd.Context(), req)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), snap)
			}
			renderLookup(cmd.OutOrStdout(), snap)
			if snap.Status != bulk.StatusCompleted {
				return fmt.Errorf("lookup %s: %s", snap.Status, snap.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", "", "Record kind to return: item, holdings, instance, loan, user, type")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read identifiers from a file, - for stdin")
	cmd.Flags().BoolVar(&req.Options.OpenLoansOnly, "open-loans-only", false, "Follow only open loans")
	cmd.Flags().BoolVar(&req.Options.ComputedView, "computed-view", false, "Read items and instances from the inventory view")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the job snapshot as JSON")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func renderLookup(w io.Writer, snap bulk.Snapshot) {
	t := newTable(w, table.Row{"Identifier", "Kind", "Outcome", "Records"})
	for _, r := range snap.Results {
		detail := r.Reason
		if r.Outcome == bulk.OutcomeOK {
			detail = recordSummary(r.Records)
		} else if r.Category != "" {
			detail = r.Category + ": " + r.Reason
		}
		t.AppendRow(table.Row{
			r.Identifier,
			kindStyle(r.IDKind).Sprint(r.IDKind),
			outcomeStyle(r.Outcome).Sprint(r.Outcome),
			detail,
		})
	}
	t.AppendFooter(table.Row{"", "", "total", fmt.Sprintf("%d/%d", snap.Completed, snap.Total)})
	t.Render()
}

func recordSummary(recs []record.Record) string {
	parts := make([]string, 0, len(recs))
	for _, r := range recs {
		parts = append(parts, fmt.Sprintf("%s (%s)", r.Name(), r.ID))
	}
	return strings.Join(parts, "\n")
}
