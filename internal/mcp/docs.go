package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `catalogbulk looks up, edits and deletes library catalog records (items, holdings, instances, loans, users) in bulk.

Core concepts:
- Identifier: any string an operator pastes (barcode, hrid, uuid, accession number, user barcode). classify tells you what it is.
- Target: the record kind you want back. resolve walks from the identifier to every record of that kind.
- Job: a lookup, edit or delete over a list of identifiers. Failures are recorded per identifier; the job keeps going.
- Backup: the stored version of a record, kept before every update or delete. restore_backup undoes the change.

Default workflow:
1) parse_identifiers on pasted text, then classify to see what each identifier is and which targets it reaches.
2) resolve one identifier to check the result shape before running a job.
3) start_bulk, then poll get_job until status is completed, cancelled or failed. cancel_job stops it.
4) For edits and deletes, list_backups shows what was kept; restore_backup reverts a single record.

Docs:
- catalogbulk://docs/index
- catalogbulk://docs/identifiers
- catalogbulk://docs/resolution
- catalogbulk://docs/bulk-jobs
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "catalogbulk://docs/index",
		Name:        "docs_index",
		Title:       "catalogbulk docs index",
		Description: "Entry point: what the tools do and which doc to read next.",
		Content: `# catalogbulk docs

## Quick start

1. ` + "`parse_identifiers`" + ` splits pasted text into unique identifiers.
2. ` + "`classify`" + ` names each identifier's kind and the targets it can reach.
3. ` + "`resolve`" + ` fetches the target records for one identifier.
4. ` + "`start_bulk`" + ` runs a lookup, edit or delete job; ` + "`get_job`" + ` reports progress.

## What to read when

- Identifier not recognised, or classified unexpectedly: catalogbulk://docs/identifiers
- Unsupported resolution, or empty results: catalogbulk://docs/resolution
- Job failures, cancellation, backups: catalogbulk://docs/bulk-jobs

## Known limitations

- Jobs live in memory; the most recent 256 are kept.
- Classifications and type lists are cached. Call ` + "`clear_caches`" + ` after the catalog's reference data changes.
`,
	},
	{
		URI:         "catalogbulk://docs/identifiers",
		Name:        "docs_identifiers",
		Title:       "Identifier classification",
		Description: "How identifiers are recognised, in order.",
		Content: `# Identifier classification

Whitespace and backslashes are stripped first. Then, in order:

1. Item barcode shapes (configured patterns, for example ` + "`35047` + 7 digits" + `, ` + "`nobarcode…`" + `, ` + "`temp-`" + `).
2. Item hrid (` + "`it` + digits" + `), holdings hrid (` + "`ho` + digits" + `).
3. Accession numbers (configured prefix, default ` + "`cit.oai.`" + `): the last five dot segments are the instance uuid.
4. Identifiers with more than two hyphens are probed as uuids: item, instance, holdings, loan, user.
   A server error during these probes stops classification.
5. Otherwise the catalog is queried: user barcode, then user barcode zero-padded to ten digits,
   then instance, item and holdings hrid.

Nothing matched: the kind is ` + "`unknown`" + ` and it is not cached. Everything else is cached.
`,
	},
	{
		URI:         "catalogbulk://docs/resolution",
		Name:        "docs_resolution",
		Title:       "Resolution",
		Description: "Which identifier kinds reach which record kinds, and the options that change results.",
		Content: `# Resolution

Every identifier kind reaches its own record kind. Beyond that the resolver follows links:

- items, holdings and instances reach each other through holdings
- loans link items to users: a user reaches items, holdings and instances through their loans, and the reverse
- accession numbers resolve exactly like the instance uuid they encode
- type ids resolve only to type records

Combinations with no route fail with UNSUPPORTED_RESOLUTION. classify lists the supported targets.

A missing intermediate record ends that path with no results rather than an error.
Other catalog errors (bad request, unauthorized, server errors) are reported.

## Options

- ` + "`computed_view`" + `: read items and instances from the inventory view (includes derived fields) instead of storage.
- ` + "`open_loans_only`" + `: keep only loans whose status is Open, at every step that passes through loans.
`,
	},
	{
		URI:         "catalogbulk://docs/bulk-jobs",
		Name:        "docs_bulk_jobs",
		Title:       "Bulk jobs",
		Description: "Job lifecycle, per-identifier outcomes, cancellation and backups.",
		Content: `# Bulk jobs

A job processes identifiers one at a time. Each identifier ends as:

- ` + "`ok`" + `: records were found (and, for edits and deletes, changed).
- ` + "`skipped`" + `: the identifier was not recognised or resolved to nothing.
- ` + "`failed`" + `: with a category such as client_error, server_error, transport_down,
  rate_limit_exceeded, resolution or unexpected. The job continues with the next identifier.

## Cancellation

` + "`cancel_job`" + ` stops the job before the next identifier or catalog call. The job ends with status
` + "`cancelled`" + ` and keeps the results it had.

## Edits

` + "`changes`" + ` maps field paths (dotted for nested fields, for example ` + "`status.name`" + `) to new values.
A null value removes the field. The id cannot be changed.

## Backups

Before each update or delete the stored record is saved. ` + "`list_backups`" + ` filters by job or record;
` + "`restore_backup`" + ` re-creates a deleted record or re-applies the saved version of an updated one.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
