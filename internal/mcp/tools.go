package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/catalogbulk/internal/api"
)

func registerTools(server *sdkmcp.Server, d Dispatcher) {
	// Identifiers
	addTool[api.ParseIdentifiersParams](server, d, "parse_identifiers",
		"Split pasted text into unique identifiers. Separators are commas, semicolons and whitespace; tokens without a digit are dropped.")
	addTool[api.ClassifyParams](server, d, "classify",
		"Classify identifiers (barcode, hrid, uuid, accession number, user barcode) and list the record kinds each can resolve to.")

	// Records
	addTool[api.ResolveParams](server, d, "resolve",
		"Find the records of a target kind reachable from one identifier. id_kind is classified when omitted.")
	addTool[api.CreateRecordParams](server, d, "create_record",
		"Create a catalog record of the given kind from a JSON document.")
	addTool[api.UpdateRecordParams](server, d, "update_record",
		"Replace a catalog record. The stored version is backed up first.")
	addTool[api.DeleteRecordParams](server, d, "delete_record",
		"Delete a catalog record by id. The stored version is backed up first.")

	// Bulk jobs
	addTool[api.StartBulkParams](server, d, "start_bulk",
		"Start a lookup, edit or delete job over a list of identifiers. Returns the job snapshot; poll get_job for progress.")
	addTool[api.JobParams](server, d, "get_job",
		"Get progress and per-identifier results of a bulk job.")
	addTool[api.EmptyParams](server, d, "list_jobs",
		"List recent bulk jobs, newest first.")
	addTool[api.JobParams](server, d, "cancel_job",
		"Cancel a running bulk job. It stops before its next identifier or catalog call.")

	// Reference data and housekeeping
	addTool[api.ListTypesParams](server, d, "list_types",
		"List type-list kinds, or the entries of one kind (locations, loan types, material types, ...).")
	addTool[api.ListBackupsParams](server, d, "list_backups",
		"List record backups taken before updates and deletions.")
	addTool[api.RestoreBackupParams](server, d, "restore_backup",
		"Restore a record from a backup: re-create after delete, re-update after update.")
	addTool[api.GetRecentActivityParams](server, d, "get_recent_activity",
		"List recent operator activity: jobs started, finished or cancelled, and record mutations.")
	addTool[api.EmptyParams](server, d, "clear_caches",
		"Clear the identifier classification and type-list caches.")
}

func addTool[In any](server *sdkmcp.Server, d Dispatcher, name, description string) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        name,
		Description: description,
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in In) (*sdkmcp.CallToolResult, any, error) {
		params, err := json.Marshal(in)
		if err != nil {
			return nil, nil, fmt.Errorf("encoding %s arguments: %w", name, err)
		}
		out, err := d.Handle(ctx, name, params)
		if err != nil {
			return errorResult(err), nil, nil
		}
		return jsonResult(out)
	})
}

func jsonResult(v any) (*sdkmcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding result: %w", err)
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil, nil
}

func errorResult(err error) *sdkmcp.CallToolResult {
	payload := api.MapError(err)
	if payload == nil {
		payload = &api.APIError{Code: "INTERNAL", Message: err.Error()}
	}
	data, _ := json.Marshal(payload)
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}
}
