// Package api dispatches named operations to the domain services. Every
// outer surface (JSON-RPC, MCP tools, CLI) goes through Handler.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/rpggio/catalogbulk/internal/catalog"
	"github.com/rpggio/catalogbulk/internal/domain/activity"
	"github.com/rpggio/catalogbulk/internal/domain/backup"
	"github.com/rpggio/catalogbulk/internal/domain/bulk"
	"github.com/rpggio/catalogbulk/internal/domain/identifier"
	"github.com/rpggio/catalogbulk/internal/domain/mutation"
	"github.com/rpggio/catalogbulk/internal/domain/record"
	"github.com/rpggio/catalogbulk/internal/domain/resolve"
)

// ClassifierService defines classification needed by the API.
type ClassifierService interface {
	Classify(ctx context.Context, raw string) (record.IdentifierKind, error)
}

// ResolverService defines resolution needed by the API.
type ResolverService interface {
	Resolve(ctx context.Context, id string, idKind record.IdentifierKind, target record.RecordKind, opts resolve.Options) ([]record.Record, error)
	Targets(idKind record.IdentifierKind) []record.RecordKind
}

// TypeService defines type-list access needed by the API.
type TypeService interface {
	Kinds() []record.TypeKind
	List(ctx context.Context, kind record.TypeKind) ([]record.Record, error)
}

// MutationService defines single-record writes needed by the API.
type MutationService interface {
	Create(ctx context.Context, rec record.Record) (string, error)
	Update(ctx context.Context, rec record.Record) error
	Delete(ctx context.Context, rec record.Record) error
	Restore(ctx context.Context, b *backup.Backup) error
}

// JobService defines bulk job control needed by the API.
type JobService interface {
	Start(ctx context.Context, req bulk.Request) (*bulk.Job, error)
	Get(id string) (*bulk.Job, error)
	Cancel(id string) error
	Jobs() []bulk.Snapshot
}

// BackupService defines backup access needed by the API.
type BackupService interface {
	Take(ctx context.Context, jobID string, rec record.Record, op backup.Operation) (*backup.Backup, error)
	Get(ctx context.Context, id string) (*backup.Backup, error)
	List(ctx context.Context, opts backup.ListOptions) ([]backup.Backup, error)
}

// ActivityService defines activity operations needed by the API.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
	Record(ctx context.Context, typ activity.ActivityType, jobID, recordID, summary string, details any)
}

// Cache is anything clear_caches empties.
type Cache interface {
	Clear()
}

// Services contains all domain services needed by the API.
type Services struct {
	Classifier ClassifierService
	Resolver   ResolverService
	Types      TypeService
	Mutations  MutationService
	Jobs       JobService
	Backups    BackupService
	Activity   ActivityService
	Caches     map[string]Cache
}

// Methods lists every method Handle accepts.
var Methods = []string{
	"parse_identifiers",
	"classify",
	"resolve",
	"create_record",
	"update_record",
	"delete_record",
	"start_bulk",
	"get_job",
	"list_jobs",
	"cancel_job",
	"list_types",
	"list_backups",
	"restore_backup",
	"get_recent_activity",
	"clear_caches",
}

// Handler dispatches API calls.
type Handler struct {
	svc    Services
	logger *slog.Logger
}

// NewHandler creates a new handler.
func NewHandler(svc Services, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{svc: svc, logger: logger.With("component", "api")}
}

// Handle dispatches one call. Returned errors are *APIError where the
// cause is recognised.
func (h *Handler) Handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	result, err := h.dispatch(ctx, method, params)
	if err != nil {
		h.logger.DebugContext(ctx, "call failed", slog.String("method", method), slog.String("error", err.Error()))
		return nil, mapError(err)
	}
	return result, nil
}

func (h *Handler) dispatch(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "parse_identifiers":
		var req ParseIdentifiersParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return ParseIdentifiersResponse{Identifiers: identifier.UniqueIdentifiers(req.Text)}, nil
	case "classify":
		var req ClassifyParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.classify(ctx, req)
	case "resolve":
		var req ResolveParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.resolve(ctx, req)
	case "create_record":
		var req CreateRecordParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.createRecord(ctx, req)
	case "update_record":
		var req UpdateRecordParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.updateRecord(ctx, req)
	case "delete_record":
		var req DeleteRecordParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.deleteRecord(ctx, req)
	case "start_bulk":
		var req StartBulkParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		identifiers := req.Identifiers
		if len(identifiers) == 0 {
			identifiers = identifier.UniqueIdentifiers(req.Text)
		}
		job, err := h.svc.Jobs.Start(ctx, bulk.Request{
			Kind:        req.Kind,
			Identifiers: identifiers,
			Target:      req.Target,
			Options:     req.Options,
			Changes:     req.Changes,
		})
		if err != nil {
			return nil, err
		}
		return job.Snapshot(), nil
	case "get_job":
		var req JobParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		job, err := h.svc.Jobs.Get(req.ID)
		if err != nil {
			return nil, err
		}
		return job.Snapshot(), nil
	case "list_jobs":
		jobs := h.svc.Jobs.Jobs()
		sort.Slice(jobs, func(i, j int) bool { return jobs[i].StartedAt.After(jobs[j].StartedAt) })
		return jobs, nil
	case "cancel_job":
		var req JobParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := h.svc.Jobs.Cancel(req.ID); err != nil {
			return nil, err
		}
		job, err := h.svc.Jobs.Get(req.ID)
		if err != nil {
			return nil, err
		}
		return job.Snapshot(), nil
	case "list_types":
		var req ListTypesParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if req.Kind == "" {
			return TypeKindsResponse{Kinds: h.svc.Types.Kinds()}, nil
		}
		kind, err := record.ParseTypeKind(string(req.Kind))
		if err != nil {
			return nil, err
		}
		recs, err := h.svc.Types.List(ctx, kind)
		if err != nil {
			return nil, err
		}
		return TypeListResponse{Kind: kind, Records: recs}, nil
	case "list_backups":
		var req ListBackupsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.svc.Backups.List(ctx, backup.ListOptions{
			JobID:    req.JobID,
			RecordID: req.RecordID,
			Limit:    req.Limit,
			Offset:   req.Offset,
		})
	case "restore_backup":
		var req RestoreBackupParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.restoreBackup(ctx, req)
	case "get_recent_activity":
		var req GetRecentActivityParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.svc.Activity.GetRecentActivity(ctx, activity.ListActivityOptions{
			JobID:        req.JobID,
			RecordID:     req.RecordID,
			ActivityType: req.ActivityType,
			Limit:        req.Limit,
			Offset:       req.Offset,
		})
	case "clear_caches":
		names := make([]string, 0, len(h.svc.Caches))
		for name, c := range h.svc.Caches {
			c.Clear()
			names = append(names, name)
		}
		sort.Strings(names)
		h.svc.Activity.Record(ctx, activity.TypeCachesCleared, "", "", "caches cleared", names)
		return ClearCachesResponse{Cleared: names}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrMethodNotFound, method)
	}
}

func (h *Handler) classify(ctx context.Context, req ClassifyParams) ([]Classification, error) {
	ids := req.Identifiers
	if len(ids) == 0 {
		ids = identifier.UniqueIdentifiers(req.Text)
	}
	return h.Classify(ctx, ids)
}

// Classify names the kind of each identifier. A failed lookup is reported on
// that identifier's entry; only cancellation fails the whole call.
func (h *Handler) Classify(ctx context.Context, ids []string) ([]Classification, error) {
	out := make([]Classification, 0, len(ids))
	for _, raw := range ids {
		if err := catalog.Checkpoint(ctx); err != nil {
			return nil, err
		}
		c := Classification{Identifier: identifier.Clean(raw)}
		kind, err := h.svc.Classifier.Classify(ctx, raw)
		switch {
		case errors.Is(err, catalog.ErrCancelled):
			return nil, err
		case err != nil:
			c.Error = err.Error()
			c.Category = bulk.Category(err)
			h.logger.WarnContext(ctx, "classification failed",
				slog.String("identifier", c.Identifier),
				slog.String("category", c.Category),
				slog.String("error", c.Error),
			)
		default:
			c.Kind = kind
			if kind != record.IDUnknown {
				c.Targets = h.svc.Resolver.Targets(kind)
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func (h *Handler) resolve(ctx context.Context, req ResolveParams) (ResolveResponse, error) {
	target, err := record.ParseRecordKind(string(req.Target))
	if err != nil {
		return ResolveResponse{}, err
	}
	id := identifier.Clean(req.Identifier)
	if id == "" {
		return ResolveResponse{}, identifier.ErrEmptyIdentifier
	}

	idKind := req.IDKind
	if idKind == "" {
		idKind, err = h.svc.Classifier.Classify(ctx, id)
		if err != nil {
			return ResolveResponse{}, err
		}
	} else if idKind, err = record.ParseIdentifierKind(string(idKind)); err != nil {
		return ResolveResponse{}, err
	}
	if idKind == record.IDUnknown {
		return ResolveResponse{}, fmt.Errorf("%w: %s", ErrUnknownIdentifier, id)
	}

	recs, err := h.svc.Resolver.Resolve(ctx, id, idKind, target, req.Options)
	if err != nil {
		return ResolveResponse{}, err
	}
	if recs == nil {
		recs = []record.Record{}
	}
	return ResolveResponse{Identifier: id, IDKind: idKind, Target: target, Records: recs}, nil
}

func (h *Handler) createRecord(ctx context.Context, req CreateRecordParams) (CreateRecordResponse, error) {
	kind, err := record.ParseRecordKind(string(req.Kind))
	if err != nil {
		return CreateRecordResponse{}, err
	}
	rec, err := record.NewDraft(kind, req.Data)
	if err != nil {
		return CreateRecordResponse{}, err
	}
	id, err := h.svc.Mutations.Create(ctx, rec)
	if err != nil {
		return CreateRecordResponse{}, err
	}
	h.svc.Activity.Record(ctx, activity.TypeRecordCreated, "", id, fmt.Sprintf("created %s", kind), nil)
	return CreateRecordResponse{ID: id, Kind: kind}, nil
}

func (h *Handler) updateRecord(ctx context.Context, req UpdateRecordParams) (MutationResponse, error) {
	kind, err := record.ParseRecordKind(string(req.Kind))
	if err != nil {
		return MutationResponse{}, err
	}
	rec, err := record.New(kind, req.Data)
	if err != nil {
		return MutationResponse{}, err
	}
	if _, ok := kind.UpdatePath(rec.ID); !ok {
		return MutationResponse{}, fmt.Errorf("%w: update %s", mutation.ErrUnsupportedKind, kind)
	}
	b, err := h.backupCurrent(ctx, kind, rec.ID, backup.OperationUpdate)
	if err != nil {
		return MutationResponse{}, err
	}
	if err := h.svc.Mutations.Update(ctx, rec); err != nil {
		return MutationResponse{}, err
	}
	h.svc.Activity.Record(ctx, activity.TypeRecordUpdated, "", rec.ID, fmt.Sprintf("updated %s", kind), map[string]string{"backup_id": b.ID})
	return MutationResponse{ID: rec.ID, Kind: kind, BackupID: b.ID}, nil
}

func (h *Handler) deleteRecord(ctx context.Context, req DeleteRecordParams) (MutationResponse, error) {
	kind, err := record.ParseRecordKind(string(req.Kind))
	if err != nil {
		return MutationResponse{}, err
	}
	if req.ID == "" {
		return MutationResponse{}, mutation.ErrMissingID
	}
	if _, ok := kind.DeletePath(req.ID); !ok {
		return MutationResponse{}, fmt.Errorf("%w: delete %s", mutation.ErrUnsupportedKind, kind)
	}
	b, err := h.backupCurrent(ctx, kind, req.ID, backup.OperationDelete)
	if err != nil {
		return MutationResponse{}, err
	}
	current, err := b.Record()
	if err != nil {
		return MutationResponse{}, err
	}
	if err := h.svc.Mutations.Delete(ctx, current); err != nil {
		return MutationResponse{}, err
	}
	h.svc.Activity.Record(ctx, activity.TypeRecordDeleted, "", req.ID, fmt.Sprintf("deleted %s", kind), map[string]string{"backup_id": b.ID})
	return MutationResponse{ID: req.ID, Kind: kind, BackupID: b.ID}, nil
}

// backupCurrent fetches the stored version of a record and keeps it as a
// pre-image before it is overwritten or removed.
func (h *Handler) backupCurrent(ctx context.Context, kind record.RecordKind, id string, op backup.Operation) (*backup.Backup, error) {
	recs, err := h.svc.Resolver.Resolve(ctx, id, kind.IDKind(), kind, resolve.Options{})
	if err != nil {
		return nil, fmt.Errorf("fetching current %s %s: %w", kind, id, err)
	}
	if len(recs) == 0 {
		return nil, &APIError{Code: CodeNotFound, Message: fmt.Sprintf("%s %s not found", kind, id), RecoveryHint: "Check ID spelling"}
	}
	return h.svc.Backups.Take(ctx, "", recs[0], op)
}

func (h *Handler) restoreBackup(ctx context.Context, req RestoreBackupParams) (MutationResponse, error) {
	b, err := h.svc.Backups.Get(ctx, req.ID)
	if err != nil {
		return MutationResponse{}, err
	}
	if err := h.svc.Mutations.Restore(ctx, b); err != nil {
		return MutationResponse{}, err
	}
	h.svc.Activity.Record(ctx, activity.TypeRecordRestored, b.JobID, b.RecordID, fmt.Sprintf("restored %s from %s backup", b.Kind, b.Operation), map[string]string{"backup_id": b.ID})
	return MutationResponse{ID: b.RecordID, Kind: b.Kind, BackupID: b.ID}, nil
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}
