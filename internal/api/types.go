package api

import (
	"github.com/rpggio/catalogbulk/internal/domain/activity"
	"github.com/rpggio/catalogbulk/internal/domain/bulk"
	"github.com/rpggio/catalogbulk/internal/domain/record"
	"github.com/rpggio/catalogbulk/internal/domain/resolve"
)

type ParseIdentifiersParams struct {
	Text string `json:"text"`
}

type ClassifyParams struct {
	Identifiers []string `json:"identifiers,omitempty"`
	Text        string   `json:"text,omitempty"`
}

type ResolveParams struct {
	Identifier string                `json:"identifier"`
	IDKind     record.IdentifierKind `json:"id_kind,omitempty"`
	Target     record.RecordKind     `json:"target"`
	Options    resolve.Options       `json:"options,omitempty"`
}

type CreateRecordParams struct {
	Kind record.RecordKind `json:"kind"`
	Data map[string]any    `json:"data"`
}

type UpdateRecordParams struct {
	Kind record.RecordKind `json:"kind"`
	Data map[string]any    `json:"data"`
}

type DeleteRecordParams struct {
	Kind record.RecordKind `json:"kind"`
	ID   string            `json:"id"`
}

type StartBulkParams struct {
	Kind        bulk.JobKind      `json:"kind"`
	Identifiers []string          `json:"identifiers,omitempty"`
	Text        string            `json:"text,omitempty"`
	Target      record.RecordKind `json:"target"`
	Options     resolve.Options   `json:"options,omitempty"`
	Changes     map[string]any    `json:"changes,omitempty"`
}

type JobParams struct {
	ID string `json:"id"`
}

type ListTypesParams struct {
	Kind record.TypeKind `json:"kind,omitempty"`
}

type ListBackupsParams struct {
	JobID    string `json:"job_id,omitempty"`
	RecordID string `json:"record_id,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

type RestoreBackupParams struct {
	ID string `json:"id"`
}

type GetRecentActivityParams struct {
	JobID        *string                `json:"job_id,omitempty"`
	RecordID     *string                `json:"record_id,omitempty"`
	ActivityType *activity.ActivityType `json:"activity_type,omitempty"`
	Limit        int                    `json:"limit,omitempty"`
	Offset       int                    `json:"offset,omitempty"`
}

type EmptyParams struct{}

type ParseIdentifiersResponse struct {
	Identifiers []string `json:"identifiers"`
}

type Classification struct {
	Identifier string                `json:"identifier"`
	Kind       record.IdentifierKind `json:"kind,omitempty"`
	Targets    []record.RecordKind   `json:"targets,omitempty"`
	Error      string                `json:"error,omitempty"`
	Category   string                `json:"category,omitempty"`
}

type ResolveResponse struct {
	Identifier string                `json:"identifier"`
	IDKind     record.IdentifierKind `json:"id_kind"`
	Target     record.RecordKind     `json:"target"`
	Records    []record.Record       `json:"records"`
}

type CreateRecordResponse struct {
	ID   string            `json:"id"`
	Kind record.RecordKind `json:"kind"`
}

type MutationResponse struct {
	ID       string            `json:"id"`
	Kind     record.RecordKind `json:"kind"`
	BackupID string            `json:"backup_id,omitempty"`
}

type TypeKindsResponse struct {
	Kinds []record.TypeKind `json:"kinds"`
}

type TypeListResponse struct {
	Kind    record.TypeKind `json:"kind"`
	Records []record.Record `json:"records"`
}

type ClearCachesResponse struct {
	Cleared []string `json:"cleared"`
}
