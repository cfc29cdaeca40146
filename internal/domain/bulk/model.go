package bulk

import (
	"time"

	"github.com/rpggio/catalogbulk/internal/domain/record"
	"github.com/rpggio/catalogbulk/internal/domain/resolve"
)

// JobKind selects what a job does with each resolved record.
type JobKind string

const (
	KindLookup JobKind = "lookup"
	KindEdit   JobKind = "edit"
	KindDelete JobKind = "delete"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Outcome is the result of one identifier.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Request describes a bulk job over a list of identifiers.
type Request struct {
	Kind        JobKind           `json:"kind"`
	Identifiers []string          `json:"identifiers"`
	Target      record.RecordKind `json:"target"`
	Options     resolve.Options   `json:"options"`
	// Changes maps top-level or dotted field paths to new values for edit
	// jobs. A nil value removes the field.
	Changes map[string]any `json:"changes,omitempty"`
}

// Result is what happened to one identifier.
type Result struct {
	Identifier string                `json:"identifier"`
	IDKind     record.IdentifierKind `json:"id_kind"`
	Outcome    Outcome               `json:"outcome"`
	Category   string                `json:"category,omitempty"`
	Reason     string                `json:"reason,omitempty"`
	Records    []record.Record       `json:"records,omitempty"`
	BackupIDs  []string              `json:"backup_ids,omitempty"`
}

// Snapshot is a point-in-time view of a job.
type Snapshot struct {
	ID         string            `json:"id"`
	Kind       JobKind           `json:"kind"`
	Target     record.RecordKind `json:"target"`
	Status     Status            `json:"status"`
	Total      int               `json:"total"`
	Completed  int               `json:"completed"`
	Results    []Result          `json:"results"`
	Error      string            `json:"error,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
}
