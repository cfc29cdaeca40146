package backup

import (
	"time"

	"github.com/rpggio/catalogbulk/internal/domain/record"
)

// Operation is the mutation a backup was taken before.
type Operation string

const (
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Backup is the pre-image of a record taken before a destructive mutation.
type Backup struct {
	ID        string            `json:"id"`
	JobID     string            `json:"job_id,omitempty"`
	RecordID  string            `json:"record_id"`
	Kind      record.RecordKind `json:"kind"`
	Operation Operation         `json:"operation"`
	Data      map[string]any    `json:"data"`
	CreatedAt time.Time         `json:"created_at"`
}

// Record rebuilds the backed-up record.
func (b *Backup) Record() (record.Record, error) {
	return record.New(b.Kind, b.Data)
}

// ListOptions filters backup listings.
type ListOptions struct {
	JobID    string
	RecordID string
	Limit    int
	Offset   int
}
