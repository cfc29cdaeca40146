package activity

import "time"

// ActivityType represents the type of activity event
type ActivityType string

const (
	TypeJobStarted     ActivityType = "job_started"
	TypeJobFinished    ActivityType = "job_finished"
	TypeJobCancelled   ActivityType = "job_cancelled"
	TypeJobFailed      ActivityType = "job_failed"
	TypeRecordCreated  ActivityType = "record_created"
	TypeRecordUpdated  ActivityType = "record_updated"
	TypeRecordDeleted  ActivityType = "record_deleted"
	TypeRecordRestored ActivityType = "record_restored"
	TypeCachesCleared  ActivityType = "caches_cleared"
)

// ActivityEntry represents an event in the activity log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	JobID        *string      `json:"job_id,omitempty"`
	RecordID     *string      `json:"record_id,omitempty"`
	ActivityType ActivityType `json:"type"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
}
