package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Service handles activity log operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new activity service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{repo: repo, logger: logger}
}

// LogActivity logs an activity entry with the current timestamp if missing.
func (s *Service) LogActivity(ctx context.Context, entry *ActivityEntry) error {
	if entry == nil || entry.ActivityType == "" {
		return ErrInvalidInput
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := s.repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("logging activity: %w", err)
	}
	return nil
}

// Record builds and logs an entry. Logging failures are reported to the
// logger only, so an activity log outage never fails a catalog operation.
func (s *Service) Record(ctx context.Context, typ ActivityType, jobID, recordID, summary string, details any) {
	entry := &ActivityEntry{ActivityType: typ, Summary: summary}
	if jobID != "" {
		entry.JobID = &jobID
	}
	if recordID != "" {
		entry.RecordID = &recordID
	}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			entry.Details = string(raw)
		}
	}
	// Cancelled jobs still get their entries written.
	ctx = context.WithoutCancel(ctx)
	if err := s.LogActivity(ctx, entry); err != nil {
		s.logger.WarnContext(ctx, "activity not recorded", slog.String("type", string(typ)), slog.String("error", err.Error()))
	}
}

// GetRecentActivity lists activity entries with filtering.
func (s *Service) GetRecentActivity(ctx context.Context, opts ListActivityOptions) ([]ActivityEntry, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	return s.repo.List(ctx, opts)
}
