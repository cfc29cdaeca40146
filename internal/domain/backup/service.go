package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rpggio/catalogbulk/internal/domain/record"
)

// ErrInvalidInput indicates a backup that cannot be stored.
var ErrInvalidInput = errors.New("invalid backup")

// Repository provides persistence operations for backups.
type Repository interface {
	Save(ctx context.Context, b *Backup) error
	Get(ctx context.Context, id string) (*Backup, error)
	List(ctx context.Context, opts ListOptions) ([]Backup, error)
}

// Service is the backup sink used before destructive mutations.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new backup service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{repo: repo, logger: logger}
}

// Take stores a deep copy of rec as the pre-image for op.
func (s *Service) Take(ctx context.Context, jobID string, rec record.Record, op Operation) (*Backup, error) {
	if rec.ID == "" || rec.Data == nil {
		return nil, fmt.Errorf("%w: record without id", ErrInvalidInput)
	}
	b := &Backup{
		ID:        uuid.NewString(),
		JobID:     jobID,
		RecordID:  rec.ID,
		Kind:      rec.Kind,
		Operation: op,
		Data:      rec.Clone(),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Save(ctx, b); err != nil {
		return nil, fmt.Errorf("saving backup of %s %s: %w", rec.Kind, rec.ID, err)
	}
	s.logger.DebugContext(ctx, "backup taken", slog.String("record_id", rec.ID), slog.String("operation", string(op)))
	return b, nil
}

// Get fetches one backup.
func (s *Service) Get(ctx context.Context, id string) (*Backup, error) {
	return s.repo.Get(ctx, id)
}

// List returns backups matching opts, newest first.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Backup, error) {
	return s.repo.List(ctx, opts)
}
