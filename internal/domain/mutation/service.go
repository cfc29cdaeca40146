// Package mutation creates, updates and deletes single catalog records.
package mutation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/rpggio/catalogbulk/internal/catalog"
	"github.com/rpggio/catalogbulk/internal/domain/backup"
	"github.com/rpggio/catalogbulk/internal/domain/record"
)

var (
	// ErrUnsupportedKind is returned for kinds without the needed endpoint.
	ErrUnsupportedKind = errors.New("record kind does not support this operation")
	// ErrMissingID is returned when a record has no id, or the service did
	// not report the id of a created record.
	ErrMissingID = errors.New("record id missing")
)

// Catalog is the write access mutations need.
type Catalog interface {
	Post(ctx context.Context, path string, body []byte) (*catalog.Response, error)
	Put(ctx context.Context, path string, body []byte) error
	Delete(ctx context.Context, path string) error
}

// Service performs full-document mutations, one call each.
type Service struct {
	catalog Catalog
	logger  *slog.Logger
}

// NewService creates a mutation service.
func NewService(cat Catalog, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{catalog: cat, logger: logger.With("component", "mutation")}
}

// Create posts rec and returns the id of the new record.
func (s *Service) Create(ctx context.Context, rec record.Record) (string, error) {
	target, ok := rec.Kind.CreatePath()
	if !ok {
		return "", fmt.Errorf("%w: create %s", ErrUnsupportedKind, rec.Kind)
	}
	body, err := json.Marshal(rec.Data)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", rec.Kind, err)
	}

	resp, err := s.catalog.Post(ctx, target, body)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", rec.Kind, err)
	}

	id := createdID(resp)
	if id == "" {
		id = rec.ID
	}
	if id == "" {
		return "", fmt.Errorf("%w: created %s", ErrMissingID, rec.Kind)
	}
	s.logger.InfoContext(ctx, "record created", slog.String("kind", rec.Kind.String()), slog.String("id", id))
	return id, nil
}

// Update replaces the remote document with rec.Data.
func (s *Service) Update(ctx context.Context, rec record.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: update %s", ErrMissingID, rec.Kind)
	}
	target, ok := rec.Kind.UpdatePath(rec.ID)
	if !ok {
		return fmt.Errorf("%w: update %s", ErrUnsupportedKind, rec.Kind)
	}
	body, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("encoding %s %s: %w", rec.Kind, rec.ID, err)
	}
	if err := s.catalog.Put(ctx, target, body); err != nil {
		return fmt.Errorf("updating %s %s: %w", rec.Kind, rec.ID, err)
	}
	s.logger.InfoContext(ctx, "record updated", slog.String("kind", rec.Kind.String()), slog.String("id", rec.ID))
	return nil
}

// Delete removes rec from the service.
func (s *Service) Delete(ctx context.Context, rec record.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: delete %s", ErrMissingID, rec.Kind)
	}
	target, ok := rec.Kind.DeletePath(rec.ID)
	if !ok {
		return fmt.Errorf("%w: delete %s", ErrUnsupportedKind, rec.Kind)
	}
	if err := s.catalog.Delete(ctx, target); err != nil {
		return fmt.Errorf("deleting %s %s: %w", rec.Kind, rec.ID, err)
	}
	s.logger.InfoContext(ctx, "record deleted", slog.String("kind", rec.Kind.String()), slog.String("id", rec.ID))
	return nil
}

// Restore re-applies a stored pre-image: a deleted record is created again
// under its old id, an updated one is overwritten with its old document.
func (s *Service) Restore(ctx context.Context, b *backup.Backup) error {
	rec, err := b.Record()
	if err != nil {
		return fmt.Errorf("restoring backup %s: %w", b.ID, err)
	}
	switch b.Operation {
	case backup.OperationDelete:
		_, err = s.Create(ctx, rec)
	case backup.OperationUpdate:
		err = s.Update(ctx, rec)
	default:
		return fmt.Errorf("%w: restore %q", ErrUnsupportedKind, b.Operation)
	}
	if err != nil {
		return fmt.Errorf("restoring backup %s: %w", b.ID, err)
	}
	return nil
}

func createdID(resp *catalog.Response) string {
	if resp == nil {
		return ""
	}
	if len(resp.Body) > 0 {
		var doc struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(resp.Body, &doc); err == nil && doc.ID != "" {
			return doc.ID
		}
	}
	if loc := resp.Header.Get("Location"); loc != "" {
		return path.Base(strings.TrimRight(loc, "/"))
	}
	return ""
}
