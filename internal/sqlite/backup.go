package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/catalogbulk/internal/domain/backup"
	"github.com/rpggio/catalogbulk/internal/domain/record"
	"github.com/rpggio/catalogbulk/internal/repository"
)

// BackupRepository implements repository.BackupRepository for SQLite
type BackupRepository struct {
	db *DB
}

// NewBackupRepository creates a new BackupRepository
func NewBackupRepository(db *DB) *BackupRepository {
	return &BackupRepository{db: db}
}

// Save stores a backup
func (r *BackupRepository) Save(ctx context.Context, b *backup.Backup) error {
	if b == nil || b.ID == "" || b.RecordID == "" {
		return repository.ErrInvalidInput
	}
	data, err := json.Marshal(b.Data)
	if err != nil {
		return fmt.Errorf("%w: encoding backup data: %v", repository.ErrInvalidInput, err)
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO backups (id, job_id, record_id, kind, operation, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		b.ID,
		nullString(b.JobID),
		b.RecordID,
		b.Kind,
		b.Operation,
		string(data),
		b.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: duplicate backup id %s", repository.ErrInvalidInput, b.ID)
		}
		return fmt.Errorf("failed to save backup: %w", err)
	}
	return nil
}

// Get retrieves a backup by ID
func (r *BackupRepository) Get(ctx context.Context, id string) (*backup.Backup, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, job_id, record_id, kind, operation, data, created_at
		FROM backups WHERE id = ?
	`, id)
	b, err := scanBackup(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get backup: %w", err)
	}
	return b, nil
}

// List returns backups matching the filters, newest first
func (r *BackupRepository) List(ctx context.Context, opts backup.ListOptions) ([]backup.Backup, error) {
	query := `
		SELECT id, job_id, record_id, kind, operation, data, created_at
		FROM backups
	`
	var (
		args       []any
		conditions []string
	)
	if opts.JobID != "" {
		conditions = append(conditions, "job_id = ?")
		args = append(args, opts.JobID)
	}
	if opts.RecordID != "" {
		conditions = append(conditions, "record_id = ?")
		args = append(args, opts.RecordID)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	query, args = paginate(query, args, opts.Limit, opts.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	defer rows.Close()

	var out []backup.Backup
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan backup: %w", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating backup rows: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBackup(s scanner) (*backup.Backup, error) {
	var (
		b     backup.Backup
		jobID sql.NullString
		kind  string
		op    string
		data  string
	)
	if err := s.Scan(&b.ID, &jobID, &b.RecordID, &kind, &op, &data, &b.CreatedAt); err != nil {
		return nil, err
	}
	b.JobID = jobID.String
	b.Kind = record.RecordKind(kind)
	b.Operation = backup.Operation(op)
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&b.Data); err != nil {
		return nil, fmt.Errorf("decoding backup %s: %w", b.ID, err)
	}
	return &b, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
