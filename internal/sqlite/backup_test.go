package sqlite

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/catalogbulk/internal/domain/backup"
	"github.com/rpggio/catalogbulk/internal/domain/record"
	"github.com/rpggio/catalogbulk/internal/repository"
)

func TestBackupRepository_SaveGet(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewBackupRepository(db)

	b := &backup.Backup{
		ID:        "b1",
		JobID:     "job-1",
		RecordID:  "i1",
		Kind:      record.KindItem,
		Operation: backup.OperationUpdate,
		Data: map[string]any{
			"id":      "i1",
			"barcode": "350470106306",
			"status":  map[string]any{"name": "Available"},
			"copies":  json.Number("12345678901234567"),
		},
	}
	require.NoError(t, repo.Save(ctx, b))

	got, err := repo.Get(ctx, "b1")
	require.NoError(t, err)
	require.Equal(t, "job-1", got.JobID)
	require.Equal(t, record.KindItem, got.Kind)
	require.Equal(t, backup.OperationUpdate, got.Operation)
	require.Equal(t, "Available", record.StringField(got.Data, "status.name"))
	require.Equal(t, "12345678901234567", record.StringField(got.Data, "copies"))

	rec, err := got.Record()
	require.NoError(t, err)
	require.Equal(t, "i1", rec.ID)

	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.ErrorIs(t, repo.Save(ctx, b), repository.ErrInvalidInput)
	require.ErrorIs(t, repo.Save(ctx, &backup.Backup{ID: "b2"}), repository.ErrInvalidInput)
}

func TestBackupRepository_List(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewBackupRepository(db)

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, tc := range []struct{ id, job, rec string }{
		{"b1", "job-1", "i1"},
		{"b2", "job-1", "i2"},
		{"b3", "", "i1"},
	} {
		require.NoError(t, repo.Save(ctx, &backup.Backup{
			ID:        tc.id,
			JobID:     tc.job,
			RecordID:  tc.rec,
			Kind:      record.KindItem,
			Operation: backup.OperationDelete,
			Data:      map[string]any{"id": tc.rec},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := repo.List(ctx, backup.ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "b3", all[0].ID)
	require.Empty(t, all[0].JobID)

	byJob, err := repo.List(ctx, backup.ListOptions{JobID: "job-1"})
	require.NoError(t, err)
	require.Len(t, byJob, 2)

	byRecord, err := repo.List(ctx, backup.ListOptions{RecordID: "i1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, byRecord, 1)
	require.Equal(t, "b3", byRecord[0].ID)
}
