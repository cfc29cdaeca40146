package repository

import (
	"context"

	"github.com/rpggio/catalogbulk/internal/domain/activity"
	"github.com/rpggio/catalogbulk/internal/domain/backup"
)

// BackupRepository manages record pre-images
type BackupRepository interface {
	Save(ctx context.Context, b *backup.Backup) error
	Get(ctx context.Context, id string) (*backup.Backup, error)
	List(ctx context.Context, opts backup.ListOptions) ([]backup.Backup, error)
}

// ActivityRepository manages activity log persistence
type ActivityRepository interface {
	Log(ctx context.Context, entry *activity.ActivityEntry) error
	List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

var (
	_ backup.Repository   = BackupRepository(nil)
	_ activity.Repository = ActivityRepository(nil)
)
