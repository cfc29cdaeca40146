package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/rpggio/catalogbulk/internal/domain/activity"
	"github.com/rpggio/catalogbulk/internal/domain/backup"
)

// BackupRepository is a mock for repository.BackupRepository.
type BackupRepository struct {
	mock.Mock
}

func (m *BackupRepository) Save(ctx context.Context, b *backup.Backup) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *BackupRepository) Get(ctx context.Context, id string) (*backup.Backup, error) {
	args := m.Called(ctx, id)
	if b, ok := args.Get(0).(*backup.Backup); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *BackupRepository) List(ctx context.Context, opts backup.ListOptions) ([]backup.Backup, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]backup.Backup); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ActivityRepository is a mock for repository.ActivityRepository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
