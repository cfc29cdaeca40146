package activity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/catalogbulk/internal/domain/activity"
	"github.com/rpggio/catalogbulk/internal/repository/mocks"
)

func TestActivityService_LogAndList(t *testing.T) {
	ctx := context.Background()

	repo := &mocks.ActivityRepository{}
	entry := &activity.ActivityEntry{
		ActivityType: activity.TypeJobStarted,
		Summary:      "lookup started",
	}

	repo.On("Log", ctx, entry).Return(nil)
	repo.On("List", ctx, activity.ListActivityOptions{Limit: 50}).Return([]activity.ActivityEntry{*entry}, nil)

	svc := activity.NewService(repo, nil)
	require.NoError(t, svc.LogActivity(ctx, entry))
	require.False(t, entry.CreatedAt.IsZero())

	entries, err := svc.GetRecentActivity(ctx, activity.ListActivityOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	repo.AssertExpectations(t)
}

func TestActivityService_RejectsUntypedEntry(t *testing.T) {
	svc := activity.NewService(&mocks.ActivityRepository{}, nil)
	require.ErrorIs(t, svc.LogActivity(context.Background(), nil), activity.ErrInvalidInput)
	require.ErrorIs(t, svc.LogActivity(context.Background(), &activity.ActivityEntry{}), activity.ErrInvalidInput)
}

func TestActivityService_RecordSwallowsRepositoryErrors(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	repo.On("Log", mock.Anything, mock.MatchedBy(func(e *activity.ActivityEntry) bool {
		return e.ActivityType == activity.TypeRecordDeleted &&
			e.JobID != nil && *e.JobID == "job-1" &&
			e.RecordID != nil && *e.RecordID == "i1" &&
			e.Details == `{"kind":"item"}`
	})).Return(errors.New("disk full"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := activity.NewService(repo, nil)
	svc.Record(ctx, activity.TypeRecordDeleted, "job-1", "i1", "deleted item", map[string]string{"kind": "item"})
	repo.AssertExpectations(t)
}
