package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/catalogbulk/internal/domain/activity"
)

func TestActivityRepository_LogList(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	repo := NewActivityRepository(db)
	jobID := "job-1"
	entry1 := &activity.ActivityEntry{
		JobID:        &jobID,
		ActivityType: activity.TypeJobStarted,
		Summary:      "lookup started",
		Details:      `{"identifiers":3}`,
	}
	entry2 := &activity.ActivityEntry{
		JobID:        &jobID,
		ActivityType: activity.TypeJobFinished,
		Summary:      "lookup finished",
	}

	require.NoError(t, repo.Log(ctx, entry1))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, repo.Log(ctx, entry2))
	require.NotZero(t, entry1.ID)

	entries, err := repo.List(ctx, activity.ListActivityOptions{JobID: &jobID})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, entry2.ActivityType, entries[0].ActivityType)
	require.Equal(t, entry1.ActivityType, entries[1].ActivityType)
	require.Equal(t, `{"identifiers":3}`, entries[1].Details)
	require.Nil(t, entries[0].RecordID)
}

func TestActivityRepository_Filters(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	repo := NewActivityRepository(db)
	jobID := "job-1"
	recordID := "i1"
	require.NoError(t, repo.Log(ctx, &activity.ActivityEntry{
		JobID:        &jobID,
		RecordID:     &recordID,
		ActivityType: activity.TypeRecordUpdated,
		Summary:      "updated item",
	}))
	require.NoError(t, repo.Log(ctx, &activity.ActivityEntry{
		ActivityType: activity.TypeCachesCleared,
		Summary:      "caches cleared",
	}))

	activityType := activity.TypeRecordUpdated
	entries, err := repo.List(ctx, activity.ListActivityOptions{
		JobID:        &jobID,
		RecordID:     &recordID,
		ActivityType: &activityType,
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "i1", *entries[0].RecordID)

	entries, err = repo.List(ctx, activity.ListActivityOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entries, err = repo.List(ctx, activity.ListActivityOptions{Offset: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
