package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/carwizard/internal/domain/activity"
	"github.com/stretchr/testify/require"
)

func TestActivityRepository_LogList(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	repo := NewActivityRepository(db)
	t0 := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	entry1 := &activity.ActivityEntry{
		ActivityType: activity.TypeRecommendationServed,
		Summary:      "Served 3 vehicles",
		Details:      `{"vehicle_ids":["a","b","c"]}`,
		CreatedAt:    t0,
	}
	entry2 := &activity.ActivityEntry{
		ActivityType: activity.TypeSessionStarted,
		Summary:      "Started session",
		CreatedAt:    t0.Add(time.Minute),
	}

	require.NoError(t, repo.Log(ctx, entry1))
	require.NoError(t, repo.Log(ctx, entry2))
	require.NotZero(t, entry1.ID)

	entries, err := repo.List(ctx, activity.ListActivityOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, entry2.ActivityType, entries[0].ActivityType)
	require.Equal(t, entry1.ActivityType, entries[1].ActivityType)
	require.Equal(t, entry1.Details, entries[1].Details)
	require.Nil(t, entries[1].SessionID)
}

func TestActivityRepository_Filters(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	repo := NewActivityRepository(db)
	t0 := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	sessionID := "s1"
	other := "s2"
	require.NoError(t, repo.Log(ctx, &activity.ActivityEntry{
		SessionID:    &sessionID,
		ActivityType: activity.TypeSessionUpdated,
		Summary:      "usage/select",
		CreatedAt:    t0,
	}))
	require.NoError(t, repo.Log(ctx, &activity.ActivityEntry{
		SessionID:    &sessionID,
		ActivityType: activity.TypeSessionCompleted,
		Summary:      "summary/complete",
		CreatedAt:    t0.Add(time.Hour),
	}))
	require.NoError(t, repo.Log(ctx, &activity.ActivityEntry{
		SessionID:    &other,
		ActivityType: activity.TypeSessionUpdated,
		Summary:      "usage/select",
		CreatedAt:    t0.Add(2 * time.Hour),
	}))

	entries, err := repo.List(ctx, activity.ListActivityOptions{SessionID: &sessionID})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "s1", *entries[0].SessionID)

	activityType := activity.TypeSessionUpdated
	entries, err = repo.List(ctx, activity.ListActivityOptions{ActivityType: &activityType})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	since := t0.Add(30 * time.Minute)
	entries, err = repo.List(ctx, activity.ListActivityOptions{Since: &since})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	entries, err = repo.List(ctx, activity.ListActivityOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, activity.TypeSessionCompleted, entries[0].ActivityType)

	entries, err = repo.List(ctx, activity.ListActivityOptions{Offset: 2})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "usage/select", entries[0].Summary)
}
