package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rpggio/carwizard/internal/domain/session"
	"github.com/rpggio/carwizard/internal/repository"
	"github.com/rpggio/carwizard/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func strPtr(v string) *string { return &v }
func int64Ptr(v int64) *int64 { return &v }

// steppingClock returns t0, t0+1s, t0+2s, ...
func steppingClock(t0 time.Time) func() time.Time {
	n := 0
	return func() time.Time {
		ts := t0.Add(time.Duration(n) * time.Second)
		n++
		return ts
	}
}

// memoryRepo is an in-memory SessionRepository so updates can be chained.
type memoryRepo struct {
	sessions map[string]*session.Session
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{sessions: map[string]*session.Session{}}
}

func (r *memoryRepo) Create(_ context.Context, sess *session.Session) error {
	r.sessions[sess.ID] = sess
	return nil
}

func (r *memoryRepo) Get(_ context.Context, id string) (*session.Session, error) {
	sess, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return sess, nil
}

func (r *memoryRepo) Update(_ context.Context, sess *session.Session) error {
	if _, ok := r.sessions[sess.ID]; !ok {
		return repository.ErrNotFound
	}
	r.sessions[sess.ID] = sess
	return nil
}

func TestSessionService_CreateOrGet_New(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.SessionRepository{}
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	repo.On("Create", ctx, mock.MatchedBy(func(s *session.Session) bool {
		return s.ID != "" && s.CreatedAt.Equal(t0) && s.Client.UserAgent == "test-agent"
	})).Return(nil)

	svc := session.NewService(repo, nil).WithClock(func() time.Time { return t0 })
	sess, created, err := svc.CreateOrGet(ctx, "", session.ClientMetadata{UserAgent: "test-agent", IP: "10.0.0.1"})
	require.NoError(t, err)
	require.True(t, created)
	require.NotEmpty(t, sess.ID)
	require.Equal(t, []string{}, sess.UsageTags)
	require.Equal(t, []string{}, sess.PriorityTags)
	require.Equal(t, []string{}, sess.RecommendedCarIDs)
	require.Empty(t, sess.History)
	require.Nil(t, sess.CompletedAt)
	repo.AssertExpectations(t)
}

func TestSessionService_CreateOrGet_Existing(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.SessionRepository{}
	existing := &session.Session{ID: "s-1", UsageTags: []string{"city"}}
	repo.On("Get", ctx, "s-1").Return(existing, nil)

	svc := session.NewService(repo, nil)
	sess, created, err := svc.CreateOrGet(ctx, "s-1", session.ClientMetadata{})
	require.NoError(t, err)
	require.False(t, created)
	require.Same(t, existing, sess)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSessionService_CreateOrGet_UnknownIDStartsFresh(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.SessionRepository{}
	repo.On("Get", ctx, "gone").Return(nil, repository.ErrNotFound)
	repo.On("Create", ctx, mock.AnythingOfType("*session.Session")).Return(nil)

	svc := session.NewService(repo, nil)
	sess, created, err := svc.CreateOrGet(ctx, "gone", session.ClientMetadata{})
	require.NoError(t, err)
	require.True(t, created)
	require.NotEqual(t, "gone", sess.ID)
}

func TestSessionService_CreateOrGet_StorageFailure(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.SessionRepository{}
	repo.On("Get", ctx, "s-1").Return(nil, errors.New("disk full"))

	svc := session.NewService(repo, nil)
	_, _, err := svc.CreateOrGet(ctx, "s-1", session.ClientMetadata{})
	require.ErrorIs(t, err, repository.ErrStorageFailure)

	repo2 := &mocks.SessionRepository{}
	repo2.On("Create", ctx, mock.Anything).Return(errors.New("disk full"))
	_, _, err = session.NewService(repo2, nil).CreateOrGet(ctx, "", session.ClientMetadata{})
	require.ErrorIs(t, err, repository.ErrStorageFailure)
}

func TestSessionService_Get(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.SessionRepository{}
	repo.On("Get", ctx, "missing").Return(nil, repository.ErrNotFound)
	repo.On("Get", ctx, "broken").Return(nil, errors.New("io"))

	svc := session.NewService(repo, nil)

	_, err := svc.Get(ctx, "missing")
	require.ErrorIs(t, err, session.ErrSessionNotFound)

	_, err = svc.Get(ctx, "broken")
	require.ErrorIs(t, err, repository.ErrStorageFailure)

	_, err = svc.Get(ctx, "  ")
	require.ErrorIs(t, err, session.ErrInvalidInput)
}

func TestSessionService_UpdatePartialMerge(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := session.NewService(repo, nil)

	sess, _, err := svc.CreateOrGet(ctx, "", session.ClientMetadata{})
	require.NoError(t, err)

	_, err = svc.Update(ctx, sess.ID, session.UpdateRequest{
		Step:      "usage",
		Action:    session.ActionSelect,
		UsageTags: []string{"city"},
		BodyType:  strPtr("SUV"),
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, sess.ID, session.UpdateRequest{
		Step:   "budget",
		Action: session.ActionSelect,
		Budget: int64Ptr(500_000),
	})
	require.NoError(t, err)
	require.Equal(t, []string{"city"}, updated.UsageTags)
	require.Equal(t, "SUV", *updated.BodyType)
	require.Equal(t, int64(500_000), *updated.Budget)
	require.Nil(t, updated.FuelType)
	require.Len(t, updated.History, 2)
	require.Equal(t, "budget", updated.History[1].Step)
	require.Equal(t, []string{"city"}, updated.History[1].Data.UsageTags)
	require.Equal(t, int64(500_000), *updated.History[1].Data.Budget)
}

func TestSessionService_UpdateEmptyListClears(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := session.NewService(repo, nil)

	sess, _, err := svc.CreateOrGet(ctx, "", session.ClientMetadata{})
	require.NoError(t, err)

	_, err = svc.Update(ctx, sess.ID, session.UpdateRequest{Step: "usage", Action: "select", UsageTags: []string{"city", "winter"}})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, sess.ID, session.UpdateRequest{Step: "usage", Action: "deselect", UsageTags: []string{}})
	require.NoError(t, err)
	require.NotNil(t, updated.UsageTags)
	require.Empty(t, updated.UsageTags)
	require.Equal(t, []string{"city", "winter"}, updated.History[0].Data.UsageTags)
	require.Empty(t, updated.History[1].Data.UsageTags)
}

func TestSessionService_CompletedAtSetOnce(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := session.NewService(repo, nil).WithClock(steppingClock(t0))

	sess, _, err := svc.CreateOrGet(ctx, "", session.ClientMetadata{})
	require.NoError(t, err)

	first, err := svc.Update(ctx, sess.ID, session.UpdateRequest{Step: "summary", Action: session.ActionComplete, SelectedCarID: strPtr("car-1")})
	require.NoError(t, err)
	require.NotNil(t, first.CompletedAt)
	completedAt := *first.CompletedAt

	second, err := svc.Update(ctx, sess.ID, session.UpdateRequest{Step: "summary", Action: session.ActionComplete})
	require.NoError(t, err)
	require.True(t, second.Completed())
	require.True(t, completedAt.Equal(*second.CompletedAt))
	require.Len(t, second.History, 2)
	require.True(t, second.History[1].Timestamp.After(completedAt))
}

func TestSessionService_HistoryGrowsByOnePerUpdate(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := session.NewService(repo, nil)

	sess, _, err := svc.CreateOrGet(ctx, "", session.ClientMetadata{})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := svc.Update(ctx, sess.ID, session.UpdateRequest{Step: "priority", Action: "select", PriorityTags: []string{"safety"}})
		require.NoError(t, err)
	}

	history, err := svc.History(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, history, 5)
}

func TestSessionService_UpdateValidation(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.SessionRepository{}
	svc := session.NewService(repo, nil)

	cases := []struct {
		name string
		id   string
		req  session.UpdateRequest
	}{
		{"missing id", "", session.UpdateRequest{Step: "s", Action: "a"}},
		{"missing step", "s-1", session.UpdateRequest{Action: "a"}},
		{"missing action", "s-1", session.UpdateRequest{Step: "s"}},
		{"negative budget", "s-1", session.UpdateRequest{Step: "s", Action: "a", Budget: int64Ptr(-5)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Update(ctx, tc.id, tc.req)
			require.ErrorIs(t, err, session.ErrInvalidInput)
		})
	}
	repo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestSessionService_UpdateNotFound(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.SessionRepository{}
	repo.On("Get", ctx, "nope").Return(nil, repository.ErrNotFound)

	svc := session.NewService(repo, nil)
	_, err := svc.Update(ctx, "nope", session.UpdateRequest{Step: "s", Action: "a"})
	require.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestSessionService_UpdateSaveFailureLeavesStoredStateAlone(t *testing.T) {
	ctx := context.Background()
	stored := &session.Session{
		ID:                "s-1",
		UsageTags:         []string{"city"},
		PriorityTags:      []string{},
		RecommendedCarIDs: []string{},
		History:           []session.Step{},
	}
	repo := &mocks.SessionRepository{}
	repo.On("Get", ctx, "s-1").Return(stored, nil)
	repo.On("Update", ctx, mock.Anything).Return(errors.New("locked"))

	svc := session.NewService(repo, nil)
	_, err := svc.Update(ctx, "s-1", session.UpdateRequest{Step: "usage", Action: "select", UsageTags: []string{"winter"}})
	require.ErrorIs(t, err, repository.ErrStorageFailure)
	require.Equal(t, []string{"city"}, stored.UsageTags)
	require.Empty(t, stored.History)
}

func TestSessionService_UpdateRacingDelete(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.SessionRepository{}
	repo.On("Get", ctx, "s-1").Return(&session.Session{ID: "s-1"}, nil)
	repo.On("Update", ctx, mock.Anything).Return(repository.ErrNotFound)

	svc := session.NewService(repo, nil)
	_, err := svc.Update(ctx, "s-1", session.UpdateRequest{Step: "s", Action: "a"})
	require.ErrorIs(t, err, session.ErrSessionNotFound)
}
