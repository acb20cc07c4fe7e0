package mocks

import (
	"context"

	"github.com/rpggio/carwizard/internal/domain/activity"
	"github.com/rpggio/carwizard/internal/domain/session"
	"github.com/rpggio/carwizard/internal/domain/vehicle"
	"github.com/stretchr/testify/mock"
)

// Catalog is a mock for recommend.Catalog.
type Catalog struct {
	mock.Mock
}

func (m *Catalog) Query(ctx context.Context, filters vehicle.CatalogFilters) ([]vehicle.Vehicle, error) {
	args := m.Called(ctx, filters)
	if list, ok := args.Get(0).([]vehicle.Vehicle); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// SessionRepository is a mock for session.SessionRepository.
type SessionRepository struct {
	mock.Mock
}

func (m *SessionRepository) Create(ctx context.Context, sess *session.Session) error {
	args := m.Called(ctx, sess)
	return args.Error(0)
}

func (m *SessionRepository) Get(ctx context.Context, id string) (*session.Session, error) {
	args := m.Called(ctx, id)
	if sess, ok := args.Get(0).(*session.Session); ok {
		return sess, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) Update(ctx context.Context, sess *session.Session) error {
	args := m.Called(ctx, sess)
	return args.Error(0)
}

// ActivityRepository is a mock for activity.Repository.
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
