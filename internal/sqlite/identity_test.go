package sqlite

import (
	"context"
	"testing"

	"github.com/rpggio/carwizard/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestIdentityRepository_AddResolve(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewIdentityRepository(db)

	require.NoError(t, repo.AddAPIKey(ctx, "secret-token", "wizard-frontend", "web"))

	identity, err := repo.ResolveIdentity(ctx, "secret-token")
	require.NoError(t, err)
	require.Equal(t, "wizard-frontend", identity)

	var stored string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT key_hash FROM api_keys`).Scan(&stored))
	require.NotEqual(t, "secret-token", stored)
	require.Equal(t, HashToken("secret-token"), stored)

	var used int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM api_keys WHERE last_used IS NOT NULL`).Scan(&used))
	require.Equal(t, 1, used)
}

func TestIdentityRepository_Unknown(t *testing.T) {
	db := NewTestDB(t)
	repo := NewIdentityRepository(db)

	_, err := repo.ResolveIdentity(context.Background(), "nope")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestIdentityRepository_DuplicateKey(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewIdentityRepository(db)

	require.NoError(t, repo.AddAPIKey(ctx, "t", "a", ""))
	require.ErrorIs(t, repo.AddAPIKey(ctx, "t", "b", ""), repository.ErrConflict)
}
