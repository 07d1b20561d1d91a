//go:build integration

package apikey

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ADORSYS-GIS/lightbridge-authz/internal/platform"
)

// These tests run only with -tags=integration and a reachable
// LIGHTBRIDGE_AUTHZ_TEST_DATABASE_URL, migrated to the current schema.
// They exercise the repository against a real Postgres instance rather than
// a mock, since the store's SQL (joins, transactional multi-table writes)
// is the part most likely to diverge from a hand-rolled fake.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	url := os.Getenv("LIGHTBRIDGE_AUTHZ_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("LIGHTBRIDGE_AUTHZ_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := platform.NewPool(ctx, platform.PoolConfig{URL: url, MaxConns: 5})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return NewStore(pool)
}

func TestStore_CreateAndFindByID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := newID()

	created, err := store.Create(ctx, userID, CreateApiKey{
		ACL: &ACL{
			AllowedModels:  []string{"gpt-4"},
			TokensPerModel: map[string]uint64{"gpt-4": 10000},
			RateLimit:      RateLimit{Requests: 10, WindowSeconds: 60},
		},
	}, hashToken("sk-test-key"))
	require.NoError(t, err)
	require.Equal(t, StatusActive, created.Status)
	require.Equal(t, []string{"gpt-4"}, created.ACL.AllowedModels)

	found, err := store.FindByID(ctx, userID, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)
}

func TestStore_FindByID_WrongOwnerIsNotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, newID(), CreateApiKey{}, hashToken("sk-other-key"))
	require.NoError(t, err)

	_, err = store.FindByID(ctx, "a-different-user", created.ID)
	require.Error(t, err)
}

func TestStore_UpdateStatusRevokesIdempotently(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := newID()

	created, err := store.Create(ctx, userID, CreateApiKey{}, hashToken("sk-revoke-key"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, userID, created.ID))
	require.NoError(t, store.Delete(ctx, userID, created.ID)) // idempotent

	found, err := store.FindByID(ctx, userID, created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusRevoked, found.Status)
}

func TestStore_FindForAuthz_FiltersRevoked(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := newID()

	plaintext, hash := generateKey()
	created, err := store.Create(ctx, userID, CreateApiKey{}, hash)
	require.NoError(t, err)

	_, err = store.FindForAuthz(ctx, plaintext)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, userID, created.ID))

	_, err = store.FindForAuthz(ctx, plaintext)
	require.Error(t, err)
}
