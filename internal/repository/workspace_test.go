//go:build integration

package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/beaconchat/beacon/internal/domain"
	"github.com/beaconchat/beacon/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspaceRepository_Create(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	workspaceRepo := NewWorkspaceRepository(pool)

	ws := &domain.Workspace{
		ID:        uuid.NewString(),
		Name:      "Acme",
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, workspaceRepo.Create(ctx, ws))

	retrieved, err := workspaceRepo.GetByID(ctx, ws.ID)
	require.NoError(t, err)
	assert.Equal(t, ws.ID, retrieved.ID)
	assert.Equal(t, ws.Name, retrieved.Name)
}

func TestWorkspaceRepository_GetByName(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	workspaceRepo := NewWorkspaceRepository(pool)

	ws := &domain.Workspace{
		ID:        uuid.NewString(),
		Name:      "Named Workspace",
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, workspaceRepo.Create(ctx, ws))

	retrieved, err := workspaceRepo.GetByName(ctx, "Named Workspace")
	require.NoError(t, err)
	assert.Equal(t, ws.ID, retrieved.ID)

	_, err = workspaceRepo.GetByName(ctx, "does-not-exist")
	assert.ErrorIs(t, err, domain.ErrWorkspaceNotFound)
}

func TestWorkspaceRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	workspaceRepo := NewWorkspaceRepository(pool)

	_, err := workspaceRepo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrWorkspaceNotFound)
}

func TestWorkspaceRepository_List(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	workspaceRepo := NewWorkspaceRepository(pool)

	for i, name := range []string{"First", "Second"} {
		ws := &domain.Workspace{
			ID:        uuid.NewString(),
			Name:      name,
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Second).Truncate(time.Microsecond),
		}
		require.NoError(t, workspaceRepo.Create(ctx, ws))
	}

	list, err := workspaceRepo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestWorkspaceRepository_Delete(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	workspaceRepo := NewWorkspaceRepository(pool)

	ws := &domain.Workspace{
		ID:        uuid.NewString(),
		Name:      "Doomed",
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, workspaceRepo.Create(ctx, ws))

	require.NoError(t, workspaceRepo.Delete(ctx, ws.ID))

	_, err := workspaceRepo.GetByID(ctx, ws.ID)
	assert.ErrorIs(t, err, domain.ErrWorkspaceNotFound)

	err = workspaceRepo.Delete(ctx, ws.ID)
	assert.ErrorIs(t, err, domain.ErrWorkspaceNotFound)
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func createTestAPIKey(ctx context.Context, t *testing.T, repo *APIKeyRepository, workspaceID, name string) *domain.APIKey {
	t.Helper()
	key := &domain.APIKey{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		Name:        name,
		KeyHash:     hashToken(uuid.NewString()),
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.Create(ctx, key))
	return key
}

func TestAPIKeyRepository_CreateAndGetByHash(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	bot := setupChatbotFixture(ctx, t, pool)
	apiKeyRepo := NewAPIKeyRepository(pool)

	key := createTestAPIKey(ctx, t, apiKeyRepo, bot.WorkspaceID, "primary")

	retrieved, err := apiKeyRepo.GetByHash(ctx, key.KeyHash)
	require.NoError(t, err)
	assert.Equal(t, key.ID, retrieved.ID)
	assert.Equal(t, key.WorkspaceID, retrieved.WorkspaceID)
	assert.False(t, retrieved.IsRevoked())

	_, err = apiKeyRepo.GetByHash(ctx, hashToken("unknown"))
	assert.ErrorIs(t, err, domain.ErrAPIKeyNotFound)
}

func TestAPIKeyRepository_GetByWorkspaceID(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	bot := setupChatbotFixture(ctx, t, pool)
	apiKeyRepo := NewAPIKeyRepository(pool)

	createTestAPIKey(ctx, t, apiKeyRepo, bot.WorkspaceID, "first")
	createTestAPIKey(ctx, t, apiKeyRepo, bot.WorkspaceID, "second")

	keys, err := apiKeyRepo.GetByWorkspaceID(ctx, bot.WorkspaceID)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestAPIKeyRepository_Revoke(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	bot := setupChatbotFixture(ctx, t, pool)
	apiKeyRepo := NewAPIKeyRepository(pool)

	key := createTestAPIKey(ctx, t, apiKeyRepo, bot.WorkspaceID, "revocable")

	require.NoError(t, apiKeyRepo.Revoke(ctx, key.ID))

	retrieved, err := apiKeyRepo.GetByID(ctx, key.ID)
	require.NoError(t, err)
	assert.True(t, retrieved.IsRevoked())

	// Revoking twice is a not-found: the WHERE clause excludes revoked keys
	err = apiKeyRepo.Revoke(ctx, key.ID)
	assert.ErrorIs(t, err, domain.ErrAPIKeyNotFound)
}

func TestAPIKeyRepository_Delete(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	bot := setupChatbotFixture(ctx, t, pool)
	apiKeyRepo := NewAPIKeyRepository(pool)

	key := createTestAPIKey(ctx, t, apiKeyRepo, bot.WorkspaceID, "deletable")

	require.NoError(t, apiKeyRepo.Delete(ctx, key.ID))

	_, err := apiKeyRepo.GetByID(ctx, key.ID)
	assert.ErrorIs(t, err, domain.ErrAPIKeyNotFound)
}
