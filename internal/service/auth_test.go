package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/beaconchat/beacon/internal/domain"
)

// MockUUIDGenerator returns a fixed sequence of IDs, then falls back to the
// default generator.
type MockUUIDGenerator struct {
	ids []string
	pos int
}

func NewMockUUIDGenerator(ids ...string) *MockUUIDGenerator {
	return &MockUUIDGenerator{ids: ids}
}

func (g *MockUUIDGenerator) NewString() string {
	if g.pos < len(g.ids) {
		id := g.ids[g.pos]
		g.pos++
		return id
	}
	return (&DefaultUUIDGenerator{}).NewString()
}

type MockWorkspaceRepository struct {
	mock.Mock
}

func (m *MockWorkspaceRepository) Create(ctx context.Context, w *domain.Workspace) error {
	args := m.Called(ctx, w)
	return args.Error(0)
}

func (m *MockWorkspaceRepository) GetByID(ctx context.Context, id string) (*domain.Workspace, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Workspace), args.Error(1)
}

func (m *MockWorkspaceRepository) GetByName(ctx context.Context, name string) (*domain.Workspace, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Workspace), args.Error(1)
}

func (m *MockWorkspaceRepository) List(ctx context.Context) ([]*domain.Workspace, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Workspace), args.Error(1)
}

func (m *MockWorkspaceRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockAPIKeyRepository struct {
	mock.Mock
}

func (m *MockAPIKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockAPIKeyRepository) GetByID(ctx context.Context, id string) (*domain.APIKey, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepository) GetByHash(ctx context.Context, hash string) (*domain.APIKey, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepository) GetByWorkspaceID(ctx context.Context, workspaceID string) ([]*domain.APIKey, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepository) Revoke(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAPIKeyRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func TestAuthService_CreateWorkspace(t *testing.T) {
	ctx := context.Background()
	workspaceRepo := new(MockWorkspaceRepository)
	keyRepo := new(MockAPIKeyRepository)
	uuidGen := NewMockUUIDGenerator("ws-123")

	workspaceRepo.On("Create", ctx, mock.MatchedBy(func(w *domain.Workspace) bool {
		return w.Name == "Acme" && w.ID == "ws-123"
	})).Return(nil)

	service := NewAuthService(workspaceRepo, keyRepo, uuidGen)
	workspace, err := service.CreateWorkspace(ctx, "Acme")

	require.NoError(t, err)
	assert.Equal(t, "ws-123", workspace.ID)
	assert.Equal(t, "Acme", workspace.Name)
	workspaceRepo.AssertExpectations(t)
}

func TestAuthService_CreateWorkspace_EmptyName(t *testing.T) {
	service := NewAuthService(new(MockWorkspaceRepository), new(MockAPIKeyRepository), NewMockUUIDGenerator())

	_, err := service.CreateWorkspace(context.Background(), "")
	assert.Error(t, err)
}

func TestAuthService_CreateAPIKey_GeneratesBcnToken(t *testing.T) {
	ctx := context.Background()
	workspaceRepo := new(MockWorkspaceRepository)
	keyRepo := new(MockAPIKeyRepository)
	uuidGen := NewMockUUIDGenerator("key-123")

	workspaceRepo.On("GetByID", ctx, "ws-123").Return(&domain.Workspace{
		ID:        "ws-123",
		Name:      "Acme",
		CreatedAt: time.Now().UTC(),
	}, nil)

	keyRepo.On("Create", ctx, mock.MatchedBy(func(key *domain.APIKey) bool {
		return key.ID == "key-123" && len(key.KeyHash) == 64
	})).Return(nil)

	service := NewAuthService(workspaceRepo, keyRepo, uuidGen)
	token, err := service.CreateAPIKey(ctx, "ws-123", "widget-key")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "bcn_"), "token should start with bcn_")
	assert.Equal(t, 68, len(token), "token should be bcn_ + 64 hex chars")
	keyRepo.AssertExpectations(t)
}

func TestAuthService_CreateAPIKey_StoresSHA256Hash(t *testing.T) {
	ctx := context.Background()
	workspaceRepo := new(MockWorkspaceRepository)
	keyRepo := new(MockAPIKeyRepository)
	uuidGen := NewMockUUIDGenerator("key-123")

	workspaceRepo.On("GetByID", ctx, "ws-123").Return(&domain.Workspace{
		ID:        "ws-123",
		Name:      "Acme",
		CreatedAt: time.Now().UTC(),
	}, nil)

	var capturedKey *domain.APIKey
	keyRepo.On("Create", ctx, mock.MatchedBy(func(key *domain.APIKey) bool {
		capturedKey = key
		return true
	})).Return(nil)

	service := NewAuthService(workspaceRepo, keyRepo, uuidGen)
	token, err := service.CreateAPIKey(ctx, "ws-123", "widget-key")

	require.NoError(t, err)
	require.NotNil(t, capturedKey)
	assert.NotEqual(t, token, capturedKey.KeyHash)
	assert.Equal(t, 64, len(capturedKey.KeyHash), "SHA256 hash should be 64 hex chars")
}

func TestAuthService_ValidateAPIKey_ValidToken(t *testing.T) {
	ctx := context.Background()
	workspaceRepo := new(MockWorkspaceRepository)
	keyRepo := new(MockAPIKeyRepository)
	uuidGen := NewMockUUIDGenerator("key-123")

	workspaceRepo.On("GetByID", ctx, "ws-123").Return(&domain.Workspace{
		ID:        "ws-123",
		Name:      "Acme",
		CreatedAt: time.Now().UTC(),
	}, nil)

	var storedHash string
	keyRepo.On("Create", ctx, mock.MatchedBy(func(key *domain.APIKey) bool {
		storedHash = key.KeyHash
		return true
	})).Return(nil)

	service := NewAuthService(workspaceRepo, keyRepo, uuidGen)
	token, _ := service.CreateAPIKey(ctx, "ws-123", "widget-key")

	keyRepo.On("GetByHash", ctx, storedHash).Return(&domain.APIKey{
		ID:          "key-123",
		WorkspaceID: "ws-123",
		Name:        "widget-key",
		KeyHash:     storedHash,
		CreatedAt:   time.Now().UTC(),
		RevokedAt:   nil,
	}, nil)

	workspaceID, err := service.ValidateAPIKey(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "ws-123", workspaceID)
}

func TestAuthService_ValidateAPIKey_InvalidToken(t *testing.T) {
	service := NewAuthService(new(MockWorkspaceRepository), new(MockAPIKeyRepository), NewMockUUIDGenerator())

	_, err := service.ValidateAPIKey(context.Background(), "invalid-token")
	assert.ErrorIs(t, err, domain.ErrInvalidAPIKey)
}

func TestAuthService_ValidateAPIKey_NotFound(t *testing.T) {
	ctx := context.Background()
	keyRepo := new(MockAPIKeyRepository)
	keyRepo.On("GetByHash", ctx, mock.Anything).Return(nil, domain.ErrAPIKeyNotFound)

	service := NewAuthService(new(MockWorkspaceRepository), keyRepo, NewMockUUIDGenerator())
	_, err := service.ValidateAPIKey(ctx, "bcn_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")

	assert.ErrorIs(t, err, domain.ErrInvalidAPIKey)
}

func TestAuthService_ValidateAPIKey_RevokedKey(t *testing.T) {
	ctx := context.Background()
	keyRepo := new(MockAPIKeyRepository)

	revokedAt := time.Now().UTC()
	keyRepo.On("GetByHash", ctx, mock.Anything).Return(&domain.APIKey{
		ID:          "key-123",
		WorkspaceID: "ws-123",
		Name:        "widget-key",
		KeyHash:     "somehash",
		CreatedAt:   time.Now().UTC(),
		RevokedAt:   &revokedAt,
	}, nil)

	service := NewAuthService(new(MockWorkspaceRepository), keyRepo, NewMockUUIDGenerator())
	_, err := service.ValidateAPIKey(ctx, "bcn_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")

	assert.ErrorIs(t, err, domain.ErrAPIKeyRevoked)
}

func TestAuthService_RevokeAPIKey(t *testing.T) {
	ctx := context.Background()
	keyRepo := new(MockAPIKeyRepository)
	keyRepo.On("Revoke", ctx, "key-123").Return(nil)

	service := NewAuthService(new(MockWorkspaceRepository), keyRepo, NewMockUUIDGenerator())
	require.NoError(t, service.RevokeAPIKey(ctx, "key-123"))
	keyRepo.AssertExpectations(t)
}

func TestAuthService_ListAPIKeys(t *testing.T) {
	ctx := context.Background()
	keyRepo := new(MockAPIKeyRepository)

	keys := []*domain.APIKey{
		{ID: "key-1", WorkspaceID: "ws-123", Name: "key1", KeyHash: "hash1", CreatedAt: time.Now().UTC()},
		{ID: "key-2", WorkspaceID: "ws-123", Name: "key2", KeyHash: "hash2", CreatedAt: time.Now().UTC()},
	}
	keyRepo.On("GetByWorkspaceID", ctx, "ws-123").Return(keys, nil)

	service := NewAuthService(new(MockWorkspaceRepository), keyRepo, NewMockUUIDGenerator())
	result, err := service.ListAPIKeys(ctx, "ws-123")

	require.NoError(t, err)
	assert.Len(t, result, 2)
}

func TestIsValidAPIToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"valid token", "bcn_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", true},
		{"valid uppercase", "bcn_0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF", true},
		{"missing prefix", "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", false},
		{"wrong prefix", "abc_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", false},
		{"too short", "bcn_0123456789abcdef", false},
		{"too long", "bcn_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef00", false},
		{"invalid chars", "bcn_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdeg", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidAPIToken(tt.token))
		})
	}
}

func TestAuthService_CreateAPIKeyWithToken(t *testing.T) {
	ctx := context.Background()
	workspaceRepo := new(MockWorkspaceRepository)
	keyRepo := new(MockAPIKeyRepository)
	uuidGen := NewMockUUIDGenerator("key-123")

	workspaceRepo.On("GetByID", ctx, "ws-123").Return(&domain.Workspace{
		ID:        "ws-123",
		Name:      "Acme",
		CreatedAt: time.Now().UTC(),
	}, nil)

	keyRepo.On("Create", ctx, mock.MatchedBy(func(key *domain.APIKey) bool {
		return key.WorkspaceID == "ws-123" && key.Name == "bootstrap"
	})).Return(nil)

	service := NewAuthService(workspaceRepo, keyRepo, uuidGen)
	err := service.CreateAPIKeyWithToken(ctx, "ws-123", "bootstrap", "bcn_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")

	require.NoError(t, err)
	keyRepo.AssertExpectations(t)
}

func TestAuthService_CreateAPIKeyWithToken_InvalidFormat(t *testing.T) {
	service := NewAuthService(new(MockWorkspaceRepository), new(MockAPIKeyRepository), NewMockUUIDGenerator())

	err := service.CreateAPIKeyWithToken(context.Background(), "ws-123", "bootstrap", "invalid-token")
	assert.Error(t, err)
}
