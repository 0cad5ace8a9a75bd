package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/beaconchat/beacon/internal/domain"
)

// MockChatbotAdminRepository is a mock implementation of ChatbotAdminRepository
type MockChatbotAdminRepository struct {
	mock.Mock
}

func (m *MockChatbotAdminRepository) Create(ctx context.Context, c *domain.Chatbot) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockChatbotAdminRepository) GetByID(ctx context.Context, id string) (*domain.Chatbot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chatbot), args.Error(1)
}

func (m *MockChatbotAdminRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]*domain.Chatbot, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Chatbot), args.Error(1)
}

func (m *MockChatbotAdminRepository) Update(ctx context.Context, c *domain.Chatbot) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockChatbotAdminRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockKnowledgePurger is a mock implementation of KnowledgePurger
type MockKnowledgePurger struct {
	mock.Mock
}

func (m *MockKnowledgePurger) PurgeChatbotKnowledge(ctx context.Context, chatbotID string) (int64, error) {
	args := m.Called(ctx, chatbotID)
	return args.Get(0).(int64), args.Error(1)
}

func TestChatbotService_Create_Defaults(t *testing.T) {
	repo := new(MockChatbotAdminRepository)
	svc := NewChatbotService(repo, new(MockKnowledgePurger), "default-model")

	var created *domain.Chatbot
	repo.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Chatbot) bool {
		created = c
		return c.WorkspaceID == "ws-1" && c.Name == "Support"
	})).Return(nil)

	out, err := svc.Create(context.Background(), CreateChatbotInput{WorkspaceID: "ws-1", Name: "Support"})
	require.NoError(t, err)
	assert.Equal(t, created, out)
	assert.Equal(t, "default-model", out.Model)
	assert.Equal(t, domain.DefaultDirective, out.Directive)
	assert.InDelta(t, 0.7, out.Temperature, 1e-6)
	assert.Equal(t, 1024, out.MaxTokens)
}

func TestChatbotService_Create_Overrides(t *testing.T) {
	repo := new(MockChatbotAdminRepository)
	svc := NewChatbotService(repo, new(MockKnowledgePurger), "default-model")

	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	temp := float32(0.3)
	tokens := 512
	out, err := svc.Create(context.Background(), CreateChatbotInput{
		WorkspaceID: "ws-1",
		Name:        "Sales",
		Directive:   "Sell things.",
		Model:       "other-model",
		Temperature: &temp,
		MaxTokens:   &tokens,
	})
	require.NoError(t, err)
	assert.Equal(t, "Sell things.", out.Directive)
	assert.Equal(t, "other-model", out.Model)
	assert.InDelta(t, 0.3, out.Temperature, 1e-6)
	assert.Equal(t, 512, out.MaxTokens)
}

func TestChatbotService_Create_MissingWorkspace(t *testing.T) {
	svc := NewChatbotService(new(MockChatbotAdminRepository), new(MockKnowledgePurger), "m")

	_, err := svc.Create(context.Background(), CreateChatbotInput{Name: "Support"})
	assert.Error(t, err)
}

func TestChatbotService_Update_PartialFields(t *testing.T) {
	repo := new(MockChatbotAdminRepository)
	svc := NewChatbotService(repo, new(MockKnowledgePurger), "m")

	existing := chatFixtureBot()
	existing.WorkspaceID = "ws-1"
	repo.On("GetByID", mock.Anything, "bot-1").Return(existing, nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	out, err := svc.Update(context.Background(), UpdateChatbotInput{ChatbotID: "bot-1", Name: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", out.Name)
	assert.Equal(t, "You are a support assistant.", out.Directive)
}

func TestChatbotService_Update_InvalidTemperature(t *testing.T) {
	repo := new(MockChatbotAdminRepository)
	svc := NewChatbotService(repo, new(MockKnowledgePurger), "m")

	existing := chatFixtureBot()
	existing.WorkspaceID = "ws-1"
	repo.On("GetByID", mock.Anything, "bot-1").Return(existing, nil)

	temp := float32(5)
	_, err := svc.Update(context.Background(), UpdateChatbotInput{ChatbotID: "bot-1", Temperature: &temp})
	assert.Error(t, err)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestChatbotService_Delete_PurgesKnowledgeFirst(t *testing.T) {
	repo := new(MockChatbotAdminRepository)
	purger := new(MockKnowledgePurger)
	svc := NewChatbotService(repo, purger, "m")

	existing := chatFixtureBot()
	repo.On("GetByID", mock.Anything, "bot-1").Return(existing, nil)
	purger.On("PurgeChatbotKnowledge", mock.Anything, "bot-1").Return(int64(321), nil)
	repo.On("Delete", mock.Anything, "bot-1").Return(nil)

	purged, err := svc.Delete(context.Background(), "bot-1")
	require.NoError(t, err)
	assert.Equal(t, int64(321), purged)
	purger.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestChatbotService_Delete_MissingIsNoop(t *testing.T) {
	repo := new(MockChatbotAdminRepository)
	purger := new(MockKnowledgePurger)
	svc := NewChatbotService(repo, purger, "m")

	repo.On("GetByID", mock.Anything, "ghost").Return(nil, domain.ErrChatbotNotFound)

	purged, err := svc.Delete(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, int64(0), purged)
	purger.AssertNotCalled(t, "PurgeChatbotKnowledge", mock.Anything, mock.Anything)
}
