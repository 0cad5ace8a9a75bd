package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/beaconchat/beacon/internal/api/middleware"
	"github.com/beaconchat/beacon/internal/domain"
	"github.com/beaconchat/beacon/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockChatbotService struct {
	mock.Mock
}

func (m *MockChatbotService) Create(ctx context.Context, input service.CreateChatbotInput) (*domain.Chatbot, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chatbot), args.Error(1)
}

func (m *MockChatbotService) GetByID(ctx context.Context, id string) (*domain.Chatbot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chatbot), args.Error(1)
}

func (m *MockChatbotService) ListByWorkspace(ctx context.Context, workspaceID string) ([]*domain.Chatbot, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Chatbot), args.Error(1)
}

func (m *MockChatbotService) Update(ctx context.Context, input service.UpdateChatbotInput) (*domain.Chatbot, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chatbot), args.Error(1)
}

func (m *MockChatbotService) Delete(ctx context.Context, id string) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func newTestChatbot() *domain.Chatbot {
	now := time.Now().UTC()
	return &domain.Chatbot{
		ID:          "bot-123",
		WorkspaceID: "ws-456",
		Name:        "Support Bot",
		Directive:   domain.DefaultDirective,
		Model:       "gpt-4o-mini",
		Temperature: 0.7,
		MaxTokens:   1024,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func requestWithWorkspaceID(method, url string, body []byte) *http.Request {
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), middleware.WorkspaceIDKey, "ws-456")
	return req.WithContext(ctx)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestChatbotHandler_Create_Success(t *testing.T) {
	mockSvc := new(MockChatbotService)
	handler := NewChatbotHandler(mockSvc)

	expected := newTestChatbot()
	mockSvc.On("Create", mock.Anything, mock.MatchedBy(func(input service.CreateChatbotInput) bool {
		return input.WorkspaceID == "ws-456" && input.Name == "Support Bot"
	})).Return(expected, nil)

	body := `{"name":"Support Bot"}`
	req := requestWithWorkspaceID(http.MethodPost, "/chatbots", []byte(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "bot-123", data["id"])
	assert.Equal(t, "ws-456", data["workspace_id"])
	mockSvc.AssertExpectations(t)
}

func TestChatbotHandler_Create_Unauthorized(t *testing.T) {
	mockSvc := new(MockChatbotService)
	handler := NewChatbotHandler(mockSvc)

	body := `{"name":"Support Bot"}`
	req := httptest.NewRequest(http.MethodPost, "/chatbots", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	mockSvc.AssertNotCalled(t, "Create")
}

func TestChatbotHandler_Create_MissingName(t *testing.T) {
	mockSvc := new(MockChatbotService)
	handler := NewChatbotHandler(mockSvc)

	req := requestWithWorkspaceID(http.MethodPost, "/chatbots", []byte(`{}`))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "Create")
}

func TestChatbotHandler_List_Success(t *testing.T) {
	mockSvc := new(MockChatbotService)
	handler := NewChatbotHandler(mockSvc)

	mockSvc.On("ListByWorkspace", mock.Anything, "ws-456").Return([]*domain.Chatbot{newTestChatbot()}, nil)

	req := requestWithWorkspaceID(http.MethodGet, "/chatbots", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].([]interface{})
	assert.Len(t, data, 1)
	mockSvc.AssertExpectations(t)
}

func TestChatbotHandler_Get_Success(t *testing.T) {
	mockSvc := new(MockChatbotService)
	handler := NewChatbotHandler(mockSvc)

	mockSvc.On("GetByID", mock.Anything, "bot-123").Return(newTestChatbot(), nil)

	req := requestWithWorkspaceID(http.MethodGet, "/chatbots/bot-123", nil)
	req = withURLParam(req, "id", "bot-123")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestChatbotHandler_Get_ForeignWorkspace(t *testing.T) {
	mockSvc := new(MockChatbotService)
	handler := NewChatbotHandler(mockSvc)

	foreign := newTestChatbot()
	foreign.WorkspaceID = "ws-other"
	mockSvc.On("GetByID", mock.Anything, "bot-123").Return(foreign, nil)

	req := requestWithWorkspaceID(http.MethodGet, "/chatbots/bot-123", nil)
	req = withURLParam(req, "id", "bot-123")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	// Another tenant's bot reads as not found
	assert.Equal(t, http.StatusNotFound, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestChatbotHandler_Get_NotFound(t *testing.T) {
	mockSvc := new(MockChatbotService)
	handler := NewChatbotHandler(mockSvc)

	mockSvc.On("GetByID", mock.Anything, "bot-999").Return(nil, domain.ErrChatbotNotFound)

	req := requestWithWorkspaceID(http.MethodGet, "/chatbots/bot-999", nil)
	req = withURLParam(req, "id", "bot-999")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestChatbotHandler_Update_Success(t *testing.T) {
	mockSvc := new(MockChatbotService)
	handler := NewChatbotHandler(mockSvc)

	updated := newTestChatbot()
	updated.Name = "Renamed"
	mockSvc.On("GetByID", mock.Anything, "bot-123").Return(newTestChatbot(), nil)
	mockSvc.On("Update", mock.Anything, mock.MatchedBy(func(input service.UpdateChatbotInput) bool {
		return input.ChatbotID == "bot-123" && input.Name == "Renamed"
	})).Return(updated, nil)

	body := `{"name":"Renamed"}`
	req := requestWithWorkspaceID(http.MethodPatch, "/chatbots/bot-123", []byte(body))
	req = withURLParam(req, "id", "bot-123")
	w := httptest.NewRecorder()

	handler.Update(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "Renamed", data["name"])
	mockSvc.AssertExpectations(t)
}

func TestChatbotHandler_Delete_Success(t *testing.T) {
	mockSvc := new(MockChatbotService)
	handler := NewChatbotHandler(mockSvc)

	mockSvc.On("GetByID", mock.Anything, "bot-123").Return(newTestChatbot(), nil)
	mockSvc.On("Delete", mock.Anything, "bot-123").Return(int64(7), nil)

	req := requestWithWorkspaceID(http.MethodDelete, "/chatbots/bot-123", nil)
	req = withURLParam(req, "id", "bot-123")
	w := httptest.NewRecorder()

	handler.Delete(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "bot-123", data["id"])
	assert.Equal(t, float64(7), data["removed_chunks"])
	mockSvc.AssertExpectations(t)
}
