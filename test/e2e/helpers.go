//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/beaconchat/beacon/internal/api/handlers"
	"github.com/beaconchat/beacon/internal/extract"
	"github.com/beaconchat/beacon/internal/openai"
	"github.com/beaconchat/beacon/internal/repository"
	"github.com/beaconchat/beacon/internal/server"
	"github.com/beaconchat/beacon/internal/service"
	"github.com/beaconchat/beacon/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

const embeddingDims = 768

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	Generator    *fakeGenerator
	WorkspaceID  string
	AuthToken    string
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with a database container
// and a running HTTP server. Embedding and text generation are served by
// deterministic in-process fakes so tests never reach an external provider.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	gen := &fakeGenerator{}
	serverURL, serverCloser := startServer(t, pool, gen, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		Generator:    gen,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// Bootstrap provisions a workspace and API key. Workspaces are created
// through the CLI in production, so the service layer is called directly
// here rather than over HTTP.
func (e *E2ETestEnv) Bootstrap() {
	workspaceRepo := repository.NewWorkspaceRepository(e.Pool)
	apiKeyRepo := repository.NewAPIKeyRepository(e.Pool)
	authSvc := service.NewAuthService(workspaceRepo, apiKeyRepo, &service.DefaultUUIDGenerator{})

	workspace, err := authSvc.CreateWorkspace(e.Ctx, "E2E Test Workspace")
	if err != nil {
		e.T.Fatalf("failed to create workspace: %v", err)
	}
	e.WorkspaceID = workspace.ID

	token, err := authSvc.CreateAPIKey(e.Ctx, workspace.ID, "e2e-test-key")
	if err != nil {
		e.T.Fatalf("failed to create API key: %v", err)
	}
	e.AuthToken = token
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil, authToken)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest("POST", path, body, authToken)
}

// Patch performs a PATCH request
func (e *E2ETestEnv) Patch(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest("PATCH", path, body, authToken)
}

// Put performs a PUT request
func (e *E2ETestEnv) Put(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest("PUT", path, body, authToken)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path, authToken string) (*APIResponse, error) {
	return e.doRequest("DELETE", path, nil, authToken)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// startServer wires the full application the way the serve command does,
// substituting fakes for the LLM provider.
func startServer(t *testing.T, pool *pgxpool.Pool, gen *fakeGenerator, port int) (string, func()) {
	workspaceRepo := repository.NewWorkspaceRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	chatbotRepo := repository.NewChatbotRepository(pool)
	kbRepo := repository.NewKnowledgeBaseRepository(pool)
	documentRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	conversationRepo := repository.NewConversationRepository(pool)
	logicRepo := repository.NewLogicRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	authSvc := service.NewAuthService(workspaceRepo, apiKeyRepo, &service.DefaultUUIDGenerator{})
	embeddingSvc := service.NewEmbeddingService(&fakeEmbedder{dims: embeddingDims})
	searchSvc := service.NewSearchService(chunkRepo, embeddingSvc, 0)
	contextSvc := service.NewContextService(kbRepo, conversationRepo, searchSvc)
	chatSvc := service.NewChatService(chatbotRepo, contextSvc, gen, txRunner)
	ingestSvc := service.NewIngestService(kbRepo, documentRepo, chunkRepo, embeddingSvc, extract.NewWebpageFetcher(), nil, embeddingDims)
	knowledgeSvc := service.NewKnowledgeService(kbRepo, chunkRepo)
	chatbotSvc := service.NewChatbotService(chatbotRepo, knowledgeSvc, "gpt-4o-mini")
	logicSvc := service.NewLogicService(logicRepo)

	router := server.NewRouter(server.RouterConfig{
		AuthValidator:       authSvc,
		ChatbotHandler:      handlers.NewChatbotHandler(chatbotSvc),
		KnowledgeHandler:    handlers.NewKnowledgeHandler(ingestSvc, knowledgeSvc, chatbotSvc),
		ChatHandler:         handlers.NewChatHandler(chatSvc, conversationRepo, chatbotSvc),
		LogicHandler:        handlers.NewLogicHandler(logicSvc, chatbotSvc),
		ConversationHandler: handlers.NewConversationHandler(conversationRepo, chatbotSvc),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// fakeEmbedder produces deterministic bag-of-words vectors. Identical texts
// embed identically, so an exact-match query scores 1.0 against its chunk.
type fakeEmbedder struct {
	dims int
}

func (f *fakeEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return f.embed(text), nil
}

func (f *fakeEmbedder) GenerateEmbeddingBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = f.embed(text)
	}
	return out, nil
}

func (f *fakeEmbedder) embed(text string) []float32 {
	vec := make([]float32, f.dims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()")
		if word == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[int(h.Sum32()%uint32(f.dims))]++
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		vec[0] = 1
		return vec
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// fakeGenerator records prompts and returns a canned answer.
type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
}

func (f *fakeGenerator) GenerateText(ctx context.Context, prompt string, _ openai.ModelParams) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return "Here is what I found in the knowledge base.", nil
}

// LastPrompt returns the most recent prompt sent to the generator.
func (f *fakeGenerator) LastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}
