package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/beaconchat/beacon/internal/domain"
	"github.com/beaconchat/beacon/internal/extract"
)

// MockKnowledgeBaseRepository is a mock implementation of KnowledgeBaseRepositoryInterface
type MockKnowledgeBaseRepository struct {
	mock.Mock
}

func (m *MockKnowledgeBaseRepository) Create(ctx context.Context, kb *domain.KnowledgeBase) error {
	args := m.Called(ctx, kb)
	return args.Error(0)
}

// MockDocumentRepository is a mock implementation of DocumentRepositoryInterface
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

// MockChunkWriteRepository is a mock implementation of ChunkWriteRepository
type MockChunkWriteRepository struct {
	mock.Mock
}

func (m *MockChunkWriteRepository) UpsertChunks(ctx context.Context, chunks []*domain.Chunk) error {
	args := m.Called(ctx, chunks)
	return args.Error(0)
}

// MockChunkEmbedder is a mock implementation of ChunkEmbedder
type MockChunkEmbedder struct {
	mock.Mock
}

func (m *MockChunkEmbedder) EmbedChunks(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if fn, ok := args.Get(0).(func([]string) [][]float32); ok {
		return fn(texts), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

// MockWebpageSource is a mock implementation of WebpageSource
type MockWebpageSource struct {
	mock.Mock
}

func (m *MockWebpageSource) Fetch(ctx context.Context, pageURL string, crawlSubpages bool) ([]*extract.WebpageResult, error) {
	args := m.Called(ctx, pageURL, crawlSubpages)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*extract.WebpageResult), args.Error(1)
}

const testDimensions = 3

func embeddingsFor(texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 0.5, 0.5}
	}
	return out
}

type ingestFixture struct {
	kbRepo   *MockKnowledgeBaseRepository
	docRepo  *MockDocumentRepository
	chunks   *MockChunkWriteRepository
	embedder *MockChunkEmbedder
	webpages *MockWebpageSource
	svc      *IngestService
}

func newIngestFixture() *ingestFixture {
	f := &ingestFixture{
		kbRepo:   new(MockKnowledgeBaseRepository),
		docRepo:  new(MockDocumentRepository),
		chunks:   new(MockChunkWriteRepository),
		embedder: new(MockChunkEmbedder),
		webpages: new(MockWebpageSource),
	}
	f.svc = NewIngestService(f.kbRepo, f.docRepo, f.chunks, f.embedder, f.webpages, nil, testDimensions)
	return f
}

func TestIngestService_Ingest_FileSource(t *testing.T) {
	f := newIngestFixture()

	f.kbRepo.On("Create", mock.Anything, mock.MatchedBy(func(kb *domain.KnowledgeBase) bool {
		return kb.ChatbotID == "bot-1" && kb.Type == domain.KnowledgeBaseTypeDoc
	})).Return(nil)
	f.docRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.embedder.On("EmbedChunks", mock.Anything, mock.Anything).
		Return(func(texts []string) [][]float32 { return embeddingsFor(texts) }, nil)

	var stored []*domain.Chunk
	f.chunks.On("UpsertChunks", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { stored = args.Get(1).([]*domain.Chunk) }).
		Return(nil)

	out, err := f.svc.Ingest(context.Background(), IngestInput{
		ChatbotID: "bot-1",
		Name:      "Docs",
		Kind:      SourceKindFile,
		Sources: []Source{
			{Name: "faq.txt", Data: []byte("First answer. Second answer. Third answer.")},
		},
	})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.True(t, out.Results[0].Success)
	assert.Len(t, out.Results[0].DocumentIDs, 1)
	assert.Equal(t, "Docs", out.KnowledgeBase.Name)

	require.NotEmpty(t, stored)
	for i, c := range stored {
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, "bot-1", c.ChatbotID)
		assert.Equal(t, out.KnowledgeBase.ID, c.KnowledgeBaseID)
		assert.Len(t, c.Embedding, testDimensions)
	}
}

func TestIngestService_Ingest_SourceFailureIsIsolated(t *testing.T) {
	f := newIngestFixture()

	f.kbRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.docRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.embedder.On("EmbedChunks", mock.Anything, mock.Anything).
		Return(func(texts []string) [][]float32 { return embeddingsFor(texts) }, nil)
	f.chunks.On("UpsertChunks", mock.Anything, mock.Anything).Return(nil)

	out, err := f.svc.Ingest(context.Background(), IngestInput{
		ChatbotID: "bot-1",
		Kind:      SourceKindFile,
		Sources: []Source{
			{Name: "good.txt", Data: []byte("Fine content.")},
			{Name: "bad.exe", Data: []byte{0x00}},
			{Name: "also-good.md", Data: []byte("More content.")},
		},
	})
	require.NoError(t, err)
	require.Len(t, out.Results, 3)
	assert.True(t, out.Results[0].Success)
	assert.False(t, out.Results[1].Success)
	assert.NotEmpty(t, out.Results[1].Error)
	assert.True(t, out.Results[2].Success)
}

func TestIngestService_Ingest_EmbeddingFailureAbortsDocumentOnly(t *testing.T) {
	f := newIngestFixture()

	f.kbRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.docRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.embedder.On("EmbedChunks", mock.Anything, []string{"Poisoned content."}).
		Return(nil, errors.New("provider rejected input")).Once()
	f.embedder.On("EmbedChunks", mock.Anything, mock.Anything).
		Return(func(texts []string) [][]float32 { return embeddingsFor(texts) }, nil)
	f.chunks.On("UpsertChunks", mock.Anything, mock.Anything).Return(nil)

	out, err := f.svc.Ingest(context.Background(), IngestInput{
		ChatbotID: "bot-1",
		Kind:      SourceKindFile,
		Sources: []Source{
			{Name: "poison.txt", Data: []byte("Poisoned content.")},
			{Name: "clean.txt", Data: []byte("Clean content.")},
		},
	})
	require.NoError(t, err)
	assert.False(t, out.Results[0].Success)
	assert.Contains(t, out.Results[0].Error, "provider rejected input")
	assert.True(t, out.Results[1].Success)

	// No chunks reach the store for the failed document.
	f.chunks.AssertNumberOfCalls(t, "UpsertChunks", 1)
}

func TestIngestService_Ingest_TableBatches(t *testing.T) {
	f := newIngestFixture()

	f.kbRepo.On("Create", mock.Anything, mock.MatchedBy(func(kb *domain.KnowledgeBase) bool {
		return kb.Type == domain.KnowledgeBaseTypeFAQ
	})).Return(nil)
	f.docRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.embedder.On("EmbedChunks", mock.Anything, mock.Anything).
		Return(func(texts []string) [][]float32 { return embeddingsFor(texts) }, nil)
	f.chunks.On("UpsertChunks", mock.Anything, mock.Anything).Return(nil)

	csv := "q,a\n"
	for i := 0; i < extract.TableBatchSize+1; i++ {
		csv += fmt.Sprintf("question %d,answer %d\n", i, i)
	}

	out, err := f.svc.Ingest(context.Background(), IngestInput{
		ChatbotID: "bot-1",
		Kind:      SourceKindTable,
		Sources:   []Source{{Name: "faq.csv", Data: []byte(csv)}},
	})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.True(t, out.Results[0].Success)
	assert.Equal(t, 2, out.Results[0].Batches)
	assert.Equal(t, extract.TableBatchSize+1, out.Results[0].RowCount)
	assert.Len(t, out.Results[0].DocumentIDs, 2)
}

func TestIngestService_Ingest_WebpageCrawlProducesSiblingDocuments(t *testing.T) {
	f := newIngestFixture()

	f.kbRepo.On("Create", mock.Anything, mock.MatchedBy(func(kb *domain.KnowledgeBase) bool {
		return kb.Type == domain.KnowledgeBaseTypeWeb
	})).Return(nil)
	f.docRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.embedder.On("EmbedChunks", mock.Anything, mock.Anything).
		Return(func(texts []string) [][]float32 { return embeddingsFor(texts) }, nil)
	f.chunks.On("UpsertChunks", mock.Anything, mock.Anything).Return(nil)

	f.webpages.On("Fetch", mock.Anything, "https://example.com", true).Return([]*extract.WebpageResult{
		{URL: "https://example.com", Content: "Root page.", Metadata: map[string]any{"url": "https://example.com"}},
		{URL: "https://example.com/about", Content: "About page.", Metadata: map[string]any{"url": "https://example.com/about"}},
	}, nil)

	out, err := f.svc.Ingest(context.Background(), IngestInput{
		ChatbotID: "bot-1",
		Kind:      SourceKindWebpage,
		Sources:   []Source{{URL: "https://example.com", CrawlSubpages: true}},
	})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.True(t, out.Results[0].Success)
	assert.Equal(t, "https://example.com", out.Results[0].SourceName)
	assert.Len(t, out.Results[0].DocumentIDs, 2)
}

func TestIngestService_Ingest_RequiresChatbotScope(t *testing.T) {
	f := newIngestFixture()

	_, err := f.svc.Ingest(context.Background(), IngestInput{
		Kind:    SourceKindFile,
		Sources: []Source{{Name: "a.txt", Data: []byte("x.")}},
	})
	assert.ErrorIs(t, err, domain.ErrMissingChatbotScope)
}

func TestIngestService_Ingest_RequiresSources(t *testing.T) {
	f := newIngestFixture()

	_, err := f.svc.Ingest(context.Background(), IngestInput{ChatbotID: "bot-1", Kind: SourceKindFile})
	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrCodeValidation, derr.Code)
}
