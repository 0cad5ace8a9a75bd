package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/beaconchat/beacon/internal/domain"
	"github.com/beaconchat/beacon/internal/extract"
	"github.com/beaconchat/beacon/internal/telemetry"
	"github.com/google/uuid"
)

// SourceKind identifies how an ingestion source is processed.
type SourceKind string

const (
	SourceKindFile    SourceKind = "file"
	SourceKindTable   SourceKind = "table"
	SourceKindWebpage SourceKind = "webpage"
)

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// KnowledgeBaseRepositoryInterface defines the repository interface for knowledge base persistence
type KnowledgeBaseRepositoryInterface interface {
	Create(ctx context.Context, kb *domain.KnowledgeBase) error
}

// DocumentRepositoryInterface defines the repository interface for document persistence
type DocumentRepositoryInterface interface {
	Create(ctx context.Context, d *domain.Document) error
}

// ChunkWriteRepository persists embedded chunks.
type ChunkWriteRepository interface {
	// UpsertChunks writes chunks idempotently keyed on (document, index).
	UpsertChunks(ctx context.Context, chunks []*domain.Chunk) error
}

// ChunkEmbedder embeds chunk batches in input order.
type ChunkEmbedder interface {
	EmbedChunks(ctx context.Context, texts []string) ([][]float32, error)
}

// WebpageSource fetches webpage text, optionally crawling same-origin
// subpages.
type WebpageSource interface {
	Fetch(ctx context.Context, pageURL string, crawlSubpages bool) ([]*extract.WebpageResult, error)
}

// SourceArchiver stores raw source bytes outside the database. Optional.
type SourceArchiver interface {
	ArchiveSource(ctx context.Context, chatbotID, knowledgeBaseID, sourceName string, data []byte) (string, error)
}

// Source is one uploaded unit of an ingestion request: a file, a CSV table,
// or a webpage URL.
type Source struct {
	Name          string
	Data          []byte
	URL           string
	CrawlSubpages bool
}

// SourceResult reports the outcome of processing one source. Sources fail
// independently; a failed source never aborts its siblings.
type SourceResult struct {
	SourceName  string   `json:"source_name"`
	Success     bool     `json:"success"`
	DocumentIDs []string `json:"document_ids,omitempty"`
	RowCount    int      `json:"row_count,omitempty"`
	Batches     int      `json:"batches,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// IngestInput represents the input for ingesting sources into a new
// knowledge base.
type IngestInput struct {
	ChatbotID string
	Name      string
	Kind      SourceKind
	Sources   []Source
}

// IngestOutput carries the created knowledge base and per-source results.
type IngestOutput struct {
	KnowledgeBase *domain.KnowledgeBase
	Results       []*SourceResult
}

// IngestService turns uploaded sources into embedded, searchable chunks.
type IngestService struct {
	kbRepo       KnowledgeBaseRepositoryInterface
	documentRepo DocumentRepositoryInterface
	chunkRepo    ChunkWriteRepository
	embedder     ChunkEmbedder
	webpages     WebpageSource
	archiver     SourceArchiver
	dimensions   int
	maxChunkSize int
	uuidGen      UUIDGenerator
}

// NewIngestService creates a new IngestService instance. archiver may be nil
// when no object storage is configured.
func NewIngestService(
	kbRepo KnowledgeBaseRepositoryInterface,
	documentRepo DocumentRepositoryInterface,
	chunkRepo ChunkWriteRepository,
	embedder ChunkEmbedder,
	webpages WebpageSource,
	archiver SourceArchiver,
	dimensions int,
) *IngestService {
	return &IngestService{
		kbRepo:       kbRepo,
		documentRepo: documentRepo,
		chunkRepo:    chunkRepo,
		embedder:     embedder,
		webpages:     webpages,
		archiver:     archiver,
		dimensions:   dimensions,
		maxChunkSize: DefaultMaxChunkSize,
		uuidGen:      &DefaultUUIDGenerator{},
	}
}

// Ingest creates a knowledge base for the chatbot and processes every source
// into documents, chunks, and embeddings. Each source is isolated: an
// extraction or embedding failure marks that source failed and moves on.
func (s *IngestService) Ingest(ctx context.Context, input IngestInput) (*IngestOutput, error) {
	if input.ChatbotID == "" {
		return nil, domain.ErrMissingChatbotScope
	}
	if len(input.Sources) == 0 {
		return nil, &domain.DomainError{
			Code:    domain.ErrCodeValidation,
			Message: "at least one source is required",
		}
	}

	ctx, span := telemetry.StartSpan(ctx, "IngestService.Ingest", telemetry.SpanAttributes{
		ChatbotID: input.ChatbotID,
		Operation: "ingest",
	})
	defer span.End()

	kb := &domain.KnowledgeBase{
		ID:        s.uuidGen.NewString(),
		ChatbotID: input.ChatbotID,
		Name:      input.Name,
		Type:      knowledgeBaseTypeFor(input.Kind),
		IndexName: fmt.Sprintf("kb_%s_%d", input.ChatbotID, time.Now().UnixMilli()),
		CreatedAt: time.Now().UTC(),
	}
	if kb.Name == "" {
		kb.Name = defaultKnowledgeBaseName(input.Kind)
	}
	if err := domain.ValidateKnowledgeBase(kb); err != nil {
		return nil, err
	}
	if err := s.kbRepo.Create(ctx, kb); err != nil {
		return nil, err
	}

	results := make([]*SourceResult, 0, len(input.Sources))
	for _, src := range input.Sources {
		results = append(results, s.processSource(ctx, kb, input.Kind, src))
	}

	return &IngestOutput{KnowledgeBase: kb, Results: results}, nil
}

func (s *IngestService) processSource(ctx context.Context, kb *domain.KnowledgeBase, kind SourceKind, src Source) *SourceResult {
	result := &SourceResult{SourceName: sourceName(kind, src)}

	var err error
	switch kind {
	case SourceKindFile:
		err = s.processFile(ctx, kb, src, result)
	case SourceKindTable:
		err = s.processTable(ctx, kb, src, result)
	case SourceKindWebpage:
		err = s.processWebpage(ctx, kb, src, result)
	default:
		err = fmt.Errorf("unsupported source kind %q", kind)
	}

	if err != nil {
		log.Printf("ingest: source %q failed: %v", result.SourceName, err)
		result.Error = err.Error()
		return result
	}
	result.Success = true
	return result
}

func (s *IngestService) processFile(ctx context.Context, kb *domain.KnowledgeBase, src Source, result *SourceResult) error {
	extracted, err := extract.File(src.Name, src.Data)
	if err != nil {
		return err
	}
	s.archive(ctx, kb, src.Name, src.Data, extracted.Metadata)

	docID, err := s.ingestDocument(ctx, kb, src.Name, extracted.Content, extracted.Metadata)
	if err != nil {
		return err
	}
	result.DocumentIDs = append(result.DocumentIDs, docID)
	return nil
}

func (s *IngestService) processTable(ctx context.Context, kb *domain.KnowledgeBase, src Source, result *SourceResult) error {
	batches, err := extract.Table(src.Name, src.Data)
	if err != nil {
		return err
	}
	s.archive(ctx, kb, src.Name, src.Data, nil)

	for i, batch := range batches {
		source := fmt.Sprintf("%s (batch %d)", src.Name, i+1)
		docID, err := s.ingestDocument(ctx, kb, source, batch.Content, batch.Metadata)
		if err != nil {
			return fmt.Errorf("batch %d: %w", i+1, err)
		}
		result.DocumentIDs = append(result.DocumentIDs, docID)
		result.RowCount += batch.Metadata["rowCount"].(int)
	}
	result.Batches = len(batches)
	return nil
}

func (s *IngestService) processWebpage(ctx context.Context, kb *domain.KnowledgeBase, src Source, result *SourceResult) error {
	pages, err := s.webpages.Fetch(ctx, src.URL, src.CrawlSubpages)
	if err != nil {
		return err
	}
	// Each crawled page becomes a sibling document of the root.
	for _, page := range pages {
		docID, err := s.ingestDocument(ctx, kb, page.URL, page.Content, page.Metadata)
		if err != nil {
			return fmt.Errorf("page %s: %w", page.URL, err)
		}
		result.DocumentIDs = append(result.DocumentIDs, docID)
	}
	return nil
}

// ingestDocument persists one document and its embedded chunks. An embedding
// failure leaves the document row behind but writes no chunks; re-ingesting
// overwrites cleanly since chunk upserts key on (document, index).
func (s *IngestService) ingestDocument(ctx context.Context, kb *domain.KnowledgeBase, source, content string, metadata map[string]any) (string, error) {
	doc := &domain.Document{
		ID:              s.uuidGen.NewString(),
		KnowledgeBaseID: kb.ID,
		Source:          source,
		Content:         content,
		Metadata:        metadata,
		CreatedAt:       time.Now().UTC(),
	}
	if err := domain.ValidateDocument(doc); err != nil {
		return "", err
	}
	if err := s.documentRepo.Create(ctx, doc); err != nil {
		return "", err
	}

	texts := ChunkText(content, s.maxChunkSize)
	if len(texts) == 0 {
		return doc.ID, nil
	}

	embeddings, err := s.embedder.EmbedChunks(ctx, texts)
	if err != nil {
		return "", fmt.Errorf("embed document %s: %w", doc.ID, err)
	}

	chunks := make([]*domain.Chunk, len(texts))
	for i, text := range texts {
		chunk := &domain.Chunk{
			ID:              s.uuidGen.NewString(),
			DocumentID:      doc.ID,
			KnowledgeBaseID: kb.ID,
			ChatbotID:       kb.ChatbotID,
			ChunkIndex:      i,
			Content:         text,
			Embedding:       embeddings[i],
			Metadata:        metadata,
			CreatedAt:       doc.CreatedAt,
		}
		if err := domain.ValidateChunk(chunk, s.dimensions); err != nil {
			return "", err
		}
		chunks[i] = chunk
	}

	if err := s.chunkRepo.UpsertChunks(ctx, chunks); err != nil {
		return "", err
	}
	return doc.ID, nil
}

// archive stores raw source bytes when an archiver is configured. Archive
// failures are logged, not fatal: the extracted text is already in hand.
func (s *IngestService) archive(ctx context.Context, kb *domain.KnowledgeBase, name string, data []byte, metadata map[string]any) {
	if s.archiver == nil || len(data) == 0 {
		return
	}
	key, err := s.archiver.ArchiveSource(ctx, kb.ChatbotID, kb.ID, name, data)
	if err != nil {
		log.Printf("ingest: archiving %q failed: %v", name, err)
		return
	}
	if metadata != nil {
		metadata["archiveKey"] = key
	}
}

func knowledgeBaseTypeFor(kind SourceKind) domain.KnowledgeBaseType {
	switch kind {
	case SourceKindTable:
		return domain.KnowledgeBaseTypeFAQ
	case SourceKindWebpage:
		return domain.KnowledgeBaseTypeWeb
	default:
		return domain.KnowledgeBaseTypeDoc
	}
}

func defaultKnowledgeBaseName(kind SourceKind) string {
	date := time.Now().Format("2006-01-02")
	switch kind {
	case SourceKindTable:
		return "Tables - " + date
	case SourceKindWebpage:
		return "Web - " + date
	default:
		return "Files - " + date
	}
}

func sourceName(kind SourceKind, src Source) string {
	if kind == SourceKindWebpage {
		return src.URL
	}
	return src.Name
}
