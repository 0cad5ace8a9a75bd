package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/beaconchat/beacon/internal/domain"
	"github.com/beaconchat/beacon/internal/telemetry"
)

const (
	// DefaultSearchLimit is how many chunks a scoped search returns.
	DefaultSearchLimit = 5
	// DefaultSearchThreshold drops results below this similarity.
	DefaultSearchThreshold float32 = 0.75
	// searchOversampleFactor over-requests candidates since thresholding
	// removes some. Tune per embedding model.
	searchOversampleFactor = 10
	// fallbackScore is assigned to every fallback-scan result.
	fallbackScore float32 = 0.8
)

// SearchMode tags how a search outcome was produced.
type SearchMode string

const (
	SearchModePrimary  SearchMode = "primary"
	SearchModeDegraded SearchMode = "degraded"
)

// SearchScope restricts a search to one chatbot and optionally one knowledge
// base. ChatbotID is mandatory on every path.
type SearchScope struct {
	ChatbotID       string
	KnowledgeBaseID string
}

// SearchOutcome carries ranked results plus the path that produced them, so
// callers can observe degradation without intercepting errors.
type SearchOutcome struct {
	Results []*domain.SearchResult
	Mode    SearchMode
}

// SearchInput represents input for a scoped similarity search.
type SearchInput struct {
	Query     string
	Scope     SearchScope
	Limit     int
	Threshold float32
}

// ChunkSearchRepository defines the vector-store read paths the engine needs.
type ChunkSearchRepository interface {
	// SearchByEmbedding returns up to limit nearest chunks in descending
	// similarity order, filtered to the scope.
	SearchByEmbedding(ctx context.Context, embedding []float32, scope SearchScope, limit int) ([]*domain.SearchResult, error)
	// ScanByScope returns up to limit chunks matching the scope without
	// ranking. Used when the similarity path is unavailable.
	ScanByScope(ctx context.Context, scope SearchScope, limit int) ([]*domain.SearchResult, error)
}

// QueryEmbedder embeds search queries.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// SearchService performs tenant-scoped similarity search with a non-ranked
// fallback scan when the primary path fails.
type SearchService struct {
	repo      ChunkSearchRepository
	embedder  QueryEmbedder
	threshold float32
}

// NewSearchService creates a new SearchService instance. A non-positive
// threshold falls back to DefaultSearchThreshold.
func NewSearchService(repo ChunkSearchRepository, embedder QueryEmbedder, threshold float32) *SearchService {
	if threshold <= 0 {
		threshold = DefaultSearchThreshold
	}
	return &SearchService{repo: repo, embedder: embedder, threshold: threshold}
}

// Search embeds the query, fetches oversampled candidates scoped to the
// chatbot (and knowledge base, if set), drops results under the threshold,
// and truncates to the limit preserving the store's descending order.
// Primary-path failures degrade to a scoped scan instead of erroring; only a
// failing fallback returns an error.
func (s *SearchService) Search(ctx context.Context, input SearchInput) (*SearchOutcome, error) {
	if input.Scope.ChatbotID == "" {
		return nil, domain.ErrMissingChatbotScope
	}

	ctx, span := telemetry.StartSpan(ctx, "SearchService.Search", telemetry.SpanAttributes{
		ChatbotID:       input.Scope.ChatbotID,
		KnowledgeBaseID: input.Scope.KnowledgeBaseID,
		Operation:       "search",
	})
	defer span.End()

	if strings.TrimSpace(input.Query) == "" {
		return &SearchOutcome{Results: []*domain.SearchResult{}, Mode: SearchModePrimary}, nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	threshold := input.Threshold
	if threshold <= 0 {
		threshold = s.threshold
	}

	embedding, err := s.embedder.EmbedQuery(ctx, input.Query)
	if err != nil {
		log.Printf("search degraded: query embedding failed: %v", err)
		return s.fallback(ctx, input.Scope, limit)
	}

	candidates, err := s.repo.SearchByEmbedding(ctx, embedding, input.Scope, limit*searchOversampleFactor)
	if err != nil {
		log.Printf("search degraded: vector search failed: %v", err)
		return s.fallback(ctx, input.Scope, limit)
	}

	// Threshold then truncate, keeping the store's order: equal scores stay
	// in the sequence the store returned them.
	results := make([]*domain.SearchResult, 0, limit)
	for _, r := range candidates {
		if r.Score < threshold {
			continue
		}
		results = append(results, r)
		if len(results) == limit {
			break
		}
	}

	return &SearchOutcome{Results: results, Mode: SearchModePrimary}, nil
}

func (s *SearchService) fallback(ctx context.Context, scope SearchScope, limit int) (*SearchOutcome, error) {
	results, err := s.repo.ScanByScope(ctx, scope, limit)
	if err != nil {
		return nil, fmt.Errorf("fallback scan failed: %w", err)
	}
	for _, r := range results {
		r.Score = fallbackScore
	}
	log.Printf("search degraded: returned %d chunks via fallback scan (chatbot=%s kb=%s)",
		len(results), scope.ChatbotID, scope.KnowledgeBaseID)
	return &SearchOutcome{Results: results, Mode: SearchModeDegraded}, nil
}
