package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/beaconchat/beacon/internal/domain"
	"github.com/beaconchat/beacon/internal/telemetry"
)

const (
	// ragPerKBLimit caps how many chunks each knowledge base contributes.
	ragPerKBLimit = 3
	// ragSearchTimeout bounds each per-KB search so one slow knowledge base
	// cannot stall the whole chat turn.
	ragSearchTimeout = 10 * time.Second
	// ragHistoryLimit is how many recent messages enter the prompt.
	ragHistoryLimit = 10
)

// KnowledgeBaseLister lists a chatbot's knowledge bases.
type KnowledgeBaseLister interface {
	ListByChatbot(ctx context.Context, chatbotID string) ([]*domain.KnowledgeBase, error)
}

// MessageHistoryRepository reads recent conversation messages.
type MessageHistoryRepository interface {
	// ListRecent returns up to limit messages in ascending creation order.
	ListRecent(ctx context.Context, conversationID string, limit int) ([]*domain.Message, error)
}

// ContextSearcher runs scoped similarity searches.
type ContextSearcher interface {
	Search(ctx context.Context, input SearchInput) (*SearchOutcome, error)
}

// RAGContext is an assembled prompt plus the chunks that informed it.
type RAGContext struct {
	Prompt   string
	Sources  []*domain.SearchResult
	Degraded bool
}

// ContextService assembles the retrieval-augmented prompt for a chat turn:
// relevant chunks from every knowledge base, recent conversation history,
// and the chatbot's directive.
type ContextService struct {
	kbs      KnowledgeBaseLister
	messages MessageHistoryRepository
	searcher ContextSearcher
}

// NewContextService creates a new ContextService instance
func NewContextService(kbs KnowledgeBaseLister, messages MessageHistoryRepository, searcher ContextSearcher) *ContextService {
	return &ContextService{kbs: kbs, messages: messages, searcher: searcher}
}

// BuildContext gathers knowledge and history for one user input and renders
// the final prompt. Retrieval never fails a chat turn: per-KB search errors
// fold into an empty contribution, and listing failures yield a prompt with
// no knowledge section.
func (s *ContextService) BuildContext(ctx context.Context, chatbot *domain.Chatbot, conversationID, systemPrompt, input string) (*RAGContext, error) {
	ctx, span := telemetry.StartSpan(ctx, "ContextService.BuildContext", telemetry.SpanAttributes{
		ChatbotID: chatbot.ID,
		Operation: "build_context",
	})
	defer span.End()

	sources, degraded := s.gatherKnowledge(ctx, chatbot, input)
	history := s.gatherHistory(ctx, conversationID)

	directive := systemPrompt
	if directive == "" {
		directive = chatbot.Directive
	}

	return &RAGContext{
		Prompt:   renderPrompt(directive, sources, history, input),
		Sources:  sources,
		Degraded: degraded,
	}, nil
}

// gatherKnowledge fans out one bounded search per knowledge base and
// flattens the contributions in knowledge-base order.
func (s *ContextService) gatherKnowledge(ctx context.Context, chatbot *domain.Chatbot, input string) ([]*domain.SearchResult, bool) {
	bases, err := s.kbs.ListByChatbot(ctx, chatbot.ID)
	if err != nil {
		telemetry.CaptureError(ctx, fmt.Errorf("list knowledge bases for %s: %w", chatbot.ID, err))
		return nil, true
	}
	if len(bases) == 0 {
		return nil, false
	}

	outcomes := make([]*SearchOutcome, len(bases))
	var wg sync.WaitGroup
	for i, kb := range bases {
		wg.Add(1)
		go func(i int, kb *domain.KnowledgeBase) {
			defer wg.Done()

			searchCtx, cancel := context.WithTimeout(ctx, ragSearchTimeout)
			defer cancel()

			outcome, err := s.searcher.Search(searchCtx, SearchInput{
				Query: input,
				Scope: SearchScope{ChatbotID: chatbot.ID, KnowledgeBaseID: kb.ID},
				Limit: ragPerKBLimit,
			})
			if err != nil {
				telemetry.CaptureError(ctx, fmt.Errorf("search kb %s: %w", kb.ID, err))
				return
			}
			outcomes[i] = outcome
		}(i, kb)
	}
	wg.Wait()

	var sources []*domain.SearchResult
	degraded := false
	for _, outcome := range outcomes {
		if outcome == nil {
			degraded = true
			continue
		}
		if outcome.Mode == SearchModeDegraded {
			degraded = true
		}
		sources = append(sources, outcome.Results...)
	}
	return sources, degraded
}

func (s *ContextService) gatherHistory(ctx context.Context, conversationID string) []*domain.Message {
	if conversationID == "" {
		return nil
	}
	messages, err := s.messages.ListRecent(ctx, conversationID, ragHistoryLimit)
	if err != nil {
		telemetry.CaptureError(ctx, fmt.Errorf("list history for %s: %w", conversationID, err))
		return nil
	}
	return messages
}

func renderPrompt(directive string, sources []*domain.SearchResult, history []*domain.Message, input string) string {
	var b strings.Builder
	b.WriteString(directive)
	b.WriteString("\n\n")

	if len(sources) > 0 {
		b.WriteString("## Relevant Knowledge:\n")
		for i, src := range sources {
			if i > 0 {
				b.WriteString("\n\n")
			}
			fmt.Fprintf(&b, "[Context %d]\n%s", i+1, src.Content)
		}
		b.WriteString("\n\n")
	}

	if len(history) > 0 {
		b.WriteString("## Conversation History:\n")
		for _, msg := range history {
			fmt.Fprintf(&b, "%s: %s\n", msg.SenderType, msg.Content)
		}
		b.WriteString("\n")
	}

	b.WriteString("## User Query:\n")
	b.WriteString(input)
	b.WriteString("\n\nPlease respond based on the provided knowledge and conversation context. If the answer isn't in the knowledge base, rely on your general knowledge but mention this to the user.")
	return b.String()
}
