// Package generate orchestrates answer generation: retrieve grounding
// fragments, build the prompt, stream provider tokens through the reasoning
// filter, and emit text, citation, and terminal events through the job bus.
package generate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docstream/internal/domain"
	"github.com/kailas-cloud/docstream/internal/metrics"
	"github.com/kailas-cloud/docstream/internal/stream"
)

// snippetMax caps the fragment text included in the grounding block.
const snippetMax = 900

// notConfiguredMessage is the fixed in-band reply when no LLM credential is
// set; the job still completes normally.
const notConfiguredMessage = "Error: LLM API key not set. Configure llm.api_key to enable generation."

const systemPrompt = "You are a helpful assistant. Use the provided PDF context snippets to answer. " +
	"If the answer is not present in the context, say you couldn't find it in the uploaded PDFs. " +
	"Cite sources with numbered citations like [1], [2] inline. " +
	"Do not reveal chain-of-thought. Do not output <think> or <thinking> blocks."

// Service runs generation jobs.
type Service struct {
	retriever    Retriever
	provider     Provider
	bus          Publisher
	searchTopK   int
	fallbackTopK int
	logger       *zap.Logger
}

// New creates a generation service.
func New(
	retriever Retriever, provider Provider, bus Publisher,
	searchTopK, fallbackTopK int, logger *zap.Logger,
) *Service {
	return &Service{
		retriever:    retriever,
		provider:     provider,
		bus:          bus,
		searchTopK:   searchTopK,
		fallbackTopK: fallbackTopK,
		logger:       logger,
	}
}

// Run executes one generation job to completion. The stream consumer always
// receives a terminal done event: streaming failures are converted to in-band
// text and a done with status "error", never a silent abort.
func (s *Service) Run(ctx context.Context, jobID, question string) {
	metrics.JobsStartedTotal.WithLabelValues(string(domain.JobGeneration)).Inc()

	status := "finished"
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("generation job panicked",
				zap.String("job_id", jobID), zap.Any("panic", r))
			s.publish(jobID, domain.TextEvent{Chunk: fmt.Sprintf("Error: %v", r)})
			status = "error"
		}
		s.publish(jobID, domain.DoneEvent{Status: status})
		metrics.JobsCompletedTotal.WithLabelValues(string(domain.JobGeneration), status).Inc()
	}()

	s.publish(jobID, domain.ToolEvent{Step: "thinking", Text: "Analyzing your question"})
	s.publish(jobID, domain.ToolEvent{Step: "searching_documents", Text: "Searching PDF documents..."})

	fragments := s.retriever.Search(question, s.searchTopK)
	if len(fragments) == 0 {
		fragments = s.retriever.FallbackRecent(s.fallbackTopK)
		s.publish(jobID, domain.ToolEvent{
			Step: "retrieving_context",
			Text: fmt.Sprintf("No direct hits; using recent document context (%d chunks)", len(fragments)),
		})
	} else {
		s.publish(jobID, domain.ToolEvent{
			Step: "retrieving_context",
			Text: fmt.Sprintf("Found %d relevant sections", len(fragments)),
		})
	}

	grounding, citations := buildGrounding(fragments)

	s.publish(jobID, domain.ToolEvent{Step: "generating_answer", Text: "Generating response with LLM..."})

	if !s.provider.Configured() {
		s.publish(jobID, domain.TextEvent{Chunk: notConfiguredMessage})
	} else if err := s.streamAnswer(ctx, jobID, grounding, question); err != nil {
		s.publish(jobID, domain.TextEvent{Chunk: "Error calling LLM API: " + err.Error()})
		status = "error"
	}

	for _, c := range citations {
		s.publish(jobID, c)
	}
}

// streamAnswer pipes provider tokens through a fresh reasoning filter and
// publishes every non-empty filtered chunk as a text event.
func (s *Service) streamAnswer(ctx context.Context, jobID, grounding, question string) error {
	userPrompt := fmt.Sprintf(
		"Context from documents:\n%s\n\nQuestion: %s\n\nAnswer using the context above.",
		grounding, question,
	)

	tokens, err := s.provider.Stream(ctx, systemPrompt, userPrompt)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer tokens.Close()

	filter := stream.NewFilter()
	for {
		token, err := tokens.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("recv: %w", err)
		}
		if token == "" {
			continue
		}
		if safe := filter.Feed(token); safe != "" {
			s.publish(jobID, domain.TextEvent{Chunk: safe})
		}
	}
	if tail := filter.Flush(); tail != "" {
		s.publish(jobID, domain.TextEvent{Chunk: tail})
	}
	return nil
}

// buildGrounding concatenates the retrieved fragments into the numbered
// context block and derives one citation per fragment in selection order.
func buildGrounding(fragments []domain.Fragment) (string, []domain.CitationEvent) {
	if len(fragments) == 0 {
		return "No relevant documents found.", nil
	}

	parts := make([]string, 0, len(fragments))
	citations := make([]domain.CitationEvent, 0, len(fragments))
	for i, f := range fragments {
		snippet := f.Text()
		if len(snippet) > snippetMax {
			snippet = snippet[:snippetMax]
		}
		ordinal := i + 1
		parts = append(parts, fmt.Sprintf("[%d] (PDF: %s, page %d) %s",
			ordinal, f.DocumentID(), f.Page(), snippet))
		citations = append(citations, domain.CitationEvent{
			ID:         ordinal,
			Title:      f.Title(),
			DocumentID: f.DocumentID(),
			Page:       f.Page(),
		})
	}
	return strings.Join(parts, "\n\n"), citations
}

// publish forwards an event to the bus, dropping it if the job is gone.
func (s *Service) publish(jobID string, ev domain.Event) {
	metrics.EventsPublishedTotal.WithLabelValues(ev.Kind()).Inc()
	if err := s.bus.Publish(jobID, ev); err != nil {
		s.logger.Debug("event dropped", zap.String("job_id", jobID), zap.Error(err))
	}
}
