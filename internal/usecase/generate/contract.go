package generate

import (
	"context"

	"github.com/kailas-cloud/docstream/internal/domain"
)

// Retriever looks up grounding fragments for a question.
type Retriever interface {
	Search(query string, topK int) []domain.Fragment
	FallbackRecent(topK int) []domain.Fragment
}

// TokenStream is a lazily produced sequence of answer tokens. Recv returns
// io.EOF when the provider finishes the stream.
type TokenStream interface {
	Recv() (string, error)
	Close()
}

// Provider opens chat completion streams against the external LLM.
type Provider interface {
	// Configured reports whether a credential is available. When false the
	// pipeline degrades to a fixed configuration message instead of failing.
	Configured() bool
	Stream(ctx context.Context, systemPrompt, userPrompt string) (TokenStream, error)
}

// Publisher emits events onto a job's channel.
type Publisher interface {
	Publish(jobID string, ev domain.Event) error
}
