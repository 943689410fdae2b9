package upload

import (
	"github.com/kailas-cloud/docstream/internal/domain"
)

// FileStore persists uploaded document bytes.
type FileStore interface {
	Save(documentID string, data []byte) error
	Path(documentID string) string
}

// Extractor produces per-page text from a stored PDF file.
type Extractor interface {
	ExtractPages(path string) (map[int]string, error)
}

// Indexer publishes a document's fragments to the retrieval index.
type Indexer interface {
	Upsert(documentID string, fragments []domain.Fragment)
}

// Publisher emits events onto a job's channel.
type Publisher interface {
	Publish(jobID string, ev domain.Event) error
}
