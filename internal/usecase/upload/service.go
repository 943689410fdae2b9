// Package upload orchestrates document ingestion: persist bytes, extract
// page text, chunk into fragments, publish to the retrieval index, emitting
// lifecycle events through the job bus at every step.
package upload

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docstream/internal/domain"
	"github.com/kailas-cloud/docstream/internal/index"
	"github.com/kailas-cloud/docstream/internal/metrics"
)

// Service runs upload jobs.
type Service struct {
	store     FileStore
	extractor Extractor
	indexer   Indexer
	bus       Publisher
	chunkSize int
	overlap   int
	logger    *zap.Logger
}

// New creates an upload service.
func New(
	store FileStore, extractor Extractor, indexer Indexer, bus Publisher,
	chunkSize, overlap int, logger *zap.Logger,
) *Service {
	return &Service{
		store:     store,
		extractor: extractor,
		indexer:   indexer,
		bus:       bus,
		chunkSize: chunkSize,
		overlap:   overlap,
		logger:    logger,
	}
}

// Run executes one upload job to completion. It is dispatched on its own
// goroutine and never returns an error: every failure becomes a single
// terminal error event on the job's channel. The index upsert is the last
// step, so a failed extraction or chunking never leaves partial state.
func (s *Service) Run(jobID, documentID string, data []byte) {
	metrics.JobsStartedTotal.WithLabelValues(string(domain.JobUpload)).Inc()

	if err := s.run(jobID, documentID, data); err != nil {
		s.logger.Error("upload job failed",
			zap.String("job_id", jobID),
			zap.String("document_id", documentID),
			zap.Error(err),
		)
		s.publish(jobID, domain.ErrorEvent{Message: err.Error()})
		metrics.JobsCompletedTotal.WithLabelValues(string(domain.JobUpload), "error").Inc()
		return
	}
	metrics.JobsCompletedTotal.WithLabelValues(string(domain.JobUpload), "finished").Inc()
}

func (s *Service) run(jobID, documentID string, data []byte) error {
	s.publish(jobID, domain.ProgressEvent{Text: "Saving file", Percent: 35})
	if err := s.store.Save(documentID, data); err != nil {
		return fmt.Errorf("save: %w", err)
	}

	s.publish(jobID, domain.ProgressEvent{Text: "Extracting text", Percent: 75})
	pages, err := s.extractor.ExtractPages(s.store.Path(documentID))
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	totalPages := len(pages)

	s.publish(jobID, domain.ProgressEvent{
		Text:    fmt.Sprintf("Chunking %d pages", totalPages),
		Percent: 85,
	})
	title := strings.TrimSuffix(documentID, filepath.Ext(documentID))
	fragments := index.BuildPageFragments(documentID, title, pages, s.chunkSize, s.overlap)

	s.publish(jobID, domain.ProgressEvent{
		Text:    fmt.Sprintf("Indexing %d chunks", len(fragments)),
		Percent: 92,
	})
	s.indexer.Upsert(documentID, fragments)
	metrics.FragmentsIndexedTotal.Add(float64(len(fragments)))

	s.logger.Info("document indexed",
		zap.String("job_id", jobID),
		zap.String("document_id", documentID),
		zap.Int("pages", totalPages),
		zap.Int("chunks", len(fragments)),
	)

	s.publish(jobID, domain.DoneEvent{
		Message:    "Document ready to chat!",
		DocumentID: documentID,
		Pages:      totalPages,
		Chunks:     len(fragments),
	})
	return nil
}

// publish forwards an event to the bus. A missing job only means the stream
// was already abandoned, so the error is not propagated.
func (s *Service) publish(jobID string, ev domain.Event) {
	metrics.EventsPublishedTotal.WithLabelValues(ev.Kind()).Inc()
	if err := s.bus.Publish(jobID, ev); err != nil {
		s.logger.Debug("event dropped", zap.String("job_id", jobID), zap.Error(err))
	}
}
