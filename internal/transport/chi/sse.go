package chi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docstream/internal/domain"
	"github.com/kailas-cloud/docstream/internal/logger"
)

// streamEvents drains one job's event channel to the client as a
// text/event-stream. The connection closes right after the terminal event;
// a disconnecting client releases the job through the attach context.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request, jobID string, kind domain.JobKind) {
	events, err := s.bus.Attach(r.Context(), jobID, kind)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	log := logger.FromContext(r.Context())
	for ev := range events {
		frame, err := formatEvent(ev)
		if err != nil {
			log.Error("drop unserializable event",
				zap.String("job_id", jobID), zap.Error(err))
			continue
		}
		if _, err := fmt.Fprint(w, frame); err != nil {
			return
		}
		flusher.Flush()
	}
}

// formatEvent frames one event for the wire. The type switch is exhaustive
// over the closed event union; a new variant fails here until it is handled.
func formatEvent(ev domain.Event) (string, error) {
	var payload any
	switch e := ev.(type) {
	case domain.ProgressEvent:
		payload = e
	case domain.ToolEvent:
		payload = e
	case domain.TextEvent:
		payload = e
	case domain.CitationEvent:
		payload = e
	case domain.ErrorEvent:
		payload = e
	case domain.DoneEvent:
		payload = e
	default:
		return "", fmt.Errorf("unknown event variant %T", ev)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal %s event: %w", ev.Kind(), err)
	}
	return fmt.Sprintf("event: %s\ndata: %s\n\n", ev.Kind(), data), nil
}
