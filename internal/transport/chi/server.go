// Package chi provides the HTTP transport: document upload, question
// submission, live job event streams, and stored-document retrieval.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docstream/internal/domain"
	"github.com/kailas-cloud/docstream/internal/logger"
	"github.com/kailas-cloud/docstream/internal/pdf"
)

// maxUploadMemory bounds the in-memory portion of multipart parsing.
const maxUploadMemory = 32 << 20 // 32MB

// EventBus is the job registry the handlers create and drain jobs through.
type EventBus interface {
	Create(kind domain.JobKind) string
	Attach(ctx context.Context, jobID string, kind domain.JobKind) (<-chan domain.Event, error)
}

// DocumentStore resolves, loads, and locates stored documents.
type DocumentStore interface {
	Resolve(filename string) string
	Load(documentID string) ([]byte, error)
	Exists(documentID string) bool
	Path(documentID string) string
}

// PageExtractor re-extracts page text for the substring search endpoint.
type PageExtractor interface {
	ExtractPages(path string) (map[int]string, error)
}

// UploadRunner executes an upload job.
type UploadRunner interface {
	Run(jobID, documentID string, data []byte)
}

// GenerateRunner executes a generation job.
type GenerateRunner interface {
	Run(ctx context.Context, jobID, question string)
}

// Server holds the HTTP handlers.
type Server struct {
	bus       EventBus
	store     DocumentStore
	extractor PageExtractor
	uploads   UploadRunner
	generator GenerateRunner
	logger    *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(
	bus EventBus,
	store DocumentStore,
	extractor PageExtractor,
	uploads UploadRunner,
	generator GenerateRunner,
	logger *zap.Logger,
) *Server {
	return &Server{
		bus:       bus,
		store:     store,
		extractor: extractor,
		uploads:   uploads,
		generator: generator,
		logger:    logger,
	}
}

// Routes mounts all handlers on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.Health)
	r.Post("/documents", s.UploadDocument)
	r.Get("/uploads/{jobID}/events", s.UploadEvents)
	r.Post("/questions", s.AskQuestion)
	r.Get("/jobs/{jobID}/events", s.GenerationEvents)
	r.Get("/documents/{documentID}", s.GetDocument)
	r.Get("/documents/{documentID}/search", s.SearchDocument)
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// UploadDocument handles POST /documents. It validates the multipart file,
// registers a job, and dispatches the ingestion worker; the caller follows
// progress on the upload event stream.
func (s *Server) UploadDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		writeError(w, http.StatusBadRequest, domain.ErrUnsupportedFile.Error())
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}

	documentID := s.store.Resolve(header.Filename)
	jobID := s.bus.Create(domain.JobUpload)

	logger.FromContext(r.Context()).Info("upload accepted",
		zap.String("job_id", jobID),
		zap.String("document_id", documentID),
		zap.Int("bytes", len(data)),
	)

	go s.uploads.Run(jobID, documentID, data)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id":      jobID,
		"document_id": documentID,
	})
}

// UploadEvents handles GET /uploads/{jobID}/events.
func (s *Server) UploadEvents(w http.ResponseWriter, r *http.Request) {
	s.streamEvents(w, r, chi.URLParam(r, "jobID"), domain.JobUpload)
}

// AskQuestion handles POST /questions. Body: {"question": "..."}.
func (s *Server) AskQuestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, domain.ErrEmptyQuestion.Error())
		return
	}

	jobID := s.bus.Create(domain.JobGeneration)

	logger.FromContext(r.Context()).Info("question accepted", zap.String("job_id", jobID))

	// Workers are never cancelled: a dispatched job runs to completion even
	// if no consumer ever attaches.
	go s.generator.Run(context.Background(), jobID, req.Question)

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

// GenerationEvents handles GET /jobs/{jobID}/events.
func (s *Server) GenerationEvents(w http.ResponseWriter, r *http.Request) {
	s.streamEvents(w, r, chi.URLParam(r, "jobID"), domain.JobGeneration)
}

// GetDocument handles GET /documents/{documentID}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	data, err := s.store.Load(chi.URLParam(r, "documentID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// SearchDocument handles GET /documents/{documentID}/search?q=...
// It re-extracts the stored document's pages and returns one snippet per
// page containing the query (case-insensitive substring, linear scan).
func (s *Server) SearchDocument(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")
	if !s.store.Exists(documentID) {
		s.handleDomainError(w, domain.ErrDocumentNotFound)
		return
	}

	pages, err := s.extractor.ExtractPages(s.store.Path(documentID))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	hits := pdf.SearchPages(pages, r.URL.Query().Get("q"))
	if hits == nil {
		hits = []pdf.Hit{}
	}
	writeJSON(w, http.StatusOK, map[string][]pdf.Hit{"hits": hits})
}

// handleDomainError maps sentinel errors to HTTP statuses.
func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrJobNotFound), errors.Is(err, domain.ErrDocumentNotFound):
		writeError(w, http.StatusNotFound, safeMessage(err))
	case errors.Is(err, domain.ErrEmptyQuestion), errors.Is(err, domain.ErrUnsupportedFile):
		writeError(w, http.StatusBadRequest, safeMessage(err))
	default:
		s.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// safeMessage strips wrapping detail, exposing only the sentinel text.
func safeMessage(err error) string {
	for _, sentinel := range []error{
		domain.ErrJobNotFound,
		domain.ErrDocumentNotFound,
		domain.ErrEmptyQuestion,
		domain.ErrUnsupportedFile,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
