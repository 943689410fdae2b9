package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docstream/internal/domain"
)

// --- Stubs ---

type stubBus struct {
	mu      sync.Mutex
	nextID  string
	created []domain.JobKind
	// channels keyed by jobID, handed out by Attach.
	channels  map[string]chan domain.Event
	attachErr error
}

func newStubBus() *stubBus {
	return &stubBus{nextID: "job-1", channels: make(map[string]chan domain.Event)}
}

func (b *stubBus) Create(kind domain.JobKind) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.created = append(b.created, kind)
	return b.nextID
}

func (b *stubBus) Attach(_ context.Context, jobID string, _ domain.JobKind) (<-chan domain.Event, error) {
	if b.attachErr != nil {
		return nil, b.attachErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.channels[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return ch, nil
}

type stubStore struct {
	documents map[string][]byte
}

func (s *stubStore) Resolve(filename string) string { return filename }

func (s *stubStore) Load(documentID string) ([]byte, error) {
	data, ok := s.documents[documentID]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return data, nil
}

func (s *stubStore) Exists(documentID string) bool {
	_, ok := s.documents[documentID]
	return ok
}

func (s *stubStore) Path(documentID string) string { return "/store/" + documentID }

type stubExtractor struct {
	pages map[int]string
}

func (e *stubExtractor) ExtractPages(_ string) (map[int]string, error) { return e.pages, nil }

type stubUploads struct {
	mu    sync.Mutex
	calls []string // "jobID/documentID"
	done  chan struct{}
}

func (u *stubUploads) Run(jobID, documentID string, _ []byte) {
	u.mu.Lock()
	u.calls = append(u.calls, jobID+"/"+documentID)
	u.mu.Unlock()
	if u.done != nil {
		close(u.done)
	}
}

type stubGenerator struct {
	mu        sync.Mutex
	questions []string
	done      chan struct{}
}

func (g *stubGenerator) Run(_ context.Context, _ string, question string) {
	g.mu.Lock()
	g.questions = append(g.questions, question)
	g.mu.Unlock()
	if g.done != nil {
		close(g.done)
	}
}

type fixture struct {
	bus       *stubBus
	store     *stubStore
	extractor *stubExtractor
	uploads   *stubUploads
	generator *stubGenerator
	router    chi.Router
}

func newFixture() *fixture {
	f := &fixture{
		bus:       newStubBus(),
		store:     &stubStore{documents: make(map[string][]byte)},
		extractor: &stubExtractor{},
		uploads:   &stubUploads{},
		generator: &stubGenerator{},
	}
	srv := NewServer(f.bus, f.store, f.extractor, f.uploads, f.generator, zap.NewNop())
	f.router = chi.NewRouter()
	srv.Routes(f.router)
	return f
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

// --- Tests ---

func TestHealth(t *testing.T) {
	f := newFixture()

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestUploadDocument_Accepted(t *testing.T) {
	f := newFixture()
	f.uploads.done = make(chan struct{})

	body, contentType := multipartBody(t, "file", "report.pdf", []byte("%PDF-1.7"))
	req := httptest.NewRequest(http.MethodPost, "/documents", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202, body %s", rec.Code, rec.Body)
	}
	resp := decodeJSON(t, rec)
	if resp["job_id"] != "job-1" {
		t.Errorf("job_id = %q, want job-1", resp["job_id"])
	}
	if resp["document_id"] != "report.pdf" {
		t.Errorf("document_id = %q, want report.pdf", resp["document_id"])
	}
	if len(f.bus.created) != 1 || f.bus.created[0] != domain.JobUpload {
		t.Errorf("created jobs = %v, want one upload", f.bus.created)
	}

	select {
	case <-f.uploads.done:
	case <-time.After(time.Second):
		t.Fatal("upload worker was not dispatched")
	}
	if f.uploads.calls[0] != "job-1/report.pdf" {
		t.Errorf("worker call = %q", f.uploads.calls[0])
	}
}

func TestUploadDocument_RejectsNonPDF(t *testing.T) {
	f := newFixture()

	body, contentType := multipartBody(t, "file", "notes.txt", []byte("plain text"))
	req := httptest.NewRequest(http.MethodPost, "/documents", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if resp := decodeJSON(t, rec); resp["error"] != domain.ErrUnsupportedFile.Error() {
		t.Errorf("error = %q", resp["error"])
	}
	if len(f.bus.created) != 0 {
		t.Error("job created for rejected upload")
	}
}

func TestUploadDocument_MissingFileField(t *testing.T) {
	f := newFixture()

	body, contentType := multipartBody(t, "attachment", "report.pdf", []byte("%PDF"))
	req := httptest.NewRequest(http.MethodPost, "/documents", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAskQuestion_Accepted(t *testing.T) {
	f := newFixture()
	f.generator.done = make(chan struct{})

	req := httptest.NewRequest(http.MethodPost, "/questions",
		strings.NewReader(`{"question": "what grew?"}`))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202, body %s", rec.Code, rec.Body)
	}
	if resp := decodeJSON(t, rec); resp["job_id"] != "job-1" {
		t.Errorf("job_id = %q", resp["job_id"])
	}

	select {
	case <-f.generator.done:
	case <-time.After(time.Second):
		t.Fatal("generation worker was not dispatched")
	}
	if f.generator.questions[0] != "what grew?" {
		t.Errorf("question = %q", f.generator.questions[0])
	}
}

func TestAskQuestion_EmptyQuestion(t *testing.T) {
	f := newFixture()

	for _, body := range []string{`{"question": ""}`, `{"question": "   "}`, `{}`} {
		req := httptest.NewRequest(http.MethodPost, "/questions", strings.NewReader(body))
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
	if len(f.bus.created) != 0 {
		t.Error("job created for empty question")
	}
}

func TestAskQuestion_MalformedJSON(t *testing.T) {
	f := newFixture()

	req := httptest.NewRequest(http.MethodPost, "/questions", strings.NewReader(`{"question"`))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGenerationEvents_StreamsFrames(t *testing.T) {
	f := newFixture()

	ch := make(chan domain.Event, 8)
	f.bus.channels["job-9"] = ch
	ch <- domain.ToolEvent{Step: "thinking", Text: "Analyzing your question"}
	ch <- domain.TextEvent{Chunk: "Revenue grew."}
	ch <- domain.CitationEvent{ID: 1, Title: "report", DocumentID: "report.pdf", Page: 2}
	ch <- domain.DoneEvent{Status: "finished"}
	close(ch)

	req := httptest.NewRequest(http.MethodGet, "/jobs/job-9/events", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	body := rec.Body.String()
	frames := strings.Split(strings.TrimSuffix(body, "\n\n"), "\n\n")
	if len(frames) != 4 {
		t.Fatalf("frame count = %d, want 4:\n%s", len(frames), body)
	}

	wantKinds := []string{"tool", "text", "citation", "done"}
	for i, frame := range frames {
		lines := strings.SplitN(frame, "\n", 2)
		if lines[0] != "event: "+wantKinds[i] {
			t.Errorf("frame %d event line = %q, want kind %q", i, lines[0], wantKinds[i])
		}
		if !strings.HasPrefix(lines[1], "data: ") {
			t.Errorf("frame %d missing data line: %q", i, frame)
		}
	}

	var citation domain.CitationEvent
	citationData := strings.TrimPrefix(strings.SplitN(frames[2], "\n", 2)[1], "data: ")
	if err := json.Unmarshal([]byte(citationData), &citation); err != nil {
		t.Fatalf("unmarshal citation frame: %v", err)
	}
	if citation.DocumentID != "report.pdf" || citation.Page != 2 {
		t.Errorf("citation payload = %+v", citation)
	}
}

func TestUploadEvents_UnknownJob(t *testing.T) {
	f := newFixture()

	req := httptest.NewRequest(http.MethodGet, "/uploads/nope/events", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetDocument(t *testing.T) {
	f := newFixture()
	f.store.documents["report.pdf"] = []byte("%PDF-1.7 body")

	req := httptest.NewRequest(http.MethodGet, "/documents/report.pdf", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Body.String() != "%PDF-1.7 body" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	f := newFixture()

	req := httptest.NewRequest(http.MethodGet, "/documents/ghost.pdf", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if resp := decodeJSON(t, rec); resp["error"] != domain.ErrDocumentNotFound.Error() {
		t.Errorf("error = %q", resp["error"])
	}
}

func TestSearchDocument(t *testing.T) {
	f := newFixture()
	f.store.documents["report.pdf"] = []byte("%PDF")
	f.extractor.pages = map[int]string{
		1: "revenue grew ten percent",
		2: "costs were flat",
	}

	req := httptest.NewRequest(http.MethodGet, "/documents/report.pdf/search?q=revenue", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body)
	}

	var resp struct {
		Hits []struct {
			Page    int    `json:"page"`
			Snippet string `json:"snippet"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Hits) != 1 || resp.Hits[0].Page != 1 {
		t.Fatalf("hits = %+v, want one hit on page 1", resp.Hits)
	}
	if !strings.Contains(resp.Hits[0].Snippet, "revenue") {
		t.Errorf("snippet = %q", resp.Hits[0].Snippet)
	}
}

func TestSearchDocument_NoHitsReturnsEmptyArray(t *testing.T) {
	f := newFixture()
	f.store.documents["report.pdf"] = []byte("%PDF")
	f.extractor.pages = map[int]string{1: "content"}

	req := httptest.NewRequest(http.MethodGet, "/documents/report.pdf/search?q=absent", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"hits":[]`) {
		t.Errorf("expected empty hits array, got %s", rec.Body)
	}
}

func TestSearchDocument_UnknownDocument(t *testing.T) {
	f := newFixture()

	req := httptest.NewRequest(http.MethodGet, "/documents/ghost.pdf/search?q=x", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
