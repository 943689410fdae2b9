package domain

// Event is a closed union of the messages published to a job's channel.
// The set of variants is fixed: the SSE boundary type-switches over all of
// them, so adding a variant is a compile-checked change.
type Event interface {
	// Kind is the wire event name.
	Kind() string
	// Terminal reports whether this event ends the job's stream.
	Terminal() bool

	isEvent()
}

// ProgressEvent reports upload pipeline progress.
type ProgressEvent struct {
	Text    string `json:"text"`
	Percent int    `json:"progress"`
}

// ToolEvent announces a generation pipeline step.
type ToolEvent struct {
	Step string `json:"step"`
	Text string `json:"text"`
}

// TextEvent carries a chunk of generated answer text.
type TextEvent struct {
	Chunk string `json:"chunk"`
}

// CitationEvent references a fragment used to ground the answer.
// ID is the 1-based ordinal assigned at retrieval time, matching the
// inline [n] references in the generated text.
type CitationEvent struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	DocumentID string `json:"document_id"`
	Page       int    `json:"page"`
}

// ErrorEvent terminates a failed upload job.
type ErrorEvent struct {
	Message string `json:"message"`
}

// DoneEvent terminates a job. Upload jobs fill the document fields;
// generation jobs fill only Status.
type DoneEvent struct {
	Status     string `json:"status,omitempty"`
	Message    string `json:"message,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
	Pages      int    `json:"pages,omitempty"`
	Chunks     int    `json:"chunks,omitempty"`
}

func (ProgressEvent) Kind() string { return "progress" }
func (ToolEvent) Kind() string     { return "tool" }
func (TextEvent) Kind() string     { return "text" }
func (CitationEvent) Kind() string { return "citation" }
func (ErrorEvent) Kind() string    { return "error" }
func (DoneEvent) Kind() string     { return "done" }

func (ProgressEvent) Terminal() bool { return false }
func (ToolEvent) Terminal() bool     { return false }
func (TextEvent) Terminal() bool     { return false }
func (CitationEvent) Terminal() bool { return false }
func (ErrorEvent) Terminal() bool    { return true }
func (DoneEvent) Terminal() bool     { return true }

func (ProgressEvent) isEvent() {}
func (ToolEvent) isEvent()     {}
func (TextEvent) isEvent()     {}
func (CitationEvent) isEvent() {}
func (ErrorEvent) isEvent()    {}
func (DoneEvent) isEvent()     {}
