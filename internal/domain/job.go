package domain

// JobKind distinguishes the two job lifecycles the bus carries.
type JobKind string

const (
	// JobUpload is a document ingestion job.
	JobUpload JobKind = "upload"
	// JobGeneration is an answer generation job.
	JobGeneration JobKind = "generation"
)
