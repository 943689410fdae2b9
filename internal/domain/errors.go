package domain

import "errors"

var (
	// ErrJobNotFound signals an unknown or already-drained job.
	ErrJobNotFound = errors.New("job not found")
	// ErrDocumentNotFound signals a missing stored document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrEmptyQuestion signals a missing or blank question.
	ErrEmptyQuestion = errors.New("question is required")
	// ErrUnsupportedFile signals an upload that is not a PDF.
	ErrUnsupportedFile = errors.New("only .pdf files supported")
	// ErrProviderNotConfigured signals a missing LLM credential.
	ErrProviderNotConfigured = errors.New("llm provider not configured")
	// ErrExtraction signals a PDF text extraction failure.
	ErrExtraction = errors.New("pdf extraction failed")
)
