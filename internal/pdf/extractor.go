// Package pdf extracts per-page text from stored PDF files using pdfcpu and
// provides case-insensitive substring search over the extracted pages.
package pdf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docstream/internal/domain"
)

// Extractor reads PDFs with pdfcpu. Pages without extractable content (for
// example scanned images) come back as empty strings, not errors.
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor creates a PDF extractor.
func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// ExtractPages returns a mapping from 1-based page number to extracted text.
// Every page of the document appears in the map, possibly with empty text.
func (e *Extractor) ExtractPages(path string) (map[int]string, error) {
	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrExtraction, filepath.Base(path), err)
	}
	pageCount := pdfCtx.PageCount

	pages := make(map[int]string, pageCount)
	for p := 1; p <= pageCount; p++ {
		pages[p] = ""
	}

	outDir, err := os.MkdirTemp("", "docstream-extract-")
	if err != nil {
		return nil, fmt.Errorf("%w: temp dir: %v", domain.ErrExtraction, err)
	}
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(path, outDir, nil, conf); err != nil {
		// Content extraction can fail on image-only or malformed pages;
		// the document still counts its pages, just with no text.
		e.logger.Warn("pdf content extraction failed, pages treated as empty",
			zap.String("file", filepath.Base(path)),
			zap.Error(err),
		)
		return pages, nil
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return pages, nil
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var pageNum int
		name := entry.Name()
		if _, err := fmt.Sscanf(name, "page_%d", &pageNum); err != nil {
			if _, err := fmt.Sscanf(name, "Content_page_%d", &pageNum); err != nil {
				continue
			}
		}
		if pageNum < 1 || pageNum > pageCount {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			continue
		}
		pages[pageNum] = string(content)
	}

	return pages, nil
}
