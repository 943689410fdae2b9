// Package storage stores uploaded document bytes on disk, keyed by a
// sanitized filename-derived identifier.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/kailas-cloud/docstream/internal/domain"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Store keeps document bytes as files under a single directory.
type Store struct {
	dir string
}

// New creates the storage directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Resolve derives the storage identifier for an uploaded filename: sanitized
// to [A-Za-z0-9._-], forced to end in .pdf, and suffixed with a random hex
// fragment if a stored document already uses the name.
func (s *Store) Resolve(filename string) string {
	name := strings.TrimSpace(filename)
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "/", "_")
	name = unsafeChars.ReplaceAllString(name, "_")
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		if name == "" {
			name = fmt.Sprintf("upload_%s.pdf", hex32())
		} else {
			name += ".pdf"
		}
	}
	if s.Exists(name) {
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		name = fmt.Sprintf("%s_%s.pdf", stem, hex32()[:8])
	}
	return name
}

// Save writes the document bytes under documentID.
func (s *Store) Save(documentID string, data []byte) error {
	if err := os.WriteFile(s.Path(documentID), data, 0o644); err != nil {
		return fmt.Errorf("save document %s: %w", documentID, err)
	}
	return nil
}

// Load reads the stored bytes for documentID.
func (s *Store) Load(documentID string) ([]byte, error) {
	if filepath.Base(documentID) != documentID {
		return nil, fmt.Errorf("load document %s: %w", documentID, domain.ErrDocumentNotFound)
	}
	data, err := os.ReadFile(s.Path(documentID))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("load document %s: %w", documentID, domain.ErrDocumentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", documentID, err)
	}
	return data, nil
}

// Exists reports whether documentID is stored.
func (s *Store) Exists(documentID string) bool {
	if filepath.Base(documentID) != documentID {
		return false
	}
	_, err := os.Stat(s.Path(documentID))
	return err == nil
}

// Path returns the on-disk path for documentID. The identifier has already
// been sanitized by Resolve, so it cannot escape the storage directory.
func (s *Store) Path(documentID string) string {
	return filepath.Join(s.dir, documentID)
}

func hex32() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
