// Package filesystem reads the markdown corpus from a local directory and
// watches it for changes.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
	"github.com/custodia-labs/medrag/internal/logger"
)

// Ensure Loader implements the interface.
var _ driven.CorpusLoader = (*Loader)(nil)

// documentExt is the only file type read from the corpus.
const documentExt = ".md"

// Loader reads *.md files from a single directory. Subdirectories and
// hidden files are ignored.
type Loader struct {
	dir string
}

// NewLoader creates a loader for dir.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Location returns the corpus directory.
func (l *Loader) Location() string {
	return l.dir
}

// Load reads every document, sorted by file name.
func (l *Loader) Load(ctx context.Context) ([]domain.RawDocument, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrCorpusNotFound, l.dir)
		}
		return nil, fmt.Errorf("read corpus directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !IsDocument(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	docs := make([]domain.RawDocument, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := filepath.Join(l.dir, name)
		doc, err := readDocument(path)
		if err != nil {
			logger.Warn("skipping %s: %v", name, err)
			continue
		}
		docs = append(docs, doc)
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no %s files in %s", domain.ErrEmptyCorpus, documentExt, l.dir)
	}

	logger.Info("Loaded %d documents from %s", len(docs), l.dir)
	return docs, nil
}

func readDocument(path string) (domain.RawDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.RawDocument{}, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.RawDocument{}, err
	}

	return domain.RawDocument{
		ID:         DocumentID(path),
		Path:       path,
		Content:    content,
		ModifiedAt: info.ModTime(),
	}, nil
}

// DocumentID returns the file name without its extension.
func DocumentID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsDocument reports whether name is a visible markdown file.
func IsDocument(name string) bool {
	base := filepath.Base(name)
	return !strings.HasPrefix(base, ".") && strings.EqualFold(filepath.Ext(base), documentExt)
}
