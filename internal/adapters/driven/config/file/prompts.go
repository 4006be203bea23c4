package file

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/medrag/internal/core/ports/driven"
	"github.com/custodia-labs/medrag/internal/logger"
)

var _ driven.PromptStore = (*PromptStore)(nil)

//go:embed prompts
var builtinPrompts embed.FS

// answerPlaceholders is the number of %s verbs driven.PromptAnswer is
// formatted with.
const answerPlaceholders = 3

// PromptStore serves prompts from a user-editable directory. On first use
// the directory is seeded with the built-in prompts; files the user already
// has are never overwritten. Missing or unusable files fall back to the
// built-in text.
type PromptStore struct {
	dir string

	seedOnce sync.Once
	seedErr  error

	mu    sync.RWMutex
	cache map[string]string
}

// NewPromptStore returns a store rooted at dir (default ~/.medrag/prompts).
// Nothing touches the disk until the first Load.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".medrag", "prompts")
	}
	return &PromptStore{dir: dir, cache: make(map[string]string)}, nil
}

// Load returns the named prompt.
func (s *PromptStore) Load(name string) (string, error) {
	s.seedOnce.Do(func() { s.seedErr = s.seed() })
	if s.seedErr != nil {
		logger.Debug("Prompt directory unavailable: %v", s.seedErr)
		return builtin(name)
	}

	s.mu.RLock()
	prompt, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return prompt, nil
	}

	prompt, err := s.readUser(name)
	if err != nil {
		return builtin(name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.cache[name]; ok {
		return cached, nil
	}
	s.cache[name] = prompt
	return prompt, nil
}

// Reload drops cached prompts so edits on disk are picked up.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

func (s *PromptStore) readUser(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name+".txt"))
	if err != nil {
		return "", err
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("prompt %q is empty", name)
	}
	if name == driven.PromptAnswer {
		if n := strings.Count(prompt, "%s"); n != answerPlaceholders {
			logger.Warn("Ignoring %s.txt: expected %d %%s placeholders, found %d", name, answerPlaceholders, n)
			return "", fmt.Errorf("prompt %q has %d placeholders", name, n)
		}
	}
	return prompt, nil
}

// seed copies every built-in file the directory does not have yet.
func (s *PromptStore) seed() error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("create prompt directory: %w", err)
	}
	entries, err := builtinPrompts.ReadDir("prompts")
	if err != nil {
		return err
	}
	for _, entry := range entries {
		target := filepath.Join(s.dir, entry.Name())
		if _, err := os.Stat(target); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		data, err := builtinPrompts.ReadFile(path.Join("prompts", entry.Name()))
		if err != nil {
			return err
		}
		if err := os.WriteFile(target, data, 0600); err != nil {
			return fmt.Errorf("write %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func builtin(name string) (string, error) {
	data, err := builtinPrompts.ReadFile(path.Join("prompts", name+".txt"))
	if err != nil {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	return strings.TrimSpace(string(data)), nil
}
