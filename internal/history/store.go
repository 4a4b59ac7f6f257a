// Package history stores saved transcripts as flat text files in one
// directory.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/diogo/sydney/internal/transcript"
)

// fileExt is the extension of transcript files in the history directory
const fileExt = ".txt"

// idPrefix starts every generated transcript ID
const idPrefix = "chat-"

// idSuffixLen is the number of random hex digits ending a generated ID
const idSuffixLen = 6

// maxTitleLen bounds titles derived from the first user message
const maxTitleLen = 50

// Entry describes one saved transcript
type Entry struct {
	ID         string
	Title      string
	Path       string
	UpdatedAt  time.Time
	Size       int64
	Turns      int
	IsFavorite bool
}

// Store manages the transcript history directory
type Store struct {
	baseDir string
	mu      sync.RWMutex
}

// NewStore creates a store over dir, creating it if necessary
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	return &Store{
		baseDir: dir,
	}, nil
}

// Dir returns the history directory
func (s *Store) Dir() string {
	return s.baseDir
}

// Path returns the file of transcript id. The file may not exist yet.
func (s *Store) Path(id string) string {
	return filepath.Join(s.baseDir, id+fileExt)
}

// NewID returns a fresh transcript ID: the current time plus a random
// suffix of fixed length, so no ID is a prefix of another
func (s *Store) NewID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stamp := time.Now().Format("20060102-150405")
	for {
		id := idPrefix + stamp + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:idSuffixLen]
		if _, err := os.Stat(s.Path(id)); os.IsNotExist(err) {
			return id
		}
	}
}

// Exists reports whether transcript id is saved
func (s *Store) Exists(id string) bool {
	_, err := os.Stat(s.Path(id))
	return err == nil
}

// Save writes text as transcript id
func (s *Store) Save(id, text string) error {
	if err := validateID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return transcript.WriteFile(s.Path(id), text)
}

// Load reads transcript id
func (s *Store) Load(id string) (string, error) {
	if err := validateID(id); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := os.Stat(s.Path(id)); os.IsNotExist(err) {
		return "", fmt.Errorf("transcript not found: %s", id)
	}
	return transcript.ReadFile(s.Path(id))
}

// Get returns the entry of transcript id
func (s *Store) Get(id string) (*Entry, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	meta, err := s.loadMeta()
	if err != nil {
		return nil, err
	}
	return s.readEntry(id, meta)
}

// List returns all saved transcripts, favorites first, then most recent first
func (s *Store) List() ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	meta, err := s.loadMeta()
	if err != nil {
		return nil, err
	}

	var entries []*Entry
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || filepath.Ext(name) != fileExt || strings.HasPrefix(name, ".") {
			continue
		}

		entry, err := s.readEntry(strings.TrimSuffix(name, fileExt), meta)
		if err != nil {
			continue // unreadable files are skipped
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsFavorite != entries[j].IsFavorite {
			return entries[i].IsFavorite
		}
		return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
	})

	return entries, nil
}

// Delete removes transcript id and its metadata
func (s *Store) Delete(id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path(id)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("transcript not found: %s", id)
		}
		return fmt.Errorf("failed to delete transcript: %w", err)
	}

	return s.removeFromMeta(id)
}

// ClearAll deletes every saved transcript
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := os.ReadDir(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to read history directory: %w", err)
	}

	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != fileExt {
			continue
		}
		if err := os.Remove(filepath.Join(s.baseDir, f.Name())); err != nil {
			return fmt.Errorf("failed to delete %s: %w", f.Name(), err)
		}
	}

	if err := os.Remove(s.metaPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete meta file: %w", err)
	}
	return nil
}

func (s *Store) readEntry(id string, meta *HistoryMeta) (*Entry, error) {
	path := s.Path(id)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("transcript not found: %s", id)
		}
		return nil, fmt.Errorf("failed to stat transcript: %w", err)
	}

	text, err := transcript.ReadFile(path)
	if err != nil {
		return nil, err
	}
	turns := transcript.ParseTurns(text)

	entry := &Entry{
		ID:        id,
		Title:     TitleOf(turns),
		Path:      path,
		UpdatedAt: info.ModTime(),
		Size:      info.Size(),
		Turns:     len(turns),
	}
	if m, ok := meta.Meta[id]; ok {
		if m.Title != "" {
			entry.Title = m.Title
		}
		entry.IsFavorite = m.IsFavorite
	}
	return entry, nil
}

// TitleOf derives a title from the first user message
func TitleOf(turns []transcript.Turn) string {
	for _, t := range turns {
		if t.Role != transcript.RoleUser || t.Kind != transcript.KindMessage {
			continue
		}
		title := strings.Join(strings.Fields(t.Body), " ")
		if title == "" {
			continue
		}
		if r := []rune(title); len(r) > maxTitleLen {
			title = string(r[:maxTitleLen]) + "..."
		}
		return title
	}
	return "(empty chat)"
}

func validateID(id string) error {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return fmt.Errorf("invalid transcript id: %q", id)
	}
	return nil
}

// DefaultStore creates a store in dir, which the caller takes from config
func DefaultStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("history directory is not set")
	}
	return NewStore(dir)
}
