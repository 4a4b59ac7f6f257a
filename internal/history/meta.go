package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	metaFileName = "meta.json"
	metaVersion  = 1
)

// TranscriptMeta holds what cannot be derived from the transcript file
type TranscriptMeta struct {
	// Title overrides the title derived from the first user message
	Title      string `json:"title,omitempty"`
	IsFavorite bool   `json:"is_favorite,omitempty"`
}

// HistoryMeta is the content of meta.json
type HistoryMeta struct {
	Version int                        `json:"version"` // For future migration
	Meta    map[string]*TranscriptMeta `json:"meta"`
}

func newHistoryMeta() *HistoryMeta {
	return &HistoryMeta{
		Version: metaVersion,
		Meta:    make(map[string]*TranscriptMeta),
	}
}

func (s *Store) metaPath() string {
	return filepath.Join(s.baseDir, metaFileName)
}

// loadMeta loads meta.json, or an empty HistoryMeta when it does not exist
func (s *Store) loadMeta() (*HistoryMeta, error) {
	data, err := os.ReadFile(s.metaPath())
	if err != nil {
		if os.IsNotExist(err) {
			return newHistoryMeta(), nil
		}
		return nil, fmt.Errorf("failed to read meta file: %w", err)
	}

	var meta HistoryMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse meta file: %w", err)
	}
	if meta.Meta == nil {
		meta.Meta = make(map[string]*TranscriptMeta)
	}

	return &meta, nil
}

func (s *Store) saveMeta(meta *HistoryMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal meta: %w", err)
	}

	if err := os.WriteFile(s.metaPath(), data, 0o600); err != nil {
		return fmt.Errorf("failed to write meta file: %w", err)
	}

	return nil
}

func (s *Store) removeFromMeta(id string) error {
	meta, err := s.loadMeta()
	if err != nil {
		return err
	}
	if _, ok := meta.Meta[id]; !ok {
		return nil
	}

	delete(meta.Meta, id)
	return s.saveMeta(meta)
}

// updateMeta applies fn to the metadata of an existing transcript
func (s *Store) updateMeta(id string, fn func(*TranscriptMeta)) error {
	if err := validateID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.Path(id)); os.IsNotExist(err) {
		return fmt.Errorf("transcript not found: %s", id)
	}

	meta, err := s.loadMeta()
	if err != nil {
		return err
	}
	m, ok := meta.Meta[id]
	if !ok {
		m = &TranscriptMeta{}
		meta.Meta[id] = m
	}
	fn(m)
	if *m == (TranscriptMeta{}) {
		delete(meta.Meta, id)
	}

	return s.saveMeta(meta)
}

// Rename sets the title shown for transcript id. An empty title restores
// the derived one.
func (s *Store) Rename(id, title string) error {
	return s.updateMeta(id, func(m *TranscriptMeta) {
		m.Title = title
	})
}

// ToggleFavorite flips the favorite status of transcript id and returns the
// new status
func (s *Store) ToggleFavorite(id string) (bool, error) {
	var status bool
	err := s.updateMeta(id, func(m *TranscriptMeta) {
		m.IsFavorite = !m.IsFavorite
		status = m.IsFavorite
	})
	return status, err
}

// IsFavorite reports whether transcript id is marked as favorite
func (s *Store) IsFavorite(id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meta, err := s.loadMeta()
	if err != nil {
		return false, err
	}
	if m, ok := meta.Meta[id]; ok {
		return m.IsFavorite, nil
	}
	return false, nil
}
