package history

import (
	"fmt"
	"strconv"
	"strings"
)

// Resolver resolves user-friendly references to transcript IDs
type Resolver struct {
	store *Store
}

// NewResolver creates a new reference resolver
func NewResolver(store *Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve converts a user-friendly reference to a transcript ID
//
// Supported references:
//   - "@last" - most recently modified transcript
//   - "@first" - oldest transcript in the list
//   - "1", "2", "3" - by index in List order (1-based)
//   - "chat-..." - direct ID
//   - "substring" - match on title (error if multiple matches)
func (r *Resolver) Resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("empty reference")
	}

	entries, err := r.store.List()
	if err != nil {
		return "", fmt.Errorf("failed to list transcripts: %w", err)
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("no saved transcripts")
	}

	switch strings.ToLower(ref) {
	case "@last":
		latest := entries[0]
		for _, e := range entries[1:] {
			if e.UpdatedAt.After(latest.UpdatedAt) {
				latest = e
			}
		}
		return latest.ID, nil
	case "@first":
		oldest := entries[0]
		for _, e := range entries[1:] {
			if e.UpdatedAt.Before(oldest.UpdatedAt) {
				oldest = e
			}
		}
		return oldest.ID, nil
	}

	if index, err := strconv.Atoi(ref); err == nil {
		if index < 1 || index > len(entries) {
			return "", fmt.Errorf("index %d out of range (1-%d)", index, len(entries))
		}
		return entries[index-1].ID, nil
	}

	for _, e := range entries {
		if e.ID == ref {
			return e.ID, nil
		}
	}
	if strings.HasPrefix(ref, idPrefix) {
		return "", fmt.Errorf("transcript not found: %s", ref)
	}

	refLower := strings.ToLower(ref)
	var matches []*Entry
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Title), refLower) {
			matches = append(matches, e)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no transcript matching '%s'", ref)
	case 1:
		return matches[0].ID, nil
	default:
		var titles []string
		for _, m := range matches {
			titles = append(titles, fmt.Sprintf("'%s'", m.Title))
		}
		return "", fmt.Errorf("multiple transcripts match '%s': %s. Use ID or be more specific",
			ref, strings.Join(titles, ", "))
	}
}

// ResolveEntry resolves a reference and returns its entry
func (r *Resolver) ResolveEntry(ref string) (*Entry, error) {
	id, err := r.Resolve(ref)
	if err != nil {
		return nil, err
	}
	return r.store.Get(id)
}

// ListAliases describes the supported references
func ListAliases() string {
	return `Supported references:
  @last          Most recently modified transcript
  @first         Oldest transcript
  1, 2, 3        By index (1-based, as listed by 'sydney history list')
  "text"         Search by title substring
  chat-...       Direct transcript ID`
}
