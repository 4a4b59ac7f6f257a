package history

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/diogo/sydney/internal/transcript"
)

// ExportFormat is the output format of an export
type ExportFormat string

const (
	ExportFormatMarkdown ExportFormat = "markdown"
	ExportFormatJSON     ExportFormat = "json"
	ExportFormatText     ExportFormat = "text"
)

// ParseExportFormat accepts md/markdown, json and txt/text
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(s) {
	case "", "md", "markdown":
		return ExportFormatMarkdown, nil
	case "json":
		return ExportFormatJSON, nil
	case "txt", "text":
		return ExportFormatText, nil
	}
	return "", fmt.Errorf("unknown export format %q (use markdown, json or text)", s)
}

// ExportOptions configures how transcripts are exported
type ExportOptions struct {
	Format ExportFormat
	// IncludeSystem keeps the system instruction turn
	IncludeSystem bool
	// IncludeSearches keeps search query and search result turns
	IncludeSearches bool
}

// DefaultExportOptions returns the options used by `history export`
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		Format:          ExportFormatMarkdown,
		IncludeSystem:   false,
		IncludeSearches: true,
	}
}

// Export renders transcript id in opts.Format
func (s *Store) Export(id string, opts ExportOptions) ([]byte, error) {
	entry, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	text, err := s.Load(id)
	if err != nil {
		return nil, err
	}

	switch opts.Format {
	case ExportFormatText:
		return []byte(text), nil
	case ExportFormatJSON:
		return exportJSON(entry, transcript.ParseTurns(text), opts)
	default:
		return []byte(exportMarkdown(entry, transcript.ParseTurns(text), opts)), nil
	}
}

func keepTurn(t transcript.Turn, opts ExportOptions) bool {
	switch t.Kind {
	case transcript.KindAdditionalInstructions:
		return opts.IncludeSystem
	case transcript.KindSearchQuery, transcript.KindSearchResults:
		return opts.IncludeSearches
	}
	return t.Role != ""
}

func exportMarkdown(entry *Entry, turns []transcript.Turn, opts ExportOptions) string {
	var sb strings.Builder

	sb.WriteString("# ")
	sb.WriteString(entry.Title)
	sb.WriteString("\n\n")
	sb.WriteString("**ID:** ")
	sb.WriteString(entry.ID)
	sb.WriteString("\n")
	sb.WriteString("**Updated:** ")
	sb.WriteString(entry.UpdatedAt.Format("2006-01-02 15:04:05"))
	sb.WriteString("\n\n---\n\n")

	first := true
	for _, t := range turns {
		if !keepTurn(t, opts) {
			continue
		}
		if !first {
			sb.WriteString("\n---\n\n")
		}
		first = false

		switch t.Kind {
		case transcript.KindSearchQuery:
			sb.WriteString("> 🔎 Searching: ")
			sb.WriteString(t.Body)
			sb.WriteString("\n")
			continue
		case transcript.KindSearchResults:
			sb.WriteString("<details>\n<summary>Search results</summary>\n\n")
			sb.WriteString(t.Body)
			sb.WriteString("\n\n</details>\n")
			continue
		case transcript.KindSuggestions:
			sb.WriteString("**Suggestions:**\n\n")
			for _, r := range transcript.ParseSuggestions(t.Body) {
				sb.WriteString("- ")
				sb.WriteString(r)
				sb.WriteString("\n")
			}
			continue
		}

		sb.WriteString("## ")
		sb.WriteString(roleHeading(t.Role))
		sb.WriteString("\n\n")
		sb.WriteString(t.Body)
		sb.WriteString("\n")
	}

	return sb.String()
}

func roleHeading(r transcript.Role) string {
	switch r {
	case transcript.RoleUser:
		return "User"
	case transcript.RoleAssistant:
		return "Assistant"
	case transcript.RoleSystem:
		return "System"
	}
	return string(r)
}

func exportJSON(entry *Entry, turns []transcript.Turn, opts ExportOptions) ([]byte, error) {
	type exportTurn struct {
		Role        string   `json:"role"`
		Kind        string   `json:"kind"`
		Content     string   `json:"content,omitempty"`
		Suggestions []string `json:"suggestions,omitempty"`
	}

	type exportTranscript struct {
		ID        string       `json:"id"`
		Title     string       `json:"title"`
		UpdatedAt time.Time    `json:"updated_at"`
		Turns     []exportTurn `json:"turns"`
	}

	export := exportTranscript{
		ID:        entry.ID,
		Title:     entry.Title,
		UpdatedAt: entry.UpdatedAt,
		Turns:     []exportTurn{},
	}
	for _, t := range turns {
		if !keepTurn(t, opts) {
			continue
		}
		et := exportTurn{Role: string(t.Role), Kind: string(t.Kind)}
		if t.Kind == transcript.KindSuggestions {
			et.Suggestions = transcript.ParseSuggestions(t.Body)
		} else {
			et.Content = t.Body
		}
		export.Turns = append(export.Turns, et)
	}

	return json.MarshalIndent(export, "", "  ")
}

// SearchResult is a transcript matching a search
type SearchResult struct {
	Entry        *Entry
	MatchSnippet string // Snippet where the term was found
	MatchField   string // "title" or "content"
}

// Search finds query in titles and, when searchContent is set, in turn bodies
func (s *Store) Search(query string, searchContent bool) ([]*SearchResult, error) {
	entries, err := s.List()
	if err != nil {
		return nil, err
	}

	queryLower := strings.ToLower(query)
	var results []*SearchResult

	for _, entry := range entries {
		if strings.Contains(strings.ToLower(entry.Title), queryLower) {
			results = append(results, &SearchResult{
				Entry:        entry,
				MatchSnippet: entry.Title,
				MatchField:   "title",
			})
			continue
		}

		if !searchContent {
			continue
		}
		text, err := s.Load(entry.ID)
		if err != nil {
			continue
		}
		for _, t := range transcript.ParseTurns(text) {
			if t.Kind == transcript.KindAdditionalInstructions {
				continue
			}
			if strings.Contains(strings.ToLower(t.Body), queryLower) {
				results = append(results, &SearchResult{
					Entry:        entry,
					MatchSnippet: extractSnippet(t.Body, query, 100),
					MatchField:   "content",
				})
				break // one match per transcript
			}
		}
	}

	return results, nil
}

// extractSnippet extracts a snippet around the first occurrence of query
func extractSnippet(content, query string, maxLen int) string {
	content = strings.Join(strings.Fields(content), " ")
	idx := strings.Index(strings.ToLower(content), strings.ToLower(query))
	if idx == -1 {
		if len(content) > maxLen {
			return content[:maxLen] + "..."
		}
		return content
	}

	half := maxLen / 2
	start := idx - half
	end := idx + len(query) + half

	if start < 0 {
		start = 0
		end = maxLen
	}
	if end > len(content) {
		end = len(content)
		start = end - maxLen
		if start < 0 {
			start = 0
		}
	}

	snippet := content[start:end]
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(content) {
		snippet = snippet + "..."
	}

	return snippet
}

// FormatRelativeTime formats t as "just now", "5m ago", "yesterday" and so on
func FormatRelativeTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 48*time.Hour:
		return "yesterday"
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	case diff < 30*24*time.Hour:
		return fmt.Sprintf("%dw ago", int(diff.Hours()/24/7))
	default:
		return t.Format("2006-01-02")
	}
}
