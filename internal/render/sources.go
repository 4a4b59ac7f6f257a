package render

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// withSources appends the link reference definitions of content as a
// visible list. Bing cites its sources as "[^1^]: [title](url)" lines,
// which markdown treats as definitions and never renders.
func withSources(content string) string {
	pctx := parser.NewContext()
	goldmark.DefaultParser().Parse(text.NewReader([]byte(content)), parser.WithContext(pctx))
	refs := pctx.References()
	if len(refs) == 0 {
		return content
	}

	type source struct {
		label string
		dest  string
	}
	sources := make([]source, 0, len(refs))
	for _, r := range refs {
		sources = append(sources, source{
			label: strings.Trim(string(r.Label()), "^"),
			dest:  string(r.Destination()),
		})
	}
	sort.Slice(sources, func(i, j int) bool {
		a, errA := strconv.Atoi(sources[i].label)
		b, errB := strconv.Atoi(sources[j].label)
		if errA == nil && errB == nil {
			return a < b
		}
		return sources[i].label < sources[j].label
	})

	var sb strings.Builder
	sb.WriteString(strings.TrimRight(content, "\n"))
	sb.WriteString("\n\n")
	for _, s := range sources {
		if _, err := strconv.Atoi(s.label); err == nil {
			fmt.Fprintf(&sb, "%s. %s\n", s.label, s.dest)
		} else {
			fmt.Fprintf(&sb, "- %s: %s\n", s.label, s.dest)
		}
	}
	return sb.String()
}
