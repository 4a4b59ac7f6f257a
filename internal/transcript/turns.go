package transcript

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var tagLinePattern = regexp.MustCompile(`^\[(system|user|assistant)\]\(#([a-z_]+)\)$`)

// Turn is one tagged block of a transcript. Text before the first tag line
// is returned as a turn with an empty Role and Kind.
type Turn struct {
	Role Role
	Kind Kind
	Body string
}

// SuggestionsPayload is the JSON object written into a suggestions turn
type SuggestionsPayload struct {
	SuggestedUserResponses []string `json:"suggestedUserResponses"`
}

// ParseTurns splits transcript text into turns. Trailing blank lines of a
// body belong to the separator and are dropped.
func ParseTurns(s string) []Turn {
	var turns []Turn
	var current *Turn
	var body []string

	flush := func() {
		if current == nil {
			return
		}
		current.Body = strings.TrimRight(strings.Join(body, "\n"), "\n")
		if current.Role != "" || strings.TrimSpace(current.Body) != "" {
			turns = append(turns, *current)
		}
	}

	current = &Turn{}
	for _, line := range strings.Split(s, "\n") {
		if m := tagLinePattern.FindStringSubmatch(strings.TrimRight(line, "\r")); m != nil {
			flush()
			current = &Turn{Role: Role(m[1]), Kind: Kind(m[2])}
			body = body[:0]
			continue
		}
		body = append(body, line)
	}
	flush()

	return turns
}

// Turns returns the parsed turns of the transcript
func (t *Transcript) Turns() []Turn {
	return ParseTurns(t.String())
}

// Suggestions returns the replies from the last suggestions turn, or nil
func (t *Transcript) Suggestions() []string {
	turns := t.Turns()
	for i := len(turns) - 1; i >= 0; i-- {
		turn := turns[i]
		if turn.Role == RoleAssistant && turn.Kind == KindSuggestions {
			return ParseSuggestions(turn.Body)
		}
		if turn.Role == RoleUser {
			// suggestions only apply to the exchange they closed
			return nil
		}
	}
	return nil
}

// FormatSuggestions renders replies as the body of a suggestions turn
func FormatSuggestions(replies []string) string {
	if replies == nil {
		replies = []string{}
	}
	data, err := json.Marshal(SuggestionsPayload{SuggestedUserResponses: replies})
	if err != nil {
		// a []string always marshals
		panic(err)
	}
	return "```json\n" + string(data) + "\n```"
}

// ParseSuggestions reads the JSON payload of a suggestions turn body. The
// payload may be inside a fenced code block or bare.
func ParseSuggestions(body string) []string {
	payload := fencedCode(body)
	if payload == "" {
		payload = body
	}

	var parsed SuggestionsPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(payload)), &parsed); err != nil {
		return nil
	}
	return parsed.SuggestedUserResponses
}

// fencedCode returns the content of the first fenced code block in md
func fencedCode(md string) string {
	source := []byte(md)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var out strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			out.Write(seg.Value(source))
		}
		return ast.WalkStop, nil
	})
	return out.String()
}
