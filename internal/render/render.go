package render

import "strings"

// Markdown renders content with a renderer configured by opts. Source
// definitions are kept as a list at the end.
func Markdown(content string, opts Options) (string, error) {
	r, err := acquire(opts)
	if err != nil {
		return "", err
	}
	defer release(opts, r)
	return r.Render(withSources(content))
}

// Answer renders an assistant message, falling back to the raw text when
// rendering fails. Trailing newlines added by glamour are trimmed.
func Answer(content string, opts Options) string {
	out, err := Markdown(content, opts)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}
