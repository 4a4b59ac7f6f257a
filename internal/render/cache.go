package render

import (
	"sync"

	"github.com/charmbracelet/glamour"
)

// renderers holds one pool of glamour renderers per Options value. A
// TermRenderer must not run two Render calls at once, so every call takes
// a renderer out of the pool for its duration.
var renderers sync.Map // Options -> *sync.Pool

func poolFor(opts Options) *sync.Pool {
	if p, ok := renderers.Load(opts); ok {
		return p.(*sync.Pool)
	}
	p, _ := renderers.LoadOrStore(opts, new(sync.Pool))
	return p.(*sync.Pool)
}

// acquire returns a pooled renderer for opts, building one when the pool
// is empty. The caller hands it back with release.
func acquire(opts Options) (*glamour.TermRenderer, error) {
	if r, ok := poolFor(opts).Get().(*glamour.TermRenderer); ok {
		return r, nil
	}
	return newRenderer(opts)
}

func release(opts Options, r *glamour.TermRenderer) {
	if r != nil {
		poolFor(opts).Put(r)
	}
}

func newRenderer(opts Options) (*glamour.TermRenderer, error) {
	style := opts.Style
	if style == "" {
		style = StyleDark
	}
	ropts := []glamour.TermRendererOption{
		glamour.WithStylePath(style),
		glamour.WithWordWrap(opts.Width),
		glamour.WithTableWrap(opts.TableWrap),
	}
	if opts.EnableEmoji {
		ropts = append(ropts, glamour.WithEmoji())
	}
	if opts.PreserveNewLines {
		ropts = append(ropts, glamour.WithPreservedNewLines())
	}
	return glamour.NewTermRenderer(ropts...)
}

// poolCount reports how many distinct option sets have a pool
func poolCount() int {
	n := 0
	renderers.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
