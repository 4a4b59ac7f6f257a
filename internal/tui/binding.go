package tui

import (
	"path/filepath"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/diogo/sydney/internal/history"
	"github.com/diogo/sydney/internal/transcript"
)

// externalEditMsg carries the contents of the bound file after another
// program changed it
type externalEditMsg struct {
	path string
	text string
}

// binding is the transcript file the chat autosaves to. It is shared by
// the model copies bubbletea makes and by the streamer's after-exchange
// hook, which runs off the UI goroutine.
type binding struct {
	mu      sync.Mutex
	path    string
	id      string // history ID when the file lives in the store
	watcher *transcript.Watcher

	store  *history.Store
	events chan<- tea.Msg
	done   <-chan struct{}
	logger *log.Logger
}

func newBinding(store *history.Store, events chan<- tea.Msg, done <-chan struct{}, logger *log.Logger) *binding {
	return &binding{store: store, events: events, done: done, logger: logger}
}

// get returns the bound path and history ID
func (b *binding) get() (path, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.path, b.id
}

// bindPath binds an arbitrary file. Files inside the history directory
// are recognized so the header can show their ID.
func (b *binding) bindPath(path string) {
	id := ""
	if b.store != nil {
		abs, err := filepath.Abs(path)
		dir, dirErr := filepath.Abs(b.store.Dir())
		if err == nil && dirErr == nil && filepath.Dir(abs) == dir && filepath.Ext(abs) == ".txt" {
			base := filepath.Base(abs)
			id = base[:len(base)-len(".txt")]
		}
	}
	b.set(path, id)
}

// bindID binds a history entry
func (b *binding) bindID(id string) {
	b.set(b.store.Path(id), id)
}

func (b *binding) set(path, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.path == path {
		b.id = id
		return
	}
	b.stopWatchLocked()
	b.path = path
	b.id = id
	if path != "" {
		b.watchLocked()
	}
}

// ensure returns the bound path, allocating a new history entry when the
// chat is unbound and a store is configured. It returns "" when there is
// nowhere to save.
func (b *binding) ensure() string {
	b.mu.Lock()
	path := b.path
	b.mu.Unlock()
	if path != "" || b.store == nil {
		return path
	}

	id := b.store.NewID()
	b.bindID(id)
	return b.store.Path(id)
}

// save writes t to the bound file, allocating one if needed
func (b *binding) save(t *transcript.Transcript) (string, error) {
	path := b.ensure()
	if path == "" {
		return "", nil
	}
	if err := t.SaveFile(path); err != nil {
		return path, err
	}
	b.logger.Debug("transcript saved", "path", path, "bytes", t.Len())
	return path, nil
}

func (b *binding) watchLocked() {
	path := b.path
	w, err := transcript.NewWatcher(path, func(text string) {
		select {
		case b.events <- externalEditMsg{path: path, text: text}:
		case <-b.done:
		}
	}, transcript.WithErrorHandler(func(err error) {
		b.logger.Debug("watch transcript", "path", path, "err", err)
	}))
	if err != nil {
		// the file's directory may not exist until the first save
		b.logger.Debug("watch transcript", "path", path, "err", err)
		return
	}
	b.watcher = w
}

func (b *binding) stopWatchLocked() {
	if b.watcher == nil {
		return
	}
	if err := b.watcher.Close(); err != nil {
		b.logger.Debug("close watcher", "err", err)
	}
	b.watcher = nil
}

// rewatch starts watching the bound file if no watcher is running, which
// happens when the file's directory was created by the first save
func (b *binding) rewatch() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.watcher == nil && b.path != "" {
		b.watchLocked()
	}
}

// close stops watching
func (b *binding) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopWatchLocked()
}
