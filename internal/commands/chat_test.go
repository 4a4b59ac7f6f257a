package commands

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diogo/sydney/internal/config"
	"github.com/diogo/sydney/internal/history"
	"github.com/diogo/sydney/internal/transcript"
	"github.com/diogo/sydney/internal/tui"
)

func TestChatCommand(t *testing.T) {
	if chatCmd.Use != "chat" {
		t.Errorf("Expected use 'chat', got %s", chatCmd.Use)
	}
	for _, name := range []string{"persona", "resume", "file"} {
		if chatCmd.Flags().Lookup(name) == nil {
			t.Errorf("Flag %s not found", name)
		}
	}
	if got := chatCmd.Flags().Lookup("resume").NoOptDefVal; got != resumePick {
		t.Errorf("--resume without a value should open the picker, got %q", got)
	}
}

func TestRunChat_NewChat(t *testing.T) {
	home := setupHome(t)
	f := &fakeDeps{}
	withFakeDeps(t, f)

	cmd, _, _ := newTestCmd("")
	if err := runChat(cmd); err != nil {
		t.Fatalf("runChat() error = %v", err)
	}

	opts := f.chatOpts
	if opts == nil {
		t.Fatal("chat TUI was not started")
	}
	if opts.Dialer == nil || opts.Store == nil || opts.Logger == nil || opts.Personas == nil {
		t.Errorf("options are incomplete: %+v", opts)
	}
	if opts.Transcript != nil || opts.ChatID != "" || opts.Path != "" {
		t.Errorf("a new chat should not be bound, got %+v", opts)
	}
	if opts.Persona == nil || opts.Persona.Name != config.DefaultPersonaName {
		t.Errorf("persona = %+v", opts.Persona)
	}
	if opts.Clipboard == nil {
		t.Error("clipboard should be wired")
	}
	if !f.released {
		t.Error("client was not released")
	}
	if _, err := os.Stat(filepath.Join(home, ".sydney", "sydney.log")); err != nil {
		t.Errorf("chat should log to a file: %v", err)
	}
}

func TestRunChat_File(t *testing.T) {
	setupHome(t)
	f := &fakeDeps{}
	withFakeDeps(t, f)

	path := filepath.Join(t.TempDir(), "notes.txt")
	text := "[user](#message)\nsaved question\n\n"
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	chatFileFlag = path

	cmd, _, _ := newTestCmd("")
	if err := runChat(cmd); err != nil {
		t.Fatalf("runChat() error = %v", err)
	}
	if f.chatOpts.Path != path {
		t.Errorf("path = %q", f.chatOpts.Path)
	}
	if got := f.chatOpts.Transcript.String(); got != text {
		t.Errorf("transcript = %q, want %q", got, text)
	}
}

func TestRunChat_NewFileStartsFromPersona(t *testing.T) {
	setupHome(t)
	f := &fakeDeps{}
	withFakeDeps(t, f)

	chatFileFlag = filepath.Join(t.TempDir(), "new.txt")
	chatPersonaFlag = "bing"

	cmd, _, _ := newTestCmd("")
	if err := runChat(cmd); err != nil {
		t.Fatalf("runChat() error = %v", err)
	}
	if got := f.chatOpts.Transcript.String(); got != "" {
		t.Errorf("the bing persona should start empty, got %q", got)
	}
}

func TestRunChat_Resume(t *testing.T) {
	setupHome(t)
	f := &fakeDeps{}
	withFakeDeps(t, f)

	store, err := openHistory(config.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	id := store.NewID()
	text := transcript.DefaultContext + "[user](#message)\nresume me\n\n"
	if err := store.Save(id, text); err != nil {
		t.Fatal(err)
	}

	chatResumeFlag = "@last"
	cmd, _, _ := newTestCmd("")
	if err := runChat(cmd); err != nil {
		t.Fatalf("runChat() error = %v", err)
	}
	if f.chatOpts.ChatID != id {
		t.Errorf("chat id = %q, want %q", f.chatOpts.ChatID, id)
	}
	if got := f.chatOpts.Transcript.String(); got != text {
		t.Errorf("transcript = %q", got)
	}
}

func TestRunChat_UnknownPersona(t *testing.T) {
	setupHome(t)
	f := &fakeDeps{}
	withFakeDeps(t, f)
	chatPersonaFlag = "nobody"

	cmd, _, _ := newTestCmd("")
	err := runChat(cmd)
	if err == nil || !strings.Contains(err.Error(), "nobody") {
		t.Errorf("runChat() error = %v", err)
	}
	if f.chatOpts != nil {
		t.Error("chat should not start")
	}
}

func TestResolveResume(t *testing.T) {
	store, err := history.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	id := store.NewID()
	if err := store.Save(id, "[user](#message)\npicked\n\n"); err != nil {
		t.Fatal(err)
	}
	entry, err := store.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	pickErr := errors.New("tty gone")

	tests := []struct {
		name      string
		ref       string
		selection tui.HistorySelectorResult
		selectErr error
		wantID    string
		wantOK    bool
		wantErr   bool
	}{
		{name: "reference", ref: "@last", wantID: id, wantOK: true},
		{name: "unknown reference", ref: "nothing-like-this", wantErr: true},
		{name: "picked entry", ref: resumePick, selection: tui.HistorySelectorResult{Entry: entry, Confirmed: true}, wantID: id, wantOK: true},
		{name: "picked new chat", ref: resumePick, selection: tui.HistorySelectorResult{IsNew: true, Confirmed: true}, wantOK: true},
		{name: "dismissed", ref: resumePick, selection: tui.HistorySelectorResult{}},
		{name: "picker error", ref: resumePick, selectErr: pickErr, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withFakeDeps(t, &fakeDeps{selection: tt.selection, selectErr: tt.selectErr})

			gotID, ok, err := resolveResume(store, tt.ref)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveResume() error = %v, wantErr %v", err, tt.wantErr)
			}
			if gotID != tt.wantID || ok != tt.wantOK {
				t.Errorf("resolveResume() = (%q, %v), want (%q, %v)", gotID, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}
