package history

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleTranscript = "[system](#additional_instructions)\nBe nice.\n\n" +
	"[user](#message)\nWhat is the weather like in Lisbon today?\n\n" +
	"[assistant](#search_query)\nweather lisbon\n\n" +
	"[assistant](#message)\nSunny, 24°C.\n\n" +
	"[assistant](#suggestions)\n```json\n{\"suggestedUserResponses\":[\"And tomorrow?\",\"In Porto?\"]}\n```\n\n"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "history"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

// saveAt saves text as id and sets its modification time
func saveAt(t *testing.T, store *Store, id, text string, mtime time.Time) {
	t.Helper()
	if err := store.Save(id, text); err != nil {
		t.Fatalf("Save(%s) failed: %v", id, err)
	}
	if err := os.Chtimes(store.Path(id), mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func TestNewStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "history")

	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if store.Dir() != dir {
		t.Errorf("Dir() = %s, want %s", store.Dir(), dir)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Error("history directory was not created")
	}
}

func TestDefaultStore_RequiresDir(t *testing.T) {
	if _, err := DefaultStore(""); err == nil {
		t.Error("expected error for empty directory")
	}
}

func TestStore_SaveLoad_ByteIdentical(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save("chat-1", sampleTranscript); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := store.Load("chat-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != sampleTranscript {
		t.Errorf("Load() = %q, want %q", got, sampleTranscript)
	}

	info, err := os.Stat(store.Path("chat-1"))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 600", perm)
	}
}

func TestStore_Load_NotFound(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Load("chat-missing"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestStore_InvalidIDs(t *testing.T) {
	store := newTestStore(t)

	for _, id := range []string{"", "../escape", "a/b", ".hidden"} {
		if err := store.Save(id, "x"); err == nil {
			t.Errorf("Save(%q) should fail", id)
		}
		if _, err := store.Load(id); err == nil {
			t.Errorf("Load(%q) should fail", id)
		}
		if err := store.Delete(id); err == nil {
			t.Errorf("Delete(%q) should fail", id)
		}
	}
}

func TestStore_NewID(t *testing.T) {
	store := newTestStore(t)

	first := store.NewID()
	if !strings.HasPrefix(first, "chat-") {
		t.Errorf("NewID() = %s, want chat- prefix", first)
	}
	if err := store.Save(first, "x"); err != nil {
		t.Fatal(err)
	}

	second := store.NewID()
	if second == first {
		t.Error("NewID() returned an ID already in use")
	}
	if len(second) != len(first) {
		t.Errorf("IDs differ in length: %s, %s", first, second)
	}
	if strings.HasPrefix(second, first) || strings.HasPrefix(first, second) {
		t.Errorf("one ID is a prefix of the other: %s, %s", first, second)
	}
	if store.Exists(second) {
		t.Error("new ID should not exist yet")
	}
	if !store.Exists(first) {
		t.Error("saved ID should exist")
	}
}

func TestStore_Get(t *testing.T) {
	store := newTestStore(t)
	saveAt(t, store, "chat-a", sampleTranscript, time.Now())

	entry, err := store.Get("chat-a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry.Title != "What is the weather like in Lisbon today?" {
		t.Errorf("Title = %q", entry.Title)
	}
	if entry.Turns != 5 {
		t.Errorf("Turns = %d, want 5", entry.Turns)
	}
	if entry.Size != int64(len(sampleTranscript)) {
		t.Errorf("Size = %d, want %d", entry.Size, len(sampleTranscript))
	}
	if entry.Path != store.Path("chat-a") {
		t.Errorf("Path = %s", entry.Path)
	}
}

func TestStore_List(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	saveAt(t, store, "chat-old", "[user](#message)\nold\n", now.Add(-2*time.Hour))
	saveAt(t, store, "chat-new", "[user](#message)\nnew\n", now)
	saveAt(t, store, "chat-mid", "[user](#message)\nmid\n", now.Add(-time.Hour))

	// files that are not transcripts are ignored
	_ = os.WriteFile(filepath.Join(store.Dir(), "notes.md"), []byte("x"), 0o600)
	_ = os.WriteFile(filepath.Join(store.Dir(), ".chat-tmp.txt"), []byte("x"), 0o600)

	entries, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	var ids []string
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	want := []string{"chat-new", "chat-mid", "chat-old"}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Errorf("List() order = %v, want %v", ids, want)
	}

	// favorites go first
	if _, err := store.ToggleFavorite("chat-old"); err != nil {
		t.Fatal(err)
	}
	entries, _ = store.List()
	if entries[0].ID != "chat-old" || !entries[0].IsFavorite {
		t.Errorf("favorite should be listed first, got %s", entries[0].ID)
	}
}

func TestStore_List_Empty(t *testing.T) {
	store := newTestStore(t)

	entries, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)
	saveAt(t, store, "chat-a", sampleTranscript, time.Now())
	if err := store.Rename("chat-a", "Weather"); err != nil {
		t.Fatal(err)
	}

	if err := store.Delete("chat-a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if store.Exists("chat-a") {
		t.Error("transcript still exists")
	}
	meta, _ := store.loadMeta()
	if _, ok := meta.Meta["chat-a"]; ok {
		t.Error("metadata was not removed")
	}

	if err := store.Delete("chat-a"); err == nil {
		t.Error("deleting twice should fail")
	}
}

func TestStore_ClearAll(t *testing.T) {
	store := newTestStore(t)
	saveAt(t, store, "chat-a", "a", time.Now())
	saveAt(t, store, "chat-b", "b", time.Now())
	_, _ = store.ToggleFavorite("chat-a")

	if err := store.ClearAll(); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}
	entries, _ := store.List()
	if len(entries) != 0 {
		t.Errorf("expected empty history, got %d", len(entries))
	}
	if _, err := os.Stat(store.metaPath()); !os.IsNotExist(err) {
		t.Error("meta file should be removed")
	}
}

func TestTitleOf(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"first user message", sampleTranscript, "What is the weather like in Lisbon today?"},
		{"whitespace collapsed", "[user](#message)\nhello\n  world\n", "hello world"},
		{"no user turn", "[system](#additional_instructions)\nx\n", "(empty chat)"},
		{"empty", "", "(empty chat)"},
		{"truncated", "[user](#message)\n" + strings.Repeat("é", 60) + "\n", strings.Repeat("é", 50) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TitleOf(transcriptTurns(tt.text))
			if got != tt.want {
				t.Errorf("TitleOf() = %q, want %q", got, tt.want)
			}
		})
	}
}
