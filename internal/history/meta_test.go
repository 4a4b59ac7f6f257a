package history

import (
	"os"
	"testing"
	"time"

	"github.com/diogo/sydney/internal/transcript"
)

func transcriptTurns(text string) []transcript.Turn {
	return transcript.ParseTurns(text)
}

func TestLoadMeta_Missing(t *testing.T) {
	store := newTestStore(t)

	meta, err := store.loadMeta()
	if err != nil {
		t.Fatalf("loadMeta failed: %v", err)
	}
	if meta.Version != metaVersion || meta.Meta == nil {
		t.Errorf("unexpected empty meta: %+v", meta)
	}
}

func TestLoadMeta_Corrupted(t *testing.T) {
	store := newTestStore(t)
	if err := os.WriteFile(store.metaPath(), []byte("{broken"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := store.loadMeta(); err == nil {
		t.Error("expected parse error")
	}
	if _, err := store.List(); err == nil {
		t.Error("List should report a corrupted meta file")
	}
}

func TestRename(t *testing.T) {
	store := newTestStore(t)
	saveAt(t, store, "chat-a", sampleTranscript, time.Now())

	if err := store.Rename("chat-a", "Lisbon weather"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	entry, _ := store.Get("chat-a")
	if entry.Title != "Lisbon weather" {
		t.Errorf("Title = %q after rename", entry.Title)
	}

	// an empty title restores the derived one and drops the entry
	if err := store.Rename("chat-a", ""); err != nil {
		t.Fatal(err)
	}
	entry, _ = store.Get("chat-a")
	if entry.Title != "What is the weather like in Lisbon today?" {
		t.Errorf("Title = %q after reset", entry.Title)
	}
	meta, _ := store.loadMeta()
	if _, ok := meta.Meta["chat-a"]; ok {
		t.Error("empty metadata should not be kept")
	}
}

func TestRename_NotFound(t *testing.T) {
	store := newTestStore(t)

	if err := store.Rename("chat-missing", "x"); err == nil {
		t.Error("expected not found error")
	}
}

func TestToggleFavorite(t *testing.T) {
	store := newTestStore(t)
	saveAt(t, store, "chat-a", sampleTranscript, time.Now())

	fav, err := store.ToggleFavorite("chat-a")
	if err != nil || !fav {
		t.Fatalf("ToggleFavorite() = %v, %v", fav, err)
	}
	if is, _ := store.IsFavorite("chat-a"); !is {
		t.Error("IsFavorite should be true")
	}

	fav, err = store.ToggleFavorite("chat-a")
	if err != nil || fav {
		t.Fatalf("second ToggleFavorite() = %v, %v", fav, err)
	}
	if is, _ := store.IsFavorite("chat-a"); is {
		t.Error("IsFavorite should be false")
	}

	if _, err := store.ToggleFavorite("chat-missing"); err == nil {
		t.Error("expected not found error")
	}
}

func TestMeta_Persisted(t *testing.T) {
	store := newTestStore(t)
	saveAt(t, store, "chat-a", sampleTranscript, time.Now())
	_, _ = store.ToggleFavorite("chat-a")

	reopened, err := NewStore(store.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if is, _ := reopened.IsFavorite("chat-a"); !is {
		t.Error("favorite should survive reopening the store")
	}
}
