package transcript

import (
	"os"
	"path/filepath"

	apierrors "github.com/diogo/sydney/internal/errors"
)

// ReadFile reads a transcript file verbatim
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", apierrors.NewIOError("load", path, err)
	}
	return string(data), nil
}

// WriteFile writes text to path atomically: a temp file in the same
// directory is renamed over the target.
func WriteFile(path, text string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return apierrors.NewIOError("save", path, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return apierrors.NewIOError("save", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(text); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return apierrors.NewIOError("save", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return apierrors.NewIOError("save", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return apierrors.NewIOError("save", path, err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)
		return apierrors.NewIOError("save", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return apierrors.NewIOError("save", path, err)
	}
	return nil
}

// LoadFile replaces the transcript with the contents of path. On failure
// the transcript is left unchanged.
func (t *Transcript) LoadFile(path string) error {
	text, err := ReadFile(path)
	if err != nil {
		return err
	}
	t.Load(text)
	return nil
}

// SaveFile writes the transcript to path
func (t *Transcript) SaveFile(path string) error {
	return WriteFile(path, t.String())
}
