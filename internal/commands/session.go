package commands

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/diogo/sydney/internal/config"
	"github.com/diogo/sydney/internal/history"
	"github.com/diogo/sydney/internal/transcript"
	"github.com/diogo/sydney/internal/tui"
)

// resolvePersona returns the named persona, or the configured one when
// name is empty
func resolvePersona(name string, cfg config.Config) (*config.Persona, error) {
	if name == "" {
		name = cfg.Persona
	}
	if name == "" {
		return config.GetDefaultPersona()
	}

	persona, err := config.GetPersona(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load persona '%s': %w", name, err)
	}
	return persona, nil
}

// openTranscript loads path when it exists, otherwise starts a transcript
// from the persona's instructions. A missing path is created on save.
func openTranscript(path string, persona *config.Persona) (*transcript.Transcript, error) {
	t := transcript.New(transcript.ContextFor(tui.InstructionsFor(persona)))
	if path == "" {
		return t, nil
	}

	if err := t.LoadFile(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return t, nil
		}
		return nil, err
	}
	return t, nil
}

// openHistory opens the transcript history directory from the config
func openHistory(cfg config.Config) (*history.Store, error) {
	dir, err := config.GetHistoryDir(cfg)
	if err != nil {
		return nil, err
	}
	store, err := history.DefaultStore(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return store, nil
}
