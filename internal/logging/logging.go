// Package logging builds the charmbracelet/log loggers used across sydney.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// DefaultLevel is used when no --log flag is given
const DefaultLevel = "warn"

// Options configures a logger
type Options struct {
	// Level is debug, info, warn or error
	Level string
	// Prefix is shown before every message
	Prefix string
}

// New returns a logger writing to w at the given level
func New(w io.Writer, opts Options) (*log.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          opts.Prefix,
		ReportTimestamp: true,
	}), nil
}

// NewFile returns a logger appending to path, for when the chat UI owns
// the terminal. The caller closes the returned file.
func NewFile(path string, opts Options) (*log.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := log.NewWithOptions(f, log.Options{
		Level:           level,
		Prefix:          opts.Prefix,
		ReportTimestamp: true,
		Formatter:       log.LogfmtFormatter,
	})
	return logger, f, nil
}

// Discard returns a logger that drops everything
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// ParseLevel parses a --log value, defaulting to DefaultLevel when empty
func ParseLevel(s string) (log.Level, error) {
	if s == "" {
		s = DefaultLevel
	}
	level, err := log.ParseLevel(s)
	if err != nil {
		return 0, fmt.Errorf("invalid log level %q (use debug, info, warn or error)", s)
	}
	return level, nil
}
