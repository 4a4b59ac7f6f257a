// Package chat drives exchanges with the chat service and writes the streamed
// answers into a transcript.
package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	apierrors "github.com/diogo/sydney/internal/errors"
	"github.com/diogo/sydney/internal/models"
	"github.com/diogo/sydney/internal/transcript"
)

// Session is one authenticated connection to the chat service
type Session interface {
	Ask(ctx context.Context, req models.AskRequest) (models.EventStream, error)
	Close() error
}

// Dialer opens sessions
type Dialer interface {
	Open(ctx context.Context) (Session, error)
}

// DialerFunc adapts a function to Dialer
type DialerFunc func(ctx context.Context) (Session, error)

// Open calls f(ctx)
func (f DialerFunc) Open(ctx context.Context) (Session, error) {
	return f(ctx)
}

// Dial adapts an Open method returning a concrete session type. A failed
// open yields a nil Session, never a typed nil.
func Dial[S Session](open func(ctx context.Context) (S, error)) Dialer {
	return DialerFunc(func(ctx context.Context) (Session, error) {
		sess, err := open(ctx)
		if err != nil {
			return nil, err
		}
		return sess, nil
	})
}

// Observer receives the side effects of an exchange. Calls come from the
// goroutine running Submit.
type Observer interface {
	BusyChanged(busy bool)
	TranscriptChanged()
	Error(err error)
}

type nopObserver struct{}

func (nopObserver) BusyChanged(bool)   {}
func (nopObserver) TranscriptChanged() {}
func (nopObserver) Error(error)        {}

// Streamer runs at most one exchange at a time against a transcript.
type Streamer struct {
	transcript    *transcript.Transcript
	dialer        Dialer
	observer      Observer
	logger        *log.Logger
	afterExchange func(*transcript.Transcript) error

	busy atomic.Bool

	mu          sync.RWMutex
	style       models.Style
	contextMode ContextMode
}

// Option configures a Streamer
type Option func(*Streamer)

// WithObserver sets the observer notified of busy changes, transcript writes
// and errors
func WithObserver(o Observer) Option {
	return func(s *Streamer) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(s *Streamer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStyle sets the conversation style sent with each request
func WithStyle(style models.Style) Option {
	return func(s *Streamer) {
		s.style = style
	}
}

// WithContextMode sets whether the transcript is sent as context
func WithContextMode(mode ContextMode) Option {
	return func(s *Streamer) {
		s.contextMode = mode
	}
}

// WithAfterExchange registers a hook run after every accepted exchange,
// successful or not, while the streamer is still busy. Autosave uses it.
func WithAfterExchange(fn func(*transcript.Transcript) error) Option {
	return func(s *Streamer) {
		s.afterExchange = fn
	}
}

// NewStreamer creates a Streamer writing into t and opening sessions with d
func NewStreamer(t *transcript.Transcript, d Dialer, opts ...Option) *Streamer {
	s := &Streamer{
		transcript:  t,
		dialer:      d,
		observer:    nopObserver{},
		logger:      log.New(io.Discard),
		style:       models.DefaultStyle,
		contextMode: ContextTranscript,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Busy reports whether an exchange is in flight
func (s *Streamer) Busy() bool {
	return s.busy.Load()
}

// Transcript returns the transcript the streamer writes to
func (s *Streamer) Transcript() *transcript.Transcript {
	return s.transcript
}

// Style returns the current conversation style
func (s *Streamer) Style() models.Style {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.style
}

// SetStyle changes the style used by the next exchange
func (s *Streamer) SetStyle(style models.Style) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.style = style
}

// ContextMode returns the current context mode
func (s *Streamer) ContextMode() ContextMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contextMode
}

// SetContextMode changes the context mode used by the next exchange
func (s *Streamer) SetContextMode(mode ContextMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contextMode = mode
}

// Submit sends userText and streams the answer into the transcript. It is a
// no-op returning false when an exchange is already in flight. Errors are
// reported to the observer and returned; whatever was written stays.
func (s *Streamer) Submit(ctx context.Context, userText string) (bool, error) {
	if !s.busy.CompareAndSwap(false, true) {
		s.logger.Debug("submit dropped: exchange in flight")
		return false, nil
	}
	s.observer.BusyChanged(true)
	defer func() {
		s.busy.Store(false)
		s.observer.BusyChanged(false)
	}()

	s.logger.Info("exchange started", "style", s.Style().Name, "context", s.ContextMode())
	err := s.exchange(ctx, userText)
	if err != nil {
		if apierrors.IsWarning(err) {
			s.logger.Warn("exchange ended early", "err", err)
		} else {
			s.logger.Error("exchange failed", "err", err)
		}
		s.observer.Error(err)
	} else {
		s.logger.Info("exchange finished", "transcript_bytes", s.transcript.Len())
	}

	if s.afterExchange != nil {
		if hookErr := s.afterExchange(s.transcript); hookErr != nil {
			s.logger.Error("after exchange", "err", hookErr)
			s.observer.Error(hookErr)
		}
	}

	return true, err
}

// exchange acquires a session, writes the user turn and consumes the answer.
// The session is released on every path.
func (s *Streamer) exchange(ctx context.Context, userText string) error {
	sess, err := s.dialer.Open(ctx)
	if err != nil {
		if !apierrors.IsSessionError(err) {
			err = apierrors.NewNetworkError("open session", "", err)
		}
		return err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			s.logger.Debug("close session", "err", cerr)
		}
	}()

	s.transcript.AppendTurn(transcript.RoleUser, transcript.KindMessage, userText)
	s.observer.TranscriptChanged()

	req := models.AskRequest{
		Prompt: userText,
		Style:  s.Style(),
	}
	if s.ContextMode() == ContextTranscript {
		req.Context = s.transcript.String()
	}

	stream, err := sess.Ask(ctx, req)
	if err != nil {
		return err
	}
	return s.consume(stream)
}

// segment tracks the assistant message turn currently being extended
type segment struct {
	open    bool
	written string
}

// consume applies events until the stream ends, suggestions arrive, or the
// response is revoked.
func (s *Streamer) consume(stream models.EventStream) error {
	var (
		seg       segment
		wroteText bool
		events    int
	)

	openMessage := func() {
		s.transcript.AppendTurn(transcript.RoleAssistant, transcript.KindMessage, "")
		s.observer.TranscriptChanged()
		seg = segment{open: true}
	}

	extend := func(text string) {
		if len(text) <= len(seg.written) {
			seg.written = text
			return
		}
		delta := text[len(seg.written):]
		seg.written = text
		s.transcript.AppendDelta(delta)
		s.observer.TranscriptChanged()
		wroteText = true
	}

	finish := func() error {
		s.logger.Debug("stream finished", "events", events, "wrote_text", wroteText)
		if !wroteText {
			return apierrors.NewEmptyResponseError("")
		}
		return nil
	}

	for {
		ev, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return finish()
		}
		if err != nil {
			return err
		}
		events++

		switch e := ev.(type) {
		case models.MessageContinuation:
			if !seg.open || e.CursorReset {
				openMessage()
			}
			extend(e.Text)

		case models.SearchQuery:
			s.appendTurn(transcript.KindSearchQuery, e.Text)
			seg = segment{}

		case models.SearchResult:
			s.appendTurn(transcript.KindSearchResults, e.Text)
			seg = segment{}

		case models.Suggestions:
			s.appendTurn(transcript.KindSuggestions, transcript.FormatSuggestions(e.Replies))
			return finish()

		case models.Revoked:
			return apierrors.NewRevokedError(e.Reason)

		case models.Final:
			switch {
			case seg.open && strings.HasPrefix(e.Text, seg.written):
				extend(e.Text)
			case !wroteText && e.Text != "":
				openMessage()
				extend(e.Text)
			}

		default:
			s.logger.Debug("ignoring unknown event", "type", ev)
		}
	}
}

func (s *Streamer) appendTurn(kind transcript.Kind, body string) {
	s.transcript.AppendTurn(transcript.RoleAssistant, kind, body)
	s.observer.TranscriptChanged()
}
