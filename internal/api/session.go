package api

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/net/websocket"

	apierrors "github.com/diogo/sydney/internal/errors"
	"github.com/diogo/sydney/internal/models"
)

// Session is one conversation with an open ChatHub connection
type Session struct {
	conv     models.Conversation
	ws       *websocket.Conn
	endpoint string
	style    models.Style
	logger   *log.Logger

	mu         sync.Mutex // Protects invocation, streaming, stopStream, closed
	invocation int
	streaming  bool
	stopStream func() bool // releases the active stream's context callback
	closed     bool
	closeOnce  sync.Once
	closeErr   error
}

func newSession(c *Client, conv models.Conversation, ws *websocket.Conn) *Session {
	return &Session{
		conv:     conv,
		ws:       ws,
		endpoint: c.chatHubURL,
		style:    c.GetStyle(),
		logger:   c.logger,
	}
}

// Conversation returns the conversation the session belongs to
func (s *Session) Conversation() models.Conversation {
	return s.conv
}

// Ask sends one prompt and returns the stream of its answer. Only one
// stream may be read at a time.
func (s *Session) Ask(ctx context.Context, req models.AskRequest) (models.EventStream, error) {
	if s.isClosed() {
		return nil, apierrors.NewSessionError("ask", s.endpoint, "session is closed")
	}

	s.mu.Lock()
	if s.streaming {
		s.mu.Unlock()
		return nil, apierrors.NewSessionError("ask", s.endpoint, "an answer is still streaming")
	}
	if req.Style.Name == "" {
		req.Style = s.style
	}
	id := s.invocation
	s.invocation++
	s.streaming = true
	s.mu.Unlock()

	payload, err := buildInvocation(s.conv, req, id, id == 0)
	if err != nil {
		s.endStream()
		return nil, apierrors.NewSessionError("ask", s.endpoint, "failed to build request: "+err.Error())
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = s.ws.SetDeadline(deadline)
	}
	if err := websocket.Message.Send(s.ws, string(payload)); err != nil {
		s.endStream()
		return nil, apierrors.NewNetworkError("send prompt", s.endpoint, err)
	}
	s.logger.Debug("prompt sent", "invocation", id, "prompt_bytes", len(req.Prompt), "context_bytes", len(req.Context))

	// unblock a pending read when the caller gives up
	stop := context.AfterFunc(ctx, func() {
		_ = s.ws.SetDeadline(time.Now())
	})
	s.mu.Lock()
	s.stopStream = stop
	s.mu.Unlock()

	return &Stream{session: s, ctx: ctx, stop: stop}, nil
}

// endStream marks the session idle and releases the context callback of
// the active stream. Close calls it for streams abandoned before their
// done frame.
func (s *Session) endStream() {
	s.mu.Lock()
	stop := s.stopStream
	s.stopStream = nil
	s.streaming = false
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close closes the ChatHub connection. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.endStream()
		s.closeErr = s.ws.Close()
	})
	return s.closeErr
}

// Stream reads the events of one answer
type Stream struct {
	session *Session
	ctx     context.Context
	stop    func() bool
	records []string
	pending []models.Event
	done    bool
}

// Next returns the next event, or io.EOF once the service closed the
// exchange
func (st *Stream) Next() (models.Event, error) {
	for {
		if len(st.pending) > 0 {
			ev := st.pending[0]
			st.pending = st.pending[1:]
			return ev, nil
		}
		if st.done {
			return nil, io.EOF
		}

		if len(st.records) == 0 {
			if err := st.receive(); err != nil {
				st.finish()
				return nil, err
			}
			continue
		}

		record := st.records[0]
		st.records = st.records[1:]

		events, done, err := decodeFrame(record)
		if err != nil {
			var parseErr *apierrors.ParseError
			if errors.As(err, &parseErr) {
				st.session.logger.Debug("skipping frame", "err", err)
				continue
			}
			st.finish()
			return nil, err
		}
		st.pending = append(st.pending, events...)
		if done {
			st.finish()
		}
	}
}

func (st *Stream) receive() error {
	if err := st.ctx.Err(); err != nil {
		return apierrors.NewNetworkError("read answer", st.session.endpoint, err)
	}

	var msg string
	if err := websocket.Message.Receive(st.session.ws, &msg); err != nil {
		if ctxErr := st.ctx.Err(); ctxErr != nil {
			err = ctxErr
		} else if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return apierrors.NewNetworkError("read answer", st.session.endpoint, err)
	}
	st.records = splitRecords(msg)
	return nil
}

func (st *Stream) finish() {
	if st.done {
		return
	}
	st.done = true
	st.stop()
	_ = st.session.ws.SetDeadline(time.Time{})
	st.session.endStream()
}
