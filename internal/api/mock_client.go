package api

import (
	"context"
	"io"
	"sync"

	"github.com/diogo/sydney/internal/models"
)

// MockDialer is a scripted stand-in for Client. Each Open hands out the
// next session from Sessions, or a fresh one answering with Events.
type MockDialer struct {
	mu sync.Mutex

	// OpenErr fails every Open when set
	OpenErr error
	// Sessions are returned in order by Open
	Sessions []*MockSession
	// Events scripts sessions created once Sessions is exhausted
	Events []models.Event

	// Call counters/recorders
	OpenCalls int
	Opened    []*MockSession
}

// Open implements the Open side of Client
func (m *MockDialer) Open(ctx context.Context) (*MockSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.OpenCalls++
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var sess *MockSession
	if len(m.Sessions) > 0 {
		sess = m.Sessions[0]
		m.Sessions = m.Sessions[1:]
	} else {
		sess = &MockSession{Events: m.Events}
	}
	m.Opened = append(m.Opened, sess)
	return sess, nil
}

// MockSession replays Events for every Ask, then StreamErr (io.EOF when nil)
type MockSession struct {
	mu sync.Mutex

	Events    []models.Event
	AskErr    error
	StreamErr error
	// Gate, when set, blocks every Next until it is closed
	Gate chan struct{}

	// Call counters/recorders
	Requests   []models.AskRequest
	CloseCalls int
}

// Ask records req and returns a stream over Events
func (m *MockSession) Ask(_ context.Context, req models.AskRequest) (models.EventStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)
	if m.AskErr != nil {
		return nil, m.AskErr
	}
	events := make([]models.Event, len(m.Events))
	copy(events, m.Events)
	return &MockStream{events: events, err: m.StreamErr, gate: m.Gate}, nil
}

// Close records the call
func (m *MockSession) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalls++
	return nil
}

// LastRequest returns the most recent AskRequest, or the zero value
func (m *MockSession) LastRequest() models.AskRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return models.AskRequest{}
	}
	return m.Requests[len(m.Requests)-1]
}

// Closed reports whether Close was called at least once
func (m *MockSession) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CloseCalls > 0
}

// MockStream is the stream returned by MockSession.Ask
type MockStream struct {
	events []models.Event
	err    error
	gate   chan struct{}
}

// Next implements models.EventStream
func (s *MockStream) Next() (models.Event, error) {
	if s.gate != nil {
		<-s.gate
	}
	if len(s.events) > 0 {
		ev := s.events[0]
		s.events = s.events[1:]
		return ev, nil
	}
	if s.err != nil {
		return nil, s.err
	}
	return nil, io.EOF
}
