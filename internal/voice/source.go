package voice

import (
	"errors"
	"sync"
	"time"

	"foxie/internal/domain"
)

// ErrAlreadyStarted is returned by engines when a stream is already open for
// the session.
var ErrAlreadyStarted = errors.New("voice: stream already started")

// ErrorCode classifies stream errors the way browser speech engines report
// them.
type ErrorCode string

const (
	ErrNetwork      ErrorCode = "network"
	ErrAudioCapture ErrorCode = "audio-capture"
	ErrNoSpeech     ErrorCode = "no-speech"
	ErrNotAllowed   ErrorCode = "not-allowed"
)

// Recoverable reports whether the coordinator should retry after this error.
func (c ErrorCode) Recoverable() bool {
	return c == ErrNetwork || c == ErrAudioCapture
}

// EventHandler receives everything a recognition stream can emit.
type EventHandler struct {
	OnResult func(domain.Utterance)
	OnEnd    func()
	OnError  func(code ErrorCode, err error)
}

// Engine opens continuous recognition streams against some speech source.
type Engine interface {
	Name() string
	Open(sessionID string, h EventHandler) (Stream, error)
}

// Stream is one live recognition session.
type Stream interface {
	Close() error
}

// MockEngine is an in-process engine for tests and offline runs. Utterances
// are injected with Emit; End and Fail drive the lifecycle callbacks.
type MockEngine struct {
	mu      sync.Mutex
	streams []*mockStream
	opens   int
}

func NewMockEngine() *MockEngine {
	return &MockEngine{}
}

func (m *MockEngine) Name() string { return "mock" }

func (m *MockEngine) Open(_ string, h EventHandler) (Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opens++
	s := &mockStream{handler: h}
	m.streams = append(m.streams, s)
	return s, nil
}

// Opens reports how many streams have been opened, for restart assertions.
func (m *MockEngine) Opens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens
}

// Emit delivers a final or interim result on the most recent stream.
func (m *MockEngine) Emit(text string, isFinal bool, at time.Time) {
	if s := m.current(); s != nil {
		s.emit(domain.Utterance{Text: text, IsFinal: isFinal, Confidence: 0.9, Timestamp: at})
	}
}

// End signals the underlying session ended on its own.
func (m *MockEngine) End() {
	if s := m.current(); s != nil {
		s.end()
	}
}

// Fail signals a stream error with the given code.
func (m *MockEngine) Fail(code ErrorCode, err error) {
	if s := m.current(); s != nil {
		s.fail(code, err)
	}
}

func (m *MockEngine) current() *mockStream {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.streams) == 0 {
		return nil
	}
	return m.streams[len(m.streams)-1]
}

type mockStream struct {
	mu      sync.Mutex
	handler EventHandler
	closed  bool
}

func (s *mockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *mockStream) emit(u domain.Utterance) {
	s.mu.Lock()
	closed, h := s.closed, s.handler
	s.mu.Unlock()
	if !closed && h.OnResult != nil {
		h.OnResult(u)
	}
}

func (s *mockStream) end() {
	s.mu.Lock()
	closed, h := s.closed, s.handler
	s.mu.Unlock()
	if !closed && h.OnEnd != nil {
		h.OnEnd()
	}
}

func (s *mockStream) fail(code ErrorCode, err error) {
	s.mu.Lock()
	closed, h := s.closed, s.handler
	s.mu.Unlock()
	if !closed && h.OnError != nil {
		h.OnError(code, err)
	}
}
