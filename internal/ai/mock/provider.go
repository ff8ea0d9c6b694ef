package mock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kiranshivaraju/lambdapulse/internal/ai/chat"
	"github.com/kiranshivaraju/lambdapulse/pkg/models"
)

// Call records one SendAndWait invocation.
type Call struct {
	Session int
	Model   string
	Prompt  string
	Timeout time.Duration
}

// ReplyFunc produces the reply for a call. ctx expires after call.Timeout.
type ReplyFunc func(ctx context.Context, call Call) (string, error)

// MockClient satisfies models.ChatClient for testing. Every session it opens
// is kept so tests can check abort and destroy counts.
type MockClient struct {
	Name_     string
	ReplyFunc ReplyFunc
	CreateErr error

	mu       sync.Mutex
	sessions []*MockSession
	calls    []Call
}

func (m *MockClient) Name() string { return m.Name_ }

func (m *MockClient) CreateSession(_ context.Context, model, systemInstructions string) (models.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	s := &MockSession{ID: len(m.sessions) + 1, Model: model, System: systemInstructions, client: m}
	m.sessions = append(m.sessions, s)
	return s, nil
}

// Calls returns every call made so far, in order.
func (m *MockClient) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Sessions returns every session opened so far.
func (m *MockClient) Sessions() []*MockSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*MockSession(nil), m.sessions...)
}

func (m *MockClient) record(c Call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

// MockSession satisfies models.ChatSession.
type MockSession struct {
	ID     int
	Model  string
	System string

	client *MockClient

	mu       sync.Mutex
	aborts   int
	destroys int
}

func (s *MockSession) SendAndWait(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	if s.Destroys() > 0 {
		return "", chat.ErrSessionClosed
	}
	call := Call{Session: s.ID, Model: s.Model, Prompt: prompt, Timeout: timeout}
	s.client.record(call)
	if s.client.ReplyFunc == nil {
		return "", nil
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	reply, err := s.client.ReplyFunc(callCtx, call)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return "", chat.ErrInferenceTimeout
	}
	return reply, err
}

func (s *MockSession) Abort(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aborts++
	return nil
}

// Destroy counts every call; calls after the first return ErrSessionClosed.
func (s *MockSession) Destroy(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroys++
	if s.destroys > 1 {
		return chat.ErrSessionClosed
	}
	return nil
}

func (s *MockSession) Aborts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborts
}

func (s *MockSession) Destroys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroys
}

// NewMockClient returns a MockClient that answers every prompt with reply.
func NewMockClient(reply string) *MockClient {
	return &MockClient{
		Name_: "mock",
		ReplyFunc: func(_ context.Context, _ Call) (string, error) {
			return reply, nil
		},
	}
}

// NewFailingClient returns a MockClient whose calls always return err.
func NewFailingClient(err error) *MockClient {
	return &MockClient{
		Name_: "mock-failing",
		ReplyFunc: func(_ context.Context, _ Call) (string, error) {
			return "", err
		},
	}
}

// NewTimeoutClient returns a MockClient whose calls block until their
// timeout expires.
func NewTimeoutClient() *MockClient {
	return &MockClient{
		Name_: "mock-timeout",
		ReplyFunc: func(ctx context.Context, _ Call) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
}

// Compile-time checks.
var (
	_ models.ChatClient  = (*MockClient)(nil)
	_ models.ChatSession = (*MockSession)(nil)
)
