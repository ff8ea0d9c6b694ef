// Package chat implements conversational sessions over stateless
// chat-completion backends. A Session keeps the exchanged turns and replays
// them on every call.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kiranshivaraju/lambdapulse/pkg/models"
)

var (
	ErrProviderUnavailable = errors.New("ai provider unavailable")
	ErrInferenceTimeout    = errors.New("ai inference timeout")
	ErrInvalidResponse     = errors.New("ai provider returned invalid response")
	ErrSessionClosed       = errors.New("ai session closed")
	ErrAborted             = errors.New("ai call aborted")
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Transport performs one completion over the full message list and returns
// the assistant's reply.
type Transport func(ctx context.Context, model string, messages []Message) (string, error)

// Session is a models.ChatSession. Calls on one session are serialized.
type Session struct {
	model     string
	transport Transport

	sendMu sync.Mutex

	mu      sync.Mutex
	history []Message
	cancel  context.CancelFunc
	aborted bool
	closed  bool
}

// NewSession starts a conversation seeded with an optional system instruction.
func NewSession(model, system string, transport Transport) *Session {
	s := &Session{model: model, transport: transport}
	if system != "" {
		s.history = []Message{{Role: RoleSystem, Content: system}}
	}
	return s
}

// Model returns the model the session talks to.
func (s *Session) Model() string { return s.model }

// SendAndWait sends prompt with the conversation so far and waits up to
// timeout for the reply. The exchange joins the history only on success.
func (s *Session) SendAndWait(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrSessionClosed
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	s.cancel = cancel
	s.aborted = false
	messages := make([]Message, len(s.history), len(s.history)+1)
	copy(messages, s.history)
	messages = append(messages, Message{Role: RoleUser, Content: prompt})
	s.mu.Unlock()

	reply, err := s.transport(callCtx, s.model, messages)

	s.mu.Lock()
	defer s.mu.Unlock()
	aborted := s.aborted
	s.cancel = nil
	deadline := errors.Is(callCtx.Err(), context.DeadlineExceeded)
	cancel()

	switch {
	case err == nil && s.closed:
		return "", ErrSessionClosed
	case err == nil:
		s.history = append(messages, Message{Role: RoleAssistant, Content: reply})
		return reply, nil
	case deadline:
		return "", fmt.Errorf("%w: no reply within %s", ErrInferenceTimeout, timeout)
	case aborted:
		return "", ErrAborted
	case s.closed:
		return "", ErrSessionClosed
	default:
		return "", err
	}
}

// Abort cancels the call in flight, if any. The session stays usable.
func (s *Session) Abort(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.aborted = true
		s.cancel()
	}
	return nil
}

// Destroy closes the session and cancels any call in flight. Destroying a
// closed session returns ErrSessionClosed.
func (s *Session) Destroy(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	s.history = nil
	return nil
}

// Client is a models.ChatClient that opens Sessions over one Transport.
type Client struct {
	name         string
	defaultModel string
	transport    Transport
}

// NewClient returns a Client. Sessions created without a model use defaultModel.
func NewClient(name, defaultModel string, transport Transport) *Client {
	return &Client{name: name, defaultModel: defaultModel, transport: transport}
}

func (c *Client) Name() string { return c.name }

func (c *Client) CreateSession(_ context.Context, model, systemInstructions string) (models.ChatSession, error) {
	if model == "" {
		model = c.defaultModel
	}
	if model == "" {
		return nil, fmt.Errorf("%w: no model configured", ErrProviderUnavailable)
	}
	return NewSession(model, systemInstructions, c.transport), nil
}

// Compile-time checks.
var (
	_ models.ChatSession = (*Session)(nil)
	_ models.ChatClient  = (*Client)(nil)
)
