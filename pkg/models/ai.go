// Package models contains shared data models used across the LambdaPulse codebase.
package models

import (
	"context"
	"time"
)

// ChatClient is the core interface that all chat backends must implement.
// Never call a specific backend directly; always inject this interface.
type ChatClient interface {
	// CreateSession opens a conversation primed with the given system instructions.
	CreateSession(ctx context.Context, model, systemInstructions string) (ChatSession, error)
	// Name returns the backend identifier (e.g., "openai", "ollama").
	Name() string
}

// ChatSession is a stateful conversation with a chat backend.
// Abort and Destroy are best-effort; callers log their errors and move on.
type ChatSession interface {
	// SendAndWait sends prompt as the next user turn and waits up to timeout for the reply.
	SendAndWait(ctx context.Context, prompt string, timeout time.Duration) (string, error)
	// Abort cancels the in-flight call, if any.
	Abort(ctx context.Context) error
	// Destroy closes the session and releases its history.
	Destroy(ctx context.Context) error
}
