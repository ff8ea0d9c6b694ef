package ai

import "github.com/kiranshivaraju/lambdapulse/internal/ai/chat"

var (
	ErrProviderUnavailable = chat.ErrProviderUnavailable
	ErrInferenceTimeout    = chat.ErrInferenceTimeout
	ErrInvalidResponse     = chat.ErrInvalidResponse
	ErrSessionClosed       = chat.ErrSessionClosed
)
