// Package ollama talks to the Ollama /api/chat endpoint.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/lambdapulse/internal/ai/chat"
)

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chat.Message `json:"messages"`
	Stream   bool           `json:"stream"`
}

type chatResponse struct {
	Message chat.Message `json:"message"`
	Done    bool         `json:"done"`
	Error   string       `json:"error,omitempty"`
}

// Provider implements chat.Transport using Ollama.
type Provider struct {
	baseURL string
	http    *http.Client
}

func NewProvider(baseURL string) *Provider {
	return &Provider{baseURL: strings.TrimRight(baseURL, "/"), http: &http.Client{}}
}

func (p *Provider) Client(defaultModel string) *chat.Client {
	return chat.NewClient("ollama", defaultModel, p.Complete)
}

func (p *Provider) Complete(ctx context.Context, model string, messages []chat.Message) (string, error) {
	var resp chatResponse
	err := chat.PostJSON(ctx, p.http, p.baseURL+"/api/chat", nil,
		chatRequest{Model: model, Messages: messages, Stream: false}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("%w: %s", chat.ErrInvalidResponse, resp.Error)
	}

	content := strings.TrimSpace(resp.Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty message", chat.ErrInvalidResponse)
	}
	return content, nil
}
