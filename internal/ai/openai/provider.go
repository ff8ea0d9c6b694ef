// Package openai talks to OpenAI-compatible chat completion endpoints
// (OpenAI, GitHub Models, vLLM).
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/lambdapulse/internal/ai/chat"
)

type completionRequest struct {
	Model    string         `json:"model"`
	Messages []chat.Message `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message chat.Message `json:"message"`
	} `json:"choices"`
}

// Provider posts the whole conversation to {BaseURL}/chat/completions.
type Provider struct {
	name    string
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewProvider returns a Provider. apiKey may be empty for unauthenticated
// servers such as a local vLLM.
func NewProvider(name, baseURL, apiKey string) *Provider {
	return &Provider{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{},
	}
}

// Client wraps the provider in a session-oriented chat client.
func (p *Provider) Client(defaultModel string) *chat.Client {
	return chat.NewClient(p.name, defaultModel, p.Complete)
}

// Complete is a chat.Transport.
func (p *Provider) Complete(ctx context.Context, model string, messages []chat.Message) (string, error) {
	headers := map[string]string{}
	if p.apiKey != "" {
		headers["Authorization"] = "Bearer " + p.apiKey
	}

	var resp completionResponse
	err := chat.PostJSON(ctx, p.http, p.baseURL+"/chat/completions", headers,
		completionRequest{Model: model, Messages: messages}, &resp)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", chat.ErrInvalidResponse)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty completion", chat.ErrInvalidResponse)
	}
	return content, nil
}
