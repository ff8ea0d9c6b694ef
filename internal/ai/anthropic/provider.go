// Package anthropic talks to the Anthropic Messages API.
package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/lambdapulse/internal/ai/chat"
)

const (
	apiVersion = "2023-06-01"
	maxTokens  = 1024
)

type messagesRequest struct {
	Model     string         `json:"model"`
	System    string         `json:"system,omitempty"`
	Messages  []chat.Message `json:"messages"`
	MaxTokens int            `json:"max_tokens"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Provider implements chat.Transport using Anthropic.
type Provider struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewProvider(baseURL, apiKey string) *Provider {
	return &Provider{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, http: &http.Client{}}
}

func (p *Provider) Client(defaultModel string) *chat.Client {
	return chat.NewClient("anthropic", defaultModel, p.Complete)
}

// Complete lifts system turns into the top-level system field, which the
// Messages API requires.
func (p *Provider) Complete(ctx context.Context, model string, messages []chat.Message) (string, error) {
	req := messagesRequest{Model: model, MaxTokens: maxTokens}
	var system []string
	for _, m := range messages {
		if m.Role == chat.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		req.Messages = append(req.Messages, m)
	}
	req.System = strings.Join(system, "\n\n")

	headers := map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": apiVersion,
	}

	var resp messagesResponse
	if err := chat.PostJSON(ctx, p.http, p.baseURL+"/v1/messages", headers, req, &resp); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("%w: no text content", chat.ErrInvalidResponse)
	}
	return text, nil
}
