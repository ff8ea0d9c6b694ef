package ai

import (
	"fmt"

	"github.com/kiranshivaraju/lambdapulse/internal/ai/anthropic"
	"github.com/kiranshivaraju/lambdapulse/internal/ai/ollama"
	"github.com/kiranshivaraju/lambdapulse/internal/ai/openai"
	"github.com/kiranshivaraju/lambdapulse/internal/config"
	"github.com/kiranshivaraju/lambdapulse/pkg/models"
)

// NewClient constructs the chat backend selected by config.
// Called once at server startup.
func NewClient(cfg config.AIConfig) (models.ChatClient, error) {
	model := cfg.DefaultModel()
	switch cfg.Provider {
	case "github":
		return openai.NewProvider("github", cfg.GitHub.BaseURL, cfg.GitHub.Token).Client(model), nil
	case "openai":
		return openai.NewProvider("openai", cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey).Client(model), nil
	case "vllm":
		return openai.NewProvider("vllm", cfg.VLLM.BaseURL, "").Client(model), nil
	case "ollama":
		return ollama.NewProvider(cfg.Ollama.BaseURL).Client(model), nil
	case "anthropic":
		return anthropic.NewProvider(cfg.Anthropic.BaseURL, cfg.Anthropic.APIKey).Client(model), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q: must be one of github, openai, vllm, ollama, anthropic", cfg.Provider)
	}
}
