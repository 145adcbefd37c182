package llm

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/appeal-cli/internal/config"
	"github.com/sells-group/appeal-cli/pkg/anthropic"
	"github.com/sells-group/appeal-cli/pkg/openai"
)

// Models are the per-task model ids of the selected backend.
type Models struct {
	Extraction string
	Letter     string
}

// New builds the configured backend and its default models.
func New(cfg *config.Config) (Client, Models, error) {
	switch cfg.LLM.Provider {
	case "", "openai":
		opts := []openai.Option{}
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		return NewOpenAI(openai.NewClient(cfg.OpenAI.Key, opts...)),
			Models{Extraction: cfg.OpenAI.ExtractionModel, Letter: cfg.OpenAI.LetterModel}, nil
	case "anthropic":
		return NewAnthropic(anthropic.NewClient(cfg.Anthropic.Key, anthropic.WithMaxRetries(0))),
			Models{Extraction: cfg.Anthropic.ExtractionModel, Letter: cfg.Anthropic.LetterModel}, nil
	default:
		return nil, Models{}, eris.Errorf("llm: unknown provider %q", cfg.LLM.Provider)
	}
}

// HasCredentials reports whether the configured backend has an API key.
func HasCredentials(cfg *config.Config) bool {
	if cfg.LLM.Provider == "anthropic" {
		return cfg.Anthropic.Key != ""
	}
	return cfg.OpenAI.Key != ""
}
