package config

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks that the settings required by a command mode are present.
// Modes: "serve", "lookup", "parse", "letter", "migrate".
func (c *Config) Validate(mode string) error {
	var errs []string
	need := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, msg)
		}
	}

	needDB := func() {
		need(c.Store.Driver == "postgres" || c.Store.Driver == "sqlite", "store.driver must be postgres or sqlite")
		need(c.Store.DatabaseURL != "", "store.database_url is required")
	}
	needLLM := func() {
		switch c.LLM.Provider {
		case "openai":
			need(c.OpenAI.Key != "", "openai.key is required")
		case "anthropic":
			need(c.Anthropic.Key != "", "anthropic.key is required")
		default:
			errs = append(errs, "llm.provider must be openai or anthropic")
		}
	}

	switch mode {
	case "serve":
		needDB()
		needLLM()
		need(c.Server.Port > 0, "server.port must be > 0")
		need(c.Storage.Endpoint != "", "storage.endpoint is required")
		need(c.Storage.Bucket != "", "storage.bucket is required")
		need(c.PDFCo.Key != "", "pdfco.key is required")
		need(c.Upload.MaxBytes > 0, "upload.max_bytes must be > 0")
	case "lookup":
		need(c.Zillow.Key != "", "zillow.key is required")
		need(c.Valuation.BatchConcurrency >= 1 && c.Valuation.BatchConcurrency <= 32,
			"valuation.batch_concurrency must be between 1 and 32")
	case "parse":
		need(c.PDFCo.Key != "", "pdfco.key is required")
		needLLM()
	case "letter":
		needLLM()
	case "migrate":
		needDB()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Valuation.Jitter < 0 || c.Valuation.Jitter > 1 {
		errs = append(errs, "valuation.jitter must be between 0 and 1")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: invalid for %s: %s", mode, strings.Join(errs, "; "))
	}
	return nil
}
