package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/appeal-cli/internal/appeal"
	"github.com/sells-group/appeal-cli/internal/assessment"
	"github.com/sells-group/appeal-cli/internal/letter"
	"github.com/sells-group/appeal-cli/internal/llm"
	"github.com/sells-group/appeal-cli/internal/storage"
	"github.com/sells-group/appeal-cli/internal/store"
	"github.com/sells-group/appeal-cli/internal/tax"
	"github.com/sells-group/appeal-cli/internal/valuation"
	"github.com/sells-group/appeal-cli/pkg/pdfco"
	"github.com/sells-group/appeal-cli/pkg/zillow"
)

// appEnv holds the initialized store and workflow used by serve.
type appEnv struct {
	Store    store.Store
	Workflow *appeal.Workflow
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "appeal.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initValuations() *valuation.Service {
	opts := []zillow.Option{zillow.WithBaseURL(cfg.Zillow.BaseURL), zillow.WithHost(cfg.Zillow.Host)}
	if cfg.Zillow.RateLimit > 0 {
		opts = append(opts, zillow.WithRateLimit(cfg.Zillow.RateLimit, 1))
	}
	return valuation.NewService(zillow.NewClient(cfg.Zillow.Key, opts...))
}

// initLLM returns a nil client when the configured backend has no key.
func initLLM() (llm.Client, llm.Models, error) {
	if !llm.HasCredentials(cfg) {
		return nil, llm.Models{}, nil
	}
	return llm.New(cfg)
}

func initParser(client llm.Client, models llm.Models) *assessment.Parser {
	pdf := pdfco.NewClient(cfg.PDFCo.Key, pdfco.WithBaseURL(cfg.PDFCo.BaseURL))
	return assessment.NewParser(pdf,
		assessment.NewExtractor(client, models.Extraction, cfg.LLM.ExtractionMaxTokens),
		pdfco.WithPollInterval(time.Duration(cfg.PDFCo.PollIntervalSecs)*time.Second),
		pdfco.WithMaxPolls(cfg.PDFCo.MaxPolls),
	)
}

// initEnv opens and migrates the store and wires the workflow.
func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	docs, err := storage.New(cfg.Storage)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	counties, err := letter.LoadCounties(cfg.Letter.CountiesFile)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	client, models, err := initLLM()
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	var parser appeal.Parser
	var letters appeal.Letters
	if client != nil {
		if cfg.PDFCo.Key != "" {
			parser = initParser(client, models)
		}
		letters = letter.NewGenerator(client, models.Letter, cfg.LLM.LetterMaxTokens)
	}

	ratios := tax.NewProfiles(st, time.Duration(cfg.Tax.ProfileTTLSecs)*time.Second)
	wf := appeal.New(cfg, st, docs, parser, initValuations(), ratios, counties, letters)
	return &appEnv{Store: st, Workflow: wf}, nil
}
