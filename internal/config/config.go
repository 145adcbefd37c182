package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Zillow    ZillowConfig    `yaml:"zillow" mapstructure:"zillow"`
	PDFCo     PDFCoConfig     `yaml:"pdfco" mapstructure:"pdfco"`
	OpenAI    OpenAIConfig    `yaml:"openai" mapstructure:"openai"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Valuation ValuationConfig `yaml:"valuation" mapstructure:"valuation"`
	Tax       TaxConfig       `yaml:"tax" mapstructure:"tax"`
	Upload    UploadConfig    `yaml:"upload" mapstructure:"upload"`
	Letter    LetterConfig    `yaml:"letter" mapstructure:"letter"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// StorageConfig configures the S3-compatible document bucket.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
	Region    string `yaml:"region" mapstructure:"region"`
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	UseSSL    bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
	// ParseURLTTLSecs is how long the signed URL handed to PDF.co lives.
	ParseURLTTLSecs int `yaml:"parse_url_ttl_secs" mapstructure:"parse_url_ttl_secs"`
	// LetterURLTTLSecs is how long a generated letter download link lives.
	LetterURLTTLSecs int `yaml:"letter_url_ttl_secs" mapstructure:"letter_url_ttl_secs"`
}

// ZillowConfig holds RapidAPI Zillow settings.
type ZillowConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	Host      string  `yaml:"host" mapstructure:"host"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// PDFCoConfig holds PDF.co settings.
type PDFCoConfig struct {
	Key              string `yaml:"key" mapstructure:"key"`
	BaseURL          string `yaml:"base_url" mapstructure:"base_url"`
	PollIntervalSecs int    `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	MaxPolls         int    `yaml:"max_polls" mapstructure:"max_polls"`
}

// OpenAIConfig holds OpenAI Responses API settings.
type OpenAIConfig struct {
	Key             string `yaml:"key" mapstructure:"key"`
	BaseURL         string `yaml:"base_url" mapstructure:"base_url"`
	ExtractionModel string `yaml:"extraction_model" mapstructure:"extraction_model"`
	LetterModel     string `yaml:"letter_model" mapstructure:"letter_model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key             string `yaml:"key" mapstructure:"key"`
	ExtractionModel string `yaml:"extraction_model" mapstructure:"extraction_model"`
	LetterModel     string `yaml:"letter_model" mapstructure:"letter_model"`
}

// LLMConfig selects the structured-output backend.
type LLMConfig struct {
	// Provider is "openai" or "anthropic".
	Provider            string `yaml:"provider" mapstructure:"provider"`
	ExtractionMaxTokens int    `yaml:"extraction_max_tokens" mapstructure:"extraction_max_tokens"`
	LetterMaxTokens     int    `yaml:"letter_max_tokens" mapstructure:"letter_max_tokens"`
}

// ValuationConfig configures retries around valuation lookups.
type ValuationConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Jitter           float64 `yaml:"jitter" mapstructure:"jitter"`
	BreakerFailures  int     `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerResetSecs int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
	BatchConcurrency int     `yaml:"batch_concurrency" mapstructure:"batch_concurrency"`
}

// TaxConfig configures jurisdiction profile caching.
type TaxConfig struct {
	ProfileTTLSecs int `yaml:"profile_ttl_secs" mapstructure:"profile_ttl_secs"`
}

// UploadConfig limits accepted assessment uploads.
type UploadConfig struct {
	MaxBytes int64 `yaml:"max_bytes" mapstructure:"max_bytes"`
}

// LetterConfig configures appeal letter generation.
type LetterConfig struct {
	// CountiesFile overrides the embedded county filing guidance.
	CountiesFile string `yaml:"counties_file" mapstructure:"counties_file"`
}

// PricingConfig holds per-provider pricing rates.
type PricingConfig struct {
	Models map[string]ModelPricing `yaml:"models" mapstructure:"models"`
	// PDFCoPerCredit is the USD price of one PDF.co credit.
	PDFCoPerCredit float64 `yaml:"pdfco_per_credit" mapstructure:"pdfco_per_credit"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("APPEAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Secrets have empty defaults so AutomaticEnv can bind them on Unmarshal.
	for _, key := range []string{
		"store.database_url", "storage.access_key", "storage.secret_key",
		"zillow.key", "pdfco.key", "openai.key", "anthropic.key",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.bucket", "user-documents")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.parse_url_ttl_secs", 60)
	v.SetDefault("storage.letter_url_ttl_secs", 600)
	v.SetDefault("zillow.base_url", "https://zillow-com1.p.rapidapi.com")
	v.SetDefault("zillow.host", "zillow-com1.p.rapidapi.com")
	v.SetDefault("zillow.rate_limit", 2.0)
	v.SetDefault("pdfco.base_url", "https://api.pdf.co/v1")
	v.SetDefault("pdfco.poll_interval_secs", 5)
	v.SetDefault("pdfco.max_polls", 60)
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.extraction_model", "gpt-4o-mini-2024-07-18")
	v.SetDefault("openai.letter_model", "gpt-4.1-mini")
	v.SetDefault("anthropic.extraction_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.letter_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.extraction_max_tokens", 800)
	v.SetDefault("llm.letter_max_tokens", 1200)
	v.SetDefault("valuation.max_attempts", 3)
	v.SetDefault("valuation.initial_backoff_ms", 500)
	v.SetDefault("valuation.max_backoff_ms", 5000)
	v.SetDefault("valuation.jitter", 0.25)
	v.SetDefault("valuation.breaker_failures", 5)
	v.SetDefault("valuation.breaker_reset_secs", 30)
	v.SetDefault("valuation.batch_concurrency", 4)
	v.SetDefault("tax.profile_ttl_secs", 300)
	v.SetDefault("upload.max_bytes", 25*1024*1024)
	v.SetDefault("pricing.pdfco_per_credit", 0.0001)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
