// Package config describes the recognised configuration surface and decodes it
// from the settings map produced by viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

const (
	StrategyAuto    = "auto"
	StrategyLexical = "lexical"
	StrategyRemote  = "remote"
)

type Config struct {
	AI         AIConfig         `mapstructure:"ai" json:"ai"`
	Extraction ExtractionConfig `mapstructure:"extraction" json:"extraction"`
	Scoring    ScoringConfig    `mapstructure:"scoring" json:"scoring"`
}

type AIConfig struct {
	Strategy            string        `mapstructure:"strategy" json:"strategy"`
	Gemini              GeminiConfig  `mapstructure:"gemini" json:"gemini"`
	Timeout             time.Duration `mapstructure:"timeout" json:"timeout"`
	MaxRetries          int           `mapstructure:"max-retries" json:"max_retries"`
	RetryBaseDelay      time.Duration `mapstructure:"retry-base-delay" json:"retry_base_delay"`
	RequestsPerSecond   float64       `mapstructure:"requests-per-second" json:"requests_per_second"`
	EmbeddingDimensions int           `mapstructure:"embedding-dimensions" json:"embedding_dimensions"`
	MaxLogLength        int           `mapstructure:"max-log-length" json:"max_log_length"`
}

type GeminiConfig struct {
	APIKey         string `mapstructure:"api-key" json:"-"`
	APIKeyFile     string `mapstructure:"api-key-file" json:"api_key_file,omitempty"`
	Model          string `mapstructure:"model" json:"model"`
	EmbeddingModel string `mapstructure:"embedding-model" json:"embedding_model"`
}

type ExtractionConfig struct {
	SupportedExtensions []string  `mapstructure:"supported-extensions" json:"supported_extensions"`
	MaxUploadSize       int64     `mapstructure:"max-upload-size" json:"max_upload_size"`
	TempDir             string    `mapstructure:"temp-dir" json:"temp_dir,omitempty"`
	OCR                 OCRConfig `mapstructure:"ocr" json:"ocr"`
}

type OCRConfig struct {
	Enabled  bool   `mapstructure:"enabled" json:"enabled"`
	Binary   string `mapstructure:"binary" json:"binary"`
	Language string `mapstructure:"language" json:"language"`
}

type ScoringConfig struct {
	Workers int `mapstructure:"workers" json:"workers"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		AI: AIConfig{
			Strategy: StrategyAuto,
			Gemini: GeminiConfig{
				Model:          "gemini-2.5-flash",
				EmbeddingModel: "text-embedding-004",
			},
			Timeout:             30 * time.Second,
			MaxRetries:          3,
			RetryBaseDelay:      time.Second,
			EmbeddingDimensions: 512,
			MaxLogLength:        200,
		},
		Extraction: ExtractionConfig{
			MaxUploadSize: 10 << 20,
			OCR: OCRConfig{
				Enabled:  true,
				Binary:   "tesseract",
				Language: "eng",
			},
		},
		Scoring: ScoringConfig{
			Workers: 4,
		},
	}
}

// Decode overlays the provided settings on top of Default and validates the result.
func Decode(settings map[string]any) (*Config, error) {
	cfg := Default()

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		Result:           cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("create config decoder: %w", err)
	}

	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) normalize() {
	c.AI.Strategy = strings.ToLower(strings.TrimSpace(c.AI.Strategy))
	if c.AI.Strategy == "" {
		c.AI.Strategy = StrategyAuto
	}

	exts := make([]string, 0, len(c.Extraction.SupportedExtensions))
	seen := make(map[string]bool)
	for _, ext := range c.Extraction.SupportedExtensions {
		ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		if ext == "" || seen[ext] {
			continue
		}
		seen[ext] = true
		exts = append(exts, ext)
	}
	if len(exts) == 0 {
		exts = []string{"pdf", "docx", "txt"}
	}
	c.Extraction.SupportedExtensions = exts
}

// Validate reports every invalid setting joined into one error.
func (c *Config) Validate() error {
	var errs []error

	switch c.AI.Strategy {
	case StrategyAuto, StrategyLexical, StrategyRemote:
	default:
		errs = append(errs, fmt.Errorf("ai.strategy: unknown value %q", c.AI.Strategy))
	}

	if c.AI.Timeout <= 0 {
		errs = append(errs, errors.New("ai.timeout must be positive"))
	}
	if c.AI.MaxRetries < 0 {
		errs = append(errs, errors.New("ai.max-retries must not be negative"))
	}
	if c.AI.RetryBaseDelay < 0 {
		errs = append(errs, errors.New("ai.retry-base-delay must not be negative"))
	}
	if c.AI.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("ai.requests-per-second must not be negative"))
	}
	if c.AI.EmbeddingDimensions <= 0 {
		errs = append(errs, errors.New("ai.embedding-dimensions must be positive"))
	}
	if c.Extraction.MaxUploadSize <= 0 {
		errs = append(errs, errors.New("extraction.max-upload-size must be positive"))
	}
	if c.Scoring.Workers <= 0 {
		errs = append(errs, errors.New("scoring.workers must be positive"))
	}

	return errors.Join(errs...)
}
