package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/ai/gemini"
	"github.com/spigell/resume-matcher/internal/config"
	"github.com/spigell/resume-matcher/internal/extract"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/secrets"
)

// session holds everything a command needs. It is built once per invocation.
type session struct {
	cfg      *config.Config
	logger   *zap.Logger
	client   *ai.Client
	registry *extract.Registry
}

func newSession(ctx context.Context) *session {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	cfg, err := config.Decode(viper.AllSettings())
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(cfg, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	client, err := newAIClient(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("creating ai client",
			zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY / GEMINI_API_KEY_FILE or the 'ai.gemini' section of the configuration file"),
		)
	}

	registry, err := extract.New(extract.Config{
		SupportedExtensions: cfg.Extraction.SupportedExtensions,
		MaxUploadSize:       cfg.Extraction.MaxUploadSize,
		TempDir:             cfg.Extraction.TempDir,
		OCR: extract.OCRConfig{
			Enabled:  cfg.Extraction.OCR.Enabled,
			Binary:   cfg.Extraction.OCR.Binary,
			Language: cfg.Extraction.OCR.Language,
		},
	}, logger)
	if err != nil {
		logger.Fatal("creating extractor registry", zap.Error(err))
	}

	return &session{cfg: cfg, logger: logger, client: client, registry: registry}
}

// newAIClient returns a remote-capable client when a Gemini key is configured
// and a local-only client otherwise.
func newAIClient(ctx context.Context, cfg *config.Config, log *zap.Logger) (*ai.Client, error) {
	clientCfg := ai.Config{
		Timeout:             cfg.AI.Timeout,
		MaxRetries:          cfg.AI.MaxRetries,
		BaseDelay:           cfg.AI.RetryBaseDelay,
		RequestsPerSecond:   cfg.AI.RequestsPerSecond,
		EmbeddingDimensions: cfg.AI.EmbeddingDimensions,
		MaxLogLength:        cfg.AI.MaxLogLength,
	}

	apiKey, err := secrets.LoadOptional(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.AI.Gemini.APIKey,
		File:  cfg.AI.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, err
	}

	if apiKey == "" {
		log.Info("gemini api key is not configured, using local fallbacks")
		return ai.NewClient(clientCfg, nil, ai.WithLogger(log)), nil
	}

	backend, err := gemini.New(ctx, apiKey, cfg.AI.Gemini.Model, cfg.AI.Gemini.EmbeddingModel)
	if err != nil {
		return nil, err
	}

	return ai.NewClient(clientCfg, backend, ai.WithLogger(log)), nil
}

// jobDescriptionText returns the --jd-text flag or the extracted text of --jd.
func (s *session) jobDescriptionText(ctx context.Context, cmd *cobra.Command) string {
	if text := strings.TrimSpace(cmd.Flag("jd-text").Value.String()); text != "" {
		return text
	}

	path := strings.TrimSpace(cmd.Flag("jd").Value.String())
	if path == "" {
		s.logger.Fatal("job description is required", zap.String("hint", "use --jd <file> or --jd-text <text>"))
	}

	doc, err := s.registry.Load(path)
	if err != nil {
		s.logger.Fatal("reading job description", zap.Error(err))
	}

	text, err := s.registry.Extract(ctx, doc)
	if err != nil {
		s.logger.Fatal("extracting job description", zap.String(logger.FieldDocument, doc.Filename), zap.Error(err))
	}

	return text
}

func addJobDescriptionFlags(cmd *cobra.Command) {
	cmd.Flags().String("jd", "", "job description file (pdf, docx or txt)")
	cmd.Flags().String("jd-text", "", "job description text, takes precedence over --jd")
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
