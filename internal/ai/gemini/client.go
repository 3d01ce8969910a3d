// Package gemini implements ai.Backend on top of the Google GenAI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/spigell/resume-matcher/internal/ai"
)

const (
	provider = "gemini"

	defaultModel          = "gemini-2.5-flash"
	defaultEmbeddingModel = "text-embedding-004"
)

type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// sdkModels forwards to the Models service of a genai client.
type sdkModels struct {
	client *genai.Client
}

func (m sdkModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return m.client.Models.GenerateContent(ctx, model, contents, config)
}

func (m sdkModels) EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	return m.client.Models.EmbedContent(ctx, model, contents, config)
}

// Backend performs single Gemini calls. Retries belong to ai.Client.
type Backend struct {
	models         modelsAPI
	model          string
	embeddingModel string
}

// New creates a Backend for the Gemini API.
func New(ctx context.Context, apiKey, model, embeddingModel string) (*Backend, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newBackend(sdkModels{client: client}, model, embeddingModel), nil
}

func newBackend(models modelsAPI, model, embeddingModel string) *Backend {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if embeddingModel = strings.TrimSpace(embeddingModel); embeddingModel == "" {
		embeddingModel = defaultEmbeddingModel
	}

	return &Backend{models: models, model: model, embeddingModel: embeddingModel}
}

func (b *Backend) Provider() string { return provider }

func (b *Backend) Model() string {
	if b == nil {
		return ""
	}
	return b.model
}

// Generate sends the conversation. System turns become the system instruction.
func (b *Backend) Generate(ctx context.Context, messages []ai.Message) (string, error) {
	var (
		system   []*genai.Part
		contents []*genai.Content
	)

	for _, m := range messages {
		text := strings.TrimSpace(m.Content)
		if text == "" {
			continue
		}

		switch m.Role {
		case ai.RoleSystem:
			system = append(system, &genai.Part{Text: text})
		case ai.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(text, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		}
	}

	if len(contents) == 0 {
		return "", &ai.StatusError{Code: 400, Status: "INVALID_ARGUMENT", Message: "conversation has no user content"}
	}

	var config *genai.GenerateContentConfig
	if len(system) > 0 {
		config = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: system},
		}
	}

	resp, err := b.models.GenerateContent(ctx, b.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", mapError(err))
	}

	output := responseText(resp)
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

// Embed returns the embedding of text. dimensions <= 0 keeps the model default.
func (b *Backend) Embed(ctx context.Context, text string, dimensions int) ([]float32, error) {
	var config *genai.EmbedContentConfig
	if dimensions > 0 {
		dims := int32(dimensions)
		config = &genai.EmbedContentConfig{OutputDimensionality: &dims}
	}

	resp, err := b.models.EmbedContent(ctx, b.embeddingModel, genai.Text(text), config)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", mapError(err))
	}

	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, errors.New("gemini api returned no embeddings")
	}

	return resp.Embeddings[0].Values, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}

// mapError converts SDK API errors into ai.StatusError so the client can
// classify them. Other errors pass through unchanged.
func mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &ai.StatusError{Code: apiErr.Code, Status: apiErr.Status, Message: apiErr.Message}
	}

	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &ai.StatusError{Code: apiErrPtr.Code, Status: apiErrPtr.Status, Message: apiErrPtr.Message}
	}

	return err
}
