package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"google.golang.org/genai"

	"github.com/spigell/resume-matcher/internal/ai"
)

type generateCall struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

type embedCall struct {
	model  string
	config *genai.EmbedContentConfig
}

type fakeModels struct {
	generateResp *genai.GenerateContentResponse
	generateErr  error
	embedResp    *genai.EmbedContentResponse
	embedErr     error

	generateCalls []generateCall
	embedCalls    []embedCall
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.generateCalls = append(f.generateCalls, generateCall{model: model, contents: contents, config: config})
	return f.generateResp, f.generateErr
}

func (f *fakeModels) EmbedContent(_ context.Context, model string, _ []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.embedCalls = append(f.embedCalls, embedCall{model: model, config: config})
	return f.embedResp, f.embedErr
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func TestGenerateSplitsSystemInstruction(t *testing.T) {
	models := &fakeModels{generateResp: textResponse(" {\"score\": 80} ", "")}
	b := newBackend(models, "gemini-pro", "")

	out, err := b.Generate(context.Background(), []ai.Message{
		ai.System("You are a recruiter."),
		ai.User("Resume: Go"),
		ai.Assistant("Noted."),
		ai.User("Score it"),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != `{"score": 80}` {
		t.Fatalf("unexpected output: %q", out)
	}

	if len(models.generateCalls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(models.generateCalls))
	}
	call := models.generateCalls[0]
	if call.model != "gemini-pro" {
		t.Fatalf("unexpected model: %q", call.model)
	}
	if call.config == nil || call.config.SystemInstruction == nil {
		t.Fatal("expected system instruction to be set")
	}
	if got := call.config.SystemInstruction.Parts[0].Text; got != "You are a recruiter." {
		t.Fatalf("unexpected system instruction: %q", got)
	}
	if len(call.contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(call.contents))
	}
	wantRoles := []string{string(genai.RoleUser), string(genai.RoleModel), string(genai.RoleUser)}
	for i, c := range call.contents {
		if c.Role != wantRoles[i] {
			t.Fatalf("content %d: unexpected role %q", i, c.Role)
		}
	}
}

func TestGenerateWithoutSystemLeavesConfigNil(t *testing.T) {
	models := &fakeModels{generateResp: textResponse("hi")}
	b := newBackend(models, "", "")

	if _, err := b.Generate(context.Background(), []ai.Message{ai.User("hello")}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if models.generateCalls[0].config != nil {
		t.Fatal("expected nil config")
	}
	if models.generateCalls[0].model != defaultModel {
		t.Fatalf("expected default model, got %q", models.generateCalls[0].model)
	}
}

func TestGenerateRejectsEmptyConversation(t *testing.T) {
	b := newBackend(&fakeModels{}, "", "")

	_, err := b.Generate(context.Background(), []ai.Message{ai.System("only system")})
	if ai.IsTransient(err) || err == nil {
		t.Fatalf("expected non-transient error, got %v", err)
	}
}

func TestGenerateEmptyResponse(t *testing.T) {
	b := newBackend(&fakeModels{generateResp: textResponse("  ")}, "", "")

	if _, err := b.Generate(context.Background(), []ai.Message{ai.User("hello")}); err == nil {
		t.Fatal("expected error on empty response")
	}
}

func TestGenerateMapsAPIErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{name: "value unavailable", err: genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}, transient: true},
		{name: "pointer rate limit", err: &genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"}, transient: true},
		{name: "wrapped internal", err: fmt.Errorf("sdk: %w", genai.APIError{Code: http.StatusInternalServerError}), transient: true},
		{name: "bad request", err: genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"}, transient: false},
		{name: "network", err: errors.New("connection reset"), transient: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBackend(&fakeModels{generateErr: tt.err}, "", "")

			_, err := b.Generate(context.Background(), []ai.Message{ai.User("hello")})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := ai.IsTransient(err); got != tt.transient {
				t.Fatalf("IsTransient = %v, want %v (err: %v)", got, tt.transient, err)
			}
		})
	}
}

func TestEmbedPassesDimensions(t *testing.T) {
	models := &fakeModels{embedResp: &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: []float32{0.5, -0.5}}},
	}}
	b := newBackend(models, "", "embedding-001")

	vec, err := b.Embed(context.Background(), "golang", 256)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(vec) != 2 || vec[0] != 0.5 {
		t.Fatalf("unexpected vector: %v", vec)
	}

	call := models.embedCalls[0]
	if call.model != "embedding-001" {
		t.Fatalf("unexpected model: %q", call.model)
	}
	if call.config == nil || call.config.OutputDimensionality == nil || *call.config.OutputDimensionality != 256 {
		t.Fatalf("unexpected config: %+v", call.config)
	}
}

func TestEmbedWithoutEmbeddings(t *testing.T) {
	b := newBackend(&fakeModels{embedResp: &genai.EmbedContentResponse{}}, "", "")

	if _, err := b.Embed(context.Background(), "golang", 0); err == nil {
		t.Fatal("expected error")
	}
}

func TestBackendRetriedByClient(t *testing.T) {
	models := &fakeModels{generateErr: genai.APIError{Code: http.StatusServiceUnavailable}}
	client := ai.NewClient(ai.Config{MaxRetries: 2}, newBackend(models, "", ""),
		ai.WithSleep(func(ctx context.Context, _ time.Duration) error { return ctx.Err() }),
	)

	_, err := client.Prompt(context.Background(), "hello")
	if !errors.Is(err, ai.ErrRemoteExhausted) {
		t.Fatalf("expected exhausted error, got %v", err)
	}
	if len(models.generateCalls) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(models.generateCalls))
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(context.Background(), "  ", "", ""); err == nil {
		t.Fatal("expected error for empty api key")
	}
}
