package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/config"
)

func TestNewAIClientWithoutKeyIsLocal(t *testing.T) {
	cfg := config.Default()

	client, err := newAIClient(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if client.RemoteCapable() {
		t.Fatal("expected local-only client")
	}
}

func TestNewAIClientMissingKeyFile(t *testing.T) {
	cfg := config.Default()
	cfg.AI.Gemini.APIKeyFile = filepath.Join(t.TempDir(), "missing")

	if _, err := newAIClient(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatal("expected error for unreadable key file")
	}
}
