// Package ai is the single gateway to the remote generative service. Callers
// never see transport details: a conversation goes in, text comes out, and
// transient failures are retried with exponential backoff. Without a
// configured backend every call is answered by a deterministic local stand-in.
package ai

import (
	"context"
	"strings"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func System(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message      { return Message{Role: RoleUser, Content: content} }
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// Backend performs single remote calls. It must not retry on its own.
type Backend interface {
	Provider() string
	Model() string
	Generate(ctx context.Context, messages []Message) (string, error)
	Embed(ctx context.Context, text string, dimensions int) ([]float32, error)
}

func joinTurns(messages []Message) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, " \n ")
}
