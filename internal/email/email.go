// Package email drafts interview invitations and rejection letters.
package email

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/reply"
)

var (
	ErrInvalidKind = errors.New("invalid email kind")
	ErrMissingName = errors.New("candidate name is required")
)

type Kind string

const (
	Interview Kind = "interview"
	Rejection Kind = "rejection"
)

// Kinds lists the supported kinds in display order.
var Kinds = []Kind{Interview, Rejection}

// ParseKind validates s as a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case Interview, Rejection:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q (expected interview or rejection)", ErrInvalidKind, s)
	}
}

var defaultSubjects = map[Kind]string{
	Interview: "Interview invitation",
	Rejection: "Your application",
}

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

type Draft struct {
	Kind    Kind   `json:"kind"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	// Source is "remote" or "template".
	Source string `json:"source"`
}

// Converser is the part of ai.Client the drafter depends on.
type Converser interface {
	RemoteCapable() bool
	Converse(ctx context.Context, messages ...ai.Message) (string, error)
}

type Drafter struct {
	client Converser
	logger *zap.Logger
}

func NewDrafter(client Converser, log *zap.Logger) *Drafter {
	return &Drafter{client: client, logger: logger.OrNop(log)}
}

// Draft writes an email to the candidate. role is an optional job title or
// job description used for context. The built-in template is used whenever
// the remote service is unavailable or its reply is unusable.
func (d *Drafter) Draft(ctx context.Context, kind Kind, name, role string) (Draft, error) {
	kind, err := ParseKind(string(kind))
	if err != nil {
		return Draft{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return Draft{}, ErrMissingName
	}
	role = strings.TrimSpace(role)

	log := d.logger.With(zap.String("kind", string(kind)))

	if d.client == nil || !d.client.RemoteCapable() {
		return fromTemplate(kind, name, role)
	}

	raw, err := d.client.Converse(ctx, ai.System(systemPrompt), ai.User(userPrompt(kind, name, role)))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Draft{}, ctxErr
		}
		log.Warn("drafting email failed, using template", zap.Error(err))
		return fromTemplate(kind, name, role)
	}

	r := reply.Parse(raw)
	switch r.Kind {
	case reply.Structured:
		body := r.String("body")
		if body == "" {
			log.Warn("remote email reply has no body, using template")
			return fromTemplate(kind, name, role)
		}
		subject := r.String("subject")
		if subject == "" {
			subject = defaultSubjects[kind]
		}
		return Draft{Kind: kind, Subject: subject, Body: body, Source: "remote"}, nil
	case reply.PlainText:
		return Draft{Kind: kind, Subject: defaultSubjects[kind], Body: r.Text, Source: "remote"}, nil
	default:
		log.Warn("malformed remote email reply, using template")
		return fromTemplate(kind, name, role)
	}
}

const systemPrompt = `You write short, warm and professional recruiting emails. Answer with a JSON object {"subject": string, "body": string} and nothing else.`

func userPrompt(kind Kind, name, role string) string {
	var b strings.Builder
	switch kind {
	case Interview:
		fmt.Fprintf(&b, "Write an interview invitation to %s.", name)
	default:
		fmt.Fprintf(&b, "Write a polite rejection email to %s.", name)
	}
	if role != "" {
		fmt.Fprintf(&b, "\n\nJob context:\n%s", role)
	}
	return b.String()
}

func fromTemplate(kind Kind, name, role string) (Draft, error) {
	// Only short single-line roles are inlined.
	if strings.ContainsAny(role, "\n") || len([]rune(role)) > 80 {
		role = ""
	}

	var buf bytes.Buffer
	data := struct{ Name, Role string }{Name: name, Role: role}
	if err := templates.ExecuteTemplate(&buf, string(kind)+".tmpl", data); err != nil {
		return Draft{}, fmt.Errorf("render %s template: %w", kind, err)
	}

	return Draft{
		Kind:    kind,
		Subject: defaultSubjects[kind],
		Body:    strings.TrimSpace(buf.String()),
		Source:  "template",
	}, nil
}
