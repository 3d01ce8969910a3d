package matching

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/reply"
)

var ErrEmptyJobDescription = errors.New("job description text is empty")

const summarySystemPrompt = "You are a recruiting assistant. Summarize job descriptions in three to five short bullet points covering role, seniority, must-have skills and location. Answer with plain text."

// JobDescription is created once per session and passed explicitly to the
// scoring calls. It is never modified after creation.
type JobDescription struct {
	Text    string `json:"text"`
	Summary string `json:"summary"`
}

type Summarizer struct {
	client Converser
	logger *zap.Logger
}

func NewSummarizer(client Converser, log *zap.Logger) *Summarizer {
	return &Summarizer{client: client, logger: logger.OrNop(log)}
}

// Summarize builds a JobDescription. Remote failures and unusable replies
// produce the local fallback summary instead of an error.
func (s *Summarizer) Summarize(ctx context.Context, text string) (JobDescription, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return JobDescription{}, ErrEmptyJobDescription
	}

	messages := []ai.Message{ai.System(summarySystemPrompt), ai.User(text)}
	jd := JobDescription{Text: text}

	if s.client == nil {
		jd.Summary = ai.LocalConverse(messages...)
		return jd, nil
	}

	raw, err := s.client.Converse(ctx, messages...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return JobDescription{}, ctxErr
		}
		s.logger.Warn("summarizing job description failed, using local fallback", zap.Error(err))
		jd.Summary = ai.LocalConverse(messages...)
		return jd, nil
	}

	r := reply.Parse(raw)
	switch r.Kind {
	case reply.PlainText:
		jd.Summary = r.Text
	case reply.Structured:
		if summary := r.String("summary"); summary != "" {
			jd.Summary = summary
		} else {
			jd.Summary = reply.StripFences(raw)
		}
	default:
		s.logger.Warn("malformed job description summary, using local fallback")
		jd.Summary = ai.LocalConverse(messages...)
	}

	return jd, nil
}
