// Package matching scores résumés against a job description.
package matching

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/config"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/reply"
	"github.com/spigell/resume-matcher/internal/utils"
)

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200

	systemPrompt = "You score candidate résumés against job descriptions and answer with strict JSON."
)

// Converser is the part of ai.Client the engine depends on.
type Converser interface {
	RemoteCapable() bool
	Converse(ctx context.Context, messages ...ai.Message) (string, error)
}

// Engine produces a Result for a résumé/job description pair.
type Engine struct {
	client    Converser
	strategy  string
	logger    *zap.Logger
	maxLogLen int
}

// NewEngine builds an engine. strategy is one of config.StrategyAuto,
// config.StrategyLexical or config.StrategyRemote; empty means auto.
func NewEngine(client Converser, strategy string, log *zap.Logger, maxLogLength int) (*Engine, error) {
	strategy = strings.ToLower(strings.TrimSpace(strategy))
	switch strategy {
	case "":
		strategy = config.StrategyAuto
	case config.StrategyAuto, config.StrategyLexical, config.StrategyRemote:
	default:
		return nil, fmt.Errorf("unknown scoring strategy %q", strategy)
	}

	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Engine{
		client:    client,
		strategy:  strategy,
		logger:    logger.OrNop(log),
		maxLogLen: maxLogLength,
	}, nil
}

// Score never fails for well-formed input: remote failures fall back to the
// lexical method. The error is only set when ctx is cancelled.
func (e *Engine) Score(ctx context.Context, resumeText, jdText string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if !e.useRemote() {
		return lexicalResult(resumeText, jdText, MethodLexical, ""), nil
	}

	if strings.TrimSpace(resumeText) == "" {
		return lexicalResult(resumeText, jdText, MethodLexicalFallback, "résumé text is empty; remote scoring skipped"), nil
	}

	if e.client == nil || !e.client.RemoteCapable() {
		return lexicalResult(resumeText, jdText, MethodLexicalFallback, "remote service is not configured"), nil
	}

	prompt := buildPrompt(resumeText, jdText)

	e.logger.Debug("remote scoring request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, e.maxLogLen)),
	)

	raw, err := e.client.Converse(ctx, ai.System(systemPrompt), ai.User(prompt))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		e.logger.Warn("remote scoring failed, using lexical fallback", zap.Error(err))
		return lexicalResult(resumeText, jdText, MethodLexicalFallback, fmt.Sprintf("remote scoring failed: %v", err)), nil
	}

	e.logger.Debug("remote scoring response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	detail, err := reply.ParseMatchDetail(raw)
	if err != nil {
		e.logger.Warn("malformed remote scoring reply, using lexical fallback",
			zap.Error(err),
			zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
		)
		return lexicalResult(resumeText, jdText, MethodLexicalFallback, fmt.Sprintf("remote reply unusable: %v", err)), nil
	}

	return Result{
		Score: float64(detail.Score),
		Detail: Detail{
			Method:        MethodRemote,
			MissingSkills: detail.MissingSkills,
			Remarks:       detail.Remarks,
		},
	}, nil
}

func (e *Engine) useRemote() bool {
	switch e.strategy {
	case config.StrategyLexical:
		return false
	case config.StrategyRemote:
		return true
	default:
		return e.client != nil && e.client.RemoteCapable()
	}
}

func lexicalResult(resumeText, jdText, method, remarks string) Result {
	similarity, terms := Lexical(resumeText, jdText)

	return Result{
		Score: toPercent(similarity),
		Detail: Detail{
			Method:          method,
			TopOverlapTerms: terms,
			Remarks:         remarks,
		},
	}
}

func buildPrompt(resumeText, jdText string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Job description:\n{{JOB_DESCRIPTION}}\n\nRésumé:\n{{RESUME_TEXT}}\n\nJSON Response:"
	}
	prompt := strings.ReplaceAll(template, "{{JOB_DESCRIPTION}}", strings.TrimSpace(jdText))
	prompt = strings.ReplaceAll(prompt, "{{RESUME_TEXT}}", strings.TrimSpace(resumeText))
	return prompt
}
