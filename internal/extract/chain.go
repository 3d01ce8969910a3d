package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Strategy is a single way of turning a materialized document into text.
type Strategy interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Extract(ctx context.Context, src *Source) (string, error)
}

// Status describes a strategy for reporting purposes.
type Status struct {
	Format  string `json:"format"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Reason  string `json:"reason,omitempty"`
}

// Toggle implements the Disable/IsEnabled half of Strategy and can be embedded
// by strategies defined outside this package.
type Toggle struct {
	disabled bool
	reason   string
}

func (t *Toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *Toggle) IsEnabled() bool { return !t.disabled }

// Reason returns why the strategy was disabled.
func (t *Toggle) Reason() string { return t.reason }

// Chain tries its strategies in order and keeps the first non-empty text.
type Chain struct {
	format     string
	strategies []Strategy
}

// NewChain builds a fallback chain for the given format.
func NewChain(format string, strategies ...Strategy) *Chain {
	return &Chain{format: format, strategies: strategies}
}

// Format returns the extension handled by the chain.
func (c *Chain) Format() string { return c.format }

// Run executes the chain. When at least one strategy finished without error
// but none produced text, the result is an empty string. When every enabled
// strategy failed, the error wraps ErrExtractionFailed.
func (c *Chain) Run(ctx context.Context, src *Source, logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		errs      []error
		completed bool
	)

	for _, step := range c.strategies {
		if !step.IsEnabled() {
			logger.Debug("extraction strategy disabled", zap.String("strategy", step.Name()))
			continue
		}

		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := runSafely(ctx, step, src)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			logger.Warn("extraction strategy failed",
				zap.String("strategy", step.Name()),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", step.Name(), err))
			continue
		}

		completed = true
		text = strings.TrimSpace(text)
		if text != "" {
			logger.Debug("extraction strategy produced text",
				zap.String("strategy", step.Name()),
				zap.Int("length", len(text)),
			)
			return text, nil
		}

		logger.Debug("extraction strategy produced no text", zap.String("strategy", step.Name()))
	}

	if completed {
		return "", nil
	}

	if len(errs) == 0 {
		return "", fmt.Errorf("%w: %s: no enabled strategies", ErrExtractionFailed, c.format)
	}

	return "", fmt.Errorf("%w: %s: %w", ErrExtractionFailed, c.format, errors.Join(errs...))
}

// Describe reports the status of every strategy in the chain.
func (c *Chain) Describe() []Status {
	statuses := make([]Status, 0, len(c.strategies))
	for _, step := range c.strategies {
		status := Status{Format: c.format, Name: step.Name(), Enabled: step.IsEnabled()}
		if reporter, ok := step.(interface{ Reason() string }); ok && !status.Enabled {
			status.Reason = reporter.Reason()
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// DisableByName marks the strategy with the provided name as disabled while keeping it in the chain.
func (c *Chain) DisableByName(name, reason string) {
	for _, step := range c.strategies {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// runSafely shields the chain from panics raised inside third-party parsers.
func runSafely(ctx context.Context, step Strategy, src *Source) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return step.Extract(ctx, src)
}
