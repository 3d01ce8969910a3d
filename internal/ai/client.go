package ai

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/utils"
)

const (
	defaultMaxLogLength = 200
	maxJitter           = 100 * time.Millisecond
)

// Config holds the retry and timeout policy of a Client.
type Config struct {
	// Timeout bounds every single attempt. Zero disables the bound.
	Timeout time.Duration
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BaseDelay is the backoff before the first retry; it doubles each time.
	BaseDelay time.Duration
	// RequestsPerSecond throttles attempts when positive.
	RequestsPerSecond float64
	// EmbeddingDimensions is passed to the backend on Embed.
	EmbeddingDimensions int
	MaxLogLength        int
}

// Client wraps an optional Backend with retries, timeouts and local stand-ins.
type Client struct {
	cfg     Config
	backend Backend
	limiter *rate.Limiter
	logger  *zap.Logger

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
}

type Option func(*Client)

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.logger = logger.OrNop(log) }
}

// WithSleep replaces the backoff wait, mostly for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

// WithJitter replaces the random component added to every backoff delay.
func WithJitter(jitter func() time.Duration) Option {
	return func(c *Client) { c.jitter = jitter }
}

// NewClient builds a client. A nil backend makes the client local-only.
func NewClient(cfg Config, backend Backend, opts ...Option) *Client {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.MaxLogLength <= 0 {
		cfg.MaxLogLength = defaultMaxLogLength
	}

	c := &Client{
		cfg:     cfg,
		backend: backend,
		logger:  zap.NewNop(),
		sleep:   utils.WaitFor,
		jitter:  func() time.Duration { return rand.N(maxJitter + 1) },
	}

	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	for _, opt := range opts {
		opt(c)
	}

	if backend != nil {
		c.logger = logger.WithCommonFields(c.logger, backend.Provider(), backend.Model())
	}

	return c
}

// RemoteCapable reports whether calls reach the remote backend.
func (c *Client) RemoteCapable() bool {
	return c != nil && c.backend != nil
}

// Model returns the backend model or "local".
func (c *Client) Model() string {
	if !c.RemoteCapable() {
		return "local"
	}
	return c.backend.Model()
}

// Prompt is Converse with a single user turn.
func (c *Client) Prompt(ctx context.Context, prompt string) (string, error) {
	return c.Converse(ctx, User(prompt))
}

// Converse sends the conversation and returns the reply text.
func (c *Client) Converse(ctx context.Context, messages ...Message) (string, error) {
	if !c.RemoteCapable() {
		return LocalConverse(messages...), nil
	}

	c.logger.Debug("remote converse request",
		zap.Int("turns", len(messages)),
		zap.String("prompt_preview", utils.TruncateForLog(joinTurns(messages), c.cfg.MaxLogLength)),
	)

	var reply string
	err := c.call(ctx, "converse", func(ctx context.Context) error {
		out, err := c.backend.Generate(ctx, messages)
		if err != nil {
			return err
		}
		reply = out
		return nil
	})
	if err != nil {
		return "", err
	}

	c.logger.Debug("remote converse response",
		zap.Int("response_length", utf8.RuneCountInString(reply)),
		zap.String("response_preview", utils.TruncateForLog(reply, c.cfg.MaxLogLength)),
	)

	return reply, nil
}

// Embed returns an embedding vector for text. Empty text yields an empty
// vector without calling the backend.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return []float32{}, nil
	}

	if !c.RemoteCapable() {
		return LocalEmbed(text), nil
	}

	var vec []float32
	err := c.call(ctx, "embed", func(ctx context.Context) error {
		out, err := c.backend.Embed(ctx, text, c.cfg.EmbeddingDimensions)
		if err != nil {
			return err
		}
		vec = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	return vec, nil
}

// call runs fn until it succeeds, fails permanently, or the retries run out.
// Cancellation of ctx is returned as is and never retried.
func (c *Client) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := c.cfg.MaxRetries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				return fmt.Errorf("%s: rate limiter: %w", op, err)
			}
		}

		timedOut, err := c.attempt(ctx, fn)
		if err == nil {
			return nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if timedOut {
			err = fmt.Errorf("attempt timed out after %s: %w", c.cfg.Timeout, err)
		}

		if !timedOut && !IsTransient(err) {
			c.logger.Warn("remote call rejected",
				zap.String("operation", op),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return &CallError{Kind: ErrRemoteRejected, Attempts: attempt, Err: err}
		}

		lastErr = err
		if attempt == attempts {
			break
		}

		delay := c.backoff(attempt)
		c.logger.Warn("transient remote failure, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
	}

	c.logger.Warn("remote retries exhausted",
		zap.String("operation", op),
		zap.Int("attempts", attempts),
		zap.Error(lastErr),
	)

	return &CallError{Kind: ErrRemoteExhausted, Attempts: attempts, Err: lastErr}
}

func (c *Client) attempt(ctx context.Context, fn func(ctx context.Context) error) (bool, error) {
	if c.cfg.Timeout <= 0 {
		return false, fn(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	err := fn(attemptCtx)
	if err != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return true, err
	}
	return false, err
}

// backoff returns BaseDelay × 2^(attempt-1) plus jitter.
func (c *Client) backoff(attempt int) time.Duration {
	return c.cfg.BaseDelay*time.Duration(1<<(attempt-1)) + c.jitter()
}
