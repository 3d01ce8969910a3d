package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/config"
)

const (
	jdText     = "Senior Python Backend Engineer, AWS, Docker"
	resumeText = "5 years Python, Docker, Kubernetes"
)

type stubConverser struct {
	capable  bool
	reply    string
	err      error
	calls    int
	messages []ai.Message
	onCall   func()
}

func (s *stubConverser) RemoteCapable() bool { return s.capable }

func (s *stubConverser) Converse(ctx context.Context, messages ...ai.Message) (string, error) {
	s.calls++
	s.messages = messages
	if s.onCall != nil {
		s.onCall()
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.reply, s.err
}

func newTestEngine(t *testing.T, client Converser, strategy string) *Engine {
	t.Helper()
	e, err := NewEngine(client, strategy, nil, 0)
	require.NoError(t, err)
	return e
}

func TestEngineLexicalEndToEnd(t *testing.T) {
	e := newTestEngine(t, ai.NewClient(ai.Config{}, nil), config.StrategyAuto)

	res, err := e.Score(context.Background(), resumeText, jdText)
	require.NoError(t, err)

	assert.Equal(t, MethodLexical, res.Detail.Method)
	assert.Greater(t, res.Score, 0.0)
	assert.LessOrEqual(t, res.Score, 100.0)
	assert.Contains(t, res.Detail.TopOverlapTerms, "python")
	assert.Contains(t, res.Detail.TopOverlapTerms, "docker")
}

func TestEngineRemoteStructured(t *testing.T) {
	client := &stubConverser{
		capable: true,
		reply:   "```json\n{\"score\": 81, \"missing_skills\": [\"AWS\"], \"remarks\": \"Good backend fit\"}\n```",
	}
	e := newTestEngine(t, client, config.StrategyAuto)

	res, err := e.Score(context.Background(), resumeText, jdText)
	require.NoError(t, err)

	assert.Equal(t, Result{
		Score: 81,
		Detail: Detail{
			Method:        MethodRemote,
			MissingSkills: []string{"AWS"},
			Remarks:       "Good backend fit",
		},
	}, res)

	require.Len(t, client.messages, 2)
	assert.Equal(t, ai.RoleSystem, client.messages[0].Role)
	assert.Contains(t, client.messages[1].Content, jdText)
	assert.Contains(t, client.messages[1].Content, resumeText)
}

func TestEngineFallsBackOnMalformedReply(t *testing.T) {
	lexical, _ := Lexical(resumeText, jdText)

	for _, raw := range []string{"not json", "```json\n{score: }\n```", `{"score": "very high"}`, `{"score": 250}`} {
		t.Run(raw, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)
			e, err := NewEngine(&stubConverser{capable: true, reply: raw}, config.StrategyAuto, zap.New(core), 0)
			require.NoError(t, err)

			res, err := e.Score(context.Background(), resumeText, jdText)
			require.NoError(t, err)

			assert.Equal(t, MethodLexicalFallback, res.Detail.Method)
			assert.Equal(t, toPercent(lexical), res.Score)
			assert.Contains(t, res.Detail.TopOverlapTerms, "python")
			assert.NotEmpty(t, res.Detail.Remarks)
			assert.Equal(t, 1, logs.FilterMessage("malformed remote scoring reply, using lexical fallback").Len())
		})
	}
}

func TestEngineFallsBackOnRemoteFailure(t *testing.T) {
	cause := &ai.CallError{Kind: ai.ErrRemoteExhausted, Attempts: 4, Err: errors.New("503")}
	e := newTestEngine(t, &stubConverser{capable: true, err: cause}, config.StrategyRemote)

	res, err := e.Score(context.Background(), resumeText, jdText)
	require.NoError(t, err)
	assert.Equal(t, MethodLexicalFallback, res.Detail.Method)
	assert.Contains(t, res.Detail.Remarks, "remote scoring failed")
	assert.Greater(t, res.Score, 0.0)
}

func TestEngineSkipsRemoteForEmptyResume(t *testing.T) {
	client := &stubConverser{capable: true, reply: `{"score": 90}`}
	e := newTestEngine(t, client, config.StrategyAuto)

	res, err := e.Score(context.Background(), "   ", jdText)
	require.NoError(t, err)
	assert.Zero(t, client.calls)
	assert.Equal(t, 0.0, res.Score)
	assert.Equal(t, MethodLexicalFallback, res.Detail.Method)
	assert.Empty(t, res.Detail.TopOverlapTerms)
}

func TestEngineLexicalStrategyNeverCallsRemote(t *testing.T) {
	client := &stubConverser{capable: true, reply: `{"score": 90}`}
	e := newTestEngine(t, client, config.StrategyLexical)

	res, err := e.Score(context.Background(), resumeText, jdText)
	require.NoError(t, err)
	assert.Zero(t, client.calls)
	assert.Equal(t, MethodLexical, res.Detail.Method)
}

func TestEngineRemoteStrategyWithoutCredential(t *testing.T) {
	client := &stubConverser{capable: false}
	e := newTestEngine(t, client, config.StrategyRemote)

	res, err := e.Score(context.Background(), resumeText, jdText)
	require.NoError(t, err)
	assert.Zero(t, client.calls)
	assert.Equal(t, MethodLexicalFallback, res.Detail.Method)
}

func TestEngineReturnsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &stubConverser{capable: true, onCall: cancel}
	e := newTestEngine(t, client, config.StrategyAuto)

	_, err := e.Score(ctx, resumeText, jdText)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewEngineRejectsUnknownStrategy(t *testing.T) {
	_, err := NewEngine(nil, "semantic", nil, 0)
	require.Error(t, err)
}
