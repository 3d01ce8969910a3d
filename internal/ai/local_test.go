package ai

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalConverseIsDeterministic(t *testing.T) {
	msgs := []Message{System("You are a recruiter."), User("Summarize: Go, Kubernetes")}

	first := LocalConverse(msgs...)
	second := LocalConverse(msgs...)

	assert.Equal(t, first, second)
	assert.True(t, IsLocal(first))
	assert.Equal(t, "[local-fallback] received 48 chars; echo: You are a recruiter. \n Summarize: Go, Kubernetes", first)
}

func TestLocalConverseBoundsEcho(t *testing.T) {
	long := strings.Repeat("é", 800)

	out := LocalConverse(User(long))
	assert.Equal(t, fmt.Sprintf("[local-fallback] received 800 chars; echo: %s", strings.Repeat("é", 500)), out)
}

func TestLocalEmbedIsPure(t *testing.T) {
	a := LocalEmbed("Senior Go engineer")
	b := LocalEmbed("Senior Go engineer")

	require.Len(t, a, LocalEmbeddingSize)
	assert.Equal(t, a, b)

	for _, v := range a {
		assert.GreaterOrEqual(t, v, float32(-1))
		assert.LessOrEqual(t, v, float32(1))
	}
}

func TestLocalEmbedKnownVector(t *testing.T) {
	vec := LocalEmbed("Senior Go engineer")

	want := []float32{0.19158759713172913, 0.5076577663421631, 0.7705678939819336, 0.8818123936653137}
	for i, w := range want {
		assert.InDelta(t, w, vec[i], 1e-6, "component %d", i)
	}
}

func TestLocalEmbedEmptyText(t *testing.T) {
	assert.Empty(t, LocalEmbed(""))
}

func TestLocalEmbedDistinctInputsDoNotCollide(t *testing.T) {
	seen := make(map[[8]float32]string, 1000)

	for i := 0; i < 1000; i++ {
		text := fmt.Sprintf("resume-%d", i)
		vec := LocalEmbed(text)

		var key [8]float32
		copy(key[:], vec[:8])

		prev, dup := seen[key]
		require.False(t, dup, "%q collides with %q", text, prev)
		seen[key] = text
	}
}
