package ai

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strings"
	"unicode/utf8"
)

const (
	// LocalEmbeddingSize is the length of every locally generated vector.
	LocalEmbeddingSize = 512

	localEchoLimit = 500
	localTag       = "[local-fallback]"
)

// LocalConverse answers a conversation without any I/O. The output depends
// only on the input turns.
func LocalConverse(messages ...Message) string {
	joined := joinTurns(messages)

	echo := strings.TrimSpace(joined)
	if utf8.RuneCountInString(echo) > localEchoLimit {
		echo = string([]rune(echo)[:localEchoLimit])
	}

	return fmt.Sprintf("%s received %d chars; echo: %s", localTag, utf8.RuneCountInString(joined), echo)
}

// IsLocal reports whether text was produced by LocalConverse.
func IsLocal(text string) bool {
	return strings.HasPrefix(text, localTag)
}

// LocalEmbed derives a pseudo-vector from text. It carries no semantic
// meaning; identical input always yields a bit-identical vector.
func LocalEmbed(text string) []float32 {
	if text == "" {
		return []float32{}
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	vec := make([]float32, LocalEmbeddingSize)
	for i := range vec {
		vec[i] = float32(r.Float64()*2 - 1)
	}
	return vec
}
