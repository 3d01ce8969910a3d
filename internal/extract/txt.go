package extract

import (
	"context"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const strategyText = "plain"

// textStrategy decodes plain text leniently. A UTF-8 or UTF-16 byte order mark
// selects the encoding; invalid sequences are dropped rather than rejected.
type textStrategy struct {
	Toggle
}

func newTextStrategy() *textStrategy { return &textStrategy{} }

func (s *textStrategy) Name() string { return strategyText }

func (s *textStrategy) Extract(_ context.Context, src *Source) (string, error) {
	return decodeText(src.Content), nil
}

func decodeText(content []byte) string {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())

	decoded, _, err := transform.Bytes(decoder, content)
	if err != nil {
		decoded = content
	}

	return strings.Map(func(r rune) rune {
		if r == utf8.RuneError {
			return -1
		}
		return r
	}, string(decoded))
}
