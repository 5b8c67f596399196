// Package utils provides token counting and atomic file helpers.
package utils

import (
	"sync"
	"unicode/utf8"

	"github.com/tiktoken-go/tokenizer"
)

//nolint:gochecknoglobals // Loading the codec is expensive; it is shared process-wide.
var (
	codecOnce sync.Once
	codec     tokenizer.Codec
)

func sharedCodec() tokenizer.Codec {
	codecOnce.Do(func() {
		if c, err := tokenizer.Get(tokenizer.Cl100kBase); err == nil {
			codec = c
		}
	})
	return codec
}

// CountTokens approximates the token count of text with the cl100k encoding.
// Providers tokenize differently; the count feeds metrics and logs only.
// Without a codec it falls back to one token per four characters.
func CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if c := sharedCodec(); c != nil {
		if n, err := c.Count(text); err == nil {
			return n
		}
	}
	return EstimateTokens(text)
}

// EstimateTokens is the character-based estimate, rounded up.
func EstimateTokens(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}
