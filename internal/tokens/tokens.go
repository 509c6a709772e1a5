// Package tokens estimates token counts for prompt and answer text so the
// metrics and audit trail can report invocation size. Counting is
// best-effort: when the cl100k_base encoding cannot be loaded the package
// falls back to a character heuristic rather than failing the caller.
package tokens

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

func loadEncoding() *tiktoken.Tiktoken {
	encodingOnce.Do(func() {
		if enc, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
			encoding = enc
		}
	})
	return encoding
}

// Count returns the token count of text under cl100k_base, or a heuristic
// estimate when the encoding is unavailable.
func Count(text string) int {
	if enc := loadEncoding(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return Estimate(text)
}

// Estimate returns max(runes/4, words), a cheap approximation good enough
// for log lines and gauges over large text.
func Estimate(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	byRunes := len([]rune(trimmed)) / 4
	byWords := len(strings.Fields(trimmed))
	if byWords > byRunes {
		return byWords
	}
	return byRunes
}
