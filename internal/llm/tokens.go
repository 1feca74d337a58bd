package llm

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

func encoding() *tiktoken.Tiktoken {
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			zap.L().Debug("llm: tiktoken unavailable, estimating tokens", zap.Error(err))
			return
		}
		enc = e
	})
	return enc
}

// CountTokens returns the cl100k_base token count of text. When the
// encoding cannot be loaded it falls back to a character and word estimate.
func CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if e := encoding(); e != nil {
		return len(e.Encode(text, nil, nil))
	}
	return estimateTokens(text)
}

// estimateTokens averages a 4-characters-per-token estimate with a
// 1.3-tokens-per-word one.
func estimateTokens(text string) int {
	chars := len(text)
	words := len(strings.Fields(text))
	if words == 0 {
		return chars / 4
	}
	return (chars/4 + int(float64(words)*1.3)) / 2
}
