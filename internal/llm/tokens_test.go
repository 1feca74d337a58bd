package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountTokens(t *testing.T) {
	assert.Equal(t, 0, CountTokens(""))

	short := CountTokens("hello world")
	long := CountTokens(strings.Repeat("hello world ", 100))
	assert.Greater(t, short, 0)
	assert.Greater(t, long, short)
}

func TestEstimateTokens(t *testing.T) {
	twoWords := 2
	tests := []struct {
		name string
		text string
		want int
	}{
		{"no words", "    ", 1},
		{"two words", "hello world", (11/4 + int(float64(twoWords)*1.3)) / 2},
		{"empty", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, estimateTokens(tt.text))
		})
	}
}
