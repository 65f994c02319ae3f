package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriceOf(t *testing.T) {
	tests := []struct {
		model string
		want  Price
		ok    bool
	}{
		{"claude-haiku-4-5-20251001", Price{1, 5}, true},
		{"gpt-4o-mini-2024-07-18", Price{0.15, 0.6}, true},
		{"gpt-4o-2024-11-20", Price{2.5, 10}, true},
		{"gpt-4.1-mini", Price{0.4, 1.6}, true},
		{"google/gemini-2.0-flash-exp", Price{0.1, 0.4}, true},
		{"mock", Price{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			got, ok := PriceOf(tt.model)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPriceCost(t *testing.T) {
	assert.InDelta(t, 0.0035, Price{Input: 1, Output: 5}.Cost(1000, 500), 1e-9)
}
