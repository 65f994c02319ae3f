package llm

import "strings"

// Price is USD per million tokens.
type Price struct {
	Input  float64
	Output float64
}

// Cost is the USD cost of the given token counts.
func (p Price) Cost(input, output int) float64 {
	return (float64(input)*p.Input + float64(output)*p.Output) / 1e6
}

// prices is keyed by model ID prefix. Dated snapshots such as
// "claude-haiku-4-5-20251001" resolve through their family prefix.
var prices = map[string]Price{
	"claude-haiku-4-5":  {1, 5},
	"claude-sonnet-4":   {3, 15},
	"claude-opus-4-5":   {5, 25},
	"claude-opus-4":     {15, 75},
	"claude-3-5-haiku":  {0.8, 4},
	"gpt-4o-mini":       {0.15, 0.6},
	"gpt-4o":            {2.5, 10},
	"gpt-4.1-nano":      {0.1, 0.4},
	"gpt-4.1-mini":      {0.4, 1.6},
	"gpt-4.1":           {2, 8},
	"gpt-5-nano":        {0.05, 0.4},
	"gpt-5-mini":        {0.25, 2},
	"gpt-5":             {1.25, 10},
	"o4-mini":           {1.1, 4.4},
	"gemini-2.0-flash":  {0.1, 0.4},
	"gemini-2.5-flash":  {0.3, 2.5},
	"gemini-2.5-pro":    {1.25, 10},
	"gemini-flash-lite": {0.1, 0.4},
}

// PriceOf returns the price for model using the longest matching prefix.
// OpenRouter IDs are matched on the part after the vendor slash.
func PriceOf(model string) (Price, bool) {
	if i := strings.LastIndexByte(model, '/'); i >= 0 {
		model = model[i+1:]
	}
	best, found := "", false
	for prefix := range prices {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best, found = prefix, true
		}
	}
	return prices[best], found
}
