package provider

import "strings"

// modelPrice is USD per one million tokens.
type modelPrice struct {
	inputPerM  float64
	outputPerM float64
}

// priceTable holds published list prices for the models the harness is
// usually pointed at. Matching is by prefix so dated snapshots resolve to
// their family. Unknown models cost zero; the budget gate then relies on the
// configured per-game estimate.
var priceTable = map[string]modelPrice{
	"gpt-4o":           {2.50, 10.00},
	"gpt-4o-mini":      {0.15, 0.60},
	"gpt-4.1":          {2.00, 8.00},
	"gpt-4.1-mini":     {0.40, 1.60},
	"o3-mini":          {1.10, 4.40},
	"gemini-2.0-flash": {0.10, 0.40},
	"gemini-2.5-flash": {0.30, 2.50},
	"gemini-2.5-pro":   {1.25, 10.00},
}

// EstimateCost prices one completion call. Longest-prefix match wins so
// "gpt-4o-mini" is not priced as "gpt-4o".
func EstimateCost(model string, promptTokens, completionTokens int) float64 {
	var best string
	for name := range priceTable {
		if strings.HasPrefix(model, name) && len(name) > len(best) {
			best = name
		}
	}
	if best == "" {
		return 0
	}
	p := priceTable[best]
	return float64(promptTokens)/1e6*p.inputPerM + float64(completionTokens)/1e6*p.outputPerM
}
