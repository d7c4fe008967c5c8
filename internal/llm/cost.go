package llm

import "strings"

// Usage carries the provider's token counters. Any field may be zero
// when the provider omits accounting; that is valid, not an error.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Cost is the best-effort USD estimate derived from Usage and the
// per-model price table.
type Cost struct {
	InputUsd  float64 `json:"input_cost_usd"`
	OutputUsd float64 `json:"output_cost_usd"`
	TotalUsd  float64 `json:"cost_usd"`
}

type modelPrice struct {
	inputPer1M  float64
	outputPer1M float64
}

// Prices in USD per million tokens. Unknown models fall back to the
// default row so accounting stays best-effort rather than failing.
var priceTable = map[string]modelPrice{
	"gpt-4o":                 {2.50, 10.00},
	"gpt-4o-mini":            {0.15, 0.60},
	"gpt-4.1":                {2.00, 8.00},
	"gpt-4.1-mini":           {0.40, 1.60},
	"text-embedding-3-small": {0.02, 0},
	"text-embedding-3-large": {0.13, 0},
}

var defaultPrice = modelPrice{1.00, 3.00}

func costFor(model string, usage *Usage) *Cost {
	if usage == nil {
		return nil
	}
	price, ok := priceTable[strings.ToLower(strings.TrimSpace(model))]
	if !ok {
		price = defaultPrice
	}
	in := float64(usage.PromptTokens) / 1e6 * price.inputPer1M
	out := float64(usage.CompletionTokens) / 1e6 * price.outputPer1M
	return &Cost{InputUsd: in, OutputUsd: out, TotalUsd: in + out}
}
