package usage

import "github.com/shopspring/decimal"

// Estimates only; never reconciled against vendor invoices.
var (
	geminiPerToken = decimal.RequireFromString("0.0000005") // $0.0005 per 1k tokens
	searchPerCall  = decimal.RequireFromString("0.005")     // $5 per 1k queries
)

const searchFreePerDay = 100

// GeminiCost estimates the cost of tokens Gemini tokens.
func GeminiCost(tokens int64) decimal.Decimal {
	if tokens <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(tokens).Mul(geminiPerToken)
}

// SearchCost estimates the cost of calls searches made in one day. The first
// 100 calls of a day are free.
func SearchCost(calls int64) decimal.Decimal {
	if calls <= searchFreePerDay {
		return decimal.Zero
	}
	return decimal.NewFromInt(calls - searchFreePerDay).Mul(searchPerCall)
}
