package types

import "strings"

// Polarity 是分析师给出的方向性观点。
type Polarity string

const (
	Bullish Polarity = "Bullish"
	Bearish Polarity = "Bearish"
	Neutral Polarity = "Neutral"
)

// ParsePolarity 容忍大小写与常见同义词；无法识别时返回 Neutral,false。
func ParsePolarity(raw string) (Polarity, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "bullish", "bull", "positive", "buy":
		return Bullish, true
	case "bearish", "bear", "negative", "sell":
		return Bearish, true
	case "neutral", "hold", "none":
		return Neutral, true
	default:
		return Neutral, false
	}
}

// Signal is one analyst's opinion on one ticker for one pipeline step.
type Signal struct {
	Analyst       string   `json:"analyst"`
	Ticker        string   `json:"ticker"`
	Polarity      Polarity `json:"signal"`
	Justification string   `json:"justification"`
	Prompt        string   `json:"-"`
}
