package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeAction(t *testing.T) {
	cases := map[string]Action{
		"Buy":        ActionBuy,
		" open_long": ActionBuy,
		"SELL":       ActionSell,
		"reduce":     ActionSell,
		"hold":       ActionHold,
	}
	for in, want := range cases {
		got, ok := NormalizeAction(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	got, ok := NormalizeAction("yolo")
	assert.False(t, ok)
	assert.Equal(t, ActionHold, got)
}

func TestParsePolarity(t *testing.T) {
	p, ok := ParsePolarity("bullish")
	assert.True(t, ok)
	assert.Equal(t, Bullish, p)

	p, ok = ParsePolarity("sideways")
	assert.False(t, ok)
	assert.Equal(t, Neutral, p)
}

func TestPortfolioTotalValueAndClone(t *testing.T) {
	p := Portfolio{
		Cashflow: decimal.NewFromInt(4000),
		Positions: map[string]Position{
			"ABC": {Shares: 60, Value: decimal.NewFromInt(6000)},
			"XYZ": {Shares: 10, Value: decimal.NewFromInt(500)},
		},
	}
	assert.True(t, decimal.NewFromInt(10500).Equal(p.TotalValue()))
	assert.Equal(t, []string{"ABC", "XYZ"}, p.Tickers())

	c := p.Clone()
	c.Positions["ABC"] = Position{}
	assert.Equal(t, int64(60), p.Position("ABC").Shares)
	assert.Equal(t, int64(0), p.Position("NOPE").Shares)
}
