package ledger

import (
	"math/rand"
	"testing"

	"deepfund/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettleBuyEndToEndNumbers(t *testing.T) {
	p := types.Portfolio{Cashflow: dec(10000), Positions: map[string]types.Position{}}
	_, tradable := Size(p, "ABC", dec(100), MaxRatio(1))
	require.Equal(t, int64(100), tradable)

	d := Clamp(types.Decision{Ticker: "ABC", Action: types.ActionBuy, Shares: 60, Price: dec(100)}, 0, tradable)
	next, err := Settle(p, d)
	require.NoError(t, err)

	assert.Equal(t, int64(60), next.Position("ABC").Shares)
	assert.True(t, dec(4000).Equal(next.Cashflow), next.Cashflow.String())
	assert.True(t, dec(6000).Equal(next.Position("ABC").Value))
	assert.True(t, p.TotalValue().Equal(next.TotalValue()))
	assert.Empty(t, p.Positions, "input portfolio must not be mutated")
}

func TestSettleSellAndHold(t *testing.T) {
	p := types.Portfolio{
		Cashflow:  dec(100),
		Positions: map[string]types.Position{"ABC": {Shares: 10, Value: dec(500)}},
	}
	next, err := Settle(p, types.Decision{Ticker: "ABC", Action: types.ActionSell, Shares: 4, Price: dec(60)})
	require.NoError(t, err)
	assert.Equal(t, int64(6), next.Position("ABC").Shares)
	assert.True(t, dec(340).Equal(next.Cashflow))
	assert.True(t, dec(360).Equal(next.Position("ABC").Value))

	held, err := Settle(next, types.HoldDecision("ABC", dec(70), "wait"))
	require.NoError(t, err)
	assert.True(t, dec(420).Equal(held.Position("ABC").Value), "hold refreshes value at latest price")
	assert.True(t, next.Cashflow.Equal(held.Cashflow))

	fresh, err := Settle(next, types.HoldDecision("NEW", dec(10), "wait"))
	require.NoError(t, err)
	_, ok := fresh.Positions["NEW"]
	assert.False(t, ok)
}

func TestSettleRejectsInvariantBreaks(t *testing.T) {
	p := types.Portfolio{
		Cashflow:  dec(100),
		Positions: map[string]types.Position{"ABC": {Shares: 1, Value: dec(10)}},
	}
	cases := []types.Decision{
		{Ticker: "ABC", Action: types.ActionBuy, Shares: 11, Price: dec(10)},
		{Ticker: "ABC", Action: types.ActionSell, Shares: 2, Price: dec(10)},
		{Ticker: "ABC", Action: types.ActionBuy, Shares: 1, Price: decimal.Zero},
		{Ticker: "ABC", Action: types.Action("Short"), Shares: 1, Price: dec(10)},
	}
	for _, d := range cases {
		_, err := Settle(p, d)
		var iv *InvariantViolation
		require.ErrorAs(t, err, &iv, "%+v", d)
		assert.Equal(t, "ABC", iv.Ticker)
	}
}

func TestClampedSettlementsKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tickers := []string{"AAA", "BBB", "CCC"}
	p := types.Portfolio{Cashflow: dec(50000), Positions: map[string]types.Position{}}
	actions := []types.Action{types.ActionBuy, types.ActionSell, types.ActionHold}

	for step := 0; step < 500; step++ {
		ticker := tickers[rng.Intn(len(tickers))]
		price := decimal.NewFromFloat(1 + rng.Float64()*200).Round(2)
		ratio := ClampRatio(rng.Float64()*1.5-0.2, len(tickers))
		current, tradable := Size(p, ticker, price, ratio)
		proposed := types.Decision{
			Ticker: ticker,
			Action: actions[rng.Intn(len(actions))],
			Shares: int64(rng.Intn(2000)) - 100,
			Price:  price,
		}
		d := Clamp(proposed, current, tradable)
		if d.Action == types.ActionBuy {
			assert.LessOrEqual(t, d.Shares, tradable)
		}
		before := p.TotalValue()
		next, err := Settle(p, d)
		require.NoError(t, err, "step %d: %+v", step, d)
		for tk, pos := range next.Positions {
			assert.GreaterOrEqual(t, pos.Shares, int64(0), tk)
		}
		assert.False(t, next.Cashflow.IsNegative(), "step %d", step)
		if d.Action == types.ActionBuy && p.Position(ticker).Value.Equal(price.Mul(decimal.NewFromInt(current))) {
			assert.True(t, before.Sub(next.TotalValue()).Abs().LessThan(decimal.NewFromFloat(0.01)), "step %d", step)
		}
		p = next
	}
}
