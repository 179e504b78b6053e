package ledger

import (
	"math"
	"testing"

	"deepfund/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestMaxRatio(t *testing.T) {
	cases := map[int]float64{0: 1, 1: 1, 2: 1, 3: 0.65, 4: 0.5, 5: 0.4, 7: 0.3, 10: 0.2}
	for n, want := range cases {
		assert.InDelta(t, want, MaxRatio(n), 1e-9, "tickers=%d", n)
	}
}

func TestClampRatio(t *testing.T) {
	assert.Equal(t, 0.0, ClampRatio(-0.3, 4))
	assert.Equal(t, 0.5, ClampRatio(0.9, 4))
	assert.Equal(t, 0.3, ClampRatio(0.3, 4))
	assert.Equal(t, 1.0, ClampRatio(1.7, 1))
}

func TestSizeBuySide(t *testing.T) {
	p := types.Portfolio{Cashflow: dec(100000), Positions: map[string]types.Position{}}
	current, tradable := Size(p, "ABC", dec(50), 0.2)
	assert.Equal(t, int64(0), current)
	assert.Equal(t, int64(400), tradable)
}

func TestSizeSellSide(t *testing.T) {
	p := types.Portfolio{
		Cashflow: dec(70000),
		Positions: map[string]types.Position{
			"ABC": {Shares: 300, Value: dec(30000)},
		},
	}
	current, tradable := Size(p, "ABC", dec(100), 0.2)
	assert.Equal(t, int64(300), current)
	assert.Equal(t, int64(-100), tradable)
}

func TestSizeNeverSellsMoreThanHeld(t *testing.T) {
	p := types.Portfolio{
		Cashflow:  dec(0),
		Positions: map[string]types.Position{"ABC": {Shares: 10, Value: dec(1000)}},
	}
	_, tradable := Size(p, "ABC", dec(100), 0)
	assert.Equal(t, int64(-10), tradable)
}

func TestSizeCashCapsBuy(t *testing.T) {
	p := types.Portfolio{
		Cashflow:  dec(1000),
		Positions: map[string]types.Position{"XYZ": {Shares: 90, Value: dec(9000)}},
	}
	_, tradable := Size(p, "ABC", dec(30), 1)
	assert.Equal(t, int64(33), tradable)
}

func TestSizeWithoutPrice(t *testing.T) {
	p := types.Portfolio{Cashflow: dec(1000)}
	current, tradable := Size(p, "ABC", decimal.Zero, 0.5)
	assert.Equal(t, int64(0), current)
	assert.Equal(t, int64(0), tradable)
}

func TestClamp(t *testing.T) {
	buy := types.Decision{Ticker: "ABC", Action: types.ActionBuy, Shares: 500, Price: dec(50)}
	got := Clamp(buy, 0, 400)
	assert.Equal(t, types.ActionBuy, got.Action)
	assert.Equal(t, int64(400), got.Shares)

	got = Clamp(buy, 0, -20)
	assert.Equal(t, types.ActionHold, got.Action)
	assert.Equal(t, int64(0), got.Shares)

	sell := types.Decision{Ticker: "ABC", Action: types.ActionSell, Shares: 500, Price: dec(50)}
	got = Clamp(sell, 120, -100)
	assert.Equal(t, types.ActionSell, got.Action)
	assert.Equal(t, int64(120), got.Shares)

	hold := types.Decision{Ticker: "ABC", Action: types.ActionHold, Shares: 7}
	got = Clamp(hold, 10, 10)
	assert.Equal(t, int64(0), got.Shares)

	neg := types.Decision{Ticker: "ABC", Action: types.ActionBuy, Shares: -5}
	got = Clamp(neg, 0, 10)
	assert.Equal(t, types.ActionHold, got.Action)
	assert.Equal(t, int64(0), got.Shares)
}

func TestClampHugeBuySettlesAtTradable(t *testing.T) {
	got := Clamp(types.Decision{Ticker: "ABC", Action: types.ActionBuy, Shares: math.MaxInt64}, 0, 60)
	assert.Equal(t, types.ActionBuy, got.Action)
	assert.EqualValues(t, 60, got.Shares)
}
