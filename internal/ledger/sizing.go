package ledger

import (
	"math"

	"deepfund/internal/types"

	"github.com/shopspring/decimal"
)

// MaxRatio caps one ticker at roughly its own base allocation plus one other's,
// rounded to 0.05.
func MaxRatio(tickerCount int) float64 {
	if tickerCount <= 1 {
		return 1
	}
	return math.Round(2/float64(tickerCount)*20) / 20
}

// ClampRatio bounds an oracle-proposed ratio to [0, MaxRatio(tickerCount)].
func ClampRatio(ratio float64, tickerCount int) float64 {
	if math.IsNaN(ratio) || ratio < 0 {
		return 0
	}
	if max := MaxRatio(tickerCount); ratio > max {
		return max
	}
	return ratio
}

// Size returns the shares currently held for ticker and the advisory number of
// shares that may be traded: positive to buy, negative to sell.
// Cash is applied first (a buy never exceeds available cash), then the ratio limit.
func Size(p types.Portfolio, ticker string, price decimal.Decimal, ratio float64) (current, tradable int64) {
	current = p.Position(ticker).Shares
	if !price.IsPositive() {
		return current, 0
	}
	limit := p.TotalValue().Mul(decimal.NewFromFloat(ratio))
	gap := limit.Sub(price.Mul(decimal.NewFromInt(current)))
	if gap.IsPositive() {
		budget := decimal.Min(gap, p.Cashflow)
		if !budget.IsPositive() {
			return current, 0
		}
		return current, budget.Div(price).Floor().IntPart()
	}
	tradable = gap.Div(price).Floor().IntPart()
	if tradable < -current {
		tradable = -current
	}
	return current, tradable
}

// Clamp enforces the post-hoc share limits on an oracle decision:
// Buy is capped at tradable, Sell at current. A trade clamped to zero becomes Hold.
func Clamp(d types.Decision, current, tradable int64) types.Decision {
	if d.Shares < 0 {
		d.Shares = 0
	}
	switch d.Action {
	case types.ActionBuy:
		if tradable < 0 {
			tradable = 0
		}
		if d.Shares > tradable {
			d.Shares = tradable
		}
	case types.ActionSell:
		if d.Shares > current {
			d.Shares = current
		}
	default:
		d.Action = types.ActionHold
		d.Shares = 0
	}
	if d.Action != types.ActionHold && d.Shares == 0 {
		d.Action = types.ActionHold
	}
	return d
}
