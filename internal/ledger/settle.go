package ledger

import (
	"fmt"

	"deepfund/internal/types"

	"github.com/shopspring/decimal"
)

// InvariantViolation 表示结算后出现负现金或负持仓，属于致命错误。
type InvariantViolation struct {
	Ticker string
	Reason string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("ledger invariant violation on %s: %s", e.Ticker, e.Reason)
}

// Settle applies d to p and returns a new portfolio; p is not modified.
// The position value for d.Ticker is recomputed at d.Price.
func Settle(p types.Portfolio, d types.Decision) (types.Portfolio, error) {
	next := p.Clone()
	pos := next.Positions[d.Ticker]
	if d.Shares < 0 {
		return p, &InvariantViolation{Ticker: d.Ticker, Reason: fmt.Sprintf("negative share count %d", d.Shares)}
	}
	if d.Action != types.ActionHold && d.Shares > 0 && !d.Price.IsPositive() {
		return p, &InvariantViolation{Ticker: d.Ticker, Reason: fmt.Sprintf("%s at non-positive price %s", d.Action, d.Price)}
	}
	notional := d.Notional()
	switch d.Action {
	case types.ActionBuy:
		pos.Shares += d.Shares
		next.Cashflow = next.Cashflow.Sub(notional)
	case types.ActionSell:
		pos.Shares -= d.Shares
		next.Cashflow = next.Cashflow.Add(notional)
	case types.ActionHold:
	default:
		return p, &InvariantViolation{Ticker: d.Ticker, Reason: fmt.Sprintf("unknown action %q", d.Action)}
	}
	if pos.Shares < 0 {
		return p, &InvariantViolation{Ticker: d.Ticker, Reason: fmt.Sprintf("shares would become %d", pos.Shares)}
	}
	if next.Cashflow.IsNegative() {
		return p, &InvariantViolation{Ticker: d.Ticker, Reason: fmt.Sprintf("cashflow would become %s", next.Cashflow)}
	}
	if d.Price.IsPositive() {
		pos.Value = d.Price.Mul(decimal.NewFromInt(pos.Shares))
	}
	if _, held := p.Positions[d.Ticker]; held || pos.Shares > 0 {
		next.Positions[d.Ticker] = pos
	}
	return next, nil
}
