package agents

import (
	"context"

	"deepfund/internal/ledger"
	"deepfund/internal/logger"
	"deepfund/internal/oracle"
	"deepfund/internal/types"

	"github.com/shopspring/decimal"
)

// RiskController 为单个 ticker 给出最优仓位比例。
type RiskController struct {
	inv *oracle.Invoker
}

func NewRiskController(inv *oracle.Invoker) *RiskController {
	return &RiskController{inv: inv}
}

type RiskInput struct {
	Ticker      string
	Price       decimal.Decimal
	Signals     []types.Signal
	Portfolio   types.Portfolio
	TickerCount int
}

type positionLine struct {
	Ticker string
	Shares int64
	Value  decimal.Decimal
}

// Assess returns a ratio clamped to [0, ledger.MaxRatio(TickerCount)]. A
// failed oracle call yields ratio 0 with Fallback set.
func (r *RiskController) Assess(ctx context.Context, in RiskInput) types.RiskAssessment {
	logger.Agentf(KeyRisk, in.Ticker, "risk control")
	maxRatio := ledger.MaxRatio(in.TickerCount)
	positions := make([]positionLine, 0, len(in.Portfolio.Positions))
	for _, t := range in.Portfolio.Tickers() {
		pos := in.Portfolio.Positions[t]
		positions = append(positions, positionLine{Ticker: t, Shares: pos.Shares, Value: pos.Value})
	}
	user := render(riskTemplate, struct {
		Ticker     string
		Price      decimal.Decimal
		Signals    []types.Signal
		Cash       decimal.Decimal
		TotalValue decimal.Decimal
		Positions  []positionLine
		MaxRatio   float64
	}{in.Ticker, in.Price, in.Signals, in.Portfolio.Cashflow, in.Portfolio.TotalValue(), positions, maxRatio})

	res := oracle.Invoke(ctx, r.inv, oracle.Request{
		Purpose: KeyRisk + ":" + in.Ticker,
		System:  riskSystem,
		User:    user,
	}, oracle.RiskSchema)
	out := types.RiskAssessment{
		Ratio:         ledger.ClampRatio(res.Value.Ratio, in.TickerCount),
		Justification: res.Value.Justification,
		Fallback:      res.Fallback,
	}
	logger.Agentf(KeyRisk, in.Ticker, "ratio=%.2f (proposed %.2f, max %.2f) fallback=%t", out.Ratio, res.Value.Ratio, maxRatio, out.Fallback)
	return out
}
