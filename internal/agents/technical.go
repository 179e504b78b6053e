package agents

import (
	"context"

	"deepfund/internal/analysis/indicator"
	"deepfund/internal/analysis/pattern"
	"deepfund/internal/logger"
	"deepfund/internal/market"
	"deepfund/internal/oracle"
	"deepfund/internal/types"
)

type Technical struct {
	base
	data       market.Provider
	lookback   int
	thresholds indicator.Thresholds
}

func NewTechnical(inv *oracle.Invoker, data market.Provider, lookbackDays int) *Technical {
	if lookbackDays <= 0 {
		lookbackDays = 200
	}
	return &Technical{
		base: base{
			key:         KeyTechnical,
			description: "Technical analysis specialist for short to medium-term price movements: trend, mean reversion, RSI, momentum and volatility on daily bars.",
			system:      technicalSystem,
			inv:         inv,
		},
		data:       data,
		lookback:   lookbackDays,
		thresholds: indicator.DefaultThresholds(),
	}
}

func (t *Technical) Evaluate(ctx context.Context, req Request) types.Signal {
	logger.Agentf(t.key, req.Ticker, "analyzing price data")
	bars, err := t.data.PriceHistory(ctx, req.Ticker, req.TradingDate.AddDate(0, 0, -t.lookback), req.TradingDate)
	if err != nil {
		return t.abstain(req.Ticker, err)
	}
	summary, err := indicator.Summarize(req.Ticker, bars, t.thresholds)
	if err != nil {
		return t.abstain(req.Ticker, err)
	}
	user := render(technicalTemplate, struct {
		Ticker  string
		Date    string
		Summary indicator.Summary
		Pattern pattern.Result
	}{req.Ticker, req.date(), summary, pattern.Analyze(bars)})
	return t.ask(ctx, req.Ticker, user)
}
