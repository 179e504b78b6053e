package agents

import (
	"context"

	"deepfund/internal/logger"
	"deepfund/internal/market"
	"deepfund/internal/oracle"
	"deepfund/internal/types"
)

type Insider struct {
	base
	data  market.Provider
	limit int
}

func NewInsider(inv *oracle.Invoker, data market.Provider, limit int) *Insider {
	if limit <= 0 {
		limit = 10
	}
	return &Insider{
		base: base{
			key:         KeyInsider,
			description: "Insider trading analyst reading recent buys and sales by company executives and directors.",
			system:      insiderSystem,
			inv:         inv,
		},
		data:  data,
		limit: limit,
	}
}

func (i *Insider) Evaluate(ctx context.Context, req Request) types.Signal {
	logger.Agentf(i.key, req.Ticker, "fetching insider trades")
	trades, err := i.data.InsiderTrades(ctx, req.Ticker, req.TradingDate, i.limit)
	if err != nil {
		return i.abstain(req.Ticker, err)
	}
	user := render(insiderTemplate, struct {
		Ticker, Date string
		Trades       []market.InsiderTrade
	}{req.Ticker, req.date(), trades})
	return i.ask(ctx, req.Ticker, user)
}
