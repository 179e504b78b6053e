package agents

import (
	"context"

	"deepfund/internal/logger"
	"deepfund/internal/market"
	"deepfund/internal/oracle"
	"deepfund/internal/types"
)

type News struct {
	base
	data  market.Provider
	limit int
}

func NewNews(inv *oracle.Invoker, data market.Provider, limit int) *News {
	if limit <= 0 {
		limit = 10
	}
	return &News{
		base: base{
			key:         KeyNews,
			description: "News sentiment analyst reading the company headlines published in the week before the trading date.",
			system:      newsSystem,
			inv:         inv,
		},
		data:  data,
		limit: limit,
	}
}

func (n *News) Evaluate(ctx context.Context, req Request) types.Signal {
	logger.Agentf(n.key, req.Ticker, "fetching news")
	items, err := n.data.News(ctx, req.Ticker, req.TradingDate, n.limit)
	if err != nil {
		return n.abstain(req.Ticker, err)
	}
	user := render(newsTemplate, struct {
		Ticker, Date string
		Items        []market.NewsItem
	}{req.Ticker, req.date(), items})
	return n.ask(ctx, req.Ticker, user)
}
