package agents

import (
	"context"
	"fmt"

	"deepfund/internal/logger"
	"deepfund/internal/market"
	"deepfund/internal/oracle"
	"deepfund/internal/types"
)

type Fundamental struct {
	base
	data market.Provider
}

func NewFundamental(inv *oracle.Invoker, data market.Provider) *Fundamental {
	return &Fundamental{
		base: base{
			key:         KeyFundamental,
			description: "Fundamental analysis specialist focusing on company profitability, growth, financial health and valuation ratios.",
			system:      fundamentalSystem,
			inv:         inv,
		},
		data: data,
	}
}

// fundamentalCheck 是一项基本面子结论。
type fundamentalCheck struct {
	Name     string
	Polarity types.Polarity
	Detail   string
}

func (f *Fundamental) Evaluate(ctx context.Context, req Request) types.Signal {
	logger.Agentf(f.key, req.Ticker, "fetching company overview")
	overview, err := f.data.Fundamentals(ctx, req.Ticker, req.TradingDate)
	if err != nil {
		return f.abstain(req.Ticker, err)
	}
	user := render(fundamentalTemplate, struct {
		Ticker, Date, Name, Sector string
		Checks                     []fundamentalCheck
	}{req.Ticker, req.date(), overview.Name, overview.Sector, fundamentalChecks(overview)})
	return f.ask(ctx, req.Ticker, user)
}

// fundamentalChecks 将概览指标归纳为盈利、成长、财务健康与估值四项。
func fundamentalChecks(o market.Fundamentals) []fundamentalCheck {
	score := func(hits, total int) types.Polarity {
		switch {
		case total == 0:
			return types.Neutral
		case hits*3 >= total*2:
			return types.Bullish
		case hits*3 <= total:
			return types.Bearish
		default:
			return types.Neutral
		}
	}

	profit := []bool{o.ReturnOnEquity > 0.15, o.ProfitMargin > 0.20, o.OperatingMargin > 0.15}
	growth := []bool{o.RevenueGrowthYoY > 0.10, o.EarningsGrowthYoY > 0.10}
	health := []bool{o.EPS > 0, o.ReturnOnAssets > 0.05}
	var valuation []bool
	if o.PERatio > 0 {
		valuation = append(valuation, o.PERatio < 25)
	}
	if o.PriceToBook > 0 {
		valuation = append(valuation, o.PriceToBook < 3)
	}
	if o.PEGRatio > 0 {
		valuation = append(valuation, o.PEGRatio < 1.5)
	}

	return []fundamentalCheck{
		{
			Name:     "Profitability",
			Polarity: score(count(profit), len(profit)),
			Detail:   fmt.Sprintf("ROE=%.2f net margin=%.2f operating margin=%.2f", o.ReturnOnEquity, o.ProfitMargin, o.OperatingMargin),
		},
		{
			Name:     "Growth",
			Polarity: score(count(growth), len(growth)),
			Detail:   fmt.Sprintf("revenue growth YoY=%.2f earnings growth YoY=%.2f", o.RevenueGrowthYoY, o.EarningsGrowthYoY),
		},
		{
			Name:     "Financial Health",
			Polarity: score(count(health), len(health)),
			Detail:   fmt.Sprintf("EPS=%.2f ROA=%.2f beta=%.2f", o.EPS, o.ReturnOnAssets, o.Beta),
		},
		{
			Name:     "Price Ratios",
			Polarity: score(count(valuation), len(valuation)),
			Detail:   fmt.Sprintf("P/E=%.2f P/B=%.2f PEG=%.2f dividend yield=%.4f", o.PERatio, o.PriceToBook, o.PEGRatio, o.DividendYield),
		},
	}
}

func count(flags []bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
