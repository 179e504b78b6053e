package agents

import (
	"context"

	"deepfund/internal/logger"
	"deepfund/internal/oracle"
	"deepfund/internal/types"

	"github.com/shopspring/decimal"
)

// PortfolioManager 根据信号、决策记忆与仓位上限给出最终决策（未裁剪）。
type PortfolioManager struct {
	inv *oracle.Invoker
}

func NewPortfolioManager(inv *oracle.Invoker) *PortfolioManager {
	return &PortfolioManager{inv: inv}
}

type DecisionInput struct {
	Ticker         string
	Price          decimal.Decimal
	Signals        []types.Signal
	Memory         []types.DecisionRecord
	Ratio          float64
	RiskNote       string
	CurrentShares  int64
	TradableShares int64
	Cash           decimal.Decimal
}

// Decide returns the oracle's decision priced at in.Price with the prompt
// attached. fallback reports whether the default Hold was used.
func (pm *PortfolioManager) Decide(ctx context.Context, in DecisionInput) (d types.Decision, fallback bool) {
	logger.Agentf(KeyPortfolio, in.Ticker, "making trading decision")
	user := render(portfolioTemplate, in)
	res := oracle.Invoke(ctx, pm.inv, oracle.Request{
		Purpose: KeyPortfolio + ":" + in.Ticker,
		System:  portfolioSystem,
		User:    user,
	}, oracle.DecisionSchema)
	d = types.Decision{
		Ticker:        in.Ticker,
		Action:        res.Value.Action,
		Shares:        res.Value.Shares,
		Price:         in.Price,
		Justification: res.Value.Justification,
		Prompt:        joinPrompt(portfolioSystem, user),
	}
	logger.Agentf(KeyPortfolio, in.Ticker, "proposed %s %d attempts=%d fallback=%t", d.Action, d.Shares, res.Attempts, res.Fallback)
	return d, res.Fallback
}
