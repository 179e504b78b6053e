package agents

import (
	"context"
	"strings"
	"time"

	"deepfund/internal/logger"
	"deepfund/internal/market"
	"deepfund/internal/oracle"
	"deepfund/internal/types"
)

const (
	KeyTechnical   = "technical"
	KeyFundamental = "fundamental"
	KeyNews        = "news"
	KeyInsider     = "insider"

	KeyPlanner   = "planner"
	KeyRisk      = "risk"
	KeyPortfolio = "portfolio"
)

// Request 是分析师单次评估的输入。
type Request struct {
	Ticker      string
	TradingDate time.Time
}

func (r Request) date() string { return r.TradingDate.Format("2006-01-02") }

// Analyst produces one Signal for one ticker. Evaluate never fails: missing
// data and oracle errors degrade to a Neutral signal with a diagnostic.
type Analyst interface {
	Key() string
	Describe() string
	Evaluate(ctx context.Context, req Request) types.Signal
}

// base 是各分析师共用的弃权与 oracle 调用逻辑。
type base struct {
	key         string
	description string
	system      string
	inv         *oracle.Invoker
}

func (b base) Key() string      { return b.key }
func (b base) Describe() string { return b.description }

func (b base) abstain(ticker string, err error) types.Signal {
	if market.IsDataUnavailable(err) {
		logger.Agentf(b.key, ticker, "abstain: %v", err)
	} else {
		logger.Warnf("%s analyst abstains on %s: %v", b.key, ticker, err)
	}
	return types.Signal{
		Analyst:       b.key,
		Ticker:        ticker,
		Polarity:      types.Neutral,
		Justification: "Abstained: " + strings.TrimSpace(err.Error()),
	}
}

func (b base) ask(ctx context.Context, ticker, user string) types.Signal {
	res := oracle.Invoke(ctx, b.inv, oracle.Request{
		Purpose: b.key + ":" + ticker,
		System:  b.system,
		User:    user,
	}, oracle.SignalSchema)
	sig := types.Signal{
		Analyst:       b.key,
		Ticker:        ticker,
		Polarity:      res.Value.Signal,
		Justification: res.Value.Justification,
		Prompt:        joinPrompt(b.system, user),
	}
	if strings.TrimSpace(sig.Justification) == "" {
		sig.Justification = oracle.SignalFallbackJustification
	}
	logger.Agentf(b.key, ticker, "signal=%s attempts=%d fallback=%t", sig.Polarity, res.Attempts, res.Fallback)
	return sig
}
