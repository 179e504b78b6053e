package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"deepfund/internal/agents"
	"deepfund/internal/ledger"
	"deepfund/internal/logger"
	"deepfund/internal/market"
	"deepfund/internal/types"

	"github.com/shopspring/decimal"
)

// ExecutorConfig wires the collaborators of one run.
type ExecutorConfig struct {
	Identity    types.RunIdentity
	Dates       []time.Time
	MemoryLimit int

	Ledger    *ledger.Ledger
	Registry  *agents.Registry
	Selector  Selector
	Risk      *agents.RiskController
	Portfolio *agents.PortfolioManager
	Data      market.Provider
}

// Executor 逐日、逐 ticker 地运行分析图并把结果写入账本。
type Executor struct {
	identity    types.RunIdentity
	dates       []time.Time
	memoryLimit int

	ledger    *ledger.Ledger
	registry  *agents.Registry
	selector  Selector
	risk      *agents.RiskController
	portfolio *agents.PortfolioManager
	data      market.Provider
}

// Step records one settled ticker decision.
type Step struct {
	TradingDate time.Time
	Ticker      string
	Analysts    []string
	Signals     []types.Signal
	Ratio       float64
	Decision    types.Decision
	Version     int
}

// Outcome summarises a finished run.
type Outcome struct {
	Identity     types.RunIdentity
	Initial      types.Portfolio
	Final        types.Portfolio
	Steps        []Step
	Dates        []time.Time
	SkippedDates int
}

func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	if cfg.Ledger == nil {
		return nil, errors.New("workflow: ledger is required")
	}
	if cfg.Registry == nil || cfg.Registry.Len() == 0 {
		return nil, errors.New("workflow: analyst registry is empty")
	}
	if cfg.Selector == nil {
		return nil, errors.New("workflow: analyst selector is required")
	}
	if cfg.Risk == nil || cfg.Portfolio == nil {
		return nil, errors.New("workflow: risk controller and portfolio manager are required")
	}
	if cfg.Data == nil {
		return nil, errors.New("workflow: market data provider is required")
	}
	if len(cfg.Identity.Tickers) == 0 {
		return nil, errors.New("workflow: no tickers to process")
	}
	memory := cfg.MemoryLimit
	if memory <= 0 {
		memory = 5
	}
	return &Executor{
		identity:    cfg.Identity,
		dates:       cfg.Dates,
		memoryLimit: memory,
		ledger:      cfg.Ledger,
		registry:    cfg.Registry,
		selector:    cfg.Selector,
		risk:        cfg.Risk,
		portfolio:   cfg.Portfolio,
		data:        cfg.Data,
	}, nil
}

// Run executes the whole run and returns the final portfolio.
func (e *Executor) Run(ctx context.Context) (types.Portfolio, error) {
	out, err := e.Execute(ctx)
	return out.Final, err
}

// Execute is Run with the per-step record attached.
func (e *Executor) Execute(ctx context.Context) (Outcome, error) {
	id, current, err := e.ledger.Open(ctx, e.identity)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Identity: id, Initial: current, Final: current}

	latest, err := e.ledger.LatestTradingDate(ctx, id.ID)
	if err != nil {
		return out, fmt.Errorf("load latest trading date of %s: %w", id.Name, err)
	}
	tickers := e.identity.Tickers
	dates, skipped := pendingDates(e.dates, latest)
	// 最近一个交易日可能在 ticker 之间中断，只跳过当天已有决策的 ticker。
	var settled map[string]bool
	if len(dates) > 0 && dates[0].Equal(day(latest)) {
		settled, err = e.ledger.SettledTickers(ctx, id.ID, dates[0])
		if err != nil {
			return out, fmt.Errorf("load settled tickers of %s on %s: %w", id.Name, dates[0].Format("2006-01-02"), err)
		}
		if allSettled(tickers, settled) {
			dates = dates[1:]
			skipped++
			settled = nil
		}
	}
	out.SkippedDates = skipped
	if skipped > 0 {
		logger.Infof("run %s: skipping %d trading date(s) on or before %s", id.Name, skipped, latest.Format("2006-01-02"))
	}
	if len(dates) == 0 {
		logger.Infof("run %s: nothing to do", id.Name)
		return out, nil
	}

	for i, date := range dates {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		logger.InfoBlock(fmt.Sprintf("trading date %s\ntickers: %s", date.Format("2006-01-02"), strings.Join(tickers, ", ")))
		for _, ticker := range tickers {
			if i == 0 && settled[ticker] {
				logger.Infof("run %s: %s already settled on %s", id.Name, ticker, date.Format("2006-01-02"))
				continue
			}
			step, next, err := e.runTicker(ctx, id, current, ticker, date, len(tickers))
			if err != nil {
				out.Final = current
				return out, fmt.Errorf("ticker %s on %s: %w", ticker, date.Format("2006-01-02"), err)
			}
			current = next
			out.Steps = append(out.Steps, step)
		}
		out.Dates = append(out.Dates, date)
		logger.Infof("run %s: %s settled, cash=%s total=%s", id.Name, date.Format("2006-01-02"),
			current.Cashflow.StringFixed(2), current.TotalValue().StringFixed(2))
	}
	out.Final = current
	return out, nil
}

func allSettled(tickers []string, settled map[string]bool) bool {
	for _, t := range tickers {
		if !settled[t] {
			return false
		}
	}
	return true
}

// runTicker runs one graph and appends the resulting snapshot.
func (e *Executor) runTicker(ctx context.Context, id types.RunIdentity, current types.Portfolio, ticker string, date time.Time, tickerCount int) (Step, types.Portfolio, error) {
	keys := e.selector.Select(ctx, ticker)
	g := NewGraph(ticker, keys)
	logger.Debugf("graph %s", g)

	signals := e.runAnalysts(ctx, g, agents.Request{Ticker: ticker, TradingDate: date})
	step := Step{TradingDate: date, Ticker: ticker, Analysts: g.Analysts, Signals: signals}

	decision, ratio := e.decide(ctx, id, current, ticker, date, signals, tickerCount)
	step.Ratio = ratio

	next, err := ledger.Settle(current, decision)
	if err != nil {
		return step, current, err
	}
	saved, err := e.ledger.Append(ctx, ledger.Entry{
		Parent:      current,
		Next:        next,
		Decision:    decision,
		Signals:     signals,
		TradingDate: date,
	})
	if err != nil {
		return step, current, err
	}
	step.Decision = decision
	step.Version = saved.Version
	logger.Infof("%s %s: %s %d @ %s -> v%d cash=%s", date.Format("2006-01-02"), ticker, decision.Action, decision.Shares,
		decision.Price.StringFixed(2), saved.Version, saved.Cashflow.StringFixed(2))
	return step, saved, nil
}

// decide runs risk control and the portfolio manager. Every degraded path
// yields a zero-share Hold.
func (e *Executor) decide(ctx context.Context, id types.RunIdentity, current types.Portfolio, ticker string, date time.Time, signals []types.Signal, tickerCount int) (types.Decision, float64) {
	price, err := e.data.Price(ctx, ticker, date)
	if err != nil || !price.IsPositive() {
		if err == nil {
			err = fmt.Errorf("non-positive price %s", price)
		}
		logger.Warnf("price unavailable for %s on %s: %v", ticker, date.Format("2006-01-02"), err)
		return types.HoldDecision(ticker, decimal.Zero, "Hold: price unavailable: "+err.Error()), 0
	}

	assessment := e.risk.Assess(ctx, agents.RiskInput{
		Ticker:      ticker,
		Price:       price,
		Signals:     signals,
		Portfolio:   current,
		TickerCount: tickerCount,
	})
	if assessment.Fallback {
		return types.HoldDecision(ticker, price, "Hold: risk control unavailable"), 0
	}

	currentShares, tradable := ledger.Size(current, ticker, price, assessment.Ratio)
	memory, err := e.ledger.DecisionMemory(ctx, id.ID, ticker, e.memoryLimit)
	if err != nil {
		logger.Warnf("decision memory for %s unavailable: %v", ticker, err)
	}
	proposed, fallback := e.portfolio.Decide(ctx, agents.DecisionInput{
		Ticker:         ticker,
		Price:          price,
		Signals:        signals,
		Memory:         memory,
		Ratio:          assessment.Ratio,
		RiskNote:       assessment.Justification,
		CurrentShares:  currentShares,
		TradableShares: tradable,
		Cash:           current.Cashflow,
	})
	if fallback {
		hold := types.HoldDecision(ticker, price, proposed.Justification)
		hold.Prompt = proposed.Prompt
		return hold, assessment.Ratio
	}
	clamped := ledger.Clamp(proposed, currentShares, tradable)
	if clamped.Action != proposed.Action || clamped.Shares != proposed.Shares {
		logger.Infof("%s: clamped %s %d to %s %d (holding %d, tradable %d)", ticker,
			proposed.Action, proposed.Shares, clamped.Action, clamped.Shares, currentShares, tradable)
	}
	return clamped, assessment.Ratio
}
