package types

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Position 记录单个 ticker 的持仓；Value = Shares × 最近成交价。
type Position struct {
	Shares int64           `json:"shares"`
	Value  decimal.Decimal `json:"value"`
}

// Portfolio is one immutable, versioned snapshot of cash plus positions.
type Portfolio struct {
	ID          string              `json:"id"`
	ConfigID    string              `json:"config_id"`
	Version     int                 `json:"version"`
	TradingDate time.Time           `json:"trading_date"`
	Cashflow    decimal.Decimal     `json:"cashflow"`
	Positions   map[string]Position `json:"positions"`
	CreatedAt   time.Time           `json:"created_at"`
}

// TotalValue = cashflow + Σ position.value.
func (p Portfolio) TotalValue() decimal.Decimal {
	total := p.Cashflow
	for _, pos := range p.Positions {
		total = total.Add(pos.Value)
	}
	return total
}

// Position returns the position for ticker, or a zero position.
func (p Portfolio) Position(ticker string) Position {
	if p.Positions == nil {
		return Position{}
	}
	return p.Positions[ticker]
}

// Clone copies the positions map so the result can be mutated safely.
func (p Portfolio) Clone() Portfolio {
	out := p
	out.Positions = make(map[string]Position, len(p.Positions))
	for k, v := range p.Positions {
		out.Positions[k] = v
	}
	return out
}

// Tickers returns held tickers in sorted order.
func (p Portfolio) Tickers() []string {
	out := make([]string, 0, len(p.Positions))
	for k := range p.Positions {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// RunIdentity 对应一次实验配置（config 表的一行）。
type RunIdentity struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Tickers       []string        `json:"tickers"`
	SelectionMode string          `json:"selection_mode"`
	LLMProvider   string          `json:"llm_provider"`
	LLMModel      string          `json:"llm_model"`
	InitialCash   decimal.Decimal `json:"initial_cash"`
	CreatedAt     time.Time       `json:"created_at"`
}
