package types

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Action string

const (
	ActionBuy  Action = "Buy"
	ActionSell Action = "Sell"
	ActionHold Action = "Hold"
)

// NormalizeAction 将模型输出中的各种写法归一为 Buy/Sell/Hold。
func NormalizeAction(raw string) (Action, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "buy", "long", "open_long", "add", "accumulate":
		return ActionBuy, true
	case "sell", "short", "close", "close_long", "reduce", "trim":
		return ActionSell, true
	case "hold", "wait", "none", "keep":
		return ActionHold, true
	default:
		return ActionHold, false
	}
}

// Decision is the portfolio manager's action for one ticker.
type Decision struct {
	Ticker        string          `json:"ticker"`
	Action        Action          `json:"action"`
	Shares        int64           `json:"shares"`
	Price         decimal.Decimal `json:"price"`
	Justification string          `json:"justification"`
	Prompt        string          `json:"-"`
}

// Notional returns shares × price.
func (d Decision) Notional() decimal.Decimal {
	return d.Price.Mul(decimal.NewFromInt(d.Shares))
}

// HoldDecision builds a zero-share hold for ticker.
func HoldDecision(ticker string, price decimal.Decimal, why string) Decision {
	return Decision{Ticker: ticker, Action: ActionHold, Shares: 0, Price: price, Justification: why}
}

// DecisionRecord 是决策记忆中的一条历史记录。
type DecisionRecord struct {
	Decision
	SnapshotID  string    `json:"snapshot_id"`
	TradingDate time.Time `json:"trading_date"`
	CreatedAt   time.Time `json:"created_at"`
}

// RiskAssessment 是风控节点的即时输出，不单独持久化。
type RiskAssessment struct {
	Ratio         float64
	Justification string
	Fallback      bool
}
