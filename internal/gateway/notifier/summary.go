package notifier

import (
	"fmt"
	"time"

	"deepfund/internal/workflow"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// RunSummary 将一次运行的结果整理为推送消息。
func RunSummary(out workflow.Outcome, now time.Time) StructuredMessage {
	final := out.Final
	initial := out.Identity.InitialCash
	total := final.TotalValue()
	ret := "n/a"
	if initial.IsPositive() {
		ret = total.Sub(initial).Div(initial).Mul(hundred).StringFixed(2) + "%"
	}

	overview := []string{
		fmt.Sprintf("run: %s (%s)", out.Identity.Name, out.Identity.SelectionMode),
		fmt.Sprintf("model: %s/%s", out.Identity.LLMProvider, out.Identity.LLMModel),
		fmt.Sprintf("dates: %d processed, %d skipped", len(out.Dates), out.SkippedDates),
		fmt.Sprintf("snapshot: v%d", final.Version),
	}
	value := []string{
		fmt.Sprintf("cash: %s", final.Cashflow.StringFixed(2)),
		fmt.Sprintf("total: %s (initial %s, return %s)", total.StringFixed(2), initial.StringFixed(2), ret),
	}
	for _, ticker := range final.Tickers() {
		pos := final.Positions[ticker]
		value = append(value, fmt.Sprintf("%s: %d shares, value %s", ticker, pos.Shares, pos.Value.StringFixed(2)))
	}

	var trades []string
	for _, step := range out.Steps {
		if step.Decision.Shares == 0 {
			continue
		}
		trades = append(trades, fmt.Sprintf("%s %s %s %d @ %s", step.TradingDate.Format("2006-01-02"), step.Ticker,
			step.Decision.Action, step.Decision.Shares, step.Decision.Price.StringFixed(2)))
	}
	if len(trades) == 0 {
		trades = []string{"no trades"}
	}

	return StructuredMessage{
		Icon:  "📈",
		Title: "deepfund run finished",
		Sections: []MessageSection{
			{Title: "Overview", Lines: overview},
			{Title: "Portfolio", Lines: value},
			{Title: "Trades", Lines: trades},
		},
		Timestamp: now,
	}
}
