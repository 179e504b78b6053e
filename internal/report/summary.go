package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Background(lipgloss.Color("#1F2937")).
			Padding(0, 1).
			MarginBottom(1)

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	gainStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	lossStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	holdStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

// RenderSummary 渲染终端里的组合摘要。
func RenderSummary(r Report) string {
	latest := r.Latest()
	ret := r.Return()
	retStyle := gainStyle
	if ret.IsNegative() {
		retStyle = lossStyle
	}

	overview := []string{
		row("config", fmt.Sprintf("%s (%s)", r.Identity.Name, r.Identity.ID)),
		row("tickers", strings.Join(r.Identity.Tickers, ", ")),
		row("selection", r.Identity.SelectionMode),
		row("model", r.Identity.LLMProvider+"/"+r.Identity.LLMModel),
		row("snapshots", fmt.Sprintf("%d (latest v%d)", len(r.History), latest.Version)),
		row("cash", latest.Cashflow.StringFixed(2)),
		row("total value", latest.TotalValue().StringFixed(2)),
		row("return", retStyle.Render(percent(ret))),
		row("max drawdown", percent(r.MaxDrawdown())),
	}

	positions := []string{labelStyle.Render("positions")}
	if len(latest.Positions) == 0 {
		positions = append(positions, holdStyle.Render("  no open positions"))
	}
	for _, ticker := range latest.Tickers() {
		pos := latest.Positions[ticker]
		positions = append(positions, fmt.Sprintf("  %-8s %8d shares  %12s", ticker, pos.Shares, pos.Value.StringFixed(2)))
	}

	decisions := []string{labelStyle.Render("recent decisions")}
	if len(r.Recent) == 0 {
		decisions = append(decisions, holdStyle.Render("  none"))
	}
	for _, d := range r.Recent {
		line := fmt.Sprintf("  %s %-8s %-4s %6d @ %s", d.TradingDate.Format("2006-01-02"), d.Ticker, d.Action, d.Shares, d.Price.StringFixed(2))
		decisions = append(decisions, actionStyle(string(d.Action)).Render(line))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("deepfund portfolio"),
		boxStyle.Render(strings.Join(overview, "\n")),
		boxStyle.Render(strings.Join(positions, "\n")),
		boxStyle.Render(strings.Join(decisions, "\n")),
	)
}

func row(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-13s", label)) + " " + value
}

func actionStyle(action string) lipgloss.Style {
	switch action {
	case "Buy":
		return gainStyle
	case "Sell":
		return lossStyle
	default:
		return holdStyle
	}
}
