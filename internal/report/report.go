package report

import (
	"fmt"
	"sort"

	"deepfund/internal/types"

	"github.com/shopspring/decimal"
)

// Report 汇总一个运行配置的快照链，供终端与 HTML 渲染。
type Report struct {
	Identity types.RunIdentity
	History  []types.Portfolio
	Recent   []types.DecisionRecord
}

// Point is the portfolio value after one snapshot.
type Point struct {
	Version     int
	TradingDate string
	Cash        decimal.Decimal
	Total       decimal.Decimal
}

// Curve returns one point per snapshot ordered by version.
func (r Report) Curve() []Point {
	history := append([]types.Portfolio(nil), r.History...)
	sort.SliceStable(history, func(i, j int) bool { return history[i].Version < history[j].Version })
	out := make([]Point, 0, len(history))
	for _, p := range history {
		date := "seed"
		if !p.TradingDate.IsZero() {
			date = p.TradingDate.Format("2006-01-02")
		}
		out = append(out, Point{Version: p.Version, TradingDate: date, Cash: p.Cashflow, Total: p.TotalValue()})
	}
	return out
}

// Latest returns the newest snapshot, or the zero portfolio.
func (r Report) Latest() types.Portfolio {
	var latest types.Portfolio
	for i, p := range r.History {
		if i == 0 || p.Version > latest.Version {
			latest = p
		}
	}
	return latest
}

// Return is (total - initial) / initial, or zero without initial cash.
func (r Report) Return() decimal.Decimal {
	initial := r.Identity.InitialCash
	if !initial.IsPositive() {
		return decimal.Zero
	}
	return r.Latest().TotalValue().Sub(initial).Div(initial)
}

// MaxDrawdown 计算总资产曲线的最大回撤（0~1）。
func (r Report) MaxDrawdown() decimal.Decimal {
	var peak, worst decimal.Decimal
	for _, pt := range r.Curve() {
		if pt.Total.GreaterThan(peak) {
			peak = pt.Total
		}
		if !peak.IsPositive() {
			continue
		}
		if dd := peak.Sub(pt.Total).Div(peak); dd.GreaterThan(worst) {
			worst = dd
		}
	}
	return worst
}

func percent(d decimal.Decimal) string {
	return fmt.Sprintf("%s%%", d.Mul(decimal.NewFromInt(100)).StringFixed(2))
}
