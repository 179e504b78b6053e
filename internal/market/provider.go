package market

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Provider 是分析师与执行器使用的市场数据来源。所有方法以 asOf 为界，
// 不返回交易日之后的数据。
type Provider interface {
	Name() string

	// Price returns the last close on or before asOf.
	Price(ctx context.Context, ticker string, asOf time.Time) (decimal.Decimal, error)
	// PriceHistory returns daily bars in [start, end], oldest first.
	PriceHistory(ctx context.Context, ticker string, start, end time.Time) ([]Bar, error)
	Fundamentals(ctx context.Context, ticker string, asOf time.Time) (Fundamentals, error)
	// News returns at most limit items published in the week before asOf, newest first.
	News(ctx context.Context, ticker string, asOf time.Time, limit int) ([]NewsItem, error)
	// InsiderTrades returns at most limit trades dated before asOf, newest first.
	InsiderTrades(ctx context.Context, ticker string, asOf time.Time, limit int) ([]InsiderTrade, error)
}

// NewsWindow 是新闻检索的回看窗口。
const NewsWindow = 7 * 24 * time.Hour

type Bar struct {
	Date   time.Time       `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// Closes 返回收盘价序列（float64，便于指标计算）。
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close.InexactFloat64()
	}
	return out
}

func Highs(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High.InexactFloat64()
	}
	return out
}

func Lows(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low.InexactFloat64()
	}
	return out
}

// Fundamentals holds company overview ratios. Zero means not reported.
type Fundamentals struct {
	Ticker            string  `json:"ticker" yaml:"ticker"`
	Name              string  `json:"name" yaml:"name"`
	Sector            string  `json:"sector" yaml:"sector"`
	Industry          string  `json:"industry" yaml:"industry"`
	MarketCap         float64 `json:"market_cap" yaml:"market_cap"`
	PERatio           float64 `json:"pe_ratio" yaml:"pe_ratio"`
	PEGRatio          float64 `json:"peg_ratio" yaml:"peg_ratio"`
	PriceToBook       float64 `json:"price_to_book" yaml:"price_to_book"`
	EPS               float64 `json:"eps" yaml:"eps"`
	DividendYield     float64 `json:"dividend_yield" yaml:"dividend_yield"`
	ProfitMargin      float64 `json:"profit_margin" yaml:"profit_margin"`
	OperatingMargin   float64 `json:"operating_margin" yaml:"operating_margin"`
	ReturnOnEquity    float64 `json:"return_on_equity" yaml:"return_on_equity"`
	ReturnOnAssets    float64 `json:"return_on_assets" yaml:"return_on_assets"`
	RevenueGrowthYoY  float64 `json:"revenue_growth_yoy" yaml:"revenue_growth_yoy"`
	EarningsGrowthYoY float64 `json:"earnings_growth_yoy" yaml:"earnings_growth_yoy"`
	Beta              float64 `json:"beta" yaml:"beta"`
	AnalystTarget     float64 `json:"analyst_target" yaml:"analyst_target"`
}

// Empty reports whether no ratio at all was reported.
func (f Fundamentals) Empty() bool {
	return f.MarketCap == 0 && f.PERatio == 0 && f.EPS == 0 && f.ProfitMargin == 0 &&
		f.ReturnOnEquity == 0 && f.RevenueGrowthYoY == 0 && f.PriceToBook == 0
}

type NewsItem struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
	Sentiment   string    `json:"sentiment,omitempty"`
}

type InsiderTrade struct {
	Ticker          string    `json:"ticker"`
	Insider         string    `json:"insider"`
	Title           string    `json:"title"`
	TransactionDate time.Time `json:"transaction_date"`
	// Type 为 Buy 或 Sell（Alpha Vantage 的 A/D 已归一）。
	Type   string  `json:"type"`
	Shares float64 `json:"shares"`
	Price  float64 `json:"price"`
}

// lastCloseOnOrBefore 从升序 bars 中找到 asOf 当日或之前最近的收盘价。
func lastCloseOnOrBefore(bars []Bar, asOf time.Time) (decimal.Decimal, bool) {
	day := truncateDay(asOf)
	for i := len(bars) - 1; i >= 0; i-- {
		if !truncateDay(bars[i].Date).After(day) {
			return bars[i].Close, true
		}
	}
	return decimal.Zero, false
}

func filterBars(bars []Bar, start, end time.Time) []Bar {
	from, to := truncateDay(start), truncateDay(end)
	out := make([]Bar, 0, len(bars))
	for _, b := range bars {
		d := truncateDay(b.Date)
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func capLimit(n, limit int) int {
	if limit <= 0 || limit > n {
		return n
	}
	return limit
}
