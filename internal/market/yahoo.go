package market

import (
	"context"
	"fmt"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/shopspring/decimal"
)

const yahooName = "yahoo"

// Yahoo 只提供日线（chart 接口）；基本面、新闻与内部人交易不支持。
type Yahoo struct {
	fetch func(params *chart.Params) ([]*finance.ChartBar, error)
}

func NewYahoo() *Yahoo {
	return &Yahoo{fetch: fetchChart}
}

func fetchChart(params *chart.Params) ([]*finance.ChartBar, error) {
	iter := chart.Get(params)
	var bars []*finance.ChartBar
	for iter.Next() {
		bars = append(bars, iter.Bar())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return bars, nil
}

func (y *Yahoo) Name() string { return yahooName }

func (y *Yahoo) PriceHistory(ctx context.Context, ticker string, start, end time.Time) ([]Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	from := truncateDay(start)
	// chart 的 end 不含当日
	to := truncateDay(end).AddDate(0, 0, 1)
	raw, err := y.fetch(&chart.Params{
		Symbol:   ticker,
		Start:    datetime.New(&from),
		End:      datetime.New(&to),
		Interval: datetime.OneDay,
	})
	if err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", ticker, err)
	}
	bars := filterBars(barsFromChart(raw), start, end)
	if len(bars) == 0 {
		return nil, unavailablef(yahooName, "history", ticker, "no bars between %s and %s",
			start.Format(alphaVantageDateFmt), end.Format(alphaVantageDateFmt))
	}
	return bars, nil
}

func (y *Yahoo) Price(ctx context.Context, ticker string, asOf time.Time) (decimal.Decimal, error) {
	// 回看两周以覆盖长假
	bars, err := y.PriceHistory(ctx, ticker, asOf.AddDate(0, 0, -14), asOf)
	if err != nil {
		return decimal.Zero, err
	}
	price, ok := lastCloseOnOrBefore(bars, asOf)
	if !ok {
		return decimal.Zero, unavailablef(yahooName, "price", ticker, "no close on or before %s", asOf.Format(alphaVantageDateFmt))
	}
	return price, nil
}

func (y *Yahoo) Fundamentals(_ context.Context, ticker string, _ time.Time) (Fundamentals, error) {
	return Fundamentals{}, unavailable(yahooName, "overview", ticker, ErrNotSupported)
}

func (y *Yahoo) News(_ context.Context, ticker string, _ time.Time, _ int) ([]NewsItem, error) {
	return nil, unavailable(yahooName, "news", ticker, ErrNotSupported)
}

func (y *Yahoo) InsiderTrades(_ context.Context, ticker string, _ time.Time, _ int) ([]InsiderTrade, error) {
	return nil, unavailable(yahooName, "insider", ticker, ErrNotSupported)
}

func barsFromChart(raw []*finance.ChartBar) []Bar {
	out := make([]Bar, 0, len(raw))
	for _, b := range raw {
		if b == nil || b.Close.IsZero() {
			continue
		}
		out = append(out, Bar{
			Date:   time.Unix(int64(b.Timestamp), 0).UTC(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: int64(b.Volume),
		})
	}
	return out
}
