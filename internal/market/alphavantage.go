package market

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"deepfund/internal/logger"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	alphaVantageName    = "alphavantage"
	alphaVantageDateFmt = "2006-01-02"
	alphaVantageNewsFmt = "20060102T1504"
	alphaVantagePubFmt  = "20060102T150405"
)

type AlphaVantageOptions struct {
	BaseURL           string
	APIKey            string
	Entitlement       string
	RequestsPerMinute float64
	Timeout           time.Duration
}

// AlphaVantage 通过 /query 接口获取日线、公司概览、新闻与内部人交易。
type AlphaVantage struct {
	client      *resty.Client
	apiKey      string
	entitlement string
	limiter     *rate.Limiter
	series      *ttlCache
}

func NewAlphaVantage(opts AlphaVantageOptions) (*AlphaVantage, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("alpha vantage api key is required")
	}
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = "https://www.alphavantage.co"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	av := &AlphaVantage{
		client:      resty.New().SetBaseURL(base).SetTimeout(timeout),
		apiKey:      opts.APIKey,
		entitlement: strings.TrimSpace(opts.Entitlement),
		series:      newTTLCache(time.Hour),
	}
	if opts.RequestsPerMinute > 0 {
		av.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerMinute/60), 1)
	}
	return av, nil
}

func (av *AlphaVantage) Name() string { return alphaVantageName }

// avStatus 覆盖 Alpha Vantage 在 HTTP 200 中返回的错误/限流提示。
type avStatus struct {
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
}

func (s avStatus) err() error {
	for _, msg := range []string{s.ErrorMessage, s.Note, s.Information} {
		if msg = strings.TrimSpace(msg); msg != "" {
			return errors.New(msg)
		}
	}
	return nil
}

type avDailyResponse struct {
	avStatus
	Series map[string]map[string]string `json:"Time Series (Daily)"`
}

type avNewsResponse struct {
	avStatus
	Feed []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		TimePublished string `json:"time_published"`
		Summary       string `json:"summary"`
		Source        string `json:"source"`
		Sentiment     string `json:"overall_sentiment_label"`
	} `json:"feed"`
}

type avInsiderResponse struct {
	avStatus
	Data []struct {
		TransactionDate       string `json:"transaction_date"`
		Ticker                string `json:"ticker"`
		Executive             string `json:"executive"`
		ExecutiveTitle        string `json:"executive_title"`
		AcquisitionOrDisposal string `json:"acquisition_or_disposal"`
		Shares                string `json:"shares"`
		SharePrice            string `json:"share_price"`
	} `json:"data"`
}

func (av *AlphaVantage) query(ctx context.Context, dataset, ticker string, params map[string]string, out any) error {
	if av.limiter != nil {
		if err := av.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	req := av.client.R().
		SetContext(ctx).
		SetQueryParam("apikey", av.apiKey).
		SetQueryParams(params).
		SetResult(out)
	if av.entitlement != "" {
		req.SetQueryParam("entitlement", av.entitlement)
	}
	resp, err := req.Get("/query")
	if err != nil {
		return fmt.Errorf("alpha vantage %s %s: %w", dataset, ticker, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("alpha vantage %s %s: status %d: %s", dataset, ticker, resp.StatusCode(), resp.String())
	}
	return nil
}

// daily 返回升序日线，整段序列按 ticker 缓存。
func (av *AlphaVantage) daily(ctx context.Context, ticker string) ([]Bar, error) {
	return cached(av.series, ticker, func() ([]Bar, error) {
		outputSize := "compact"
		if av.entitlement != "" {
			outputSize = "full"
		}
		var out avDailyResponse
		err := av.query(ctx, "daily", ticker, map[string]string{
			"function":   "TIME_SERIES_DAILY",
			"symbol":     ticker,
			"outputsize": outputSize,
		}, &out)
		if err != nil {
			return nil, err
		}
		if err := out.err(); err != nil {
			return nil, unavailable(alphaVantageName, "daily", ticker, err)
		}
		bars := make([]Bar, 0, len(out.Series))
		for day, row := range out.Series {
			date, err := time.Parse(alphaVantageDateFmt, day)
			if err != nil {
				logger.Debugf("alphavantage: skip bad date %q for %s", day, ticker)
				continue
			}
			bars = append(bars, Bar{
				Date:   date,
				Open:   parseDecimal(row["1. open"]),
				High:   parseDecimal(row["2. high"]),
				Low:    parseDecimal(row["3. low"]),
				Close:  parseDecimal(row["4. close"]),
				Volume: int64(parseFloat(row["5. volume"])),
			})
		}
		sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
		return bars, nil
	})
}

func (av *AlphaVantage) Price(ctx context.Context, ticker string, asOf time.Time) (decimal.Decimal, error) {
	bars, err := av.daily(ctx, ticker)
	if err != nil {
		return decimal.Zero, err
	}
	price, ok := lastCloseOnOrBefore(bars, asOf)
	if !ok {
		return decimal.Zero, unavailablef(alphaVantageName, "price", ticker, "no close on or before %s", asOf.Format(alphaVantageDateFmt))
	}
	return price, nil
}

func (av *AlphaVantage) PriceHistory(ctx context.Context, ticker string, start, end time.Time) ([]Bar, error) {
	bars, err := av.daily(ctx, ticker)
	if err != nil {
		return nil, err
	}
	out := filterBars(bars, start, end)
	if len(out) == 0 {
		return nil, unavailablef(alphaVantageName, "history", ticker, "no bars between %s and %s",
			start.Format(alphaVantageDateFmt), end.Format(alphaVantageDateFmt))
	}
	return out, nil
}

func (av *AlphaVantage) Fundamentals(ctx context.Context, ticker string, _ time.Time) (Fundamentals, error) {
	var raw map[string]string
	if err := av.query(ctx, "overview", ticker, map[string]string{"function": "OVERVIEW", "symbol": ticker}, &raw); err != nil {
		return Fundamentals{}, err
	}
	status := avStatus{ErrorMessage: raw["Error Message"], Note: raw["Note"], Information: raw["Information"]}
	if err := status.err(); err != nil {
		return Fundamentals{}, unavailable(alphaVantageName, "overview", ticker, err)
	}
	f := Fundamentals{
		Ticker:            ticker,
		Name:              raw["Name"],
		Sector:            raw["Sector"],
		Industry:          raw["Industry"],
		MarketCap:         parseFloat(raw["MarketCapitalization"]),
		PERatio:           parseFloat(raw["PERatio"]),
		PEGRatio:          parseFloat(raw["PEGRatio"]),
		PriceToBook:       parseFloat(raw["PriceToBookRatio"]),
		EPS:               parseFloat(raw["EPS"]),
		DividendYield:     parseFloat(raw["DividendYield"]),
		ProfitMargin:      parseFloat(raw["ProfitMargin"]),
		OperatingMargin:   parseFloat(raw["OperatingMarginTTM"]),
		ReturnOnEquity:    parseFloat(raw["ReturnOnEquityTTM"]),
		ReturnOnAssets:    parseFloat(raw["ReturnOnAssetsTTM"]),
		RevenueGrowthYoY:  parseFloat(raw["QuarterlyRevenueGrowthYOY"]),
		EarningsGrowthYoY: parseFloat(raw["QuarterlyEarningsGrowthYOY"]),
		Beta:              parseFloat(raw["Beta"]),
		AnalystTarget:     parseFloat(raw["AnalystTargetPrice"]),
	}
	if f.Empty() {
		return Fundamentals{}, unavailablef(alphaVantageName, "overview", ticker, "empty overview")
	}
	return f, nil
}

func (av *AlphaVantage) News(ctx context.Context, ticker string, asOf time.Time, limit int) ([]NewsItem, error) {
	var out avNewsResponse
	err := av.query(ctx, "news", ticker, map[string]string{
		"function":  "NEWS_SENTIMENT",
		"tickers":   ticker,
		"time_from": asOf.Add(-NewsWindow).Format(alphaVantageNewsFmt),
		"time_to":   asOf.Format(alphaVantageNewsFmt),
		"sort":      "LATEST",
	}, &out)
	if err != nil {
		return nil, err
	}
	if err := out.err(); err != nil {
		return nil, unavailable(alphaVantageName, "news", ticker, err)
	}
	items := make([]NewsItem, 0, len(out.Feed))
	for _, n := range out.Feed {
		published, _ := time.Parse(alphaVantagePubFmt, n.TimePublished)
		items = append(items, NewsItem{
			Title:       strings.TrimSpace(n.Title),
			Summary:     strings.TrimSpace(n.Summary),
			Source:      n.Source,
			URL:         n.URL,
			PublishedAt: published,
			Sentiment:   n.Sentiment,
		})
	}
	if len(items) == 0 {
		return nil, unavailablef(alphaVantageName, "news", ticker, "no news in the week before %s", asOf.Format(alphaVantageDateFmt))
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].PublishedAt.After(items[j].PublishedAt) })
	return items[:capLimit(len(items), limit)], nil
}

func (av *AlphaVantage) InsiderTrades(ctx context.Context, ticker string, asOf time.Time, limit int) ([]InsiderTrade, error) {
	var out avInsiderResponse
	err := av.query(ctx, "insider", ticker, map[string]string{"function": "INSIDER_TRANSACTIONS", "symbol": ticker}, &out)
	if err != nil {
		return nil, err
	}
	if err := out.err(); err != nil {
		return nil, unavailable(alphaVantageName, "insider", ticker, err)
	}
	day := truncateDay(asOf)
	trades := make([]InsiderTrade, 0, len(out.Data))
	for _, row := range out.Data {
		date, err := time.Parse(alphaVantageDateFmt, row.TransactionDate)
		if err != nil || !date.Before(day) {
			continue
		}
		trades = append(trades, InsiderTrade{
			Ticker:          ticker,
			Insider:         row.Executive,
			Title:           row.ExecutiveTitle,
			TransactionDate: date,
			Type:            insiderType(row.AcquisitionOrDisposal),
			Shares:          parseFloat(row.Shares),
			Price:           parseFloat(row.SharePrice),
		})
	}
	if len(trades) == 0 {
		return nil, unavailablef(alphaVantageName, "insider", ticker, "no trades before %s", asOf.Format(alphaVantageDateFmt))
	}
	sort.SliceStable(trades, func(i, j int) bool { return trades[i].TransactionDate.After(trades[j].TransactionDate) })
	return trades[:capLimit(len(trades), limit)], nil
}

func insiderType(code string) string {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "A":
		return "Buy"
	case "D":
		return "Sell"
	default:
		return code
	}
}

// parseFloat 把 "None"、"-" 等占位符视为 0。
func parseFloat(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseDecimal(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero
	}
	return d
}
