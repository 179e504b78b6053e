package market

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const localName = "local"

// Fixture 是单个 ticker 的离线数据文件（<fixtures_dir>/<TICKER>.yaml）。
type Fixture struct {
	Ticker        string           `yaml:"ticker"`
	Prices        []FixtureBar     `yaml:"prices"`
	Fundamentals  *Fundamentals    `yaml:"fundamentals"`
	News          []FixtureNews    `yaml:"news"`
	InsiderTrades []FixtureInsider `yaml:"insider_trades"`
}

type FixtureBar struct {
	Date   string  `yaml:"date"`
	Open   float64 `yaml:"open"`
	High   float64 `yaml:"high"`
	Low    float64 `yaml:"low"`
	Close  float64 `yaml:"close"`
	Volume int64   `yaml:"volume"`
}

type FixtureNews struct {
	Title       string `yaml:"title"`
	Summary     string `yaml:"summary"`
	Source      string `yaml:"source"`
	URL         string `yaml:"url"`
	PublishedAt string `yaml:"published_at"`
	Sentiment   string `yaml:"sentiment"`
}

type FixtureInsider struct {
	Insider string  `yaml:"insider"`
	Title   string  `yaml:"title"`
	Date    string  `yaml:"date"`
	Type    string  `yaml:"type"`
	Shares  float64 `yaml:"shares"`
	Price   float64 `yaml:"price"`
}

// Local 从 YAML fixture 重放数据，用于离线回测与测试。
type Local struct {
	dir string

	mu       sync.Mutex
	fixtures map[string]*localData
}

type localData struct {
	bars    []Bar
	funda   *Fundamentals
	news    []NewsItem
	insider []InsiderTrade
}

func NewLocal(dir string) *Local {
	return &Local{dir: dir, fixtures: make(map[string]*localData)}
}

// NewLocalFromFixtures builds a provider from in-memory fixtures.
func NewLocalFromFixtures(fixtures ...Fixture) (*Local, error) {
	l := NewLocal("")
	for _, fx := range fixtures {
		data, err := compileFixture(fx)
		if err != nil {
			return nil, err
		}
		l.fixtures[strings.ToUpper(fx.Ticker)] = data
	}
	return l, nil
}

func (l *Local) Name() string { return localName }

func (l *Local) load(ticker string) (*localData, error) {
	key := strings.ToUpper(strings.TrimSpace(ticker))
	l.mu.Lock()
	defer l.mu.Unlock()
	if data, ok := l.fixtures[key]; ok {
		return data, nil
	}
	if l.dir == "" {
		return nil, unavailablef(localName, "fixture", key, "no fixture loaded")
	}
	path := filepath.Join(l.dir, key+".yaml")
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, unavailable(localName, "fixture", key, err)
		}
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var fx Fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if fx.Ticker == "" {
		fx.Ticker = key
	}
	data, err := compileFixture(fx)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	l.fixtures[key] = data
	return data, nil
}

func compileFixture(fx Fixture) (*localData, error) {
	data := &localData{funda: fx.Fundamentals}
	for _, p := range fx.Prices {
		date, err := time.Parse(alphaVantageDateFmt, strings.TrimSpace(p.Date))
		if err != nil {
			return nil, fmt.Errorf("price date %q: %w", p.Date, err)
		}
		data.bars = append(data.bars, Bar{
			Date:   date,
			Open:   decimal.NewFromFloat(p.Open),
			High:   decimal.NewFromFloat(p.High),
			Low:    decimal.NewFromFloat(p.Low),
			Close:  decimal.NewFromFloat(p.Close),
			Volume: p.Volume,
		})
	}
	sort.Slice(data.bars, func(i, j int) bool { return data.bars[i].Date.Before(data.bars[j].Date) })
	for _, n := range fx.News {
		published, err := parseFixtureTime(n.PublishedAt)
		if err != nil {
			return nil, fmt.Errorf("news published_at %q: %w", n.PublishedAt, err)
		}
		data.news = append(data.news, NewsItem{
			Title: n.Title, Summary: n.Summary, Source: n.Source, URL: n.URL,
			PublishedAt: published, Sentiment: n.Sentiment,
		})
	}
	sort.SliceStable(data.news, func(i, j int) bool { return data.news[i].PublishedAt.After(data.news[j].PublishedAt) })
	for _, t := range fx.InsiderTrades {
		date, err := parseFixtureTime(t.Date)
		if err != nil {
			return nil, fmt.Errorf("insider date %q: %w", t.Date, err)
		}
		data.insider = append(data.insider, InsiderTrade{
			Ticker: strings.ToUpper(fx.Ticker), Insider: t.Insider, Title: t.Title,
			TransactionDate: date, Type: t.Type, Shares: t.Shares, Price: t.Price,
		})
	}
	sort.SliceStable(data.insider, func(i, j int) bool {
		return data.insider[i].TransactionDate.After(data.insider[j].TransactionDate)
	})
	return data, nil
}

func parseFixtureTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(alphaVantageDateFmt, raw)
}

func (l *Local) Price(_ context.Context, ticker string, asOf time.Time) (decimal.Decimal, error) {
	data, err := l.load(ticker)
	if err != nil {
		return decimal.Zero, err
	}
	price, ok := lastCloseOnOrBefore(data.bars, asOf)
	if !ok {
		return decimal.Zero, unavailablef(localName, "price", ticker, "no close on or before %s", asOf.Format(alphaVantageDateFmt))
	}
	return price, nil
}

func (l *Local) PriceHistory(_ context.Context, ticker string, start, end time.Time) ([]Bar, error) {
	data, err := l.load(ticker)
	if err != nil {
		return nil, err
	}
	bars := filterBars(data.bars, start, end)
	if len(bars) == 0 {
		return nil, unavailablef(localName, "history", ticker, "no bars in range")
	}
	return bars, nil
}

func (l *Local) Fundamentals(_ context.Context, ticker string, _ time.Time) (Fundamentals, error) {
	data, err := l.load(ticker)
	if err != nil {
		return Fundamentals{}, err
	}
	if data.funda == nil || data.funda.Empty() {
		return Fundamentals{}, unavailablef(localName, "overview", ticker, "no fundamentals in fixture")
	}
	f := *data.funda
	if f.Ticker == "" {
		f.Ticker = strings.ToUpper(ticker)
	}
	return f, nil
}

func (l *Local) News(_ context.Context, ticker string, asOf time.Time, limit int) ([]NewsItem, error) {
	data, err := l.load(ticker)
	if err != nil {
		return nil, err
	}
	from := asOf.Add(-NewsWindow)
	var out []NewsItem
	for _, n := range data.news {
		if n.PublishedAt.After(asOf) || n.PublishedAt.Before(from) {
			continue
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, unavailablef(localName, "news", ticker, "no news in the week before %s", asOf.Format(alphaVantageDateFmt))
	}
	return out[:capLimit(len(out), limit)], nil
}

func (l *Local) InsiderTrades(_ context.Context, ticker string, asOf time.Time, limit int) ([]InsiderTrade, error) {
	data, err := l.load(ticker)
	if err != nil {
		return nil, err
	}
	day := truncateDay(asOf)
	var out []InsiderTrade
	for _, t := range data.insider {
		if truncateDay(t.TransactionDate).Before(day) {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil, unavailablef(localName, "insider", ticker, "no trades before %s", asOf.Format(alphaVantageDateFmt))
	}
	return out[:capLimit(len(out), limit)], nil
}
