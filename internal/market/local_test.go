package market

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const abcFixture = `ticker: ABC
prices:
  - {date: 2024-01-02, open: 99, high: 101, low: 98, close: 100, volume: 1000}
  - {date: 2024-01-03, open: 100, high: 104, low: 99, close: 103, volume: 1500}
fundamentals:
  name: ABC Corp
  pe_ratio: 18.2
  eps: 5.1
news:
  - {title: "ABC beats estimates", source: Wire, published_at: "2024-01-02T14:00:00Z"}
  - {title: "Stale story", source: Wire, published_at: "2023-12-01T14:00:00Z"}
insider_trades:
  - {insider: Jane, title: CFO, date: 2024-01-02, type: Buy, shares: 100, price: 99.5}
  - {insider: Joe, title: CEO, date: 2024-01-03, type: Sell, shares: 50, price: 103}
`

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ABC.yaml"), []byte(abcFixture), 0o644))
	return dir
}

func TestLocalProviderReplaysFixture(t *testing.T) {
	l := NewLocal(writeFixture(t))
	ctx := context.Background()
	asOf := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	price, err := l.Price(ctx, "abc", asOf)
	require.NoError(t, err)
	assert.Equal(t, "103", price.String())

	bars, err := l.PriceHistory(ctx, "ABC", asOf.AddDate(0, 0, -30), asOf)
	require.NoError(t, err)
	assert.Len(t, bars, 2)

	f, err := l.Fundamentals(ctx, "ABC", asOf)
	require.NoError(t, err)
	assert.Equal(t, "ABC", f.Ticker)
	assert.InDelta(t, 18.2, f.PERatio, 1e-9)

	news, err := l.News(ctx, "ABC", asOf, 10)
	require.NoError(t, err)
	require.Len(t, news, 1)
	assert.Equal(t, "ABC beats estimates", news[0].Title)

	trades, err := l.InsiderTrades(ctx, "ABC", asOf, 10)
	require.NoError(t, err)
	require.Len(t, trades, 1, "trades on the trading date are excluded")
	assert.Equal(t, "Jane", trades[0].Insider)
}

func TestLocalProviderMissingData(t *testing.T) {
	l := NewLocal(writeFixture(t))
	ctx := context.Background()

	_, err := l.Price(ctx, "XYZ", time.Now())
	assert.True(t, IsDataUnavailable(err))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = l.Price(ctx, "ABC", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, IsDataUnavailable(err))

	_, err = l.News(ctx, "ABC", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 5)
	assert.True(t, IsDataUnavailable(err))
}

func TestNewLocalFromFixtures(t *testing.T) {
	l, err := NewLocalFromFixtures(Fixture{
		Ticker: "XYZ",
		Prices: []FixtureBar{{Date: "2024-01-02", Close: 10}},
	})
	require.NoError(t, err)
	price, err := l.Price(context.Background(), "XYZ", time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "10", price.String())

	_, err = l.Fundamentals(context.Background(), "XYZ", time.Now())
	assert.True(t, IsDataUnavailable(err))

	_, err = NewLocalFromFixtures(Fixture{Ticker: "BAD", Prices: []FixtureBar{{Date: "Jan 2"}}})
	assert.Error(t, err)
}
