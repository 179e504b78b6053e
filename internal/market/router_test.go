package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"deepfund/internal/config"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingProvider 记录调用次数，可配置为始终失败。
type countingProvider struct {
	name  string
	price decimal.Decimal
	err   error
	calls int
}

func (c *countingProvider) Name() string { return c.name }

func (c *countingProvider) Price(context.Context, string, time.Time) (decimal.Decimal, error) {
	c.calls++
	return c.price, c.err
}

func (c *countingProvider) PriceHistory(context.Context, string, time.Time, time.Time) ([]Bar, error) {
	c.calls++
	return nil, c.err
}

func (c *countingProvider) Fundamentals(context.Context, string, time.Time) (Fundamentals, error) {
	c.calls++
	return Fundamentals{}, c.err
}

func (c *countingProvider) News(context.Context, string, time.Time, int) ([]NewsItem, error) {
	c.calls++
	return nil, c.err
}

func (c *countingProvider) InsiderTrades(context.Context, string, time.Time, int) ([]InsiderTrade, error) {
	c.calls++
	return nil, c.err
}

func TestRouterFallsBackAndCaches(t *testing.T) {
	primary := &countingProvider{name: "p", err: unavailablef("p", "price", "ABC", "down")}
	backup := &countingProvider{name: "b", price: decimal.NewFromInt(42)}
	r := NewRouter(primary, backup, time.Minute)
	asOf := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		price, err := r.Price(context.Background(), "ABC", asOf)
		require.NoError(t, err)
		assert.Equal(t, "42", price.String())
	}
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, backup.calls)
	assert.Equal(t, "p+b", r.Name())
}

func TestRouterJoinsErrors(t *testing.T) {
	primary := &countingProvider{name: "p", err: unavailablef("p", "news", "ABC", "empty")}
	backup := &countingProvider{name: "b", err: errors.New("network")}
	r := NewRouter(primary, backup, time.Minute)

	_, err := r.News(context.Background(), "ABC", time.Now(), 5)
	require.Error(t, err)
	assert.True(t, IsDataUnavailable(err))

	_, err = r.News(context.Background(), "ABC", time.Now(), 5)
	require.Error(t, err)
	assert.Equal(t, 2, primary.calls, "failures are not cached")
}

func TestBuildFromConfig(t *testing.T) {
	r, err := BuildFromConfig(config.DataConfig{Source: "local", Fallback: "yahoo", FixturesDir: t.TempDir(), CacheTTLSeconds: 60})
	require.NoError(t, err)
	assert.Equal(t, "local+yahoo", r.Name())

	_, err = BuildFromConfig(config.DataConfig{Source: "bloomberg"})
	assert.True(t, config.IsConfigurationError(err))

	t.Setenv("DEEPFUND_TEST_AV_KEY", "")
	_, err = BuildFromConfig(config.DataConfig{Source: "alphavantage", APIKeyEnv: "DEEPFUND_TEST_AV_KEY"})
	assert.True(t, config.IsConfigurationError(err))
}
