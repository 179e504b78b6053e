package indicator

import (
	"strings"
	"testing"
	"time"

	"deepfund/internal/market"
	"deepfund/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearBars(n int, start, step float64) []market.Bar {
	bars := make([]market.Bar, n)
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		c := start + step*float64(i)
		bars[i] = market.Bar{
			Date:   day.AddDate(0, 0, i),
			Open:   decimal.NewFromFloat(c),
			High:   decimal.NewFromFloat(c + 1),
			Low:    decimal.NewFromFloat(c - 1),
			Close:  decimal.NewFromFloat(c),
			Volume: int64(1000 + 10*i),
		}
	}
	return bars
}

func component(t *testing.T, s Summary, name string) Component {
	t.Helper()
	for _, c := range s.Components {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("component %s missing", name)
	return Component{}
}

func TestSummarizeUptrend(t *testing.T) {
	s, err := Summarize("ABC", linearBars(150, 100, 1), DefaultThresholds())
	require.NoError(t, err)
	assert.Equal(t, 150, s.Bars)
	assert.InDelta(t, 249, s.LastClose, 1e-9)
	assert.Greater(t, s.ATR, 0.0)
	require.Len(t, s.Components, 5)

	assert.Equal(t, types.Bullish, component(t, s, "trend").Polarity)
	assert.Equal(t, types.Bearish, component(t, s, "rsi").Polarity, "a straight rally is overbought")
	assert.Equal(t, types.Bullish, component(t, s, "momentum").Polarity)
	assert.Equal(t, types.Neutral, component(t, s, "mean_reversion").Polarity)

	bull, bear, neutral := s.Tally()
	assert.Equal(t, 5, bull+bear+neutral)
	assert.Contains(t, s.Render(), "- trend: Bullish")
}

func TestSummarizeDowntrend(t *testing.T) {
	s, err := Summarize("XYZ", linearBars(100, 300, -1), DefaultThresholds())
	require.NoError(t, err)
	assert.Equal(t, types.Bearish, component(t, s, "trend").Polarity)
	assert.Equal(t, types.Bullish, component(t, s, "rsi").Polarity)
}

func TestSummarizeShortHistoryAbstains(t *testing.T) {
	s, err := Summarize("NEW", linearBars(10, 50, 0.5), DefaultThresholds())
	require.NoError(t, err)
	for _, name := range []string{"trend", "mean_reversion", "rsi", "momentum", "volatility"} {
		c := component(t, s, name)
		assert.Equal(t, types.Neutral, c.Polarity, name)
		assert.True(t, strings.HasPrefix(c.Detail, "insufficient data"), name)
	}

	_, err = Summarize("NONE", linearBars(1, 10, 0), DefaultThresholds())
	assert.Error(t, err)
}
