package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"deepfund/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() Report {
	d := func(v int64) decimal.Decimal { return decimal.NewFromInt(v) }
	date := time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)
	return Report{
		Identity: types.RunIdentity{ID: "cfg-1", Name: "exp", Tickers: []string{"ABC"}, SelectionMode: "planner", LLMProvider: "openai", LLMModel: "gpt-4o-mini", InitialCash: d(10000)},
		History: []types.Portfolio{
			{Version: 2, TradingDate: date.AddDate(0, 0, 1), Cashflow: d(4000), Positions: map[string]types.Position{"ABC": {Shares: 60, Value: d(5400)}}},
			{Version: 0, Cashflow: d(10000)},
			{Version: 1, TradingDate: date, Cashflow: d(4000), Positions: map[string]types.Position{"ABC": {Shares: 60, Value: d(7200)}}},
		},
		Recent: []types.DecisionRecord{{Decision: types.Decision{Ticker: "ABC", Action: types.ActionBuy, Shares: 60, Price: d(100)}, TradingDate: date}},
	}
}

func TestCurveAndMetrics(t *testing.T) {
	r := sampleReport()
	curve := r.Curve()
	require.Len(t, curve, 3)
	assert.Equal(t, "seed", curve[0].TradingDate)
	assert.Equal(t, "2024-09-02", curve[1].TradingDate)
	assert.True(t, decimal.NewFromInt(11200).Equal(curve[1].Total))

	assert.Equal(t, 2, r.Latest().Version)
	assert.Equal(t, "-6.00%", percent(r.Return()))
	assert.Equal(t, "16.07%", percent(r.MaxDrawdown()))
}

func TestRenderSummary(t *testing.T) {
	out := RenderSummary(sampleReport())
	for _, want := range []string{"deepfund portfolio", "exp (cfg-1)", "9400.00", "ABC", "60 shares", "2024-09-02"} {
		assert.Contains(t, out, want)
	}

	empty := RenderSummary(Report{Identity: types.RunIdentity{Name: "fresh"}})
	assert.Contains(t, empty, "no open positions")
}

func TestEquityHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderEquity(&buf, sampleReport()))
	assert.Contains(t, buf.String(), "echarts")
	assert.Contains(t, buf.String(), "Total value")

	path := filepath.Join(t.TempDir(), "out", "equity.html")
	require.NoError(t, WriteEquityHTML(path, sampleReport()))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
