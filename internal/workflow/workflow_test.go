package workflow

import (
	"testing"
	"time"

	"deepfund/internal/types"

	"github.com/stretchr/testify/assert"
)

func TestGraphEdgeTemplate(t *testing.T) {
	g := NewGraph("ABC", []string{"technical", "news"})
	assert.Equal(t, []string{"technical", "news", NodeRisk, NodePortfolio}, g.Nodes())
	assert.Equal(t, []string{"technical", "news"}, g.Predecessors(NodeRisk))
	assert.Equal(t, []string{NodeRisk}, g.Predecessors(NodePortfolio))
	assert.Empty(t, g.Predecessors("technical"))
	assert.Equal(t, "ABC: [technical, news] -> risk_controller -> portfolio_manager", g.String())
}

func TestTradingDatesSkipWeekends(t *testing.T) {
	start := time.Date(2024, 8, 30, 15, 0, 0, 0, time.UTC) // Friday
	end := time.Date(2024, 9, 3, 0, 0, 0, 0, time.UTC)
	got := TradingDates(start, end)
	assert.Equal(t, []time.Time{
		time.Date(2024, 8, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 9, 3, 0, 0, 0, 0, time.UTC),
	}, got)
}

func TestResolveDates(t *testing.T) {
	sunday := time.Date(2024, 9, 8, 10, 0, 0, 0, time.UTC)
	override := time.Date(2024, 9, 4, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, []time.Time{override}, ResolveDates(time.Time{}, time.Time{}, override, sunday))
	assert.Equal(t, []time.Time{time.Date(2024, 9, 6, 0, 0, 0, 0, time.UTC)}, ResolveDates(time.Time{}, time.Time{}, time.Time{}, sunday))
	assert.Len(t, ResolveDates(time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC), time.Time{}, time.Time{}, sunday), 5)
}

func TestPendingDates(t *testing.T) {
	dates := []time.Time{day1, day2, day3}
	pending, skipped := pendingDates(dates, day2.Add(3*time.Hour))
	assert.Equal(t, []time.Time{day2, day3}, pending, "the latest date may be partly settled")
	assert.Equal(t, 1, skipped)

	pending, skipped = pendingDates(dates, time.Time{})
	assert.Len(t, pending, 3)
	assert.Zero(t, skipped)
}

func TestCollectSignalsIsComplete(t *testing.T) {
	g := NewGraph("ABC", []string{"technical", "news", "insider"})
	results := []types.Signal{
		{Analyst: "technical", Polarity: types.Bullish, Justification: "up"},
		{},
		{Analyst: "insider", Polarity: "", Justification: ""},
	}
	got := collectSignals(g, results)
	assert.Len(t, got, 3)
	assert.Equal(t, "news", got[1].Analyst)
	assert.Equal(t, types.Neutral, got[1].Polarity)
	assert.NotEmpty(t, got[1].Justification)
	assert.Equal(t, types.Neutral, got[2].Polarity)
	assert.Equal(t, "ABC", got[0].Ticker)
}
