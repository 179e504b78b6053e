package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"deepfund/internal/config"
	"deepfund/internal/store"
	"deepfund/internal/store/gormstore"
	"deepfund/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) (*Ledger, store.Store) {
	t.Helper()
	s, err := gormstore.OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return New(s), s
}

func identity(name string) types.RunIdentity {
	return types.RunIdentity{
		Name:          name,
		Tickers:       []string{"ABC"},
		SelectionMode: "planner",
		LLMProvider:   "openai",
		LLMModel:      "gpt-4o-mini",
		InitialCash:   InitialCash(10000),
	}
}

func TestOpenIsLookupOrCreate(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	id, seed, err := l.Open(ctx, identity("exp"))
	require.NoError(t, err)
	assert.NotEmpty(t, id.ID)
	assert.Equal(t, 0, seed.Version)
	assert.True(t, dec(10000).Equal(seed.Cashflow))
	assert.Empty(t, seed.Positions)

	again, latest, err := l.Open(ctx, identity("exp"))
	require.NoError(t, err)
	assert.Equal(t, id.ID, again.ID)
	assert.Equal(t, seed.ID, latest.ID)
}

func TestOpenRejectsIncompatibleReuse(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	_, _, err := l.Open(ctx, identity("exp"))
	require.NoError(t, err)

	changed := identity("exp")
	changed.LLMModel = "other-model"
	changed.SelectionMode = "static:technical"
	_, _, err = l.Open(ctx, changed)
	require.Error(t, err)
	assert.True(t, config.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "llm model")
	assert.Contains(t, err.Error(), "analyst selection")
}

func TestAppendBuildsVersionedChain(t *testing.T) {
	l, s := newTestLedger(t)
	ctx := context.Background()
	id, current, err := l.Open(ctx, identity("chain"))
	require.NoError(t, err)

	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var last types.Portfolio
	for i := 1; i <= 4; i++ {
		d := types.Decision{Ticker: "ABC", Action: types.ActionBuy, Shares: 10, Price: dec(100), Justification: "step"}
		next, err := Settle(current, d)
		require.NoError(t, err)
		last, err = l.Append(ctx, Entry{
			Parent:      current,
			Next:        next,
			Decision:    d,
			Signals:     []types.Signal{{Analyst: "technical", Ticker: "ABC", Polarity: types.Bullish, Justification: "up"}},
			TradingDate: date,
		})
		require.NoError(t, err)
		assert.Equal(t, i, last.Version)
		assert.NotEqual(t, current.ID, last.ID)
		current = last
	}

	latest, err := l.Latest(ctx, id.ID)
	require.NoError(t, err)
	assert.Equal(t, last.ID, latest.ID)
	assert.Equal(t, int64(40), latest.Position("ABC").Shares)
	assert.True(t, dec(6000).Equal(latest.Cashflow))

	mem, err := l.DecisionMemory(ctx, id.ID, "ABC", 5)
	require.NoError(t, err)
	assert.Len(t, mem, 4)

	sigs, err := s.Signals().ForSnapshot(ctx, mem[0].SnapshotID)
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	assert.Equal(t, "technical", sigs[0].Analyst)

	lastDate, err := l.LatestTradingDate(ctx, id.ID)
	require.NoError(t, err)
	assert.Equal(t, date, lastDate)

	history, err := l.History(ctx, id.ID, 0)
	require.NoError(t, err)
	assert.Len(t, history, 5)
}

func TestAppendFromStaleParentConflicts(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	_, seed, err := l.Open(ctx, identity("stale"))
	require.NoError(t, err)

	hold := types.HoldDecision("ABC", dec(10), "wait")
	_, err = l.Append(ctx, Entry{Parent: seed, Next: seed, Decision: hold})
	require.NoError(t, err)

	_, err = l.Append(ctx, Entry{Parent: seed, Next: seed, Decision: hold})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrVersionConflict)
}

func TestDecisionMemoryLimit(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	id, current, err := l.Open(ctx, identity("mem"))
	require.NoError(t, err)

	for i := 0; i < 7; i++ {
		d := types.HoldDecision("ABC", dec(int64(10+i)), "wait")
		current, err = l.Append(ctx, Entry{Parent: current, Next: current, Decision: d})
		require.NoError(t, err)
	}
	mem, err := l.DecisionMemory(ctx, id.ID, "ABC", 5)
	require.NoError(t, err)
	require.Len(t, mem, 5)
	assert.True(t, dec(16).Equal(mem[0].Price), "newest first")
	assert.True(t, dec(12).Equal(mem[4].Price))

	none, err := l.DecisionMemory(ctx, id.ID, "ZZZ", 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}
