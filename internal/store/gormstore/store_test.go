package gormstore

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"deepfund/internal/store"
	"deepfund/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *GormStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedConfig(t *testing.T, s *GormStore, name string) *types.RunIdentity {
	t.Helper()
	cfg := &types.RunIdentity{
		Name:          name,
		Tickers:       []string{"ABC", "XYZ"},
		SelectionMode: "planner",
		LLMProvider:   "openai",
		LLMModel:      "gpt-4o-mini",
		InitialCash:   decimal.NewFromInt(10000),
	}
	require.NoError(t, s.Configs().Create(context.Background(), cfg))
	require.NotEmpty(t, cfg.ID)
	return cfg
}

func TestConfigLookupByName(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	missing, err := s.Configs().FindByName(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	cfg := seedConfig(t, s, "exp")
	got, err := s.Configs().FindByName(ctx, "exp")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, cfg.ID, got.ID)
	assert.Equal(t, []string{"ABC", "XYZ"}, got.Tickers)
	assert.True(t, decimal.NewFromInt(10000).Equal(got.InitialCash))

	dup := &types.RunIdentity{Name: "exp"}
	assert.Error(t, s.Configs().Create(ctx, dup))
}

func TestSnapshotChainLatestIsNth(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	cfg := seedConfig(t, s, "chain")

	latest, err := s.Snapshots().Latest(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)

	const n = 6
	var ids []string
	for v := 0; v < n; v++ {
		p := &types.Portfolio{
			ConfigID:    cfg.ID,
			Version:     v,
			TradingDate: time.Date(2024, 1, 2+v, 0, 0, 0, 0, time.UTC),
			Cashflow:    decimal.NewFromInt(int64(10000 - v*100)),
			Positions: map[string]types.Position{
				"ABC": {Shares: int64(v), Value: decimal.NewFromInt(int64(v * 100))},
			},
		}
		require.NoError(t, s.Snapshots().Create(ctx, p))
		ids = append(ids, p.ID)
	}

	latest, err = s.Snapshots().Latest(ctx, cfg.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, ids[n-1], latest.ID)
	assert.Equal(t, n-1, latest.Version)
	assert.Equal(t, int64(n-1), latest.Position("ABC").Shares)
	assert.True(t, decimal.NewFromInt(int64(10000-(n-1)*100)).Equal(latest.Cashflow))

	recent, err := s.Snapshots().RecentIDs(ctx, cfg.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{ids[5], ids[4], ids[3]}, recent)

	all, err := s.Snapshots().List(ctx, cfg.ID, 0)
	require.NoError(t, err)
	require.Len(t, all, n)
	assert.Equal(t, 0, all[0].Version)
	assert.Equal(t, n-1, all[n-1].Version)

	lastDate, err := s.Snapshots().LatestTradingDate(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC), lastDate)
}

func TestSnapshotVersionConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	cfg := seedConfig(t, s, "conflict")

	require.NoError(t, s.Snapshots().Create(ctx, &types.Portfolio{ConfigID: cfg.ID, Version: 0, Cashflow: decimal.NewFromInt(1)}))

	err := s.Snapshots().Create(ctx, &types.Portfolio{ConfigID: cfg.ID, Version: 0, Cashflow: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, store.ErrVersionConflict)

	err = s.Snapshots().Create(ctx, &types.Portfolio{ConfigID: cfg.ID, Version: 5, Cashflow: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, store.ErrVersionConflict)

	assert.NoError(t, s.Snapshots().Create(ctx, &types.Portfolio{ConfigID: cfg.ID, Version: 1, Cashflow: decimal.NewFromInt(1)}))
}

func TestDecisionMemoryAcrossSnapshots(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	cfg := seedConfig(t, s, "memory")

	for v := 0; v < 8; v++ {
		p := &types.Portfolio{ConfigID: cfg.ID, Version: v, Cashflow: decimal.NewFromInt(100)}
		require.NoError(t, s.Snapshots().Create(ctx, p))
		ticker := "ABC"
		if v%2 == 1 {
			ticker = "XYZ"
		}
		d := types.Decision{
			Ticker:        ticker,
			Action:        types.ActionBuy,
			Shares:        int64(v),
			Price:         decimal.NewFromInt(10),
			Justification: fmt.Sprintf("step %d", v),
		}
		require.NoError(t, s.Decisions().Append(ctx, p.ID, time.Time{}, d))
		require.NoError(t, s.Signals().Append(ctx, p.ID, types.Signal{Analyst: "news", Ticker: ticker, Polarity: types.Bullish, Justification: "ok"}))
	}

	ids, err := s.Snapshots().RecentIDs(ctx, cfg.ID, 0)
	require.NoError(t, err)
	require.Len(t, ids, 8)

	recs, err := s.Decisions().ForSnapshots(ctx, ids, "ABC", 3)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []int64{6, 4, 2}, []int64{recs[0].Shares, recs[1].Shares, recs[2].Shares})
	assert.Equal(t, types.ActionBuy, recs[0].Action)

	sigs, err := s.Signals().ForSnapshot(ctx, ids[0])
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	assert.Equal(t, "XYZ", sigs[0].Ticker)
}

func TestUnitOfWorkRollback(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	cfg := seedConfig(t, s, "uow")

	uow, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.Snapshots().Create(ctx, &types.Portfolio{ConfigID: cfg.ID, Version: 0, Cashflow: decimal.NewFromInt(5)}))
	require.NoError(t, uow.Rollback())

	latest, err := s.Snapshots().Latest(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestDecisionTickersOnTradingDate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	cfg := seedConfig(t, s, "resume")
	other := seedConfig(t, s, "other")

	day1 := time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	appendAt := func(id *types.RunIdentity, version int, ticker string, date time.Time) {
		p := &types.Portfolio{ConfigID: id.ID, Version: version, Cashflow: decimal.NewFromInt(100)}
		require.NoError(t, s.Snapshots().Create(ctx, p))
		require.NoError(t, s.Decisions().Append(ctx, p.ID, date, types.Decision{
			Ticker: ticker, Action: types.ActionHold, Price: decimal.NewFromInt(10),
		}))
	}
	appendAt(cfg, 0, "XYZ", day1)
	appendAt(cfg, 1, "ABC", day1)
	appendAt(cfg, 2, "ABC", day2)
	appendAt(other, 0, "QQQ", day1)

	tickers, err := s.Decisions().TickersOn(ctx, cfg.ID, day1.Add(5*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"ABC", "XYZ"}, tickers)

	tickers, err = s.Decisions().TickersOn(ctx, cfg.ID, day2)
	require.NoError(t, err)
	assert.Equal(t, []string{"ABC"}, tickers)

	tickers, err = s.Decisions().TickersOn(ctx, cfg.ID, day2.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, tickers)
}

func TestForeignKeysRejectOrphans(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Snapshots().Create(ctx, &types.Portfolio{ConfigID: "missing-config", Version: 0, Cashflow: decimal.NewFromInt(1)})
	require.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrVersionConflict)

	err = s.Signals().Append(ctx, "missing-snapshot", types.Signal{Analyst: "news", Ticker: "ABC", Polarity: types.Neutral})
	assert.Error(t, err)

	cfg := seedConfig(t, s, "fk")
	p := &types.Portfolio{ConfigID: cfg.ID, Version: 0, Cashflow: decimal.NewFromInt(1)}
	require.NoError(t, s.Snapshots().Create(ctx, p))
	assert.NoError(t, s.Signals().Append(ctx, p.ID, types.Signal{Analyst: "news", Ticker: "ABC", Polarity: types.Neutral}))
}
