package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"deepfund/internal/config"
	"deepfund/internal/logger"
	"deepfund/internal/store"
	"deepfund/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger is the append-only, versioned portfolio chain of one store.
type Ledger struct {
	store store.Store
	now   func() time.Time
}

func New(s store.Store) *Ledger {
	return &Ledger{store: s, now: func() time.Time { return time.Now().UTC() }}
}

// Open looks up the run identity by name, creating it with a seed snapshot
// (initial cash, no positions) when absent. Reusing a name with different
// selection mode, oracle, or initial cash is a ConfigurationError.
func (l *Ledger) Open(ctx context.Context, want types.RunIdentity) (types.RunIdentity, types.Portfolio, error) {
	name := strings.TrimSpace(want.Name)
	if name == "" {
		return types.RunIdentity{}, types.Portfolio{}, config.Invalid("run.name", "cannot be empty")
	}
	existing, err := l.store.Configs().FindByName(ctx, name)
	if err != nil {
		return types.RunIdentity{}, types.Portfolio{}, fmt.Errorf("lookup config %s: %w", name, err)
	}
	if existing == nil {
		return l.create(ctx, want)
	}
	if err := compatible(*existing, want); err != nil {
		return types.RunIdentity{}, types.Portfolio{}, err
	}
	if added := addedTickers(existing.Tickers, want.Tickers); len(added) > 0 {
		logger.Warnf("run %s: tickers %v were not part of the original config", name, added)
	}
	latest, err := l.store.Snapshots().Latest(ctx, existing.ID)
	if err != nil {
		return types.RunIdentity{}, types.Portfolio{}, fmt.Errorf("load latest snapshot of %s: %w", name, err)
	}
	if latest == nil {
		seed, err := l.seed(ctx, l.store.Snapshots(), *existing)
		if err != nil {
			return types.RunIdentity{}, types.Portfolio{}, err
		}
		return *existing, seed, nil
	}
	logger.Infof("run %s: continuing from snapshot v%d (cash=%s, total=%s)",
		name, latest.Version, latest.Cashflow.StringFixed(2), latest.TotalValue().StringFixed(2))
	return *existing, *latest, nil
}

func (l *Ledger) create(ctx context.Context, want types.RunIdentity) (types.RunIdentity, types.Portfolio, error) {
	uow, err := l.store.Begin(ctx)
	if err != nil {
		return types.RunIdentity{}, types.Portfolio{}, err
	}
	defer func() { _ = uow.Rollback() }()

	id := want
	id.ID = uuid.NewString()
	id.CreatedAt = l.now()
	if err := uow.Configs().Create(ctx, &id); err != nil {
		return types.RunIdentity{}, types.Portfolio{}, fmt.Errorf("create config %s: %w", id.Name, err)
	}
	seed, err := l.seed(ctx, uow.Snapshots(), id)
	if err != nil {
		return types.RunIdentity{}, types.Portfolio{}, err
	}
	if err := uow.Commit(); err != nil {
		return types.RunIdentity{}, types.Portfolio{}, fmt.Errorf("commit config %s: %w", id.Name, err)
	}
	logger.Infof("run %s: created config %s with initial cash %s", id.Name, id.ID, id.InitialCash.StringFixed(2))
	return id, seed, nil
}

func (l *Ledger) seed(ctx context.Context, repo store.SnapshotRepository, id types.RunIdentity) (types.Portfolio, error) {
	seed := types.Portfolio{
		ID:        uuid.NewString(),
		ConfigID:  id.ID,
		Version:   0,
		Cashflow:  id.InitialCash,
		Positions: map[string]types.Position{},
		CreatedAt: l.now(),
	}
	if err := repo.Create(ctx, &seed); err != nil {
		return types.Portfolio{}, fmt.Errorf("create seed snapshot for %s: %w", id.Name, err)
	}
	return seed, nil
}

// Latest returns the newest snapshot of the config.
func (l *Ledger) Latest(ctx context.Context, configID string) (types.Portfolio, error) {
	p, err := l.store.Snapshots().Latest(ctx, configID)
	if err != nil {
		return types.Portfolio{}, err
	}
	if p == nil {
		return types.Portfolio{}, fmt.Errorf("%w: no snapshot for config %s", store.ErrNotFound, configID)
	}
	return *p, nil
}

// Entry is one settled pipeline step.
type Entry struct {
	Parent      types.Portfolio
	Next        types.Portfolio
	Decision    types.Decision
	Signals     []types.Signal
	TradingDate time.Time
}

// Append persists entry.Next as version Parent.Version+1 together with the
// decision and signals, which reference the parent snapshot. Everything is
// written in one transaction; a concurrent writer surfaces as ErrVersionConflict.
func (l *Ledger) Append(ctx context.Context, entry Entry) (types.Portfolio, error) {
	next := entry.Next.Clone()
	next.ID = uuid.NewString()
	next.ConfigID = entry.Parent.ConfigID
	next.Version = entry.Parent.Version + 1
	next.TradingDate = entry.TradingDate
	next.CreatedAt = l.now()

	uow, err := l.store.Begin(ctx)
	if err != nil {
		return types.Portfolio{}, err
	}
	defer func() { _ = uow.Rollback() }()

	if err := uow.Snapshots().Create(ctx, &next); err != nil {
		return types.Portfolio{}, fmt.Errorf("append snapshot v%d for %s: %w", next.Version, entry.Decision.Ticker, err)
	}
	if err := uow.Decisions().Append(ctx, entry.Parent.ID, entry.TradingDate, entry.Decision); err != nil {
		return types.Portfolio{}, fmt.Errorf("append decision for %s: %w", entry.Decision.Ticker, err)
	}
	for _, sig := range entry.Signals {
		if err := uow.Signals().Append(ctx, entry.Parent.ID, sig); err != nil {
			return types.Portfolio{}, fmt.Errorf("append %s signal for %s: %w", sig.Analyst, sig.Ticker, err)
		}
	}
	if err := uow.Commit(); err != nil {
		return types.Portfolio{}, fmt.Errorf("commit snapshot v%d: %w", next.Version, err)
	}
	return next, nil
}

// DecisionMemory returns the most recent k decisions for ticker across every
// snapshot of the config, newest first.
func (l *Ledger) DecisionMemory(ctx context.Context, configID, ticker string, k int) ([]types.DecisionRecord, error) {
	if k <= 0 {
		return nil, nil
	}
	ids, err := l.store.Snapshots().RecentIDs(ctx, configID, 0)
	if err != nil {
		return nil, fmt.Errorf("load snapshot ids: %w", err)
	}
	return l.store.Decisions().ForSnapshots(ctx, ids, ticker, k)
}

// LatestTradingDate returns the most recent trading date settled for the config.
func (l *Ledger) LatestTradingDate(ctx context.Context, configID string) (time.Time, error) {
	return l.store.Snapshots().LatestTradingDate(ctx, configID)
}

// SettledTickers returns the tickers that already have a decision on tradingDate.
func (l *Ledger) SettledTickers(ctx context.Context, configID string, tradingDate time.Time) (map[string]bool, error) {
	tickers, err := l.store.Decisions().TickersOn(ctx, configID, tradingDate)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		out[t] = true
	}
	return out, nil
}

// History returns up to limit snapshots, oldest first.
func (l *Ledger) History(ctx context.Context, configID string, limit int) ([]types.Portfolio, error) {
	return l.store.Snapshots().List(ctx, configID, limit)
}

// Lookup returns the run identity by name, or store.ErrNotFound.
func (l *Ledger) Lookup(ctx context.Context, name string) (types.RunIdentity, error) {
	id, err := l.store.Configs().FindByName(ctx, name)
	if err != nil {
		return types.RunIdentity{}, err
	}
	if id == nil {
		return types.RunIdentity{}, fmt.Errorf("%w: config %q", store.ErrNotFound, name)
	}
	return *id, nil
}

func compatible(have, want types.RunIdentity) error {
	var diffs []string
	if have.SelectionMode != want.SelectionMode {
		diffs = append(diffs, fmt.Sprintf("analyst selection %q != %q", have.SelectionMode, want.SelectionMode))
	}
	if !strings.EqualFold(have.LLMProvider, want.LLMProvider) {
		diffs = append(diffs, fmt.Sprintf("llm provider %q != %q", have.LLMProvider, want.LLMProvider))
	}
	if have.LLMModel != want.LLMModel {
		diffs = append(diffs, fmt.Sprintf("llm model %q != %q", have.LLMModel, want.LLMModel))
	}
	if !have.InitialCash.Equal(want.InitialCash) {
		diffs = append(diffs, fmt.Sprintf("initial cash %s != %s", have.InitialCash, want.InitialCash))
	}
	if len(diffs) == 0 {
		return nil
	}
	return config.Invalid("run.name", "%q was created with incompatible parameters: %s", have.Name, strings.Join(diffs, "; "))
}

func addedTickers(have, want []string) []string {
	known := make(map[string]bool, len(have))
	for _, t := range have {
		known[t] = true
	}
	var out []string
	for _, t := range want {
		if !known[t] {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// InitialCash converts a configured float amount into money.
func InitialCash(amount float64) decimal.Decimal {
	return decimal.NewFromFloat(amount).Round(2)
}
