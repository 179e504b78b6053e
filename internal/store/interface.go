package store

import (
	"context"
	"errors"
	"time"

	"deepfund/internal/types"
)

var (
	// ErrVersionConflict 表示另一个写入方已追加了同一版本的快照。
	ErrVersionConflict = errors.New("store: snapshot version conflict")
	// ErrNotFound is returned by lookups that require an existing row.
	ErrNotFound = errors.New("store: not found")
)

// UnitOfWork defines a transaction scope.
type UnitOfWork interface {
	// Commit commits the transaction.
	Commit() error
	// Rollback rolls back the transaction.
	Rollback() error

	Configs() ConfigRepository
	Snapshots() SnapshotRepository
	Decisions() DecisionRepository
	Signals() SignalRepository
}

// Store is the entry point for ledger persistence.
type Store interface {
	// Begin starts a new UnitOfWork (transaction).
	Begin(ctx context.Context) (UnitOfWork, error)
	Configs() ConfigRepository
	Snapshots() SnapshotRepository
	Decisions() DecisionRepository
	Signals() SignalRepository
	// Close closes the store connection.
	Close() error
}

// ConfigRepository handles run identities. Rows are immutable once created.
type ConfigRepository interface {
	Create(ctx context.Context, cfg *types.RunIdentity) error
	// FindByName returns nil, nil when no config has that name.
	FindByName(ctx context.Context, name string) (*types.RunIdentity, error)
}

// SnapshotRepository handles the append-only portfolio chain.
type SnapshotRepository interface {
	// Create appends p. p.Version must be exactly one past the current latest
	// version of p.ConfigID (0 for the first snapshot), else ErrVersionConflict.
	Create(ctx context.Context, p *types.Portfolio) error
	// Latest returns nil, nil when the config has no snapshots.
	Latest(ctx context.Context, configID string) (*types.Portfolio, error)
	// RecentIDs returns snapshot ids newest first; limit <= 0 returns all.
	RecentIDs(ctx context.Context, configID string, limit int) ([]string, error)
	// List returns snapshots oldest first; limit <= 0 returns all.
	List(ctx context.Context, configID string, limit int) ([]types.Portfolio, error)
	// LatestTradingDate returns the zero time when no dated snapshot exists.
	LatestTradingDate(ctx context.Context, configID string) (time.Time, error)
}

// DecisionRepository stores one decision per ticker per pipeline step.
type DecisionRepository interface {
	Append(ctx context.Context, snapshotID string, tradingDate time.Time, d types.Decision) error
	// ForSnapshots returns decisions for ticker across snapshotIDs, newest first.
	ForSnapshots(ctx context.Context, snapshotIDs []string, ticker string, limit int) ([]types.DecisionRecord, error)
	// TickersOn returns the distinct tickers decided for the config on tradingDate.
	TickersOn(ctx context.Context, configID string, tradingDate time.Time) ([]string, error)
}

// SignalRepository stores analyst signals.
type SignalRepository interface {
	Append(ctx context.Context, snapshotID string, s types.Signal) error
	ForSnapshot(ctx context.Context, snapshotID string) ([]types.Signal, error)
}
