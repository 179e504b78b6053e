package gormstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"deepfund/internal/store"
	"deepfund/internal/store/model"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// GormStore implements store.Store on gorm; SQLite locally, Postgres remotely.
type GormStore struct {
	db *gorm.DB
}

var _ store.Store = (*GormStore)(nil)

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
}

// OpenSQLite opens (and migrates) a local ledger file using the pure-Go sqlite driver.
func OpenSQLite(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: database path cannot be empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}), gormConfig())
	if err != nil {
		return nil, err
	}
	s, err := newGormStore(db)
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		// SQLite + WAL：少量并发读，单写者。
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return s, nil
}

// OpenPostgres opens a remote ledger through lib/pq.
func OpenPostgres(dsn string) (*GormStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("gorm store: postgres dsn cannot be empty")
	}
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConfig())
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	return newGormStore(db)
}

// NewFromDB wraps an already-open gorm handle.
func NewFromDB(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm store: db cannot be nil")
	}
	return newGormStore(db)
}

func newGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return nil, fmt.Errorf("gorm store: migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Begin(ctx context.Context) (store.UnitOfWork, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &gormUnitOfWork{tx: tx}, nil
}

func (s *GormStore) Configs() store.ConfigRepository     { return &configRepository{db: s.db} }
func (s *GormStore) Snapshots() store.SnapshotRepository { return &snapshotRepository{db: s.db} }
func (s *GormStore) Decisions() store.DecisionRepository { return &decisionRepository{db: s.db} }
func (s *GormStore) Signals() store.SignalRepository     { return &signalRepository{db: s.db} }

// Close closes the underlying database connection.
func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type gormUnitOfWork struct {
	tx *gorm.DB
}

func (u *gormUnitOfWork) Configs() store.ConfigRepository     { return &configRepository{db: u.tx} }
func (u *gormUnitOfWork) Snapshots() store.SnapshotRepository { return &snapshotRepository{db: u.tx} }
func (u *gormUnitOfWork) Decisions() store.DecisionRepository { return &decisionRepository{db: u.tx} }
func (u *gormUnitOfWork) Signals() store.SignalRepository     { return &signalRepository{db: u.tx} }

func (u *gormUnitOfWork) Commit() error {
	return u.tx.Commit().Error
}

func (u *gormUnitOfWork) Rollback() error {
	return u.tx.Rollback().Error
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
