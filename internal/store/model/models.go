package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ConfigModel 对应一次实验配置，按 exp_name 唯一。
type ConfigModel struct {
	ID            string          `gorm:"column:id;primaryKey;size:36"`
	Name          string          `gorm:"column:exp_name;uniqueIndex;size:128"`
	Tickers       datatypes.JSON  `gorm:"column:tickers"`
	SelectionMode string          `gorm:"column:selection_mode;size:256"`
	LLMProvider   string          `gorm:"column:llm_provider;size:64"`
	LLMModel      string          `gorm:"column:llm_model;size:128"`
	InitialCash   decimal.Decimal `gorm:"column:initial_cash;type:decimal(24,8)"`
	CreatedAt     time.Time       `gorm:"column:created_at"`
}

func (ConfigModel) TableName() string { return "config" }

// SnapshotModel 是组合快照链中的一个版本；(config_id, version) 唯一。
type SnapshotModel struct {
	ID          string          `gorm:"column:id;primaryKey;size:36"`
	ConfigID    string          `gorm:"column:config_id;size:36;uniqueIndex:idx_snapshot_version,priority:1"`
	Version     int             `gorm:"column:version;uniqueIndex:idx_snapshot_version,priority:2"`
	TradingDate *time.Time      `gorm:"column:trading_date"`
	Cashflow    decimal.Decimal `gorm:"column:cashflow;type:decimal(24,8)"`
	TotalAssets decimal.Decimal `gorm:"column:total_assets;type:decimal(24,8)"`
	Positions   datatypes.JSON  `gorm:"column:positions"`
	CreatedAt   time.Time       `gorm:"column:created_at"`

	Config *ConfigModel `gorm:"foreignKey:ConfigID;references:ID;constraint:OnDelete:CASCADE"`
}

func (SnapshotModel) TableName() string { return "portfolio" }

type DecisionModel struct {
	ID              string          `gorm:"column:id;primaryKey;size:36"`
	SnapshotID      string          `gorm:"column:portfolio_id;size:36;index:idx_decision_snapshot_ticker,priority:1"`
	Ticker          string          `gorm:"column:ticker;size:32;index:idx_decision_snapshot_ticker,priority:2"`
	SnapshotVersion int             `gorm:"column:portfolio_version"`
	TradingDate     *time.Time      `gorm:"column:trading_date"`
	Prompt          string          `gorm:"column:llm_prompt"`
	Action          string          `gorm:"column:action;size:8"`
	Shares          int64           `gorm:"column:shares"`
	Price           decimal.Decimal `gorm:"column:price;type:decimal(24,8)"`
	Justification   string          `gorm:"column:justification"`
	CreatedAt       time.Time       `gorm:"column:created_at"`

	Snapshot *SnapshotModel `gorm:"foreignKey:SnapshotID;references:ID;constraint:OnDelete:CASCADE"`
}

func (DecisionModel) TableName() string { return "decision" }

type SignalModel struct {
	ID            string    `gorm:"column:id;primaryKey;size:36"`
	SnapshotID    string    `gorm:"column:portfolio_id;size:36;index"`
	Ticker        string    `gorm:"column:ticker;size:32"`
	Analyst       string    `gorm:"column:analyst;size:64"`
	Prompt        string    `gorm:"column:llm_prompt"`
	Signal        string    `gorm:"column:signal;size:16"`
	Justification string    `gorm:"column:justification"`
	CreatedAt     time.Time `gorm:"column:created_at"`

	Snapshot *SnapshotModel `gorm:"foreignKey:SnapshotID;references:ID;constraint:OnDelete:CASCADE"`
}

func (SignalModel) TableName() string { return "signal" }

// All lists every model for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&ConfigModel{},
		&SnapshotModel{},
		&DecisionModel{},
		&SignalModel{},
	}
}
