package gormstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"deepfund/internal/store"
	"deepfund/internal/store/model"
	"deepfund/internal/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// configRepository implements store.ConfigRepository.
type configRepository struct {
	db *gorm.DB
}

func (r *configRepository) Create(ctx context.Context, cfg *types.RunIdentity) error {
	if cfg == nil {
		return errors.New("config cannot be nil")
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = time.Now().UTC()
	}
	tickers, err := json.Marshal(cfg.Tickers)
	if err != nil {
		return err
	}
	row := model.ConfigModel{
		ID:            cfg.ID,
		Name:          cfg.Name,
		Tickers:       tickers,
		SelectionMode: cfg.SelectionMode,
		LLMProvider:   cfg.LLMProvider,
		LLMModel:      cfg.LLMModel,
		InitialCash:   cfg.InitialCash,
		CreatedAt:     cfg.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *configRepository) FindByName(ctx context.Context, name string) (*types.RunIdentity, error) {
	var row model.ConfigModel
	err := r.db.WithContext(ctx).Where("exp_name = ?", strings.TrimSpace(name)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := &types.RunIdentity{
		ID:            row.ID,
		Name:          row.Name,
		SelectionMode: row.SelectionMode,
		LLMProvider:   row.LLMProvider,
		LLMModel:      row.LLMModel,
		InitialCash:   row.InitialCash,
		CreatedAt:     row.CreatedAt,
	}
	if len(row.Tickers) > 0 {
		if err := json.Unmarshal(row.Tickers, &out.Tickers); err != nil {
			return nil, fmt.Errorf("decode tickers of config %s: %w", row.Name, err)
		}
	}
	return out, nil
}

// snapshotRepository implements store.SnapshotRepository.
type snapshotRepository struct {
	db *gorm.DB
}

func (r *snapshotRepository) Create(ctx context.Context, p *types.Portfolio) error {
	if p == nil {
		return errors.New("snapshot cannot be nil")
	}
	if p.ConfigID == "" {
		return errors.New("snapshot requires config id")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	row, err := newSnapshotModel(*p)
	if err != nil {
		return err
	}
	db := r.db.WithContext(ctx)
	var latest sql.NullInt64
	if err := db.Model(&model.SnapshotModel{}).
		Select("MAX(version)").
		Where("config_id = ?", p.ConfigID).
		Row().Scan(&latest); err != nil {
		return err
	}
	expected := 0
	if latest.Valid {
		expected = int(latest.Int64) + 1
	}
	if p.Version != expected {
		return fmt.Errorf("%w: config %s expected version %d, got %d", store.ErrVersionConflict, p.ConfigID, expected, p.Version)
	}
	if err := db.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: config %s version %d already exists", store.ErrVersionConflict, p.ConfigID, p.Version)
		}
		return err
	}
	return nil
}

func (r *snapshotRepository) Latest(ctx context.Context, configID string) (*types.Portfolio, error) {
	var row model.SnapshotModel
	err := r.db.WithContext(ctx).
		Where("config_id = ?", configID).
		Order("version DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p, err := snapshotFromModel(row)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *snapshotRepository) RecentIDs(ctx context.Context, configID string, limit int) ([]string, error) {
	var ids []string
	q := r.db.WithContext(ctx).
		Model(&model.SnapshotModel{}).
		Where("config_id = ?", configID).
		Order("version DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *snapshotRepository) List(ctx context.Context, configID string, limit int) ([]types.Portfolio, error) {
	var rows []model.SnapshotModel
	q := r.db.WithContext(ctx).
		Where("config_id = ?", configID).
		Order("version DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.Portfolio, len(rows))
	for i, row := range rows {
		p, err := snapshotFromModel(row)
		if err != nil {
			return nil, err
		}
		// 查询为倒序，结果按版本正序返回。
		out[len(rows)-1-i] = p
	}
	return out, nil
}

func (r *snapshotRepository) LatestTradingDate(ctx context.Context, configID string) (time.Time, error) {
	var row model.SnapshotModel
	err := r.db.WithContext(ctx).
		Where("config_id = ? AND trading_date IS NOT NULL", configID).
		Order("trading_date DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return row.TradingDate.UTC(), nil
}

// decisionRepository implements store.DecisionRepository.
type decisionRepository struct {
	db *gorm.DB
}

func (r *decisionRepository) Append(ctx context.Context, snapshotID string, tradingDate time.Time, d types.Decision) error {
	if snapshotID == "" {
		return errors.New("decision requires snapshot id")
	}
	var versions []int
	if err := r.db.WithContext(ctx).
		Model(&model.SnapshotModel{}).
		Where("id = ?", snapshotID).
		Pluck("version", &versions).Error; err != nil {
		return err
	}
	if len(versions) == 0 {
		return fmt.Errorf("%w: snapshot %s", store.ErrNotFound, snapshotID)
	}
	row := model.DecisionModel{
		ID:              uuid.NewString(),
		SnapshotID:      snapshotID,
		Ticker:          d.Ticker,
		SnapshotVersion: versions[0],
		TradingDate:     optionalTime(tradingDate),
		Prompt:          d.Prompt,
		Action:          string(d.Action),
		Shares:          d.Shares,
		Price:           d.Price,
		Justification:   d.Justification,
		CreatedAt:       time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *decisionRepository) ForSnapshots(ctx context.Context, snapshotIDs []string, ticker string, limit int) ([]types.DecisionRecord, error) {
	if len(snapshotIDs) == 0 {
		return nil, nil
	}
	var rows []model.DecisionModel
	q := r.db.WithContext(ctx).
		Where("portfolio_id IN ? AND ticker = ?", snapshotIDs, ticker).
		Order("portfolio_version DESC, created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.DecisionRecord, 0, len(rows))
	for _, row := range rows {
		rec := types.DecisionRecord{
			Decision: types.Decision{
				Ticker:        row.Ticker,
				Action:        types.Action(row.Action),
				Shares:        row.Shares,
				Price:         row.Price,
				Justification: row.Justification,
				Prompt:        row.Prompt,
			},
			SnapshotID: row.SnapshotID,
			CreatedAt:  row.CreatedAt,
		}
		if row.TradingDate != nil {
			rec.TradingDate = row.TradingDate.UTC()
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *decisionRepository) TickersOn(ctx context.Context, configID string, tradingDate time.Time) ([]string, error) {
	t := tradingDate.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	var tickers []string
	err := r.db.WithContext(ctx).
		Model(&model.DecisionModel{}).
		Joins("JOIN portfolio ON portfolio.id = decision.portfolio_id").
		Where("portfolio.config_id = ? AND decision.trading_date >= ? AND decision.trading_date < ?", configID, start, start.AddDate(0, 0, 1)).
		Distinct().
		Order("decision.ticker").
		Pluck("decision.ticker", &tickers).Error
	return tickers, err
}

// signalRepository implements store.SignalRepository.
type signalRepository struct {
	db *gorm.DB
}

func (r *signalRepository) Append(ctx context.Context, snapshotID string, s types.Signal) error {
	if snapshotID == "" {
		return errors.New("signal requires snapshot id")
	}
	row := model.SignalModel{
		ID:            uuid.NewString(),
		SnapshotID:    snapshotID,
		Ticker:        s.Ticker,
		Analyst:       s.Analyst,
		Prompt:        s.Prompt,
		Signal:        string(s.Polarity),
		Justification: s.Justification,
		CreatedAt:     time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *signalRepository) ForSnapshot(ctx context.Context, snapshotID string) ([]types.Signal, error) {
	var rows []model.SignalModel
	if err := r.db.WithContext(ctx).
		Where("portfolio_id = ?", snapshotID).
		Order("created_at ASC, analyst ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.Signal, 0, len(rows))
	for _, row := range rows {
		out = append(out, types.Signal{
			Analyst:       row.Analyst,
			Ticker:        row.Ticker,
			Polarity:      types.Polarity(row.Signal),
			Justification: row.Justification,
			Prompt:        row.Prompt,
		})
	}
	return out, nil
}

func newSnapshotModel(p types.Portfolio) (model.SnapshotModel, error) {
	positions := p.Positions
	if positions == nil {
		positions = map[string]types.Position{}
	}
	raw, err := json.Marshal(positions)
	if err != nil {
		return model.SnapshotModel{}, err
	}
	return model.SnapshotModel{
		ID:          p.ID,
		ConfigID:    p.ConfigID,
		Version:     p.Version,
		TradingDate: optionalTime(p.TradingDate),
		Cashflow:    p.Cashflow,
		TotalAssets: p.TotalValue(),
		Positions:   raw,
		CreatedAt:   p.CreatedAt,
	}, nil
}

func snapshotFromModel(row model.SnapshotModel) (types.Portfolio, error) {
	p := types.Portfolio{
		ID:        row.ID,
		ConfigID:  row.ConfigID,
		Version:   row.Version,
		Cashflow:  row.Cashflow,
		Positions: map[string]types.Position{},
		CreatedAt: row.CreatedAt,
	}
	if row.TradingDate != nil {
		p.TradingDate = row.TradingDate.UTC()
	}
	if len(row.Positions) > 0 {
		if err := json.Unmarshal(row.Positions, &p.Positions); err != nil {
			return types.Portfolio{}, fmt.Errorf("decode positions of snapshot %s: %w", row.ID, err)
		}
	}
	return p, nil
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "constraint failed: unique")
}
