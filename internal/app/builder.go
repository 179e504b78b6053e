package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"deepfund/internal/agents"
	"deepfund/internal/config"
	"deepfund/internal/gateway/notifier"
	"deepfund/internal/gateway/provider"
	"deepfund/internal/ledger"
	"deepfund/internal/logger"
	"deepfund/internal/market"
	"deepfund/internal/oracle"
	"deepfund/internal/store"
	"deepfund/internal/store/gormstore"
	"deepfund/internal/types"
	"deepfund/internal/workflow"
)

// Options 是命令行层面对配置的覆盖。
type Options struct {
	LocalStore bool
}

type AppBuilder struct {
	cfg  *config.Config
	opts Options

	storeFn    func(config.StoreConfig, bool) (store.Store, error)
	providerFn func(config.LLMConfig) (provider.ModelProvider, error)
	marketFn   func(config.DataConfig) (market.Provider, error)
	notifierFn func(config.NotifyConfig) (notifier.TextNotifier, error)
	now        func() time.Time
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *config.Config, opts Options, extra ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:        cfg,
		opts:       opts,
		storeFn:    openStore,
		providerFn: provider.BuildFromConfig,
		marketFn:   buildMarket,
		notifierFn: buildNotifier,
		now:        time.Now,
	}
	for _, opt := range extra {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	st, err := b.storeFn(cfg.Store, b.opts.LocalStore)
	if err != nil {
		return nil, fmt.Errorf("open ledger store: %w", err)
	}
	app := &App{
		cfg:    cfg,
		store:  st,
		ledger: ledger.New(st),
		now:    b.now,
	}
	app.buildPipeline = func() error { return b.buildPipeline(ctx, app) }
	return app, nil
}

// buildPipeline 构建回测所需的 oracle、行情与分析师依赖；serve/report 无需这些。
func (b *AppBuilder) buildPipeline(_ context.Context, app *App) error {
	cfg := b.cfg
	model, err := b.providerFn(cfg.LLM)
	if err != nil {
		return err
	}
	data, err := b.marketFn(cfg.Data)
	if err != nil {
		return err
	}
	textNotifier, err := b.notifierFn(cfg.Notify)
	if err != nil {
		return err
	}
	inv := oracle.NewInvoker(model, oracle.OptionsFromConfig(cfg.LLM))
	registry := agents.NewDefaultRegistry(inv, data, cfg.Run)
	planner := agents.NewPlanner(inv, registry, cfg.Run.PlannerMaxAnalysts)

	app.data = data
	app.notifier = textNotifier
	app.registry = registry
	app.selector = workflow.NewSelector(registry, cfg.Run.Analysts, planner)
	app.risk = agents.NewRiskController(inv)
	app.portfolio = agents.NewPortfolioManager(inv)
	app.identity = identityFromConfig(cfg)

	logger.Infof("✓ oracle=%s data=%s analysts=%s selection=%s", inv.ProviderID(), data.Name(),
		strings.Join(registry.Keys(), ","), app.identity.SelectionMode)
	return nil
}

func identityFromConfig(cfg *config.Config) types.RunIdentity {
	return types.RunIdentity{
		Name:          strings.TrimSpace(cfg.Run.Name),
		Tickers:       cfg.Run.Tickers,
		SelectionMode: cfg.Run.SelectionMode(),
		LLMProvider:   strings.ToLower(cfg.LLM.Provider),
		LLMModel:      cfg.LLM.Model,
		InitialCash:   ledger.InitialCash(cfg.Run.InitialCash),
	}
}

// openStore 选择账本存储：--local-store 强制 sqlite；否则 DSN 存在时使用 postgres。
func openStore(cfg config.StoreConfig, forceLocal bool) (store.Store, error) {
	if !forceLocal && !cfg.Local {
		if dsn := cfg.DSN(); dsn != "" {
			logger.Infof("✓ ledger store: postgres (%s)", cfg.DSNEnv)
			return gormstore.OpenPostgres(dsn)
		}
	}
	logger.Infof("✓ ledger store: sqlite (%s)", cfg.Path)
	return gormstore.OpenSQLite(cfg.Path)
}

func buildMarket(cfg config.DataConfig) (market.Provider, error) {
	return market.BuildFromConfig(cfg)
}

func buildNotifier(cfg config.NotifyConfig) (notifier.TextNotifier, error) {
	if !cfg.Telegram.Enabled {
		return notifier.Nop{}, nil
	}
	return notifier.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
}

func WithStore(st store.Store) AppBuilderOption {
	return func(b *AppBuilder) {
		b.storeFn = func(config.StoreConfig, bool) (store.Store, error) { return st, nil }
	}
}

func WithModelProvider(p provider.ModelProvider) AppBuilderOption {
	return func(b *AppBuilder) {
		b.providerFn = func(config.LLMConfig) (provider.ModelProvider, error) { return p, nil }
	}
}

func WithMarket(p market.Provider) AppBuilderOption {
	return func(b *AppBuilder) {
		b.marketFn = func(config.DataConfig) (market.Provider, error) { return p, nil }
	}
}

func WithNotifier(n notifier.TextNotifier) AppBuilderOption {
	return func(b *AppBuilder) {
		b.notifierFn = func(config.NotifyConfig) (notifier.TextNotifier, error) { return n, nil }
	}
}

func WithClock(now func() time.Time) AppBuilderOption {
	return func(b *AppBuilder) {
		if now != nil {
			b.now = now
		}
	}
}
