package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"deepfund/internal/agents"
	"deepfund/internal/config"
	"deepfund/internal/gateway/notifier"
	"deepfund/internal/ledger"
	"deepfund/internal/logger"
	"deepfund/internal/market"
	"deepfund/internal/report"
	"deepfund/internal/store"
	ledgerhttp "deepfund/internal/transport/http/ledger"
	"deepfund/internal/types"
	"deepfund/internal/workflow"
)

// App 负责应用级编排：配置→依赖→回测/服务/报告。
type App struct {
	cfg    *config.Config
	store  store.Store
	ledger *ledger.Ledger
	now    func() time.Time

	buildPipeline func() error
	pipelineOnce  sync.Once
	pipelineErr   error

	identity  types.RunIdentity
	data      market.Provider
	notifier  notifier.TextNotifier
	registry  *agents.Registry
	selector  workflow.Selector
	risk      *agents.RiskController
	portfolio *agents.PortfolioManager
}

// NewApp 根据配置构建应用对象（不启动）
func NewApp(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(ctx, cfg, opts)
}

func (a *App) pipeline() error {
	a.pipelineOnce.Do(func() {
		if a.buildPipeline != nil {
			a.pipelineErr = a.buildPipeline()
		}
	})
	return a.pipelineErr
}

// RunBacktest replays the configured trading dates, or only tradingDate when
// it is set, and sends the run summary.
func (a *App) RunBacktest(ctx context.Context, tradingDate time.Time) (workflow.Outcome, error) {
	if err := a.pipeline(); err != nil {
		return workflow.Outcome{}, err
	}
	start, end, err := a.cfg.Run.TradingRange()
	if err != nil {
		return workflow.Outcome{}, err
	}
	dates := workflow.ResolveDates(start, end, tradingDate, a.now())
	if len(dates) == 0 {
		return workflow.Outcome{}, config.Invalid("run.start_date", "no trading dates between %s and %s", a.cfg.Run.StartDate, a.cfg.Run.EndDate)
	}
	exec, err := workflow.NewExecutor(workflow.ExecutorConfig{
		Identity:    a.identity,
		Dates:       dates,
		MemoryLimit: a.cfg.Run.MemoryLimit,
		Ledger:      a.ledger,
		Registry:    a.registry,
		Selector:    a.selector,
		Risk:        a.risk,
		Portfolio:   a.portfolio,
		Data:        a.data,
	})
	if err != nil {
		return workflow.Outcome{}, err
	}
	logger.Infof("run %s: %d trading date(s) %s..%s, tickers %s", a.identity.Name, len(dates),
		dates[0].Format(config.DateLayout), dates[len(dates)-1].Format(config.DateLayout), strings.Join(a.identity.Tickers, ","))

	out, err := exec.Execute(ctx)
	if err != nil {
		return out, err
	}
	if len(out.Steps) > 0 {
		msg := notifier.RunSummary(out, a.now()).RenderMarkdown()
		if err := a.notifier.SendText(msg); err != nil {
			logger.Warnf("send run summary: %v", err)
		}
	}
	return out, nil
}

// Serve 启动只读账本 API，直到 ctx 取消。
func (a *App) Serve(ctx context.Context) error {
	srv, err := ledgerhttp.NewServer(ledgerhttp.ServerConfig{Addr: a.cfg.App.HTTPAddr, Ledger: a.ledger})
	if err != nil {
		return err
	}
	logger.Infof("✓ ledger api listening on %s", srv.Addr())
	return srv.Start(ctx)
}

// Report loads the run's snapshot chain. When out is set, the equity curve
// is written there as HTML.
func (a *App) Report(ctx context.Context, out string) (report.Report, error) {
	id, err := a.ledger.Lookup(ctx, strings.TrimSpace(a.cfg.Run.Name))
	if err != nil {
		return report.Report{}, err
	}
	history, err := a.ledger.History(ctx, id.ID, 0)
	if err != nil {
		return report.Report{}, fmt.Errorf("load history of %s: %w", id.Name, err)
	}
	var recent []types.DecisionRecord
	for _, ticker := range id.Tickers {
		recs, err := a.ledger.DecisionMemory(ctx, id.ID, ticker, a.cfg.Run.MemoryLimit)
		if err != nil {
			return report.Report{}, fmt.Errorf("load decisions of %s: %w", ticker, err)
		}
		recent = append(recent, recs...)
	}
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].CreatedAt.After(recent[j].CreatedAt) })

	rep := report.Report{Identity: id, History: history, Recent: recent}
	if out = strings.TrimSpace(out); out != "" {
		if err := report.WriteEquityHTML(out, rep); err != nil {
			return rep, err
		}
		logger.Infof("✓ equity chart written to %s", out)
	}
	return rep, nil
}

// Close releases the ledger store.
func (a *App) Close() error {
	if a == nil || a.store == nil {
		return nil
	}
	return a.store.Close()
}
