package agents

import (
	"context"

	"deepfund/internal/logger"
	"deepfund/internal/oracle"
)

// Planner 为单个 ticker 选择要运行的分析师子集。
type Planner struct {
	inv      *oracle.Invoker
	registry *Registry
	max      int
}

func NewPlanner(inv *oracle.Invoker, registry *Registry, maxAnalysts int) *Planner {
	if maxAnalysts <= 0 {
		maxAnalysts = 5
	}
	return &Planner{inv: inv, registry: registry, max: maxAnalysts}
}

// Plan returns at most max known analyst keys. An empty or failed plan falls
// back to the whole catalogue.
func (p *Planner) Plan(ctx context.Context, ticker string) []string {
	logger.Agentf(KeyPlanner, ticker, "planning")
	user := render(plannerTemplate, struct {
		Ticker, Catalogue string
		Max               int
	}{ticker, p.registry.Catalogue(), p.max})
	res := oracle.Invoke(ctx, p.inv, oracle.Request{
		Purpose: KeyPlanner + ":" + ticker,
		System:  plannerSystem,
		User:    user,
	}, oracle.PlanSchema)
	if res.Fallback {
		logger.Agentf(KeyPlanner, ticker, "plan unavailable, using all analysts")
		return p.registry.Keys()
	}
	known, unknown := p.registry.Resolve(res.Value.Analysts)
	if len(unknown) > 0 {
		logger.Warnf("planner proposed unknown analysts for %s: %v", ticker, unknown)
	}
	if len(known) == 0 {
		logger.Agentf(KeyPlanner, ticker, "empty plan, using all analysts")
		return p.registry.Keys()
	}
	if len(known) > p.max {
		known = known[:p.max]
	}
	logger.Agentf(KeyPlanner, ticker, "selected %v: %s", known, res.Value.Justification)
	return known
}
