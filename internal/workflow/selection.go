package workflow

import (
	"context"

	"deepfund/internal/agents"
	"deepfund/internal/logger"
)

// Selector 决定某个 ticker 本轮使用哪些分析师。
type Selector interface {
	Select(ctx context.Context, ticker string) []string
}

// StaticSelector uses the configured analyst list for every ticker. Unknown
// keys are dropped; when nothing is left it defers to the planner.
type StaticSelector struct {
	keys    []string
	planner *agents.Planner
}

func NewStaticSelector(registry *agents.Registry, keys []string, planner *agents.Planner) *StaticSelector {
	known, unknown := registry.Resolve(keys)
	if len(unknown) > 0 {
		logger.Warnf("ignoring unknown analysts %v, available: %v", unknown, registry.Keys())
	}
	if len(known) == 0 {
		logger.Warnf("no valid analysts configured, falling back to planner selection")
	}
	return &StaticSelector{keys: known, planner: planner}
}

func (s *StaticSelector) Select(ctx context.Context, ticker string) []string {
	if len(s.keys) == 0 && s.planner != nil {
		return s.planner.Plan(ctx, ticker)
	}
	return append([]string(nil), s.keys...)
}

// PlannerSelector asks the planner once per ticker per step.
type PlannerSelector struct {
	planner *agents.Planner
}

func NewPlannerSelector(planner *agents.Planner) *PlannerSelector {
	return &PlannerSelector{planner: planner}
}

func (s *PlannerSelector) Select(ctx context.Context, ticker string) []string {
	return s.planner.Plan(ctx, ticker)
}

// NewSelector picks static selection when keys are configured, planner otherwise.
func NewSelector(registry *agents.Registry, keys []string, planner *agents.Planner) Selector {
	if len(keys) == 0 {
		return NewPlannerSelector(planner)
	}
	return NewStaticSelector(registry, keys, planner)
}
