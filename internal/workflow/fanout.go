package workflow

import (
	"context"
	"fmt"
	"runtime/debug"

	"deepfund/internal/agents"
	"deepfund/internal/logger"
	"deepfund/internal/types"

	"golang.org/x/sync/errgroup"
)

// runAnalysts evaluates every predecessor of the risk node concurrently and
// returns exactly one signal per branch in node order. Branches never return errors, so a
// failing analyst cannot cancel its siblings.
func (e *Executor) runAnalysts(ctx context.Context, g Graph, req agents.Request) []types.Signal {
	branches := g.Predecessors(NodeRisk)
	results := make([]types.Signal, len(branches))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, key := range branches {
		i, key := i, key
		analyst, ok := e.registry.Get(key)
		if !ok {
			results[i] = missingSignal(key, req.Ticker, "analyst not registered")
			continue
		}
		eg.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("%s analyst panicked on %s: %v\n%s", key, req.Ticker, r, debug.Stack())
					results[i] = missingSignal(key, req.Ticker, fmt.Sprintf("analyst panicked: %v", r))
				}
			}()
			results[i] = analyst.Evaluate(egCtx, req)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		logger.Debugf("analyst errgroup: %v", err)
	}
	return collectSignals(g, results)
}

// collectSignals 保证 fan-in 完整：每个节点恰好一条信号，按节点顺序去重。
func collectSignals(g Graph, results []types.Signal) []types.Signal {
	branches := g.Predecessors(NodeRisk)
	seen := make(map[string]struct{}, len(branches))
	out := make([]types.Signal, 0, len(branches))
	for i, key := range branches {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		sig := results[i]
		if sig.Analyst == "" {
			sig = missingSignal(key, g.Ticker, "analyst produced no signal")
		}
		sig.Analyst = key
		sig.Ticker = g.Ticker
		if sig.Polarity == "" {
			sig.Polarity = types.Neutral
		}
		if sig.Justification == "" {
			sig.Justification = "No justification provided"
		}
		out = append(out, sig)
	}
	return out
}

func missingSignal(key, ticker, why string) types.Signal {
	return types.Signal{Analyst: key, Ticker: ticker, Polarity: types.Neutral, Justification: "Abstained: " + why}
}
