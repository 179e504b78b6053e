package agents

import (
	"fmt"
	"strings"

	"deepfund/internal/config"
	"deepfund/internal/logger"
	"deepfund/internal/market"
	"deepfund/internal/oracle"
)

// Registry 是分析师目录（key → Analyst），在启动时构造并显式传递。
type Registry struct {
	order []string
	byKey map[string]Analyst
}

func NewRegistry(analysts ...Analyst) *Registry {
	r := &Registry{byKey: make(map[string]Analyst, len(analysts))}
	for _, a := range analysts {
		if a == nil {
			continue
		}
		key := normalizeKey(a.Key())
		if _, dup := r.byKey[key]; dup {
			logger.Warnf("analyst %s registered twice, keeping the first", key)
			continue
		}
		r.byKey[key] = a
		r.order = append(r.order, key)
	}
	return r
}

// NewDefaultRegistry registers the technical, fundamental, news and insider analysts.
func NewDefaultRegistry(inv *oracle.Invoker, data market.Provider, run config.RunConfig) *Registry {
	return NewRegistry(
		NewTechnical(inv, data, run.LookbackDays),
		NewFundamental(inv, data),
		NewNews(inv, data, run.NewsLimit),
		NewInsider(inv, data, run.InsiderLimit),
	)
}

func (r *Registry) Get(key string) (Analyst, bool) {
	a, ok := r.byKey[normalizeKey(key)]
	return a, ok
}

// Keys returns every registered key in registration order.
func (r *Registry) Keys() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) Len() int { return len(r.order) }

// Catalogue 渲染供 planner 阅读的分析师列表。
func (r *Registry) Catalogue() string {
	var b strings.Builder
	for _, key := range r.order {
		fmt.Fprintf(&b, "- %s: %s\n", key, r.byKey[key].Describe())
	}
	return b.String()
}

// Resolve keeps known keys in input order without duplicates and reports the rest.
func (r *Registry) Resolve(keys []string) (known, unknown []string) {
	seen := make(map[string]struct{}, len(keys))
	for _, raw := range keys {
		key := normalizeKey(raw)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, ok := r.byKey[key]; ok {
			known = append(known, key)
		} else {
			unknown = append(unknown, key)
		}
	}
	return known, unknown
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
