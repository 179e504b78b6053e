package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"deepfund/internal/config"
	"deepfund/internal/logger"

	"github.com/shopspring/decimal"
)

// Router 先查缓存，再依次尝试主数据源与备用数据源。
type Router struct {
	primary  Provider
	fallback Provider
	cache    *ttlCache
}

func NewRouter(primary, fallback Provider, cacheTTL time.Duration) *Router {
	return &Router{primary: primary, fallback: fallback, cache: newTTLCache(cacheTTL)}
}

func (r *Router) Name() string {
	if r.fallback == nil {
		return r.primary.Name()
	}
	return r.primary.Name() + "+" + r.fallback.Name()
}

func route[T any](ctx context.Context, r *Router, key string, call func(Provider) (T, error)) (T, error) {
	return cached(r.cache, key, func() (T, error) {
		out, err := call(r.primary)
		if err == nil || r.fallback == nil || ctx.Err() != nil {
			return out, err
		}
		logger.Debugf("market: %s failed for %s, trying %s: %v", r.primary.Name(), key, r.fallback.Name(), err)
		alt, altErr := call(r.fallback)
		if altErr != nil {
			return alt, errors.Join(err, altErr)
		}
		return alt, nil
	})
}

func dayKey(t time.Time) string { return t.UTC().Format(alphaVantageDateFmt) }

func (r *Router) Price(ctx context.Context, ticker string, asOf time.Time) (decimal.Decimal, error) {
	return route(ctx, r, fmt.Sprintf("price|%s|%s", ticker, dayKey(asOf)), func(p Provider) (decimal.Decimal, error) {
		return p.Price(ctx, ticker, asOf)
	})
}

func (r *Router) PriceHistory(ctx context.Context, ticker string, start, end time.Time) ([]Bar, error) {
	key := fmt.Sprintf("history|%s|%s|%s", ticker, dayKey(start), dayKey(end))
	return route(ctx, r, key, func(p Provider) ([]Bar, error) {
		return p.PriceHistory(ctx, ticker, start, end)
	})
}

func (r *Router) Fundamentals(ctx context.Context, ticker string, asOf time.Time) (Fundamentals, error) {
	return route(ctx, r, fmt.Sprintf("overview|%s|%s", ticker, dayKey(asOf)), func(p Provider) (Fundamentals, error) {
		return p.Fundamentals(ctx, ticker, asOf)
	})
}

func (r *Router) News(ctx context.Context, ticker string, asOf time.Time, limit int) ([]NewsItem, error) {
	key := fmt.Sprintf("news|%s|%s|%d", ticker, dayKey(asOf), limit)
	return route(ctx, r, key, func(p Provider) ([]NewsItem, error) {
		return p.News(ctx, ticker, asOf, limit)
	})
}

func (r *Router) InsiderTrades(ctx context.Context, ticker string, asOf time.Time, limit int) ([]InsiderTrade, error) {
	key := fmt.Sprintf("insider|%s|%s|%d", ticker, dayKey(asOf), limit)
	return route(ctx, r, key, func(p Provider) ([]InsiderTrade, error) {
		return p.InsiderTrades(ctx, ticker, asOf, limit)
	})
}

// BuildFromConfig 根据 data 配置构建带缓存的数据源路由。
func BuildFromConfig(cfg config.DataConfig) (*Router, error) {
	primary, err := buildSource(cfg.Source, cfg)
	if err != nil {
		return nil, err
	}
	var fallback Provider
	if name := strings.TrimSpace(cfg.Fallback); name != "" && !strings.EqualFold(name, cfg.Source) {
		if fallback, err = buildSource(name, cfg); err != nil {
			return nil, err
		}
	}
	return NewRouter(primary, fallback, time.Duration(cfg.CacheTTLSeconds)*time.Second), nil
}

func buildSource(name string, cfg config.DataConfig) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case alphaVantageName:
		av, err := NewAlphaVantage(AlphaVantageOptions{
			BaseURL:           cfg.BaseURL,
			APIKey:            cfg.ResolvedAPIKey(),
			Entitlement:       cfg.Entitlement,
			RequestsPerMinute: cfg.RequestsPerMinute,
			Timeout:           time.Duration(cfg.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			return nil, config.Invalid("data.api_key", "%v (set data.api_key or %s)", err, cfg.APIKeyEnv)
		}
		return av, nil
	case yahooName:
		return NewYahoo(), nil
	case localName:
		return NewLocal(cfg.FixturesDir), nil
	default:
		return nil, config.Invalid("data.source", "unknown source %q", name)
	}
}
