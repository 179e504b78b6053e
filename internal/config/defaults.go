package config

import (
	"strings"
)

// 默认值常量
const (
	defaultAppLogLevel         = "info"
	defaultAppHTTPAddr         = ":9991"
	defaultAppLogPath          = "data/logs/deepfund.log"
	defaultAppLLMLogPath       = "data/logs/deepfund-llm.log"
	defaultRunInitialCash      = 100000
	defaultPlannerMaxAnalysts  = 5
	defaultMemoryLimit         = 5
	defaultNewsLimit           = 10
	defaultInsiderLimit        = 10
	defaultLookbackDays        = 200
	defaultLLMProvider         = "openai"
	defaultLLMModel            = "gpt-4o-mini"
	defaultLLMAPIURL           = "https://api.openai.com/v1"
	defaultLLMAPIKeyEnv        = "OPENAI_API_KEY"
	defaultLLMTemperature      = 0.5
	defaultLLMMaxRetries       = 3
	defaultLLMTimeout          = 60
	defaultLLMBackoffMS        = 500
	defaultLLMBreakerThreshold = 5
	defaultLLMBreakerCooldown  = 30
	defaultStorePath           = "data/db/deepfund.db"
	defaultStoreDSNEnv         = "DEEPFUND_DATABASE_URL"
	defaultDataSource          = "alphavantage"
	defaultDataAPIKeyEnv       = "ALPHA_VANTAGE_API_KEY"
	defaultDataBaseURL         = "https://www.alphavantage.co"
	defaultDataRPM             = 75
	defaultDataTimeout         = 30
	defaultDataFixturesDir     = "data/fixtures"
	defaultDataCacheTTL        = 3600
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Run.applyDefaults(keys)
	c.LLM.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Data.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
		stringFieldDefault("app.llm_log_path", &a.LLMLog, defaultAppLLMLogPath),
	)
}

func (r *RunConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	r.Tickers = normalizeTickers(r.Tickers)
	r.Analysts = normalizeKeys(r.Analysts)
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "run.initial_cash",
			need:  func() bool { return r.InitialCash <= 0 },
			apply: func() { r.InitialCash = defaultRunInitialCash },
		},
		intFieldDefault("run.planner_max_analysts", &r.PlannerMaxAnalysts, defaultPlannerMaxAnalysts),
		intFieldDefault("run.memory_limit", &r.MemoryLimit, defaultMemoryLimit),
		intFieldDefault("run.news_limit", &r.NewsLimit, defaultNewsLimit),
		intFieldDefault("run.insider_limit", &r.InsiderLimit, defaultInsiderLimit),
		intFieldDefault("run.lookback_days", &r.LookbackDays, defaultLookbackDays),
	)
}

func (l *LLMConfig) applyDefaults(keys keySet) {
	if l == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("llm.provider", &l.Provider, defaultLLMProvider),
		stringFieldDefault("llm.model", &l.Model, defaultLLMModel),
		stringFieldDefault("llm.api_url", &l.APIURL, defaultLLMAPIURL),
		stringFieldDefault("llm.api_key_env", &l.APIKeyEnv, defaultLLMAPIKeyEnv),
		fieldDefault{
			key:   "llm.temperature",
			need:  func() bool { return l.Temperature == 0 },
			apply: func() { l.Temperature = defaultLLMTemperature },
		},
		intFieldDefault("llm.max_retries", &l.MaxRetries, defaultLLMMaxRetries),
		intFieldDefault("llm.timeout_seconds", &l.TimeoutSeconds, defaultLLMTimeout),
		intFieldDefault("llm.backoff_initial_ms", &l.BackoffInitialMS, defaultLLMBackoffMS),
		intFieldDefault("llm.breaker_threshold", &l.BreakerThreshold, defaultLLMBreakerThreshold),
		intFieldDefault("llm.breaker_cooldown_seconds", &l.BreakerCooldownSeconds, defaultLLMBreakerCooldown),
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.path", &s.Path, defaultStorePath),
		stringFieldDefault("store.dsn_env", &s.DSNEnv, defaultStoreDSNEnv),
	)
}

func (d *DataConfig) applyDefaults(keys keySet) {
	if d == nil {
		return
	}
	d.Source = strings.ToLower(strings.TrimSpace(d.Source))
	d.Fallback = strings.ToLower(strings.TrimSpace(d.Fallback))
	applyFieldDefaults(keys,
		stringFieldDefault("data.source", &d.Source, defaultDataSource),
		stringFieldDefault("data.api_key_env", &d.APIKeyEnv, defaultDataAPIKeyEnv),
		stringFieldDefault("data.base_url", &d.BaseURL, defaultDataBaseURL),
		stringFieldDefault("data.fixtures_dir", &d.FixturesDir, defaultDataFixturesDir),
		fieldDefault{
			key:   "data.requests_per_minute",
			need:  func() bool { return d.RequestsPerMinute <= 0 },
			apply: func() { d.RequestsPerMinute = defaultDataRPM },
		},
		intFieldDefault("data.timeout_seconds", &d.TimeoutSeconds, defaultDataTimeout),
		intFieldDefault("data.cache_ttl_seconds", &d.CacheTTLSeconds, defaultDataCacheTTL),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func normalizeTickers(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, t := range in {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func normalizeKeys(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, k := range in {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
