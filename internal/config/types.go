package config

import (
	"os"
	"strings"
)

// Config 是 deepfund 的主配置载体。
type Config struct {
	App    AppConfig    `toml:"app"`
	Run    RunConfig    `toml:"run"`
	LLM    LLMConfig    `toml:"llm"`
	Store  StoreConfig  `toml:"store"`
	Data   DataConfig   `toml:"data"`
	Notify NotifyConfig `toml:"notify"`
}

type AppConfig struct {
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
	LLMLog   string `toml:"llm_log_path"`
	LLMDump  bool   `toml:"llm_dump_payload"`
}

// RunConfig 描述一次实验（run）的身份与交易参数。
type RunConfig struct {
	Name               string   `toml:"name"`
	Tickers            []string `toml:"tickers"`
	StartDate          string   `toml:"start_date"`
	EndDate            string   `toml:"end_date"`
	InitialCash        float64  `toml:"initial_cash"`
	Analysts           []string `toml:"analysts"` // 为空时由 planner 为每个 ticker 选择
	PlannerMaxAnalysts int      `toml:"planner_max_analysts"`
	MemoryLimit        int      `toml:"memory_limit"`
	NewsLimit          int      `toml:"news_limit"`
	InsiderLimit       int      `toml:"insider_limit"`
	LookbackDays       int      `toml:"lookback_days"`
}

// UsesPlanner reports whether analysts are chosen per ticker by the planner.
func (r RunConfig) UsesPlanner() bool {
	return len(r.Analysts) == 0
}

// SelectionMode is the persisted name of the analyst selection strategy.
func (r RunConfig) SelectionMode() string {
	if r.UsesPlanner() {
		return "planner"
	}
	return "static:" + strings.Join(r.Analysts, ",")
}

// LLMConfig 描述决策模型（oracle）的连接与重试参数。
type LLMConfig struct {
	Provider               string            `toml:"provider"`
	Model                  string            `toml:"model"`
	APIURL                 string            `toml:"api_url"`
	APIKey                 string            `toml:"api_key"`
	APIKeyEnv              string            `toml:"api_key_env"`
	Headers                map[string]string `toml:"headers"`
	Temperature            float64           `toml:"temperature"`
	MaxTokens              int               `toml:"max_tokens"`
	MaxRetries             int               `toml:"max_retries"`
	TimeoutSeconds         int               `toml:"timeout_seconds"`
	BackoffInitialMS       int               `toml:"backoff_initial_ms"`
	RequestsPerMinute      float64           `toml:"requests_per_minute"`
	BreakerThreshold       int               `toml:"breaker_threshold"`
	BreakerCooldownSeconds int               `toml:"breaker_cooldown_seconds"`
}

// ResolvedAPIKey 优先使用显式 api_key，否则读取 api_key_env 指向的环境变量。
func (l LLMConfig) ResolvedAPIKey() string {
	return resolveSecret(l.APIKey, l.APIKeyEnv)
}

type StoreConfig struct {
	Path   string `toml:"path"`
	DSNEnv string `toml:"dsn_env"`
	Local  bool   `toml:"local"`
}

// DSN returns the remote database DSN, or "" when none is configured.
func (s StoreConfig) DSN() string {
	return resolveSecret("", s.DSNEnv)
}

// DataConfig 描述行情/基本面数据来源。
type DataConfig struct {
	Source            string  `toml:"source"`
	Fallback          string  `toml:"fallback"`
	APIKey            string  `toml:"api_key"`
	APIKeyEnv         string  `toml:"api_key_env"`
	Entitlement       string  `toml:"entitlement"`
	BaseURL           string  `toml:"base_url"`
	RequestsPerMinute float64 `toml:"requests_per_minute"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	FixturesDir       string  `toml:"fixtures_dir"`
	CacheTTLSeconds   int     `toml:"cache_ttl_seconds"`
}

func (d DataConfig) ResolvedAPIKey() string {
	return resolveSecret(d.APIKey, d.APIKeyEnv)
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   int64  `toml:"chat_id"`
}

func resolveSecret(explicit, envName string) string {
	if v := strings.TrimSpace(explicit); v != "" {
		return v
	}
	envName = strings.TrimSpace(envName)
	if envName == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(envName))
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
