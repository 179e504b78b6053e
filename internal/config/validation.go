package config

import (
	"strings"
	"time"
)

// DateLayout 是配置与命令行中交易日期的格式。
const DateLayout = "2006-01-02"

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Run.validate(); err != nil {
		return err
	}
	if err := c.LLM.validate(); err != nil {
		return err
	}
	if err := c.Store.validate(); err != nil {
		return err
	}
	if err := c.Data.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	return nil
}

func (r *RunConfig) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return Invalid("run.name", "cannot be empty")
	}
	if len(r.Tickers) == 0 {
		return Invalid("run.tickers", "requires at least one ticker")
	}
	if r.InitialCash <= 0 {
		return Invalid("run.initial_cash", "must be > 0")
	}
	if r.PlannerMaxAnalysts <= 0 {
		return Invalid("run.planner_max_analysts", "must be > 0")
	}
	if r.MemoryLimit <= 0 {
		return Invalid("run.memory_limit", "must be > 0")
	}
	if r.LookbackDays <= 0 {
		return Invalid("run.lookback_days", "must be > 0")
	}
	start, err := parseOptionalDate("run.start_date", r.StartDate)
	if err != nil {
		return err
	}
	end, err := parseOptionalDate("run.end_date", r.EndDate)
	if err != nil {
		return err
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return Invalid("run.end_date", "must not be before run.start_date")
	}
	return nil
}

func (l *LLMConfig) validate() error {
	if strings.TrimSpace(l.Model) == "" {
		return Invalid("llm.model", "cannot be empty")
	}
	if strings.TrimSpace(l.APIURL) == "" {
		return Invalid("llm.api_url", "cannot be empty")
	}
	if l.MaxRetries < 1 {
		return Invalid("llm.max_retries", "must be >= 1")
	}
	if l.TimeoutSeconds <= 0 {
		return Invalid("llm.timeout_seconds", "must be > 0 (oracle calls require a finite timeout)")
	}
	if l.Temperature < 0 || l.Temperature > 2 {
		return Invalid("llm.temperature", "must be in [0, 2]")
	}
	if l.RequestsPerMinute < 0 {
		return Invalid("llm.requests_per_minute", "must be >= 0")
	}
	return nil
}

func (s *StoreConfig) validate() error {
	if s.Local && strings.TrimSpace(s.Path) == "" {
		return Invalid("store.path", "cannot be empty when store.local is set")
	}
	return nil
}

func (d *DataConfig) validate() error {
	if !isKnownSource(d.Source) {
		return Invalid("data.source", "must be one of alphavantage, yahoo, local (got %q)", d.Source)
	}
	if d.Fallback != "" {
		if !isKnownSource(d.Fallback) {
			return Invalid("data.fallback", "must be one of alphavantage, yahoo, local (got %q)", d.Fallback)
		}
		if d.Fallback == d.Source {
			return Invalid("data.fallback", "must differ from data.source")
		}
	}
	if d.RequestsPerMinute <= 0 {
		return Invalid("data.requests_per_minute", "must be > 0")
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	if n.Telegram.Enabled {
		if strings.TrimSpace(n.Telegram.BotToken) == "" || n.Telegram.ChatID == 0 {
			return Invalid("notify.telegram", "enabled but missing bot_token or chat_id")
		}
	}
	return nil
}

// TradingRange 返回 run.start_date/end_date 解析后的区间；未设置的一端为零值。
func (r RunConfig) TradingRange() (time.Time, time.Time, error) {
	start, err := parseOptionalDate("run.start_date", r.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseOptionalDate("run.end_date", r.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// ParseTradingDate parses a YYYY-MM-DD date in UTC.
func ParseTradingDate(raw string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return time.Time{}, Invalid("trading_date", "must be YYYY-MM-DD (got %q)", raw)
	}
	return t, nil
}

func parseOptionalDate(key, raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return time.Time{}, Invalid(key, "must be YYYY-MM-DD (got %q)", raw)
	}
	return t, nil
}

func isKnownSource(name string) bool {
	switch name {
	case "alphavantage", "yahoo", "local":
		return true
	default:
		return false
	}
}
