package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := LoadBytes([]byte(`
run:
  name: exp-1
  tickers: [aapl, " msft ", AAPL]
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Run.Tickers)
	assert.Equal(t, float64(defaultRunInitialCash), cfg.Run.InitialCash)
	assert.Equal(t, 5, cfg.Run.PlannerMaxAnalysts)
	assert.Equal(t, 5, cfg.Run.MemoryLimit)
	assert.True(t, cfg.Run.UsesPlanner())
	assert.Equal(t, "planner", cfg.Run.SelectionMode())
	assert.Equal(t, 3, cfg.LLM.MaxRetries)
	assert.Equal(t, 60, cfg.LLM.TimeoutSeconds)
	assert.Equal(t, "alphavantage", cfg.Data.Source)
	assert.Equal(t, defaultStorePath, cfg.Store.Path)
}

func TestLoadKeepsExplicitValues(t *testing.T) {
	cfg, err := LoadBytes([]byte(`
run:
  name: exp-2
  tickers: [ABC]
  initial_cash: 10000
  analysts: [Technical, news]
llm:
  model: deepseek-chat
  max_retries: 2
  temperature: 0.1
data:
  source: local
  fallback: yahoo
`))
	require.NoError(t, err)

	assert.Equal(t, 10000.0, cfg.Run.InitialCash)
	assert.Equal(t, []string{"technical", "news"}, cfg.Run.Analysts)
	assert.Equal(t, "static:technical,news", cfg.Run.SelectionMode())
	assert.Equal(t, "deepseek-chat", cfg.LLM.Model)
	assert.Equal(t, 2, cfg.LLM.MaxRetries)
	assert.InDelta(t, 0.1, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, "local", cfg.Data.Source)
	assert.Equal(t, "yahoo", cfg.Data.Fallback)
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		key  string
	}{
		{"missing name", "run:\n  tickers: [A]\n", "run.name"},
		{"missing tickers", "run:\n  name: x\n", "run.tickers"},
		{"explicit zero retries", "run:\n  name: x\n  tickers: [A]\nllm:\n  max_retries: 0\n", "llm.max_retries"},
		{"bad date", "run:\n  name: x\n  tickers: [A]\n  start_date: 2024/01/02\n", "run.start_date"},
		{"reversed range", "run:\n  name: x\n  tickers: [A]\n  start_date: 2024-02-01\n  end_date: 2024-01-01\n", "run.end_date"},
		{"unknown source", "run:\n  name: x\n  tickers: [A]\ndata:\n  source: bloomberg\n", "data.source"},
		{"telegram incomplete", "run:\n  name: x\n  tickers: [A]\nnotify:\n  telegram:\n    enabled: true\n", "notify.telegram"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadBytes([]byte(tc.yaml))
			require.Error(t, err)
			assert.True(t, IsConfigurationError(err))
			var ce *ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.key, ce.Key)
		})
	}
}

func TestLoadResolvesIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "llm:\n  model: base-model\n  max_retries: 4\nrun:\n  tickers: [ABC]\n")
	main := writeFile(t, dir, "main.yaml", "include: [base.yaml]\nrun:\n  name: inc\nllm:\n  model: override\n")

	cfg, err := Load(main)
	require.NoError(t, err)
	assert.Equal(t, "inc", cfg.Run.Name)
	assert.Equal(t, []string{"ABC"}, cfg.Run.Tickers)
	assert.Equal(t, "override", cfg.LLM.Model)
	assert.Equal(t, 4, cfg.LLM.MaxRetries)
}

func TestLoadDetectsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include: [b.yaml]\n")
	a := filepath.Join(dir, "a.yaml")
	writeFile(t, dir, "b.yaml", "include: [a.yaml]\n")

	_, err := Load(a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include cycle")
}

func TestResolvedSecretsPreferExplicit(t *testing.T) {
	t.Setenv("TEST_DEEPFUND_KEY", "from-env")
	l := LLMConfig{APIKeyEnv: "TEST_DEEPFUND_KEY"}
	assert.Equal(t, "from-env", l.ResolvedAPIKey())
	l.APIKey = "explicit"
	assert.Equal(t, "explicit", l.ResolvedAPIKey())
}

func TestLoadDotEnvSkipsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))

	envFile := writeFile(t, dir, "test.env", "DEEPFUND_TEST_DOTENV=loaded\n")
	require.NoError(t, LoadDotEnv(envFile))
	t.Cleanup(func() { os.Unsetenv("DEEPFUND_TEST_DOTENV") })
	assert.Equal(t, "loaded", os.Getenv("DEEPFUND_TEST_DOTENV"))
}

func TestParseTradingDate(t *testing.T) {
	d, err := ParseTradingDate("2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, 15, d.Day())

	_, err = ParseTradingDate("15/03/2024")
	assert.True(t, IsConfigurationError(err))
}
