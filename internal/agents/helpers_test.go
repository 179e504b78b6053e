package agents

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"deepfund/internal/gateway/provider"
	"deepfund/internal/market"
	"deepfund/internal/oracle"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) ID() string    { return "mock" }
func (m *mockProvider) Model() string { return "mock-model" }
func (m *mockProvider) Enabled() bool { return true }

func (m *mockProvider) Call(ctx context.Context, payload provider.ChatPayload) (string, error) {
	args := m.Called(ctx, payload)
	return args.String(0), args.Error(1)
}

// forSystem matches calls carrying the given system prompt.
func forSystem(system string) any {
	return mock.MatchedBy(func(p provider.ChatPayload) bool { return p.System == system })
}

func newInvoker(p provider.ModelProvider) *oracle.Invoker {
	return oracle.NewInvoker(p, oracle.Options{MaxRetries: 2, Timeout: time.Second, BackoffInitial: time.Millisecond})
}

var tradingDate = time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)

// risingFixture 生成一段单边上涨的日线。
func risingFixture(ticker string, n int) market.Fixture {
	fx := market.Fixture{Ticker: ticker}
	start := tradingDate.AddDate(0, 0, -n)
	for i := 0; i < n; i++ {
		c := 100 + float64(i)*0.5
		fx.Prices = append(fx.Prices, market.FixtureBar{
			Date:   start.AddDate(0, 0, i).Format("2006-01-02"),
			Open:   c - 0.2,
			High:   c + 0.5,
			Low:    c - 0.5,
			Close:  c,
			Volume: 1_000_000 + int64(i)*1000,
		})
	}
	return fx
}

func newLocal(t *testing.T, fixtures ...market.Fixture) *market.Local {
	t.Helper()
	l, err := market.NewLocalFromFixtures(fixtures...)
	require.NoError(t, err)
	return l
}

func signalReply(polarity, why string) string {
	return fmt.Sprintf(`{"signal": %q, "justification": %q}`, polarity, why)
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
