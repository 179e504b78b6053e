package oracle

import (
	"math"
	"testing"

	"deepfund/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalSchemaParse(t *testing.T) {
	out, err := SignalSchema.Parse(`analysis done {"signal":"bearish","justification":"RSI 78"} thanks`)
	require.NoError(t, err)
	assert.Equal(t, types.Bearish, out.Signal)
	assert.Equal(t, "RSI 78", out.Justification)

	_, err = SignalSchema.Parse(`{"justification":"missing signal"}`)
	assert.Error(t, err)
}

func TestDecisionSchemaParse(t *testing.T) {
	out, err := DecisionSchema.Parse(`{"action":"Sell","shares":12.7,"justification":"trim"}`)
	require.NoError(t, err)
	assert.Equal(t, types.ActionSell, out.Action)
	assert.EqualValues(t, 12, out.Shares)

	_, err = DecisionSchema.Parse(`{"action":"Sell","shares":"lots","justification":"trim"}`)
	assert.Error(t, err)

	_, err = DecisionSchema.Parse(`{"action":"moon","shares":1,"justification":""}`)
	assert.Error(t, err)
}

func TestRiskAndPlanSchemaParse(t *testing.T) {
	risk, err := RiskSchema.Parse(`{"optimal_position_ratio":"0.25","justification":"moderate"}`)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, risk.Ratio, 1e-9)

	plan, err := PlanSchema.Parse(`{"analysts":[" Technical","news"],"justification":"momentum name"}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"technical", "news"}, plan.Analysts)

	_, err = PlanSchema.Parse(`{"analysts":"technical"}`)
	assert.Error(t, err)
}

func TestDecisionSchemaShareRange(t *testing.T) {
	out, err := DecisionSchema.Parse(`{"action":"Buy","shares":1e19,"justification":"all in"}`)
	require.NoError(t, err)
	assert.Equal(t, types.ActionBuy, out.Action)
	assert.EqualValues(t, math.MaxInt64, out.Shares)

	out, err = DecisionSchema.Parse(`{"action":"Sell","shares":-100,"justification":"trim"}`)
	require.NoError(t, err)
	assert.Equal(t, types.ActionSell, out.Action)
	assert.EqualValues(t, 100, out.Shares)
}
