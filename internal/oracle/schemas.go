package oracle

import (
	"fmt"
	"math"
	"strings"

	"deepfund/internal/types"

	"github.com/tidwall/gjson"
)

const (
	SignalFallbackJustification   = "No justification provided due to error"
	DecisionFallbackJustification = "Just hold due to error"
	RiskFallbackJustification     = "No risk assessment due to error"
	PlanFallbackJustification     = "Planner unavailable, using all analysts"
)

// SignalOutput 是分析师节点的结构化输出。
type SignalOutput struct {
	Signal        types.Polarity
	Justification string
}

// DecisionOutput 是组合经理节点的结构化输出，Shares 尚未经过仓位约束。
type DecisionOutput struct {
	Action        types.Action
	Shares        int64
	Justification string
}

type RiskOutput struct {
	Ratio         float64
	Justification string
}

type PlanOutput struct {
	Analysts      []string
	Justification string
}

var SignalSchema = mustSchema("signal", `{
  "type": "object",
  "required": ["signal", "justification"],
  "properties": {
    "signal": {"type": "string", "minLength": 1},
    "justification": {"type": "string"}
  }
}`, nil, func() SignalOutput {
	return SignalOutput{Signal: types.Neutral, Justification: SignalFallbackJustification}
}, func(doc gjson.Result) (SignalOutput, error) {
	polarity, ok := types.ParsePolarity(doc.Get("signal").String())
	if !ok {
		return SignalOutput{}, fmt.Errorf("unknown signal %q", doc.Get("signal").String())
	}
	return SignalOutput{Signal: polarity, Justification: strings.TrimSpace(doc.Get("justification").String())}, nil
})

var DecisionSchema = mustSchema("decision", `{
  "type": "object",
  "required": ["action", "shares", "justification"],
  "properties": {
    "action": {"type": "string", "minLength": 1},
    "shares": {"type": "number"},
    "justification": {"type": "string"}
  }
}`, []string{"shares"}, func() DecisionOutput {
	return DecisionOutput{Action: types.ActionHold, Shares: 0, Justification: DecisionFallbackJustification}
}, func(doc gjson.Result) (DecisionOutput, error) {
	action, ok := types.NormalizeAction(doc.Get("action").String())
	if !ok {
		return DecisionOutput{}, fmt.Errorf("unknown action %q", doc.Get("action").String())
	}
	shares := doc.Get("shares").Float()
	if math.IsNaN(shares) || math.IsInf(shares, 0) {
		return DecisionOutput{}, fmt.Errorf("shares is not finite")
	}
	// 卖出数量写成负数时按绝对值理解。
	if action == types.ActionSell && shares < 0 {
		shares = -shares
	}
	return DecisionOutput{
		Action:        action,
		Shares:        shareCount(shares),
		Justification: strings.TrimSpace(doc.Get("justification").String()),
	}, nil
})

var RiskSchema = mustSchema("risk", `{
  "type": "object",
  "required": ["optimal_position_ratio"],
  "properties": {
    "optimal_position_ratio": {"type": "number"},
    "justification": {"type": "string"}
  }
}`, []string{"optimal_position_ratio"}, func() RiskOutput {
	return RiskOutput{Ratio: 0, Justification: RiskFallbackJustification}
}, func(doc gjson.Result) (RiskOutput, error) {
	ratio := doc.Get("optimal_position_ratio").Float()
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return RiskOutput{}, fmt.Errorf("ratio is not finite")
	}
	return RiskOutput{Ratio: ratio, Justification: strings.TrimSpace(doc.Get("justification").String())}, nil
})

var PlanSchema = mustSchema("plan", `{
  "type": "object",
  "required": ["analysts"],
  "properties": {
    "analysts": {"type": "array", "items": {"type": "string"}},
    "justification": {"type": "string"}
  }
}`, nil, func() PlanOutput {
	return PlanOutput{Justification: PlanFallbackJustification}
}, func(doc gjson.Result) (PlanOutput, error) {
	out := PlanOutput{Justification: strings.TrimSpace(doc.Get("justification").String())}
	doc.Get("analysts").ForEach(func(_, v gjson.Result) bool {
		out.Analysts = append(out.Analysts, strings.ToLower(strings.TrimSpace(v.String())))
		return true
	})
	return out, nil
})

// shareCount floors shares into int64, saturating values outside its range.
func shareCount(shares float64) int64 {
	f := math.Floor(shares)
	switch {
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}
