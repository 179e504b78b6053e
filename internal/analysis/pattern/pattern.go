package pattern

import (
	"fmt"
	"math"
	"strings"

	"deepfund/internal/market"
)

// Result 是日线形态识别的结论，附在技术分析师的提示词中。
type Result struct {
	PatternSummary string   `json:"pattern_summary"`
	TrendSummary   string   `json:"trend_summary"`
	Bias           string   `json:"bias"`
	Signals        []string `json:"signals"`
}

func Analyze(bars []market.Bar) Result {
	if len(bars) == 0 {
		return Result{PatternSummary: "no daily bars", TrendSummary: "no trend", Bias: "balanced"}
	}
	closes := market.Closes(bars)
	highs := market.Highs(bars)
	lows := market.Lows(bars)
	slope, intercept := fitLine(closes)
	bias := classifySlope(slope, closes)
	trend := describeTrend(slope, intercept, closes)

	signals := make([]string, 0, 4)
	if desc, ok := detectDoubleBottom(lows); ok {
		signals = append(signals, desc)
	}
	if desc, ok := detectDoubleTop(highs); ok {
		signals = append(signals, desc)
	}
	if desc, ok := detectTriangle(highs, lows); ok {
		signals = append(signals, desc)
	}
	if desc, ok := detectCompression(highs, lows); ok {
		signals = append(signals, desc)
	}

	patternSummary := "no notable pattern"
	if len(signals) > 0 {
		patternSummary = strings.Join(signals, "; ")
	}
	return Result{
		PatternSummary: patternSummary,
		TrendSummary:   trend,
		Bias:           bias,
		Signals:        signals,
	}
}

func fitLine(series []float64) (slope, intercept float64) {
	if len(series) == 0 {
		return 0, 0
	}
	var sumX, sumY, sumXY, sumXX float64
	n := float64(len(series))
	for i, y := range series {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, series[len(series)-1]
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return
}

// classifySlope 以日均变动占均价的比例判断方向（阈值 0.05%/日）。
func classifySlope(slope float64, closes []float64) string {
	mean := 0.0
	for _, c := range closes {
		mean += c
	}
	mean /= float64(len(closes))
	if mean == 0 {
		return "balanced"
	}
	rel := slope / mean
	switch {
	case rel > 0.0005:
		return "bullish"
	case rel < -0.0005:
		return "bearish"
	default:
		return "balanced"
	}
}

func describeTrend(slope, intercept float64, closes []float64) string {
	last := closes[len(closes)-1]
	ref := intercept + slope*float64(len(closes)-1)
	angle := math.Atan(slope) * 180 / math.Pi
	if ref == 0 {
		return fmt.Sprintf("regression slope=%.4f/day", slope)
	}
	return fmt.Sprintf("regression slope=%.4f/day (%.2f deg), close %.2f%% from fitted line", slope, angle, (last-ref)/ref*100)
}

func detectDoubleBottom(lows []float64) (string, bool) {
	if len(lows) < 20 {
		return "", false
	}
	window := lows[len(lows)/2:]
	min1, idx1 := minWithIndex(window)
	min2, idx2 := minWithIndex(maskAround(window, idx1, math.MaxFloat64))
	diff := math.Abs(min1-min2) / math.Max(min1, 1)
	if diff <= 0.004 && absInt(idx2-idx1) >= 3 {
		desc := fmt.Sprintf("double bottom in the recent half, support near %.2f", (min1+min2)/2)
		return desc, true
	}
	return "", false
}

func detectDoubleTop(highs []float64) (string, bool) {
	if len(highs) < 20 {
		return "", false
	}
	window := highs[len(highs)/2:]
	max1, idx1 := maxWithIndex(window)
	max2, idx2 := maxWithIndex(maskAround(window, idx1, -math.MaxFloat64))
	diff := math.Abs(max1-max2) / math.Max(max1, 1)
	if diff <= 0.004 && absInt(idx2-idx1) >= 3 {
		desc := fmt.Sprintf("double top capping price near %.2f", (max1+max2)/2)
		return desc, true
	}
	return "", false
}

// maskAround 复制 values 并把 idx 前后两根的值替换为 fill。
func maskAround(values []float64, idx int, fill float64) []float64 {
	out := append([]float64{}, values...)
	for i := idx - 2; i <= idx+2; i++ {
		if i >= 0 && i < len(out) {
			out[i] = fill
		}
	}
	return out
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func detectTriangle(highs, lows []float64) (string, bool) {
	if len(highs) < 30 {
		return "", false
	}
	firstHigh := maxOf(highs[:len(highs)/2])
	lastHigh := maxOf(highs[len(highs)/2:])
	firstLow := minOf(lows[:len(lows)/2])
	lastLow := minOf(lows[len(lows)/2:])
	if lastHigh < firstHigh && lastLow > firstLow {
		widthDelta := (firstHigh - firstLow) - (lastHigh - lastLow)
		if widthDelta/firstHigh > 0.05 {
			return "range contracting from both sides, possible symmetric triangle", true
		}
	}
	return "", false
}

func detectCompression(highs, lows []float64) (string, bool) {
	if len(highs) < 40 {
		return "", false
	}
	first := (maxOf(highs[:len(highs)/2]) - minOf(lows[:len(lows)/2])) / maxOf(highs[:len(highs)/2])
	second := (maxOf(highs[len(highs)/2:]) - minOf(lows[len(lows)/2:])) / maxOf(highs[len(highs)/2:])
	if second < first*0.65 {
		return "range compressed sharply, watch for a breakout", true
	}
	return "", false
}

func minOf(values []float64) float64 {
	m := math.MaxFloat64
	for _, v := range values {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(values []float64) float64 {
	m := -math.MaxFloat64
	for _, v := range values {
		if v > m {
			m = v
		}
	}
	return m
}

func minWithIndex(values []float64) (float64, int) {
	m := math.MaxFloat64
	idx := -1
	for i, v := range values {
		if v < m {
			m = v
			idx = i
		}
	}
	return m, idx
}

func maxWithIndex(values []float64) (float64, int) {
	m := -math.MaxFloat64
	idx := -1
	for i, v := range values {
		if v > m {
			m = v
			idx = i
		}
	}
	return m, idx
}
