package indicator

import (
	"fmt"
	"math"
	"strings"

	"github.com/markcheno/go-talib"

	"deepfund/internal/market"
	"deepfund/internal/types"
)

// Thresholds 描述技术面各子信号的参数。
type Thresholds struct {
	TrendShort  int
	TrendMedium int
	TrendLong   int

	BollingerWindow  int
	ZScoreWindow     int
	ZScoreExtreme    float64
	BandPositionEdge float64

	RSIPeriod  int
	RSIBullish float64
	RSIBearish float64

	MomentumBullish float64
	MomentumBearish float64

	VolRegimeBullish float64
	VolRegimeBearish float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		TrendShort:       8,
		TrendMedium:      21,
		TrendLong:        55,
		BollingerWindow:  20,
		ZScoreWindow:     50,
		ZScoreExtreme:    2.0,
		BandPositionEdge: 0.2,
		RSIPeriod:        14,
		RSIBullish:       30,
		RSIBearish:       70,
		MomentumBullish:  0.05,
		MomentumBearish:  -0.05,
		VolRegimeBullish: 0.8,
		VolRegimeBearish: 1.2,
	}
}

// Component 是一个子策略的结论。
type Component struct {
	Name     string         `json:"name"`
	Polarity types.Polarity `json:"signal"`
	Detail   string         `json:"detail"`
}

// Summary 汇总单个 ticker 的技术面结论，作为技术分析师的提示词输入。
type Summary struct {
	Ticker     string      `json:"ticker"`
	Bars       int         `json:"bars"`
	LastClose  float64     `json:"last_close"`
	ATR        float64     `json:"atr"`
	Components []Component `json:"components"`
}

// Tally 统计各方向的子信号数量。
func (s Summary) Tally() (bullish, bearish, neutral int) {
	for _, c := range s.Components {
		switch c.Polarity {
		case types.Bullish:
			bullish++
		case types.Bearish:
			bearish++
		default:
			neutral++
		}
	}
	return
}

func (s Summary) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ticker %s, %d daily bars, last close %.2f, ATR(14) %.4f\n", s.Ticker, s.Bars, s.LastClose, s.ATR)
	for _, c := range s.Components {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", c.Name, c.Polarity, c.Detail)
	}
	return b.String()
}

// Summarize 计算趋势、均值回归、RSI、动量与波动率五个子信号。数据不足的子信号给出 Neutral。
func Summarize(ticker string, bars []market.Bar, th Thresholds) (Summary, error) {
	if len(bars) < 2 {
		return Summary{}, fmt.Errorf("need at least 2 bars, got %d", len(bars))
	}
	closes := market.Closes(bars)
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		volumes[i] = float64(b.Volume)
	}
	sum := Summary{
		Ticker:    ticker,
		Bars:      len(bars),
		LastClose: closes[len(closes)-1],
	}
	if len(bars) > 14 {
		sum.ATR = round4(lastValid(talib.Atr(market.Highs(bars), market.Lows(bars), closes, 14)))
	}
	sum.Components = []Component{
		trendSignal(closes, th),
		meanReversionSignal(closes, th),
		rsiSignal(closes, th),
		momentumSignal(closes, volumes, th),
		volatilitySignal(closes, th),
	}
	return sum, nil
}

func insufficient(name string, need, have int) Component {
	return Component{Name: name, Polarity: types.Neutral, Detail: fmt.Sprintf("insufficient data: need %d bars, have %d", need, have)}
}

func trendSignal(closes []float64, th Thresholds) Component {
	const name = "trend"
	if len(closes) < th.TrendLong {
		return insufficient(name, th.TrendLong, len(closes))
	}
	short := last(talib.Ema(closes, th.TrendShort))
	medium := last(talib.Ema(closes, th.TrendMedium))
	long := last(talib.Ema(closes, th.TrendLong))
	detail := fmt.Sprintf("EMA%d=%.2f EMA%d=%.2f EMA%d=%.2f", th.TrendShort, short, th.TrendMedium, medium, th.TrendLong, long)
	switch {
	case short > medium && medium > long:
		return Component{Name: name, Polarity: types.Bullish, Detail: detail}
	case short <= medium && medium <= long:
		return Component{Name: name, Polarity: types.Bearish, Detail: detail}
	default:
		return Component{Name: name, Polarity: types.Neutral, Detail: detail}
	}
}

func meanReversionSignal(closes []float64, th Thresholds) Component {
	const name = "mean_reversion"
	need := th.ZScoreWindow
	if th.BollingerWindow > need {
		need = th.BollingerWindow
	}
	if len(closes) < need {
		return insufficient(name, need, len(closes))
	}
	upper, _, lower := talib.BBands(closes, th.BollingerWindow, 2, 2, talib.SMA)
	mean := last(talib.Sma(closes, th.ZScoreWindow))
	std := last(talib.StdDev(closes, th.ZScoreWindow, 1))
	price := closes[len(closes)-1]
	if std == 0 || last(upper) == last(lower) {
		return Component{Name: name, Polarity: types.Neutral, Detail: "flat price series"}
	}
	z := (price - mean) / std
	position := (price - last(lower)) / (last(upper) - last(lower))
	detail := fmt.Sprintf("z-score=%.2f band position=%.2f", z, position)
	switch {
	case z < -th.ZScoreExtreme && position < th.BandPositionEdge:
		return Component{Name: name, Polarity: types.Bullish, Detail: detail}
	case z > th.ZScoreExtreme && position > 1-th.BandPositionEdge:
		return Component{Name: name, Polarity: types.Bearish, Detail: detail}
	default:
		return Component{Name: name, Polarity: types.Neutral, Detail: detail}
	}
}

func rsiSignal(closes []float64, th Thresholds) Component {
	const name = "rsi"
	if len(closes) <= th.RSIPeriod {
		return insufficient(name, th.RSIPeriod+1, len(closes))
	}
	rsi := last(talib.Rsi(closes, th.RSIPeriod))
	detail := fmt.Sprintf("RSI%d=%.1f thresholds=%.0f/%.0f", th.RSIPeriod, rsi, th.RSIBullish, th.RSIBearish)
	switch {
	case rsi > th.RSIBearish:
		return Component{Name: name, Polarity: types.Bearish, Detail: detail}
	case rsi < th.RSIBullish:
		return Component{Name: name, Polarity: types.Bullish, Detail: detail}
	default:
		return Component{Name: name, Polarity: types.Neutral, Detail: detail}
	}
}

// momentumSignal 以 1/3/6 个月收益加权（0.4/0.3/0.3），数据不足的周期按比例剔除权重。
func momentumSignal(closes, volumes []float64, th Thresholds) Component {
	const name = "momentum"
	horizons := []struct {
		period int
		weight float64
	}{{21, 0.4}, {63, 0.3}, {126, 0.3}}
	var score, weights float64
	var used []string
	for _, h := range horizons {
		if len(closes) <= h.period {
			continue
		}
		score += h.weight * last(talib.Roc(closes, h.period)) / 100
		weights += h.weight
		used = append(used, fmt.Sprintf("%dd", h.period))
	}
	if weights == 0 {
		return insufficient(name, horizons[0].period+1, len(closes))
	}
	score /= weights
	volumeMA := last(talib.Sma(volumes, 21))
	confirmed := volumeMA > 0 && volumes[len(volumes)-1] > volumeMA
	detail := fmt.Sprintf("score=%.3f horizons=%s volume_confirmed=%t", score, strings.Join(used, ","), confirmed)
	switch {
	case score > th.MomentumBullish && confirmed:
		return Component{Name: name, Polarity: types.Bullish, Detail: detail}
	case score < th.MomentumBearish && confirmed:
		return Component{Name: name, Polarity: types.Bearish, Detail: detail}
	default:
		return Component{Name: name, Polarity: types.Neutral, Detail: detail}
	}
}

func volatilitySignal(closes []float64, th Thresholds) Component {
	const (
		name      = "volatility"
		volWindow = 21
		regimeWin = 63
	)
	need := volWindow + regimeWin + 1
	if len(closes) < need {
		return insufficient(name, need, len(closes))
	}
	returns := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] != 0 {
			returns[i-1] = closes[i]/closes[i-1] - 1
		}
	}
	histVol := talib.StdDev(returns, volWindow, 1)[volWindow-1:]
	for i := range histVol {
		histVol[i] *= math.Sqrt(252)
	}
	current := last(histVol)
	volMA := last(talib.Sma(histVol, regimeWin))
	volStd := last(talib.StdDev(histVol, regimeWin, 1))
	if volMA == 0 || volStd == 0 {
		return Component{Name: name, Polarity: types.Neutral, Detail: "volatility regime undefined"}
	}
	regime := current / volMA
	z := (current - volMA) / volStd
	detail := fmt.Sprintf("annualized=%.2f regime=%.2f z=%.2f", current, regime, z)
	switch {
	case regime < th.VolRegimeBullish && z < -1:
		return Component{Name: name, Polarity: types.Bullish, Detail: detail}
	case regime > th.VolRegimeBearish && z > 1:
		return Component{Name: name, Polarity: types.Bearish, Detail: detail}
	default:
		return Component{Name: name, Polarity: types.Neutral, Detail: detail}
	}
}

func last(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	v := series[len(series)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func lastValid(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) && !math.IsInf(series[i], 0) {
			return series[i]
		}
	}
	return 0
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
