package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorTotal         = "#34d399"
	colorCash          = "#3b82f6"

	chartWidthPx  = 1200
	chartHeightPx = 520
)

// EquityChart 构建总资产与现金随快照版本变化的折线图。
func EquityChart(r Report) *charts.Line {
	curve := r.Curve()
	xAxis := make([]string, 0, len(curve))
	totals := make([]opts.LineData, 0, len(curve))
	cash := make([]opts.LineData, 0, len(curve))
	for _, pt := range curve {
		xAxis = append(xAxis, fmt.Sprintf("v%d %s", pt.Version, pt.TradingDate))
		totals = append(totals, opts.LineData{Value: pt.Total.InexactFloat64()})
		cash = append(cash, opts.LineData{Value: pt.Cash.InexactFloat64()})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", chartHeightPx),
			BackgroundColor: colorBackground,
			PageTitle:       "deepfund " + r.Identity.Name,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:         "Equity curve: " + r.Identity.Name,
			Subtitle:      fmt.Sprintf("return %s, max drawdown %s", percent(r.Return()), percent(r.MaxDrawdown())),
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "5%", TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithXAxisOpts(opts.XAxis{
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.2)}},
		}),
	)
	line.SetXAxis(xAxis).
		AddSeries("Total value", totals, charts.WithLineStyleOpts(opts.LineStyle{Color: colorTotal, Width: 2})).
		AddSeries("Cash", cash, charts.WithLineStyleOpts(opts.LineStyle{Color: colorCash, Width: 1}))
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}))
	return line
}

// RenderEquity writes the chart page as HTML.
func RenderEquity(w io.Writer, r Report) error {
	return EquityChart(r).Render(w)
}

// WriteEquityHTML renders the chart into path, creating parent directories.
func WriteEquityHTML(path string, r Report) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	if err := RenderEquity(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("render equity chart: %w", err)
	}
	return f.Close()
}
