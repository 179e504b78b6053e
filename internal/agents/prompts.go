package agents

import (
	"strings"
	"text/template"

	"deepfund/internal/logger"
)

const analystOutputFormat = `
You must answer with a single JSON object and nothing else:
{"signal": "Bullish" | "Bearish" | "Neutral", "justification": "<brief explanation of your analysis>"}
Your response should be well-reasoned and consider all aspects of the analysis.`

const (
	technicalSystem = `You are a technical analyst evaluating a US stock using multiple technical analysis strategies.` + analystOutputFormat

	fundamentalSystem = `You are a financial analyst evaluating a US stock based on fundamental analysis of company profitability, growth, financial health and valuation.` + analystOutputFormat

	newsSystem = `You are a news sentiment analyst evaluating a US stock based on recent news. Title, publisher and publish time are provided.` + analystOutputFormat

	insiderSystem = `You are an insider trading analyst evaluating a US stock based on company insider trades, the stock buys and sales of public company insiders like CEOs, CFOs and Directors.` + analystOutputFormat

	plannerSystem = `You are a planner that decides which analysts to run for a ticker, based on your knowledge of the ticker and the features of each analyst.
You must answer with a single JSON object and nothing else:
{"analysts": ["<analyst key>", ...], "justification": "<brief explanation of your selection>"}
Select at least one analyst. Use only keys from the catalogue.`

	riskSystem = `You are a professional risk control analyst.
Evaluate the risk of the ticker and set the optimal position ratio based on the analyst signals and the portfolio state.
If you observe more bullish signals, you can set a larger position ratio.
If you observe more bearish signals, you can set a smaller position ratio.
You must answer with a single JSON object and nothing else:
{"optimal_position_ratio": <number>, "justification": "<brief explanation of your recommendation>"}`

	portfolioSystem = `You are a portfolio manager making the final trading decision for one ticker, based on the analyst signals, your decision memory and the position limits computed by risk control.
If tradable shares is positive, you can buy up to that many shares.
If tradable shares is negative, you can sell up to its absolute value. Always report shares as a non-negative count.
If tradable shares is close to 0, you can hold.
You must answer with a single JSON object and nothing else:
{"action": "Buy" | "Sell" | "Hold", "shares": <integer, 0 for Hold>, "justification": "<brief explanation of your decision>"}
Your response should be well-reasoned and consider all aspects of the analysis.`
)

var technicalTemplate = template.Must(template.New("technical").Parse(
	`Ticker: {{.Ticker}} (as of {{.Date}})

The following signals have been generated from our analysis:
{{range .Summary.Components}}- {{.Name}}: {{.Polarity}} ({{.Detail}})
{{end}}
Last close: {{printf "%.2f" .Summary.LastClose}}, ATR(14): {{printf "%.4f" .Summary.ATR}}, bars: {{.Summary.Bars}}
Chart patterns: {{.Pattern.PatternSummary}}
Trend fit: {{.Pattern.TrendSummary}} (bias {{.Pattern.Bias}})
`))

var fundamentalTemplate = template.Must(template.New("fundamental").Parse(
	`Ticker: {{.Ticker}} (as of {{.Date}}){{if .Name}}, {{.Name}}{{end}}{{if .Sector}}, sector {{.Sector}}{{end}}

The following signals have been generated from our analysis:
{{range .Checks}}- {{.Name}}: {{.Polarity}} ({{.Detail}})
{{end}}`))

var newsTemplate = template.Must(template.New("news").Parse(
	`Ticker: {{.Ticker}} (as of {{.Date}})

Here are the {{len .Items}} most recent news items from the past week:
{{range .Items}}- [{{.PublishedAt.Format "2006-01-02 15:04"}}] {{.Title}} ({{.Source}}){{if .Sentiment}} sentiment={{.Sentiment}}{{end}}
{{end}}`))

var insiderTemplate = template.Must(template.New("insider").Parse(
	`Ticker: {{.Ticker}} (as of {{.Date}})

Here are the {{len .Trades}} most recent insider trades:
{{range .Trades}}- {{.TransactionDate.Format "2006-01-02"}} {{.Insider}}{{if .Title}} ({{.Title}}){{end}}: {{.Type}} {{printf "%.0f" .Shares}} shares{{if .Price}} @ {{printf "%.2f" .Price}}{{end}}
{{end}}`))

var plannerTemplate = template.Must(template.New("planner").Parse(
	`Here is the ticker:
{{.Ticker}}

Here are the available analysts:
{{.Catalogue}}
Select one or at most {{.Max}} analysts.
`))

var riskTemplate = template.Must(template.New("risk").Parse(
	`Ticker: {{.Ticker}}
Current price: {{.Price}}

Here are the analyst signals:
{{range .Signals}}- {{.Analyst}}: {{.Polarity}} ({{.Justification}})
{{end}}
Here is the portfolio state:
Cash: {{.Cash}}
Total value: {{.TotalValue}}
{{range .Positions}}- {{.Ticker}}: {{.Shares}} shares, value {{.Value}}
{{else}}- no open positions
{{end}}
The position ratio range is [0, {{.MaxRatio}}], the minimum step is 0.05.
`))

var portfolioTemplate = template.Must(template.New("portfolio").Parse(
	`Ticker: {{.Ticker}}

Here are the analyst signals:
{{range .Signals}}- {{.Analyst}}: {{.Polarity}} ({{.Justification}})
{{end}}
Here is the decision memory (most recent first):
{{range .Memory}}- {{.TradingDate.Format "2006-01-02"}}: {{.Action}} {{.Shares}} @ {{.Price}} ({{.Justification}})
{{else}}- no previous decisions
{{end}}
Risk control: optimal position ratio {{printf "%.2f" .Ratio}}{{if .RiskNote}} ({{.RiskNote}}){{end}}
Current price: {{.Price}}
Holding shares: {{.CurrentShares}}
Tradable shares: {{.TradableShares}}
Portfolio cash: {{.Cash}}
`))

// render 渲染提示词模板；失败时记录日志并返回空串。
func render(t *template.Template, data any) string {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		logger.Warnf("prompt %s 渲染失败: %v", t.Name(), err)
		return ""
	}
	return b.String()
}

// joinPrompt 是持久化到 signal/decision 行中的完整提示词。
func joinPrompt(system, user string) string {
	return strings.TrimSpace(system) + "\n\n" + strings.TrimSpace(user)
}
