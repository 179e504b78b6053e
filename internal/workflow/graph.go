package workflow

import (
	"fmt"
	"strings"
)

const (
	NodeRisk      = "risk_controller"
	NodePortfolio = "portfolio_manager"
)

// Edge 表示 From 完成后 To 才能开始。
type Edge struct {
	From string
	To   string
}

// Graph is the per-ticker execution plan: every analyst feeds the risk
// controller, which alone feeds the portfolio manager.
type Graph struct {
	Ticker   string
	Analysts []string
}

func NewGraph(ticker string, analysts []string) Graph {
	return Graph{Ticker: ticker, Analysts: append([]string(nil), analysts...)}
}

// Nodes returns analysts in resolved order followed by the two decision nodes.
func (g Graph) Nodes() []string {
	out := make([]string, 0, len(g.Analysts)+2)
	out = append(out, g.Analysts...)
	return append(out, NodeRisk, NodePortfolio)
}

func (g Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.Analysts)+1)
	for _, a := range g.Analysts {
		out = append(out, Edge{From: a, To: NodeRisk})
	}
	return append(out, Edge{From: NodeRisk, To: NodePortfolio})
}

// Predecessors lists the nodes that must finish before node starts.
func (g Graph) Predecessors(node string) []string {
	var out []string
	for _, e := range g.Edges() {
		if e.To == node {
			out = append(out, e.From)
		}
	}
	return out
}

func (g Graph) String() string {
	nodes := g.Nodes()
	branches, tail := nodes[:len(nodes)-2], nodes[len(nodes)-2:]
	return fmt.Sprintf("%s: [%s] -> %s", g.Ticker, strings.Join(branches, ", "), strings.Join(tail, " -> "))
}
