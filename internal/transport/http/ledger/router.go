package ledgerhttp

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"deepfund/internal/logger"
	"deepfund/internal/store"
	"deepfund/internal/types"

	"github.com/gin-gonic/gin"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Reader is the read side of the ledger served over HTTP.
type Reader interface {
	Lookup(ctx context.Context, name string) (types.RunIdentity, error)
	Latest(ctx context.Context, configID string) (types.Portfolio, error)
	History(ctx context.Context, configID string, limit int) ([]types.Portfolio, error)
	DecisionMemory(ctx context.Context, configID, ticker string, k int) ([]types.DecisionRecord, error)
}

// Router 暴露配置、快照与决策的查询接口。
type Router struct {
	ledger Reader
}

func NewRouter(r Reader) *Router {
	return &Router{ledger: r}
}

// Register 将路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	configs := group.Group("/configs/:name")
	configs.GET("", r.handleConfig)
	configs.GET("/snapshots", r.handleSnapshots)
	configs.GET("/latest", r.handleLatest)
	configs.GET("/decisions", r.handleDecisions)
}

type portfolioView struct {
	types.Portfolio
	TotalValue string `json:"total_value"`
}

func view(p types.Portfolio) portfolioView {
	return portfolioView{Portfolio: p, TotalValue: p.TotalValue().StringFixed(2)}
}

func (r *Router) handleConfig(c *gin.Context) {
	id, ok := r.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, id)
}

func (r *Router) handleSnapshots(c *gin.Context) {
	id, ok := r.lookup(c)
	if !ok {
		return
	}
	history, err := r.ledger.History(c.Request.Context(), id.ID, queryLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]portfolioView, 0, len(history))
	for _, p := range history {
		out = append(out, view(p))
	}
	c.JSON(http.StatusOK, gin.H{"config": id.Name, "snapshots": out})
}

func (r *Router) handleLatest(c *gin.Context) {
	id, ok := r.lookup(c)
	if !ok {
		return
	}
	latest, err := r.ledger.Latest(c.Request.Context(), id.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view(latest))
}

func (r *Router) handleDecisions(c *gin.Context) {
	id, ok := r.lookup(c)
	if !ok {
		return
	}
	limit := queryLimit(c)
	tickers := id.Tickers
	if ticker := strings.ToUpper(strings.TrimSpace(c.Query("ticker"))); ticker != "" {
		tickers = []string{ticker}
	}
	var out []types.DecisionRecord
	for _, ticker := range tickers {
		recs, err := r.ledger.DecisionMemory(c.Request.Context(), id.ID, ticker, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		out = append(out, recs...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []types.DecisionRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"config": id.Name, "decisions": out})
}

func (r *Router) lookup(c *gin.Context) (types.RunIdentity, bool) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "config name is required"})
		return types.RunIdentity{}, false
	}
	id, err := r.ledger.Lookup(c.Request.Context(), name)
	if err != nil {
		respondError(c, err)
		return types.RunIdentity{}, false
	}
	return id, true
}

func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func respondError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	logger.Warnf("ledger api %s: %v", c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
