package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/semaphore"

	"github.com/kosarica/coupon-planner/internal/catalog"
	"github.com/kosarica/coupon-planner/internal/feed"
	"github.com/kosarica/coupon-planner/internal/money"
	"github.com/kosarica/coupon-planner/internal/optimizer"
	"github.com/kosarica/coupon-planner/internal/plancache"
)

// CartStore loads stored carts and records plan runs.
type CartStore interface {
	LoadCart(ctx context.Context, cartID string) (feed.Snapshot, error)
	SaveRun(ctx context.Context, cartID string, res *optimizer.Result) error
	RecentRuns(ctx context.Context, cartID string, limit int) ([]feed.RunSummary, error)
}

// PlanOptions override the server's planner defaults for one request.
type PlanOptions struct {
	Iterations      *int     `json:"iterations,omitempty" form:"iterations"`
	TimeBudgetMs    *int64   `json:"timeBudgetMs,omitempty" form:"timeBudgetMs"`
	Exploration     *float64 `json:"exploration,omitempty" form:"exploration"`
	Strategy        string   `json:"strategy,omitempty" form:"strategy"`
	TopK            *int     `json:"topK,omitempty" form:"topK"`
	Seed            *int64   `json:"seed,omitempty" form:"seed"`
	Workers         *int     `json:"workers,omitempty" form:"workers"`
	ExpansionWidth  *int     `json:"expansionWidth,omitempty" form:"expansionWidth"`
	EvaluationOrder string   `json:"evaluationOrder,omitempty" form:"evaluationOrder"`
}

// PlanRequest is the body of POST /internal/plan.
type PlanRequest struct {
	Catalog feed.Snapshot `json:"catalog"`
	Options PlanOptions   `json:"options"`
}

// PlanResponse is a planning result. Amounts are in minor currency units.
type PlanResponse struct {
	RunID       string                 `json:"runId"`
	Fingerprint string                 `json:"catalogFingerprint"`
	Baseline    money.Money            `json:"baseline"`
	Iterations  int64                  `json:"iterations"`
	Nodes       int                    `json:"nodes"`
	StopReason  optimizer.StopReason   `json:"stopReason"`
	DurationMs  int64                  `json:"durationMs"`
	Seed        int64                  `json:"seed"`
	Cached      bool                   `json:"cached"`
	Plans       []optimizer.RankedPlan `json:"plans"`
}

// ErrorResponse carries an error message and, for catalog errors, the offending field.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// RunsResponse lists stored runs of a cart.
type RunsResponse struct {
	CartID string            `json:"cartId"`
	Runs   []feed.RunSummary `json:"runs"`
}

// PlanHandlerConfig configures a PlanHandler. A zero MaxTimeBudget,
// MaxWorkers or MaxTopK leaves that setting unbounded.
type PlanHandlerConfig struct {
	Defaults      optimizer.Config
	MaxConcurrent int
	MaxTimeBudget time.Duration
	MaxWorkers    int
	MaxTopK       int
}

// errBusy is returned when every planning slot is taken.
var errBusy = errors.New("too many planning runs in flight")

// PlanHandler serves planning requests.
type PlanHandler struct {
	defaults  optimizer.Config
	maxBudget time.Duration
	limits    PlanHandlerConfig
	sem       *semaphore.Weighted
	cache     *plancache.Cache
	store     CartStore
	logger    zerolog.Logger
	requests  metric.Int64Counter
}

// NewPlanHandler creates a plan handler. cache and store may be nil; without
// a store the cart routes answer 503.
func NewPlanHandler(cfg PlanHandlerConfig, cache *plancache.Cache, store CartStore) (*PlanHandler, error) {
	if err := cfg.Defaults.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	requests, err := otel.Meter("github.com/kosarica/coupon-planner/internal/handlers").Int64Counter(
		"planner.http.requests",
		metric.WithDescription("Planning requests by route and outcome"),
	)
	if err != nil {
		return nil, err
	}
	h := &PlanHandler{
		defaults:  cfg.Defaults,
		maxBudget: cfg.MaxTimeBudget,
		limits:    cfg,
		sem:       semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		cache:     cache,
		store:     store,
		logger:    log.With().Str("component", "plan_handler").Logger(),
		requests:  requests,
	}
	if _, err := h.config(PlanOptions{}); err != nil {
		return nil, fmt.Errorf("planner defaults exceed server limits: %w", err)
	}
	return h, nil
}

// Register mounts the planning routes on rg.
func (h *PlanHandler) Register(rg gin.IRoutes) {
	rg.POST("/plan", h.Plan)
	rg.GET("/carts/:cartId/plan", h.PlanCart)
	rg.GET("/carts/:cartId/runs", h.ListRuns)
}

// Plan plans an inline catalog.
// @Summary Plan coupon usage for a catalog
// @Description Searches for the cheapest grouping of cart items and coupon assignment
// @Tags planning
// @Accept json
// @Produce json
// @Param request body PlanRequest true "Catalog and planner options"
// @Success 200 {object} PlanResponse
// @Failure 400 {object} ErrorResponse "Malformed body or options"
// @Failure 422 {object} ErrorResponse "Invalid catalog"
// @Failure 500 {object} ErrorResponse "Planning failed"
// @Failure 503 {object} ErrorResponse "Too many planning runs in flight"
// @Router /internal/plan [post]
func (h *PlanHandler) Plan(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, "plan", http.StatusBadRequest, err)
		return
	}
	cfg, err := h.config(req.Options)
	if err != nil {
		h.fail(c, "plan", http.StatusBadRequest, err)
		return
	}
	cat, err := req.Catalog.Catalog()
	if err != nil {
		h.fail(c, "plan", http.StatusUnprocessableEntity, err)
		return
	}

	res, cached, err := h.run(c.Request.Context(), cat, cfg)
	if err != nil {
		h.fail(c, "plan", planStatus(err), err)
		return
	}
	h.count(c, "plan", "ok")
	c.JSON(http.StatusOK, response(res, cached))
}

// PlanCart plans a cart stored in Postgres and records the run.
// @Summary Plan coupon usage for a stored cart
// @Tags planning
// @Produce json
// @Param cartId path string true "Cart ID"
// @Param iterations query int false "Iteration budget"
// @Param timeBudgetMs query int false "Time budget in milliseconds"
// @Param strategy query string false "Rollout strategy" Enums(uniform, greedy)
// @Param topK query int false "Number of plans to return"
// @Param seed query int false "Random seed"
// @Success 200 {object} PlanResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse "Cart not found"
// @Failure 422 {object} ErrorResponse "Invalid stored catalog"
// @Failure 503 {object} ErrorResponse "Database unavailable or too many planning runs in flight"
// @Router /internal/carts/{cartId}/plan [get]
func (h *PlanHandler) PlanCart(c *gin.Context) {
	if h.store == nil {
		h.fail(c, "plan_cart", http.StatusServiceUnavailable, errors.New("database not configured"))
		return
	}
	var opts PlanOptions
	if err := c.ShouldBindQuery(&opts); err != nil {
		h.fail(c, "plan_cart", http.StatusBadRequest, err)
		return
	}
	cfg, err := h.config(opts)
	if err != nil {
		h.fail(c, "plan_cart", http.StatusBadRequest, err)
		return
	}

	cartID := c.Param("cartId")
	snap, err := h.store.LoadCart(c.Request.Context(), cartID)
	if err != nil {
		h.fail(c, "plan_cart", loadStatus(err), err)
		return
	}
	cat, err := snap.Catalog()
	if err != nil {
		h.fail(c, "plan_cart", http.StatusUnprocessableEntity, err)
		return
	}

	res, cached, err := h.run(c.Request.Context(), cat, cfg)
	if err != nil {
		h.fail(c, "plan_cart", planStatus(err), err)
		return
	}
	if !cached {
		if err := h.store.SaveRun(c.Request.Context(), cartID, res); err != nil {
			// the plan is still valid, only its record is lost
			h.logger.Error().Err(err).Str("cart_id", cartID).Str("run_id", res.RunID).Msg("Failed to save plan run")
		}
	}
	h.count(c, "plan_cart", "ok")
	c.JSON(http.StatusOK, response(res, cached))
}

// ListRuns lists recent stored runs of a cart.
// @Summary List plan runs of a cart
// @Tags planning
// @Produce json
// @Param cartId path string true "Cart ID"
// @Param limit query int false "Number of runs to return" default(20) minimum(1) maximum(100)
// @Success 200 {object} RunsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse "Database not configured"
// @Router /internal/carts/{cartId}/runs [get]
func (h *PlanHandler) ListRuns(c *gin.Context) {
	if h.store == nil {
		h.fail(c, "list_runs", http.StatusServiceUnavailable, errors.New("database not configured"))
		return
	}
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			h.fail(c, "list_runs", http.StatusBadRequest, errors.New("limit must be between 1 and 100"))
			return
		}
		limit = n
	}

	cartID := c.Param("cartId")
	runs, err := h.store.RecentRuns(c.Request.Context(), cartID, limit)
	if err != nil {
		h.fail(c, "list_runs", http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []feed.RunSummary{}
	}
	h.count(c, "list_runs", "ok")
	c.JSON(http.StatusOK, RunsResponse{CartID: cartID, Runs: runs})
}

// run plans cat under the concurrency limit, through the cache when
// configured. A run that finds no free slot fails with errBusy.
func (h *PlanHandler) run(ctx context.Context, cat *catalog.Catalog, cfg optimizer.Config) (*optimizer.Result, bool, error) {
	load := func(ctx context.Context) (*optimizer.Result, error) {
		if !h.sem.TryAcquire(1) {
			return nil, errBusy
		}
		defer h.sem.Release(1)

		engine, err := optimizer.NewEngine(cat, cfg, optimizer.WithLogger(h.logger))
		if err != nil {
			return nil, err
		}
		return engine.Plan(ctx)
	}

	if h.cache == nil {
		res, err := load(ctx)
		return res, false, err
	}
	return h.cache.Get(ctx, plancache.Key(cat.Fingerprint(), cfg), load)
}

// config applies request options on top of the server defaults.
func (h *PlanHandler) config(o PlanOptions) (optimizer.Config, error) {
	cfg := h.defaults
	if o.Iterations != nil {
		cfg.Iterations = *o.Iterations
	}
	if o.TimeBudgetMs != nil {
		cfg.TimeBudget = time.Duration(*o.TimeBudgetMs) * time.Millisecond
	}
	if o.Exploration != nil {
		cfg.Exploration = *o.Exploration
	}
	if o.Strategy != "" {
		cfg.Strategy = optimizer.Strategy(o.Strategy)
	}
	if o.TopK != nil {
		cfg.TopK = *o.TopK
	}
	if o.Seed != nil {
		cfg.Seed = *o.Seed
	}
	if o.Workers != nil {
		cfg.Workers = *o.Workers
	}
	if o.ExpansionWidth != nil {
		cfg.ExpansionWidth = *o.ExpansionWidth
	}
	if o.EvaluationOrder != "" {
		cfg.EvaluationOrder = optimizer.EvaluationOrder(o.EvaluationOrder)
	}
	if err := cfg.Validate(); err != nil {
		return optimizer.Config{}, err
	}
	if limit := h.limits.MaxWorkers; limit > 0 && cfg.Workers > limit {
		return optimizer.Config{}, optimizer.ErrInvalidConfig{Field: "workers", Reason: fmt.Sprintf("must be at most %d", limit)}
	}
	if limit := h.limits.MaxTopK; limit > 0 && cfg.TopK > limit {
		return optimizer.Config{}, optimizer.ErrInvalidConfig{Field: "top_k", Reason: fmt.Sprintf("must be at most %d", limit)}
	}
	if h.maxBudget > 0 && (cfg.TimeBudget == 0 || cfg.TimeBudget > h.maxBudget) {
		cfg.TimeBudget = h.maxBudget
	}
	return cfg, nil
}

func (h *PlanHandler) fail(c *gin.Context, route string, status int, err error) {
	h.count(c, route, strconv.Itoa(status))
	resp := ErrorResponse{Error: err.Error()}
	var ce *catalog.CatalogError
	if errors.As(err, &ce) {
		resp.Field = ce.Field
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("route", route).Int("status", status).Msg("Planning request failed")
	}
	c.JSON(status, resp)
}

func (h *PlanHandler) count(c *gin.Context, route, outcome string) {
	h.requests.Add(c.Request.Context(), 1, metric.WithAttributes(
		attribute.String("route", route),
		attribute.String("outcome", outcome),
	))
}

func planStatus(err error) int {
	switch {
	case errors.Is(err, errBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func loadStatus(err error) int {
	switch {
	case errors.Is(err, feed.ErrCartNotFound):
		return http.StatusNotFound
	case errors.Is(err, feed.ErrSourceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func response(res *optimizer.Result, cached bool) PlanResponse {
	plans := res.Plans
	if plans == nil {
		plans = []optimizer.RankedPlan{}
	}
	return PlanResponse{
		RunID:       res.RunID,
		Fingerprint: res.Fingerprint,
		Baseline:    res.Baseline,
		Iterations:  res.Iterations,
		Nodes:       res.Nodes,
		StopReason:  res.StopReason,
		DurationMs:  res.Duration.Milliseconds(),
		Seed:        res.Seed,
		Cached:      cached,
		Plans:       plans,
	}
}
