package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/kosarica/coupon-planner/internal/catalog"
)

const tracerName = "github.com/kosarica/coupon-planner/internal/optimizer"

// Engine plans a catalog with Monte Carlo Tree Search.
type Engine struct {
	cat     *catalog.Catalog
	cfg     Config
	eval    *Evaluator
	moves   MoveSource
	policy  Policy
	logger  zerolog.Logger
	metrics *MetricsRecorder
	tracer  trace.Tracer
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMoveSource replaces the canonical move generator.
func WithMoveSource(ms MoveSource) Option {
	return func(e *Engine) { e.moves = ms }
}

// WithPolicy replaces the rollout policy chosen by Config.Strategy.
func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithTracer replaces the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// NewEngine validates cfg and returns an engine for the catalog.
func NewEngine(cat *catalog.Catalog, cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	eval := NewEvaluator(cat, cfg.EvaluationOrder)
	e := &Engine{
		cat:     cat,
		cfg:     cfg,
		eval:    eval,
		moves:   NewMoveGenerator(cat),
		policy:  newPolicy(cfg.Strategy, eval),
		logger:  log.With().Str("component", "mcts").Logger(),
		metrics: NewMetricsRecorder(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Evaluator returns the evaluator used by the engine.
func (e *Engine) Evaluator() *Evaluator { return e.eval }

// search is the shared state of one run.
type search struct {
	e          *Engine
	arena      *arena
	ranker     *Ranker
	baseline   float64
	iterations atomic.Int64
	crashed    atomic.Int64
}

// Plan runs the search until the iteration budget is spent, the time budget
// elapses or ctx is canceled. Cancellation is not an error: the result then
// carries the best plans found so far.
func (e *Engine) Plan(ctx context.Context) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "optimizer.Plan", trace.WithAttributes(
		attribute.Int("catalog.items", len(e.cat.Items())),
		attribute.Int("catalog.coupons", len(e.cat.Rules())),
		attribute.String("planner.strategy", string(e.cfg.Strategy)),
		attribute.Int("planner.workers", e.cfg.Workers),
	))
	defer span.End()

	start := time.Now()
	res := &Result{
		RunID:       uuid.NewString(),
		Fingerprint: e.cat.Fingerprint(),
		Baseline:    e.cat.Baseline(),
		Seed:        e.cfg.Seed,
		Strategy:    e.cfg.Strategy,
	}
	logger := e.logger.With().Str("run_id", res.RunID).Logger()
	e.metrics.RecordCatalogSize(len(e.cat.Items()))

	root := NewPlanState(e.cat, e.eval)
	s := &search{
		e:        e,
		arena:    newArena(root),
		ranker:   NewRanker(e.cfg.TopK),
		baseline: float64(e.cat.Baseline()),
	}

	if root.Terminal() {
		s.ranker.Add(root)
		res.StopReason = StopTerminalRoot
		return e.finish(span, logger, s, res, start), nil
	}

	logger.Info().
		Int("items", len(e.cat.Items())).
		Int("coupons", len(e.cat.Rules())).
		Int("iterations", e.cfg.Iterations).
		Dur("time_budget", e.cfg.TimeBudget).
		Int("workers", e.cfg.Workers).
		Int64("seed", e.cfg.Seed).
		Msg("Starting planning run")

	runCtx := ctx
	if e.cfg.TimeBudget > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.cfg.TimeBudget)
		defer cancel()
	}

	var tickets atomic.Int64
	g, gctx := errgroup.WithContext(runCtx)
	for w := 0; w < e.cfg.Workers; w++ {
		worker := w
		g.Go(func() error {
			return s.runWorker(gctx, worker, &tickets, logger)
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var se *SearchError
		if errors.As(err, &se) {
			e.metrics.RecordError(string(se.Kind))
		} else {
			e.metrics.RecordError("internal")
		}
		logger.Error().Err(err).Msg("Planning run failed")
		return nil, fmt.Errorf("planning run %s: %w", res.RunID, err)
	}

	switch {
	case ctx.Err() != nil:
		res.StopReason = StopCanceled
	case runCtx.Err() != nil:
		res.StopReason = StopTimeBudget
	case s.crashed.Load() == int64(e.cfg.Workers):
		res.StopReason = StopWorkersExited
	default:
		res.StopReason = StopIterations
	}
	return e.finish(span, logger, s, res, start), nil
}

func (e *Engine) finish(span trace.Span, logger zerolog.Logger, s *search, res *Result, start time.Time) *Result {
	res.Plans = s.ranker.Plans()
	res.Iterations = s.iterations.Load()
	res.Nodes = s.arena.len()
	res.Duration = time.Since(start)
	e.metrics.RecordRun(res)

	ev := logger.Info().
		Int64("iterations", res.Iterations).
		Int("nodes", res.Nodes).
		Str("stop_reason", string(res.StopReason)).
		Dur("duration", res.Duration).
		Int("plans", len(res.Plans))
	if best := res.Best(); best != nil {
		ev = ev.Str("best_cost", best.Cost.String()).Str("baseline", res.Baseline.String())
		span.SetAttributes(attribute.Int64("planner.best_cost", int64(best.Cost)))
	}
	ev.Msg("Planning run finished")

	span.SetAttributes(
		attribute.Int64("planner.iterations", res.Iterations),
		attribute.Int("planner.nodes", res.Nodes),
		attribute.String("planner.stop_reason", string(res.StopReason)),
	)
	return res
}

// runWorker performs iterations until the budget is spent or ctx is done.
// A panic ends this worker only; the run continues with the others.
func (s *search) runWorker(ctx context.Context, worker int, tickets *atomic.Int64, logger zerolog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.crashed.Add(1)
			s.e.metrics.RecordWorkerCrash()
			logger.Error().
				Int("worker", worker).
				Interface("panic", r).
				Msg("Search worker crashed, continuing with remaining workers")
			err = nil
		}
	}()

	rng := rand.New(rand.NewSource(s.e.cfg.Seed + int64(worker)))
	limit := int64(s.e.cfg.Iterations)
	for {
		if ctx.Err() != nil {
			return nil
		}
		if limit > 0 && tickets.Add(1) > limit {
			return nil
		}
		if err := s.iterate(rng); err != nil {
			return err
		}
		s.iterations.Add(1)
	}
}

// iterate runs one selection, expansion, simulation and backpropagation pass.
// Virtual losses taken on the way down are always released, also on panic.
func (s *search) iterate(rng *rand.Rand) error {
	path := make([]int, 0, 32)
	committed := false
	defer func() {
		if committed {
			return
		}
		for _, i := range path {
			s.arena.get(i).virtual.Add(-1)
		}
	}()

	visit := func(i int) *node {
		n := s.arena.get(i)
		n.virtual.Add(1)
		path = append(path, i)
		return n
	}

	n := visit(0)
	for !n.terminal {
		next, expanded, err := s.step(path[len(path)-1], n)
		if err != nil {
			return err
		}
		n = visit(next)
		if expanded {
			break
		}
	}

	state, err := s.simulate(n.state, rng)
	if err != nil {
		return err
	}
	s.ranker.Add(state)

	reward := 0.0
	if s.baseline > 0 {
		reward = -float64(state.Cost()) / s.baseline
	}
	for _, i := range path {
		pn := s.arena.get(i)
		pn.visits.Add(1)
		pn.addValue(reward)
		pn.virtual.Add(-1)
	}
	committed = true
	return nil
}

// step either expands idx (returning its first new child) or selects the
// best child of a fully expanded node.
func (s *search) step(idx int, n *node) (next int, expanded bool, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.initialized {
		moves := s.e.moves.Moves(n.state)
		if len(moves) == 0 {
			return 0, false, &SearchError{Kind: KindStuck, State: n.state.Describe(), Plan: n.state}
		}
		n.untried = moves
		n.initialized = true
	}

	if len(n.untried) > 0 {
		width := s.e.cfg.ExpansionWidth
		if width <= 0 || width > len(n.untried) {
			width = len(n.untried)
		}
		batch := n.untried[:width]
		n.untried = n.untried[width:]
		first := -1
		for _, m := range batch {
			ci := s.arena.add(newNode(n.state.Apply(m), idx, m))
			n.children = append(n.children, ci)
			if first < 0 {
				first = ci
			}
		}
		return first, true, nil
	}

	return s.selectChild(n), false, nil
}

// selectChild returns the child with the highest UCB score. Virtual losses
// count as visits with the worst reward, unvisited children win outright and
// ties go to the lowest arena index.
func (s *search) selectChild(n *node) int {
	parentN := float64(n.visits.Load() + n.virtual.Load())
	logN := math.Log(math.Max(parentN, 1))
	c := s.e.cfg.Exploration

	best, bestScore := -1, math.Inf(-1)
	for _, ci := range n.children {
		child := s.arena.get(ci)
		virtual := float64(child.virtual.Load())
		visits := float64(child.visits.Load()) + virtual
		if visits == 0 {
			return ci
		}
		q := (child.valueSum() - virtual) / visits
		score := q + c*math.Sqrt(logN/visits)
		if score > bestScore {
			best, bestScore = ci, score
		}
	}
	return best
}

// simulate completes the state with the rollout policy without creating nodes.
func (s *search) simulate(state *PlanState, rng *rand.Rand) (*PlanState, error) {
	for !state.Terminal() {
		moves := s.e.moves.Moves(state)
		if len(moves) == 0 {
			return nil, &SearchError{Kind: KindStuck, State: state.Describe(), Plan: state}
		}
		state = state.Apply(s.e.policy.Choose(state, moves, rng))
	}
	return state, nil
}
