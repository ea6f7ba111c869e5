package bamboo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/TencentBlueKing/bamboo-engine-sub001/internal/compiler"
	"github.com/TencentBlueKing/bamboo-engine-sub001/internal/logging"
	"github.com/TencentBlueKing/bamboo-engine-sub001/internal/metrics"
	"github.com/TencentBlueKing/bamboo-engine-sub001/internal/rollback"
	"github.com/TencentBlueKing/bamboo-engine-sub001/internal/token"
	"github.com/TencentBlueKing/bamboo-engine-sub001/internal/validator"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/definition"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/domain"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/dsl"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/graph"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/ports"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/uid"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultLockTTL bounds how long a compile may hold the pipeline lock.
const DefaultLockTTL = 30 * time.Second

// ErrNoStore is returned by persistence operations on an engine built without a store.
var ErrNoStore = errors.New("no pipeline store configured")

// Operation names reported to metrics.
const (
	opCompile       = "compile"
	opValidate      = "validate"
	opToken         = "token"
	opStartNodes    = "start_nodes"
	opSkippedNodes  = "skipped_nodes"
	opRollbackGraph = "rollback_graph"
	opLoad          = "load"
)

// Engine is the high-level entry point of the library. It chains the tree
// builder, the structural validator and the token assigner, and optionally
// persists compiled pipelines.
type Engine struct {
	logger        *slog.Logger
	store         ports.PipelineStore
	locker        ports.DistributedLocker
	lockTTL       time.Duration
	registerer    prometheus.Registerer
	metrics       *metrics.Collectors
	cycleTolerate bool
	ids           uid.Generator
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithStore persists every compiled pipeline.
func WithStore(store ports.PipelineStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker guards compile-and-save with a lock keyed by pipeline id.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.lockTTL = ttl
	}
}

// WithMetrics registers the engine collectors on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Engine) {
		e.registerer = reg
	}
}

// WithCycleTolerance accepts cyclic trees. Loops are then broken by
// reversing back-edges on a private copy wherever an acyclic view is needed.
func WithCycleTolerance(tolerate bool) Option {
	return func(e *Engine) {
		e.cycleTolerate = tolerate
	}
}

// WithIDGenerator sets the generator for tree, flow and token ids.
func WithIDGenerator(g uid.Generator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// New initializes an Engine.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{lockTTL: DefaultLockTTL}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.ids == nil {
		eng.ids = uid.Default
	}
	if eng.registerer != nil {
		m, err := metrics.New(eng.registerer)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		eng.metrics = m
	}
	return eng, nil
}

// Compile builds the graph reachable from start, validates it and assigns
// tokens. With a store configured the result is saved before returning.
func (e *Engine) Compile(ctx context.Context, start dsl.Element, opts ...dsl.BuildOption) (*domain.Pipeline, error) {
	tree, err := dsl.Build(start, append([]dsl.BuildOption{dsl.WithIDGenerator(e.ids)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return e.CompileTree(ctx, tree)
}

// CompileDefinition compiles a declarative definition.
func (e *Engine) CompileDefinition(ctx context.Context, def *definition.Definition) (*domain.Pipeline, error) {
	tree, err := def.Build(dsl.WithIDGenerator(e.ids))
	if err != nil {
		return nil, err
	}
	return e.CompileTree(ctx, tree)
}

// CompileTree validates an already built tree, assigns tokens and saves the
// pipeline when a store is configured. tree is modified in place: edge lists
// are normalized and converge gateway ids are filled in.
func (e *Engine) CompileTree(ctx context.Context, tree *domain.Tree) (p *domain.Pipeline, err error) {
	start := time.Now()
	defer func() { e.metrics.Observe(opCompile, start, err) }()

	logger := e.logger.With("pipeline_id", tree.ID)
	if err := e.validate(tree, logger); err != nil {
		return nil, err
	}
	result := token.Generate(tree, token.WithLogger(logger), token.WithIDGenerator(e.ids))
	p = &domain.Pipeline{Tree: tree, Tokens: result.Tokens}

	if e.store != nil {
		if err := e.save(ctx, p, logger); err != nil {
			return nil, err
		}
	}

	logger.Info("Pipeline compiled", "tokens", len(result.Tokens), "unterminated", len(result.Unterminated))
	return p, nil
}

func (e *Engine) save(ctx context.Context, p *domain.Pipeline, logger *slog.Logger) error {
	if e.locker != nil {
		unlock, err := e.locker.Lock(ctx, p.ID(), e.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to lock pipeline %s: %w", p.ID(), err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("Failed to release pipeline lock", "error", err)
			}
		}()
	}
	if err := e.store.Save(ctx, p); err != nil {
		return fmt.Errorf("failed to save pipeline %s: %w", p.ID(), err)
	}
	logger.Debug("Pipeline saved")
	return nil
}

// Validate normalizes the edge lists of tree and checks its structure under
// the engine cycle policy.
func (e *Engine) Validate(ctx context.Context, tree *domain.Tree) (err error) {
	start := time.Now()
	defer func() { e.metrics.Observe(opValidate, start, err) }()
	return e.validate(tree, e.logger.With("pipeline_id", tree.ID))
}

func (e *Engine) validate(tree *domain.Tree, logger *slog.Logger) error {
	if err := validator.ValidateAndProcess(tree, e.cycleTolerate); err != nil {
		logger.Warn("Pipeline rejected", "error", err)
		return err
	}
	if _, reversed := compiler.EliminateCycles(tree); len(reversed) > 0 {
		e.metrics.CyclesReversed(len(reversed))
		logger.Debug("Back-edges reversed", "flows", reversed)
	}
	return nil
}

// Tokens validates tree and returns its token assignment.
func (e *Engine) Tokens(ctx context.Context, tree *domain.Tree) (result token.Result, err error) {
	start := time.Now()
	defer func() { e.metrics.Observe(opToken, start, err) }()

	logger := e.logger.With("pipeline_id", tree.ID)
	if err := e.validate(tree, logger); err != nil {
		return token.Result{}, err
	}
	return token.Generate(tree, token.WithLogger(logger), token.WithIDGenerator(e.ids)), nil
}

// AllowedStartNodes returns the main-line nodes execution may start from.
func (e *Engine) AllowedStartNodes(ctx context.Context, tree *domain.Tree) (ids []string, err error) {
	start := time.Now()
	defer func() { e.metrics.Observe(opStartNodes, start, err) }()
	return validator.AllowedStartNodeIDs(tree)
}

// SkippedNodes returns the nodes bypassed when execution starts at startNodeID.
func (e *Engine) SkippedNodes(ctx context.Context, tree *domain.Tree, startNodeID string) (ids []string, err error) {
	start := time.Now()
	defer func() { e.metrics.Observe(opSkippedNodes, start, err) }()
	return validator.SkippedExecuteNodeIDs(tree, startNodeID)
}

// RollbackGraph returns the graph replayed when rolling back from startID to
// targetID, together with the gateways and events met on the way.
func (e *Engine) RollbackGraph(ctx context.Context, tree *domain.Tree, startID, targetID string) (g *graph.RollbackGraph, others []string, err error) {
	begin := time.Now()
	defer func() { e.metrics.Observe(opRollbackGraph, begin, err) }()

	nodeMap := compiler.NodeMap(tree)
	for _, id := range []string{startID, targetID} {
		if _, ok := nodeMap[id]; !ok {
			return nil, nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id)
		}
	}
	g, others = rollback.Build(nodeMap, startID, targetID)
	return g, others, nil
}

// Load reads a compiled pipeline back from the store.
func (e *Engine) Load(ctx context.Context, pipelineID string) (p *domain.Pipeline, err error) {
	start := time.Now()
	defer func() { e.metrics.Observe(opLoad, start, err) }()

	if e.store == nil {
		return nil, ErrNoStore
	}
	return e.store.Load(ctx, pipelineID)
}

// Pipelines lists the ids of the stored pipelines.
func (e *Engine) Pipelines(ctx context.Context) ([]string, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}
	return e.store.List(ctx)
}

// Delete removes a stored pipeline.
func (e *Engine) Delete(ctx context.Context, pipelineID string) error {
	if e.store == nil {
		return ErrNoStore
	}
	return e.store.Delete(ctx, pipelineID)
}
