// Package engine composes the graph arena, rule validation, behavior
// transformation and the optimizer into the governed operation surface the
// evaluator calls. Control flow for every mutation: behaviors transform the
// incoming value, the mutation is staged against the live graph with
// journaled rollback, every attached rule is validated against the final
// resulting state, then the operation commits or is discarded whole. No
// caller ever observes an intermediate state.
package engine

import (
	"time"

	"go.uber.org/zap"

	"lattice/internal/behaviors"
	"lattice/internal/config"
	"lattice/internal/graph"
	"lattice/internal/observability"
	"lattice/internal/optimizer"
	"lattice/internal/rules"
	pkgerrors "lattice/pkg/errors"

	"github.com/google/uuid"
)

// ChildEdgeType is the edge type Insert uses to connect a parent to a new
// node.
const ChildEdgeType = "child"

// Engine is the single owner of one graph and everything governing it.
// Rule instances, behavior instances, indices and counters are all fields
// of this engine; there is no process-wide registry. The engine is
// single-threaded: every operation runs to completion on the caller's
// goroutine before returning.
type Engine struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *observability.Collector
	invoker behaviors.Invoker

	graph       *graph.Graph
	ruleEngine  *rules.Engine
	behaviorEng *behaviors.Engine
	opt         *optimizer.Optimizer

	ruleInstances     []*rules.Instance
	behaviorInstances []*behaviors.Instance
}

// Option configures an engine at construction.
type Option func(*Engine)

// WithConfig overrides the default configuration.
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithLogger sets the engine's structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics attaches a metrics collector. Without one the engine records
// nothing.
func WithMetrics(metrics *observability.Collector) Option {
	return func(e *Engine) { e.metrics = metrics }
}

// WithInvoker injects the capability for calling evaluator-supplied
// functions. Custom, conditional and comparator behaviors require it.
func WithInvoker(invoker behaviors.Invoker) Option {
	return func(e *Engine) { e.invoker = invoker }
}

// New creates an engine owning a fresh, empty graph of the given kind.
func New(kind graph.Kind, opts ...Option) *Engine {
	e := &Engine{
		cfg:   config.Default(),
		graph: graph.New(kind),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	e.ruleEngine = rules.NewEngine(e.logger)
	e.behaviorEng = behaviors.NewEngine(e.logger)
	e.opt = optimizer.New(e.cfg.IndexThreshold, e.logger, e.metrics)
	return e
}

// Graph exposes the underlying graph read surface for introspection. The
// arena stays owned by the engine; callers must not retain node pointers
// across mutations.
func (e *Engine) Graph() *graph.Graph {
	return e.graph
}

// Retune applies a reloaded configuration's tuning values.
func (e *Engine) Retune(cfg *config.Config) {
	if cfg == nil {
		return
	}
	e.cfg = cfg
	e.opt.SetThreshold(cfg.IndexThreshold)
}

// repairMode maps the configured repair mode string onto the rule engine's
// mode.
func (e *Engine) repairMode() rules.RepairMode {
	if e.cfg.RepairMode == config.RepairModeStrict {
		return rules.RepairStrict
	}
	return rules.RepairAny
}

// AddNode adds a node with the given id and value. The value passes through
// every attached behavior first; the resulting state must satisfy every
// attached rule.
func (e *Engine) AddNode(id string, value any) error {
	defer e.observe("add_node", time.Now())
	e.opt.RecordOperation("add_node")

	if e.cfg.MaxNodes > 0 && e.graph.NodeCount() >= e.cfg.MaxNodes {
		return pkgerrors.NewValidation("engine node limit reached")
	}

	transformed, err := e.behaviorEng.Apply(e.invoker, e.behaviorInstances, value)
	if err != nil {
		e.reject(err)
		return err
	}
	e.metrics.RecordBehaviorApplied()

	node, err := graph.NewNode(id, transformed)
	if err != nil {
		return err
	}
	undo, err := e.graph.AddNode(node)
	if err != nil {
		return err
	}
	if err := e.ruleEngine.ValidateAll(e.graph, e.ruleInstances); err != nil {
		undo()
		e.reject(err)
		return err
	}

	e.opt.OnNodeAdded(node)
	e.metrics.RecordNodeCreated()
	e.logger.Debug("node added", zap.String("id", id))
	return nil
}

// RemoveNode removes a node and every incident edge as one unit.
func (e *Engine) RemoveNode(id string) error {
	defer e.observe("remove_node", time.Now())
	e.opt.RecordOperation("remove_node")

	node, err := e.graph.Node(id)
	if err != nil {
		return err
	}
	removedEdges, undo, err := e.graph.RemoveNode(id)
	if err != nil {
		return err
	}
	if err := e.ruleEngine.ValidateAll(e.graph, e.ruleInstances); err != nil {
		undo()
		e.reject(err)
		return err
	}

	e.opt.OnNodeRemoved(node)
	for _, edge := range removedEdges {
		e.opt.OnEdgeRemoved(edge)
		e.metrics.RecordEdgeDeleted()
	}
	e.metrics.RecordNodeDeleted()
	e.logger.Debug("node removed", zap.String("id", id), zap.Int("cascadedEdges", len(removedEdges)))
	return nil
}

// AddEdge connects from to to with the given type, returning the new edge's
// id. A zero weight means "unweighted" and selects DefaultWeight, so every
// stored edge carries a positive weight; a true zero-weight edge is not
// representable. Negative weights are rejected: the weighted path
// algorithms assume non-negative edges.
func (e *Engine) AddEdge(from, to, edgeType string, weight float64, props map[string]any) (string, error) {
	defer e.observe("add_edge", time.Now())
	e.opt.RecordOperation("add_edge")

	if e.cfg.MaxEdges > 0 && e.graph.EdgeCount() >= e.cfg.MaxEdges {
		return "", pkgerrors.NewValidation("engine edge limit reached")
	}

	if weight < 0 {
		return "", pkgerrors.NewValidation("edge weight must not be negative")
	}
	if weight == 0 {
		weight = graph.DefaultWeight
	}
	edge := graph.NewEdge(from, to, edgeType, weight)
	edge.Properties = props

	undo, err := e.graph.AddEdge(edge)
	if err != nil {
		return "", err
	}
	if err := e.ruleEngine.ValidateAll(e.graph, e.ruleInstances); err != nil {
		undo()
		e.reject(err)
		return "", err
	}

	e.opt.OnEdgeAdded(edge)
	e.metrics.RecordEdgeCreated()
	e.logger.Debug("edge added",
		zap.String("id", edge.ID),
		zap.String("from", from),
		zap.String("to", to),
		zap.String("type", edgeType),
	)
	return edge.ID, nil
}

// RemoveEdge removes an edge by id.
func (e *Engine) RemoveEdge(id string) error {
	defer e.observe("remove_edge", time.Now())
	e.opt.RecordOperation("remove_edge")

	edge, undo, err := e.graph.RemoveEdge(id)
	if err != nil {
		return err
	}
	if err := e.ruleEngine.ValidateAll(e.graph, e.ruleInstances); err != nil {
		undo()
		e.reject(err)
		return err
	}

	e.opt.OnEdgeRemoved(edge)
	e.metrics.RecordEdgeDeleted()
	return nil
}

// Insert is sugar for the composite add-node(+add-edge) operation: with no
// parent it creates a lone node; with one it creates the node and its
// connecting edge as one atomic unit. Rules are validated against the final
// state only — the momentary intermediate state (a second root before the
// edge lands) never observably exists. Returns the new node's id.
func (e *Engine) Insert(value any, parent string) (string, error) {
	defer e.observe("insert", time.Now())
	e.opt.RecordOperation("insert")

	if e.cfg.MaxNodes > 0 && e.graph.NodeCount() >= e.cfg.MaxNodes {
		return "", pkgerrors.NewValidation("engine node limit reached")
	}
	if parent != "" && !e.graph.HasNode(parent) {
		return "", pkgerrors.NewReferential("parent node not found", parent)
	}

	transformed, err := e.behaviorEng.Apply(e.invoker, e.behaviorInstances, value)
	if err != nil {
		e.reject(err)
		return "", err
	}
	e.metrics.RecordBehaviorApplied()

	node, err := graph.NewNode(uuid.New().String(), transformed)
	if err != nil {
		return "", err
	}

	var undos []graph.UndoFunc
	rollback := func() {
		for i := len(undos) - 1; i >= 0; i-- {
			undos[i]()
		}
	}

	undo, err := e.graph.AddNode(node)
	if err != nil {
		return "", err
	}
	undos = append(undos, undo)

	var edge *graph.Edge
	if parent != "" {
		edge = graph.NewEdge(parent, node.ID(), ChildEdgeType, graph.DefaultWeight)
		undo, err = e.graph.AddEdge(edge)
		if err != nil {
			rollback()
			return "", err
		}
		undos = append(undos, undo)
	}

	if err := e.ruleEngine.ValidateAll(e.graph, e.ruleInstances); err != nil {
		rollback()
		e.reject(err)
		return "", err
	}

	e.opt.OnNodeAdded(node)
	e.metrics.RecordNodeCreated()
	if edge != nil {
		e.opt.OnEdgeAdded(edge)
		e.metrics.RecordEdgeCreated()
	}
	return node.ID(), nil
}

// SetValue replaces a node's payload, passing the new value through the
// attached behaviors.
func (e *Engine) SetValue(id string, value any) error {
	defer e.observe("set_value", time.Now())
	e.opt.RecordOperation("set_value")

	node, err := e.graph.Node(id)
	if err != nil {
		return err
	}
	transformed, err := e.behaviorEng.Apply(e.invoker, e.behaviorInstances, value)
	if err != nil {
		e.reject(err)
		return err
	}
	e.metrics.RecordBehaviorApplied()

	old := node.Value()
	node.SetValue(transformed)
	if err := e.ruleEngine.ValidateAll(e.graph, e.ruleInstances); err != nil {
		node.SetValue(old)
		e.reject(err)
		return err
	}
	return nil
}

// SetAttribute sets an open attribute on a node, keeping any index on the
// attribute consistent.
func (e *Engine) SetAttribute(id, name string, value any) error {
	defer e.observe("set_attribute", time.Now())
	e.opt.RecordOperation("set_attribute")

	node, err := e.graph.Node(id)
	if err != nil {
		return err
	}
	old, hadOld := node.Attribute(name)
	node.SetAttribute(name, value)
	if err := e.ruleEngine.ValidateAll(e.graph, e.ruleInstances); err != nil {
		if hadOld {
			node.SetAttribute(name, old)
		} else {
			node.RemoveAttribute(name)
		}
		e.reject(err)
		return err
	}
	e.opt.OnAttributeChanged(id, name, old, hadOld, value)
	return nil
}

// RemoveAttribute deletes a node attribute, keeping any index on it
// consistent.
func (e *Engine) RemoveAttribute(id, name string) error {
	defer e.observe("remove_attribute", time.Now())
	e.opt.RecordOperation("remove_attribute")

	node, err := e.graph.Node(id)
	if err != nil {
		return err
	}
	old, had := node.Attribute(name)
	if !had {
		return nil
	}
	node.RemoveAttribute(name)
	if err := e.ruleEngine.ValidateAll(e.graph, e.ruleInstances); err != nil {
		node.SetAttribute(name, old)
		e.reject(err)
		return err
	}
	e.opt.OnAttributeRemoved(id, name, old)
	return nil
}

// reject reports a rejected mutation per the governing instance's severity.
// Severity never decides whether a mutation is rejected, only how loudly.
func (e *Engine) reject(err error) {
	name := pkgerrors.RuleName(err)
	kind := "rule"
	severity := rules.SeverityError
	if pkgerrors.IsBehaviorFailure(err) {
		kind = "behavior"
	} else {
		for _, inst := range e.ruleInstances {
			if inst.Name() == name {
				severity = inst.Severity
				break
			}
		}
	}
	e.metrics.RecordRejection(name, kind)

	switch severity {
	case rules.SeveritySilent:
	case rules.SeverityWarning:
		e.logger.Warn("mutation rejected", zap.String("name", name), zap.Error(err))
	default:
		e.logger.Error("mutation rejected", zap.String("name", name), zap.Error(err))
	}
}

func (e *Engine) observe(operation string, start time.Time) {
	e.metrics.ObserveOperation(operation, time.Since(start).Seconds())
}
