// Package lattice is an in-memory, constraint-governed graph engine. One
// Engine owns one graph plus everything governing it: structural rules that
// every mutation must leave intact, behaviors that transform values on the
// way in, and an optimizer that builds indices and swaps algorithms based on
// observed access patterns and declared rules.
//
// The same graph substrate backs every collection shape: a list is a graph
// with sequential edges, a hash a graph with no edges, a tree a graph with
// the "tree" ruleset attached.
package lattice

import (
	"go.uber.org/zap"

	"lattice/internal/behaviors"
	"lattice/internal/config"
	"lattice/internal/engine"
	"lattice/internal/graph"
	"lattice/internal/observability"
	"lattice/internal/optimizer"
	"lattice/internal/rules"
)

// Engine is the governed operation surface over one graph.
type Engine = engine.Engine

// Option configures an Engine at construction.
type Option = engine.Option

// Graph kinds.
const (
	Directed   = graph.Directed
	Undirected = graph.Undirected
)

// New creates an engine owning a fresh, empty graph of the given kind.
func New(kind graph.Kind, opts ...Option) *Engine {
	return engine.New(kind, opts...)
}

// WithConfig overrides the default configuration.
func WithConfig(cfg *Config) Option { return engine.WithConfig(cfg) }

// WithLogger sets the engine's structured logger.
func WithLogger(logger *zap.Logger) Option { return engine.WithLogger(logger) }

// WithMetrics attaches a Prometheus metrics collector.
func WithMetrics(m *Metrics) Option { return engine.WithMetrics(m) }

// WithInvoker injects the capability for calling host-supplied functions;
// custom, conditional and comparator behaviors require it.
func WithInvoker(inv Invoker) Option { return engine.WithInvoker(inv) }

// Invoker is the narrow capability for calling host-supplied functions.
type Invoker = behaviors.Invoker

// Behavior specs. Construct with NewStandardBehavior and friends, attach
// with Engine.AddBehavior.
type BehaviorSpec = behaviors.Spec

// Standard behavior names.
const (
	BehaviorDefaultZero = behaviors.StdDefaultZero
	BehaviorAbsolute    = behaviors.StdAbsolute
	BehaviorUppercase   = behaviors.StdUppercase
	BehaviorLowercase   = behaviors.StdLowercase
	BehaviorTrim        = behaviors.StdTrim
	BehaviorClamp       = behaviors.StdClamp
)

// NewStandardBehavior creates a fixed-name transform spec.
func NewStandardBehavior(name string) (BehaviorSpec, error) { return behaviors.NewStandard(name) }

// NewClampBehavior creates the clamp transform with its bounds.
func NewClampBehavior(min, max float64) (BehaviorSpec, error) { return behaviors.NewClamp(min, max) }

// NewMappingBehavior creates a lookup-table substitution behavior.
func NewMappingBehavior(table map[string]any, def any, hasDefault bool) BehaviorSpec {
	return behaviors.NewMapping(table, def, hasDefault)
}

// NewCustomBehavior creates a behavior around a host-supplied function.
func NewCustomBehavior(name string, fn any) (BehaviorSpec, error) {
	return behaviors.NewCustom(name, fn)
}

// NewConditionalBehavior creates a predicate-guarded transform; fallback may
// be nil.
func NewConditionalBehavior(name string, predicate, transform, fallback any) (BehaviorSpec, error) {
	return behaviors.NewConditional(name, predicate, transform, fallback)
}

// NewOrderingBehavior creates a sorted-insertion behavior; comparator may be
// nil for the default scalar ordering.
func NewOrderingBehavior(comparator any) BehaviorSpec {
	return behaviors.NewOrdering(comparator)
}

// Severity controls how a rejection is reported, never whether the mutation
// is rejected.
type Severity = rules.Severity

const (
	SeverityError   = rules.SeverityError
	SeverityWarning = rules.SeverityWarning
	SeveritySilent  = rules.SeveritySilent
)

// RetroactivePolicy governs reconciliation of pre-existing data when a rule
// or behavior attaches to a non-empty graph.
type RetroactivePolicy = rules.RetroactivePolicy

const (
	PolicyEnforce = rules.PolicyEnforce
	PolicyClean   = rules.PolicyClean
	PolicyWarn    = rules.PolicyWarn
	PolicyIgnore  = rules.PolicyIgnore
)

// AttachReport describes the outcome of attaching a rule or behavior.
type AttachReport = rules.AttachReport

// Plan is the execution plan Engine.Explain returns.
type Plan = optimizer.Plan

// Stats is the snapshot Engine.Stats returns.
type Stats = optimizer.Stats

// Config holds engine tuning values.
type Config = config.Config

// DefaultConfig returns the engine's default configuration.
func DefaultConfig() *Config { return config.Default() }

// LoadConfig builds configuration from defaults, an optional YAML file, and
// environment variables.
func LoadConfig(path string) (*Config, error) { return config.Load(path) }

// ConfigWatcher hot-reloads the configuration file.
type ConfigWatcher = config.Watcher

// WatchConfig starts hot reloading of the config file at path. Register
// Engine.Retune via OnChange to apply reloaded tuning values.
func WatchConfig(path string, initial *Config, logger *zap.Logger) (*ConfigWatcher, error) {
	return config.NewWatcher(path, initial, logger)
}

// Metrics is the engine's Prometheus collector; nil disables recording.
type Metrics = observability.Collector

// NewMetrics creates a metrics collector with its own registry.
func NewMetrics(namespace string) *Metrics { return observability.NewCollector(namespace) }

// NewLogger builds a structured logger for the given level.
func NewLogger(level string) (*zap.Logger, error) { return observability.NewLogger(level) }
