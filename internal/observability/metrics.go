// Package observability carries the engine's logging and metrics plumbing.
// Metrics are optional: a nil Collector is a no-op, keeping the engine
// usable as a plain library.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds all Prometheus metrics for the engine.
type Collector struct {
	registry *prometheus.Registry

	// Mutation metrics
	NodesCreated  prometheus.Counter
	NodesDeleted  prometheus.Counter
	EdgesCreated  prometheus.Counter
	EdgesDeleted  prometheus.Counter
	Rejections    *prometheus.CounterVec
	OperationTime *prometheus.HistogramVec

	// Governance metrics
	BehaviorsApplied prometheus.Counter
	RepairsPerformed prometheus.Counter

	// Optimizer metrics
	IndicesBuilt  prometheus.Counter
	IndexHits     prometheus.Counter
	IndexMisses   prometheus.Counter
	Substitutions prometheus.Counter
}

// NewCollector creates a metrics collector with its own registry, avoiding
// duplicate registration across engine instances in tests.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		NodesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_created_total",
			Help:      "Total number of nodes created",
		}),
		NodesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_deleted_total",
			Help:      "Total number of nodes deleted",
		}),
		EdgesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edges_created_total",
			Help:      "Total number of edges created",
		}),
		EdgesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edges_deleted_total",
			Help:      "Total number of edges deleted",
		}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_rejected_total",
			Help:      "Total number of rejected mutations by rule or behavior",
		}, []string{"name", "kind"}),
		OperationTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Engine operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		BehaviorsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "behaviors_applied_total",
			Help:      "Total number of behavior applications to incoming values",
		}),
		RepairsPerformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repairs_performed_total",
			Help:      "Total number of clean-policy automatic repairs",
		}),
		IndicesBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "indices_built_total",
			Help:      "Total number of auto-created indices",
		}),
		IndexHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_hits_total",
			Help:      "Total number of lookups served from an index",
		}),
		IndexMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_misses_total",
			Help:      "Total number of lookups served by a linear scan",
		}),
		Substitutions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "algorithm_substitutions_total",
			Help:      "Total number of rule-licensed algorithm substitutions",
		}),
	}

	registry.MustRegister(
		c.NodesCreated, c.NodesDeleted, c.EdgesCreated, c.EdgesDeleted,
		c.Rejections, c.OperationTime,
		c.BehaviorsApplied, c.RepairsPerformed,
		c.IndicesBuilt, c.IndexHits, c.IndexMisses, c.Substitutions,
	)
	return c
}

// Registry exposes the collector's registry for scraping by a host process.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Nil-safe recording helpers. The engine calls these unconditionally.

// RecordNodeCreated increments the node-creation counter.
func (c *Collector) RecordNodeCreated() {
	if c != nil {
		c.NodesCreated.Inc()
	}
}

// RecordNodeDeleted increments the node-deletion counter.
func (c *Collector) RecordNodeDeleted() {
	if c != nil {
		c.NodesDeleted.Inc()
	}
}

// RecordEdgeCreated increments the edge-creation counter.
func (c *Collector) RecordEdgeCreated() {
	if c != nil {
		c.EdgesCreated.Inc()
	}
}

// RecordEdgeDeleted increments the edge-deletion counter.
func (c *Collector) RecordEdgeDeleted() {
	if c != nil {
		c.EdgesDeleted.Inc()
	}
}

// RecordRejection counts a rejected mutation by governing name and kind
// ("rule" or "behavior").
func (c *Collector) RecordRejection(name, kind string) {
	if c != nil {
		c.Rejections.WithLabelValues(name, kind).Inc()
	}
}

// RecordBehaviorApplied increments the behavior-application counter.
func (c *Collector) RecordBehaviorApplied() {
	if c != nil {
		c.BehaviorsApplied.Inc()
	}
}

// RecordRepair increments the repair counter.
func (c *Collector) RecordRepair() {
	if c != nil {
		c.RepairsPerformed.Inc()
	}
}

// RecordIndexBuilt increments the index-creation counter.
func (c *Collector) RecordIndexBuilt() {
	if c != nil {
		c.IndicesBuilt.Inc()
	}
}

// RecordIndexHit counts a lookup served from an index.
func (c *Collector) RecordIndexHit() {
	if c != nil {
		c.IndexHits.Inc()
	}
}

// RecordIndexMiss counts a lookup served by a linear scan.
func (c *Collector) RecordIndexMiss() {
	if c != nil {
		c.IndexMisses.Inc()
	}
}

// RecordSubstitution counts a rule-licensed algorithm substitution.
func (c *Collector) RecordSubstitution() {
	if c != nil {
		c.Substitutions.Inc()
	}
}

// ObserveOperation records an operation's duration in seconds.
func (c *Collector) ObserveOperation(operation string, seconds float64) {
	if c != nil {
		c.OperationTime.WithLabelValues(operation).Observe(seconds)
	}
}
