package graph

import (
	"time"

	"github.com/google/uuid"
)

// DefaultWeight is the weight assigned to edges created without one.
// ShortestPath treats a graph whose edges all carry DefaultWeight as
// unweighted and uses plain BFS.
const DefaultWeight = 1.0

// Edge represents a directed connection between two nodes, referencing its
// endpoints by id rather than by pointer so the arena stays cycle-free.
type Edge struct {
	ID         string
	SourceID   string
	TargetID   string
	Type       string
	Weight     float64
	Properties map[string]any
	CreatedAt  time.Time
}

// NewEdge creates an edge with a fresh identifier.
func NewEdge(sourceID, targetID, edgeType string, weight float64) *Edge {
	return &Edge{
		ID:        uuid.New().String(),
		SourceID:  sourceID,
		TargetID:  targetID,
		Type:      edgeType,
		Weight:    weight,
		CreatedAt: time.Now(),
	}
}

// clone produces a deep copy for snapshot/rollback support.
func (e *Edge) clone() *Edge {
	c := &Edge{
		ID:        e.ID,
		SourceID:  e.SourceID,
		TargetID:  e.TargetID,
		Type:      e.Type,
		Weight:    e.Weight,
		CreatedAt: e.CreatedAt,
	}
	if e.Properties != nil {
		c.Properties = make(map[string]any, len(e.Properties))
		for k, v := range e.Properties {
			c.Properties[k] = v
		}
	}
	return c
}
