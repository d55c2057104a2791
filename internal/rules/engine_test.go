package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lattice/internal/graph"
	pkgerrors "lattice/pkg/errors"
)

func addNode(t *testing.T, g *graph.Graph, id string, value any) {
	t.Helper()
	node, err := graph.NewNode(id, value)
	require.NoError(t, err)
	_, err = g.AddNode(node)
	require.NoError(t, err)
}

func addEdge(t *testing.T, g *graph.Graph, from, to string) *graph.Edge {
	t.Helper()
	edge := graph.NewEdge(from, to, "link", graph.DefaultWeight)
	_, err := g.AddEdge(edge)
	require.NoError(t, err)
	return edge
}

func instance(kind Kind, limit int) *Instance {
	return NewInstance(Spec{Kind: kind, Limit: limit}, SeverityError, PolicyEnforce)
}

func TestValidate(t *testing.T) {
	engine := NewEngine(nil)

	tests := []struct {
		name  string
		build func(t *testing.T) *graph.Graph
		inst  *Instance
		valid bool
	}{
		{
			name: "acyclic graph satisfies no-cycles",
			build: func(t *testing.T) *graph.Graph {
				g := graph.New(graph.Directed)
				addNode(t, g, "a", 1)
				addNode(t, g, "b", 2)
				addEdge(t, g, "a", "b")
				return g
			},
			inst:  instance(NoCycles, 0),
			valid: true,
		},
		{
			name: "cycle violates no-cycles",
			build: func(t *testing.T) *graph.Graph {
				g := graph.New(graph.Directed)
				addNode(t, g, "a", 1)
				addNode(t, g, "b", 2)
				addEdge(t, g, "a", "b")
				addEdge(t, g, "b", "a")
				return g
			},
			inst:  instance(NoCycles, 0),
			valid: false,
		},
		{
			name: "two roots violate single-root",
			build: func(t *testing.T) *graph.Graph {
				g := graph.New(graph.Directed)
				addNode(t, g, "a", 1)
				addNode(t, g, "b", 2)
				return g
			},
			inst:  instance(SingleRoot, 0),
			valid: false,
		},
		{
			name: "empty graph satisfies single-root",
			build: func(t *testing.T) *graph.Graph {
				return graph.New(graph.Directed)
			},
			inst:  instance(SingleRoot, 0),
			valid: true,
		},
		{
			name: "island violates connected",
			build: func(t *testing.T) *graph.Graph {
				g := graph.New(graph.Directed)
				addNode(t, g, "a", 1)
				addNode(t, g, "b", 2)
				addEdge(t, g, "a", "b")
				addNode(t, g, "island", 3)
				return g
			},
			inst:  instance(Connected, 0),
			valid: false,
		},
		{
			name: "third child violates max-children 2",
			build: func(t *testing.T) *graph.Graph {
				g := graph.New(graph.Directed)
				for _, id := range []string{"p", "c1", "c2", "c3"} {
					addNode(t, g, id, id)
				}
				addEdge(t, g, "p", "c1")
				addEdge(t, g, "p", "c2")
				addEdge(t, g, "p", "c3")
				return g
			},
			inst:  instance(MaxChildren, 2),
			valid: false,
		},
		{
			name: "in-order values out of order violate sorted",
			build: func(t *testing.T) *graph.Graph {
				g := graph.New(graph.Directed)
				addNode(t, g, "root", 5)
				addNode(t, g, "left", 9)
				addEdge(t, g, "root", "left")
				return g
			},
			inst:  instance(Sorted, 0),
			valid: false,
		},
		{
			name: "bst shape satisfies sorted",
			build: func(t *testing.T) *graph.Graph {
				g := graph.New(graph.Directed)
				addNode(t, g, "root", 5)
				addNode(t, g, "left", 3)
				addNode(t, g, "right", 8)
				addEdge(t, g, "root", "left")
				addEdge(t, g, "root", "right")
				return g
			},
			inst:  instance(Sorted, 0),
			valid: true,
		},
		{
			name: "node count over max-nodes",
			build: func(t *testing.T) *graph.Graph {
				g := graph.New(graph.Directed)
				addNode(t, g, "a", 1)
				addNode(t, g, "b", 2)
				return g
			},
			inst:  instance(MaxNodes, 1),
			valid: false,
		},
		{
			name: "edge count over max-edges",
			build: func(t *testing.T) *graph.Graph {
				g := graph.New(graph.Directed)
				addNode(t, g, "a", 1)
				addNode(t, g, "b", 2)
				addEdge(t, g, "a", "b")
				addEdge(t, g, "a", "b")
				return g
			},
			inst:  instance(MaxEdges, 1),
			valid: false,
		},
		{
			name: "degree over max-degree",
			build: func(t *testing.T) *graph.Graph {
				g := graph.New(graph.Directed)
				for _, id := range []string{"hub", "x", "y"} {
					addNode(t, g, id, id)
				}
				addEdge(t, g, "hub", "x")
				addEdge(t, g, "y", "hub")
				return g
			},
			inst:  instance(MaxDegree, 1),
			valid: false,
		},
		{
			name: "one-way edge violates bidirectional",
			build: func(t *testing.T) *graph.Graph {
				g := graph.New(graph.Directed)
				addNode(t, g, "a", 1)
				addNode(t, g, "b", 2)
				addEdge(t, g, "a", "b")
				return g
			},
			inst:  instance(Bidirectional, 0),
			valid: false,
		},
		{
			name: "undirected graph always satisfies bidirectional",
			build: func(t *testing.T) *graph.Graph {
				g := graph.New(graph.Undirected)
				addNode(t, g, "a", 1)
				addNode(t, g, "b", 2)
				addEdge(t, g, "a", "b")
				return g
			},
			inst:  instance(Bidirectional, 0),
			valid: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := engine.Validate(tt.build(t), tt.inst)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, pkgerrors.IsStructuralViolation(err))
				assert.Equal(t, tt.inst.Name(), pkgerrors.RuleName(err))
			}
		})
	}
}

func TestValidateAllOrder(t *testing.T) {
	engine := NewEngine(nil)
	g := graph.New(graph.Directed)
	addNode(t, g, "a", 1)
	addNode(t, g, "b", 2)

	// Both rules are violated; the first attached wins the report.
	instances := []*Instance{instance(SingleRoot, 0), instance(MaxNodes, 1)}
	err := engine.ValidateAll(g, instances)
	require.Error(t, err)
	assert.Equal(t, "single-root", pkgerrors.RuleName(err))
}

func TestAttachPolicies(t *testing.T) {
	engine := NewEngine(nil)

	cyclic := func(t *testing.T) *graph.Graph {
		g := graph.New(graph.Directed)
		addNode(t, g, "a", 1)
		addNode(t, g, "b", 2)
		addEdge(t, g, "a", "b")
		addEdge(t, g, "b", "a")
		return g
	}

	t.Run("enforce refuses over conflicts", func(t *testing.T) {
		g := cyclic(t)
		inst := NewInstance(Spec{Kind: NoCycles}, SeverityError, PolicyEnforce)

		report, _, err := engine.Attach(g, inst, RepairAny)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsAttachConflict(err))
		assert.False(t, report.Attached)
		assert.NotEmpty(t, report.Conflicts)
		// Nothing was mutated.
		assert.Equal(t, 2, g.EdgeCount())
	})

	t.Run("enforce attaches over clean data", func(t *testing.T) {
		g := graph.New(graph.Directed)
		addNode(t, g, "a", 1)
		inst := NewInstance(Spec{Kind: NoCycles}, SeverityError, PolicyEnforce)

		report, _, err := engine.Attach(g, inst, RepairAny)
		require.NoError(t, err)
		assert.True(t, report.Attached)
	})

	t.Run("warn attaches and reports", func(t *testing.T) {
		g := cyclic(t)
		inst := NewInstance(Spec{Kind: NoCycles}, SeverityError, PolicyWarn)

		report, _, err := engine.Attach(g, inst, RepairAny)
		require.NoError(t, err)
		assert.True(t, report.Attached)
		assert.NotEmpty(t, report.Conflicts)
		assert.Equal(t, 2, g.EdgeCount())
	})

	t.Run("ignore attaches blind", func(t *testing.T) {
		g := cyclic(t)
		inst := NewInstance(Spec{Kind: NoCycles}, SeverityError, PolicyIgnore)

		report, _, err := engine.Attach(g, inst, RepairAny)
		require.NoError(t, err)
		assert.True(t, report.Attached)
		assert.Empty(t, report.Conflicts)
	})
}

func TestAttachCleanRepair(t *testing.T) {
	engine := NewEngine(nil)

	t.Run("any mode removes first conflicting edge", func(t *testing.T) {
		g := graph.New(graph.Directed)
		addNode(t, g, "a", 1)
		addNode(t, g, "b", 2)
		first := addEdge(t, g, "a", "b")
		addEdge(t, g, "b", "a")
		inst := NewInstance(Spec{Kind: NoCycles}, SeverityError, PolicyClean)

		report, _, err := engine.Attach(g, inst, RepairAny)
		require.NoError(t, err)
		assert.True(t, report.Attached)
		assert.Equal(t, []string{first.ID}, report.Repaired)
		assert.Equal(t, 1, g.EdgeCount())
		assert.Nil(t, g.FindCycleEdge())
	})

	t.Run("strict mode refuses an ambiguous cycle repair", func(t *testing.T) {
		g := graph.New(graph.Directed)
		addNode(t, g, "a", 1)
		addNode(t, g, "b", 2)
		addEdge(t, g, "a", "b")
		addEdge(t, g, "b", "a")
		inst := NewInstance(Spec{Kind: NoCycles}, SeverityError, PolicyClean)

		report, _, err := engine.Attach(g, inst, RepairStrict)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsAttachConflict(err))
		assert.False(t, report.Attached)
		assert.Equal(t, 2, g.EdgeCount())
	})

	t.Run("strict mode removes a self-loop", func(t *testing.T) {
		g := graph.New(graph.Directed)
		addNode(t, g, "a", 1)
		loop := graph.NewEdge("a", "a", "loop", graph.DefaultWeight)
		_, err := g.AddEdge(loop)
		require.NoError(t, err)
		inst := NewInstance(Spec{Kind: NoCycles}, SeverityError, PolicyClean)

		report, _, err := engine.Attach(g, inst, RepairStrict)
		require.NoError(t, err)
		assert.True(t, report.Attached)
		assert.Equal(t, []string{loop.ID}, report.Repaired)
		assert.Equal(t, 0, g.EdgeCount())
	})

	t.Run("bidirectional repair adds reverse edges", func(t *testing.T) {
		g := graph.New(graph.Directed)
		addNode(t, g, "a", 1)
		addNode(t, g, "b", 2)
		addEdge(t, g, "a", "b")
		inst := NewInstance(Spec{Kind: Bidirectional}, SeverityError, PolicyClean)

		report, _, err := engine.Attach(g, inst, RepairStrict)
		require.NoError(t, err)
		assert.True(t, report.Attached)
		assert.Len(t, report.Repaired, 1)
		assert.True(t, g.HasEdgeBetween("b", "a"))
	})

	t.Run("max-edges repair drops newest edges under any mode", func(t *testing.T) {
		g := graph.New(graph.Directed)
		addNode(t, g, "a", 1)
		addNode(t, g, "b", 2)
		oldest := addEdge(t, g, "a", "b")
		addEdge(t, g, "a", "b")
		newest := addEdge(t, g, "a", "b")
		inst := NewInstance(Spec{Kind: MaxEdges, Limit: 1}, SeverityError, PolicyClean)

		report, _, err := engine.Attach(g, inst, RepairAny)
		require.NoError(t, err)
		assert.True(t, report.Attached)
		assert.Equal(t, 1, g.EdgeCount())
		assert.True(t, g.HasEdge(oldest.ID))
		assert.False(t, g.HasEdge(newest.ID))
	})

	t.Run("unrepairable rule fails and leaves the graph alone", func(t *testing.T) {
		g := graph.New(graph.Directed)
		addNode(t, g, "a", 1)
		addNode(t, g, "b", 2)
		inst := NewInstance(Spec{Kind: SingleRoot}, SeverityError, PolicyClean)

		report, _, err := engine.Attach(g, inst, RepairAny)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsAttachConflict(err))
		assert.False(t, report.Attached)
		assert.Equal(t, 2, g.NodeCount())
	})

	t.Run("repair undo restores the pre-repair state", func(t *testing.T) {
		g := graph.New(graph.Directed)
		addNode(t, g, "a", 1)
		addNode(t, g, "b", 2)
		addEdge(t, g, "a", "b")
		addEdge(t, g, "b", "a")
		inst := NewInstance(Spec{Kind: NoCycles}, SeverityError, PolicyClean)

		report, undo, err := engine.Attach(g, inst, RepairAny)
		require.NoError(t, err)
		require.True(t, report.Attached)
		require.Equal(t, 1, g.EdgeCount())

		require.NotNil(t, undo)
		undo()
		assert.Equal(t, 2, g.EdgeCount())
		assert.NotNil(t, g.FindCycleEdge())
	})

	t.Run("clean attach over satisfied rule is a no-op", func(t *testing.T) {
		g := graph.New(graph.Directed)
		addNode(t, g, "a", 1)
		inst := NewInstance(Spec{Kind: NoCycles}, SeverityError, PolicyClean)

		report, _, err := engine.Attach(g, inst, RepairStrict)
		require.NoError(t, err)
		assert.True(t, report.Attached)
		assert.Empty(t, report.Repaired)
	})
}

func TestRuleset(t *testing.T) {
	tests := []struct {
		name string
		want []string
	}{
		{"tree", []string{"no-cycles", "single-root", "connected"}},
		{"dag", []string{"no-cycles"}},
		{"bst", []string{"no-cycles", "single-root", "connected", "max-children", "sorted"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			specs := Ruleset(tt.name)
			require.Len(t, specs, len(tt.want))
			for i, spec := range specs {
				assert.Equal(t, tt.want[i], spec.Name())
			}
		})
	}

	t.Run("bst bounds children at two", func(t *testing.T) {
		for _, spec := range Ruleset("bst") {
			if spec.Kind == MaxChildren {
				assert.Equal(t, 2, spec.Limit)
			}
		}
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Nil(t, Ruleset("heap"))
	})
}

func TestSpecName(t *testing.T) {
	names := map[Kind]string{
		NoCycles:      "no-cycles",
		SingleRoot:    "single-root",
		Connected:     "connected",
		MaxChildren:   "max-children",
		Sorted:        "sorted",
		MaxNodes:      "max-nodes",
		MaxEdges:      "max-edges",
		MaxDegree:     "max-degree",
		Bidirectional: "bidirectional",
	}
	for kind, want := range names {
		assert.Equal(t, want, Spec{Kind: kind}.Name())
	}
}
