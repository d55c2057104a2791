package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lattice/internal/behaviors"
	"lattice/internal/config"
	"lattice/internal/graph"
	"lattice/internal/rules"
	pkgerrors "lattice/pkg/errors"
)

// funcInvoker treats every callable as func(...any) (any, error).
type funcInvoker struct{}

func (funcInvoker) Invoke(fn any, args ...any) (any, error) {
	call, ok := fn.(func(...any) (any, error))
	if !ok {
		return nil, pkgerrors.NewValidation("not callable")
	}
	return call(args...)
}

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	return New(graph.Directed, append([]Option{WithInvoker(funcInvoker{})}, opts...)...)
}

func addTriangleBase(t *testing.T, e *Engine) {
	t.Helper()
	for _, id := range []string{"A", "B", "C"} {
		require.NoError(t, e.AddNode(id, id))
	}
	_, err := e.AddEdge("A", "B", "link", 0, nil)
	require.NoError(t, err)
	_, err = e.AddEdge("B", "C", "link", 0, nil)
	require.NoError(t, err)
}

func TestMutations(t *testing.T) {
	e := newEngine(t)

	require.NoError(t, e.AddNode("a", 1))
	assert.True(t, e.HasNode("a"))

	t.Run("duplicate node id", func(t *testing.T) {
		err := e.AddNode("a", 2)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsValidation(err))
	})

	t.Run("edge default weight", func(t *testing.T) {
		require.NoError(t, e.AddNode("b", 2))
		edgeID, err := e.AddEdge("a", "b", "link", 0, nil)
		require.NoError(t, err)

		edge, err := e.Graph().Edge(edgeID)
		require.NoError(t, err)
		assert.Equal(t, graph.DefaultWeight, edge.Weight)
	})

	t.Run("negative edge weight", func(t *testing.T) {
		_, err := e.AddEdge("a", "b", "link", -1, nil)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsValidation(err))
	})

	t.Run("edge to missing node", func(t *testing.T) {
		_, err := e.AddEdge("a", "ghost", "link", 0, nil)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsReferential(err))
	})

	t.Run("remove node cascades", func(t *testing.T) {
		require.NoError(t, e.RemoveNode("a"))
		assert.False(t, e.HasNode("a"))
		assert.Equal(t, 0, e.EdgeCount())
	})

	t.Run("set value", func(t *testing.T) {
		require.NoError(t, e.SetValue("b", 20))
		v, err := e.NodeValue("b")
		require.NoError(t, err)
		assert.Equal(t, 20, v)
	})
}

func TestNoCyclesRejectsClosingEdge(t *testing.T) {
	e := newEngine(t)
	addTriangleBase(t, e)

	_, err := e.AddRule("no-cycles", 0, rules.SeverityError, rules.PolicyEnforce)
	require.NoError(t, err)

	_, err = e.AddEdge("C", "A", "link", 0, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsStructuralViolation(err))
	assert.Equal(t, "no-cycles", pkgerrors.RuleName(err))

	// The rejected edge left no trace.
	assert.Equal(t, 2, e.EdgeCount())
	assert.False(t, e.Graph().HasEdgeBetween("C", "A"))
}

func TestEnforceAttachOverCycle(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.AddNode("A", 1))
	require.NoError(t, e.AddNode("B", 2))
	_, err := e.AddEdge("A", "B", "link", 0, nil)
	require.NoError(t, err)
	_, err = e.AddEdge("B", "A", "link", 0, nil)
	require.NoError(t, err)

	report, err := e.AddRule("no-cycles", 0, rules.SeverityError, rules.PolicyEnforce)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsAttachConflict(err))
	assert.False(t, report.Attached)

	// The rule is not attached and the data is untouched.
	assert.False(t, e.HasRule("no-cycles"))
	assert.Equal(t, 2, e.EdgeCount())
}

func TestCleanAttachRepairsCycle(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.AddNode("A", 1))
	require.NoError(t, e.AddNode("B", 2))
	_, err := e.AddEdge("A", "B", "link", 0, nil)
	require.NoError(t, err)
	_, err = e.AddEdge("B", "A", "link", 0, nil)
	require.NoError(t, err)

	report, err := e.AddRule("no-cycles", 0, rules.SeverityError, rules.PolicyClean)
	require.NoError(t, err)
	assert.True(t, report.Attached)
	assert.Len(t, report.Repaired, 1)
	assert.True(t, e.HasRule("no-cycles"))
	assert.Equal(t, 1, e.EdgeCount())
}

func TestStrictRepairModeRefusesToGuess(t *testing.T) {
	cfg := config.Default()
	cfg.RepairMode = config.RepairModeStrict
	e := newEngine(t, WithConfig(cfg))

	require.NoError(t, e.AddNode("A", 1))
	require.NoError(t, e.AddNode("B", 2))
	_, err := e.AddEdge("A", "B", "link", 0, nil)
	require.NoError(t, err)
	_, err = e.AddEdge("B", "A", "link", 0, nil)
	require.NoError(t, err)

	_, err = e.AddRule("no-cycles", 0, rules.SeverityError, rules.PolicyClean)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsAttachConflict(err))
	assert.Equal(t, 2, e.EdgeCount())
}

func TestSingleRootGovernsInsertPath(t *testing.T) {
	e := newEngine(t)
	_, err := e.AddRule("single-root", 0, rules.SeverityError, rules.PolicyEnforce)
	require.NoError(t, err)

	require.NoError(t, e.AddNode("root", "r"))

	t.Run("insert under a parent passes", func(t *testing.T) {
		id, err := e.Insert(5, "root")
		require.NoError(t, err)
		assert.True(t, e.HasNode(id))
	})

	t.Run("bare node creates a second root and is rejected", func(t *testing.T) {
		err := e.AddNode("stray", 9)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsStructuralViolation(err))
		assert.Equal(t, "single-root", pkgerrors.RuleName(err))
		assert.False(t, e.HasNode("stray"))
	})

	t.Run("parentless insert is rejected whole", func(t *testing.T) {
		before := e.NodeCount()
		_, err := e.Insert(7, "")
		require.Error(t, err)
		assert.Equal(t, before, e.NodeCount())
	})

	t.Run("insert under a missing parent", func(t *testing.T) {
		_, err := e.Insert(7, "ghost")
		require.Error(t, err)
		assert.True(t, pkgerrors.IsReferential(err))
	})
}

func TestSeverityNeverChangesOutcome(t *testing.T) {
	e := newEngine(t)
	_, err := e.AddRule("max-nodes", 1, rules.SeveritySilent, rules.PolicyEnforce)
	require.NoError(t, err)

	require.NoError(t, e.AddNode("a", 1))
	err = e.AddNode("b", 2)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsStructuralViolation(err))
	assert.False(t, e.HasNode("b"))
}

func TestRulesetAttach(t *testing.T) {
	t.Run("tree attaches as a unit", func(t *testing.T) {
		e := newEngine(t)
		report, err := e.AddRuleset("tree", rules.SeverityError, rules.PolicyEnforce)
		require.NoError(t, err)
		assert.True(t, report.Attached)
		assert.Equal(t, []string{"no-cycles", "single-root", "connected"}, e.Rules())
	})

	t.Run("partial failure rolls back attached members", func(t *testing.T) {
		e := newEngine(t)
		// Two roots: no-cycles attaches, single-root cannot.
		require.NoError(t, e.AddNode("a", 1))
		require.NoError(t, e.AddNode("b", 2))

		_, err := e.AddRuleset("tree", rules.SeverityError, rules.PolicyEnforce)
		require.Error(t, err)
		assert.Empty(t, e.Rules())
	})

	t.Run("failed clean attach undoes earlier members' repairs", func(t *testing.T) {
		e := newEngine(t)
		// A two-node cycle plus an isolated node: no-cycles repairs by
		// dropping an edge, then single-root still fails on two roots. The
		// repair must not survive the failed bundle.
		require.NoError(t, e.AddNode("a", 1))
		require.NoError(t, e.AddNode("b", 2))
		require.NoError(t, e.AddNode("c", 3))
		_, err := e.AddEdge("a", "b", "link", 0, nil)
		require.NoError(t, err)
		_, err = e.AddEdge("b", "a", "link", 0, nil)
		require.NoError(t, err)

		_, err = e.AddRuleset("tree", rules.SeverityError, rules.PolicyClean)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsAttachConflict(err))
		assert.Empty(t, e.Rules())
		assert.Equal(t, 2, e.EdgeCount())
		assert.True(t, e.Graph().HasEdgeBetween("a", "b"))
		assert.True(t, e.Graph().HasEdgeBetween("b", "a"))
	})

	t.Run("already attached members are skipped", func(t *testing.T) {
		e := newEngine(t)
		_, err := e.AddRule("no-cycles", 0, rules.SeverityError, rules.PolicyEnforce)
		require.NoError(t, err)

		_, err = e.AddRuleset("dag", rules.SeverityError, rules.PolicyEnforce)
		require.NoError(t, err)
		assert.Equal(t, []string{"no-cycles"}, e.Rules())
	})

	t.Run("unknown ruleset", func(t *testing.T) {
		e := newEngine(t)
		_, err := e.AddRuleset("heap", rules.SeverityError, rules.PolicyEnforce)
		require.Error(t, err)
	})
}

func TestIndexKeepsLookupResultsStable(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.AddNode("int", 1))
	require.NoError(t, e.SetAttribute("int", "p", 1))
	require.NoError(t, e.AddNode("str", 2))
	require.NoError(t, e.SetAttribute("str", "p", "1"))

	before := e.FindNodes("p", 1)
	require.Equal(t, []string{"int"}, before)

	// Cross the auto-index threshold; the answer must not change with it.
	for i := 0; i < 9; i++ {
		e.FindNodes("p", 1)
	}
	require.Len(t, e.Stats().Indices, 1)

	assert.Equal(t, before, e.FindNodes("p", 1))
	assert.Equal(t, []string{"str"}, e.FindNodes("p", "1"))
}

func TestRemoveAttributeDropsVacatedIndex(t *testing.T) {
	cfg := config.Default()
	cfg.IndexThreshold = 1
	e := newEngine(t, WithConfig(cfg))
	require.NoError(t, e.AddNode("a", 1))
	require.NoError(t, e.SetAttribute("a", "tag", "x"))

	e.FindNodes("tag", "x")
	require.Len(t, e.Stats().Indices, 1)

	require.NoError(t, e.RemoveAttribute("a", "tag"))
	assert.Empty(t, e.Stats().Indices)
}

func TestRuleManagement(t *testing.T) {
	e := newEngine(t)
	_, err := e.AddRule("max-children", 2, rules.SeverityError, rules.PolicyEnforce)
	require.NoError(t, err)

	t.Run("duplicate attach is refused", func(t *testing.T) {
		_, err := e.AddRule("max-children", 3, rules.SeverityError, rules.PolicyEnforce)
		require.Error(t, err)
	})

	t.Run("limit rules demand a limit", func(t *testing.T) {
		_, err := e.AddRule("max-nodes", 0, rules.SeverityError, rules.PolicyEnforce)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsValidation(err))
	})

	t.Run("unknown rule name", func(t *testing.T) {
		_, err := e.AddRule("no-diamonds", 0, rules.SeverityError, rules.PolicyEnforce)
		require.Error(t, err)
	})

	t.Run("detach stops governing", func(t *testing.T) {
		assert.True(t, e.RemoveRule("max-children"))
		assert.False(t, e.HasRule("max-children"))
		assert.False(t, e.RemoveRule("max-children"))

		// Three children are now fine.
		for _, id := range []string{"p", "c1", "c2", "c3"} {
			require.NoError(t, e.AddNode(id, id))
		}
		for _, child := range []string{"c1", "c2", "c3"} {
			_, err := e.AddEdge("p", child, "child", 0, nil)
			require.NoError(t, err)
		}
	})
}

func TestBehaviorCleanTransformsExistingValues(t *testing.T) {
	e := newEngine(t)
	for _, v := range []int{-3, 5, -1} {
		_, err := e.Append(v)
		require.NoError(t, err)
	}

	spec, err := behaviors.NewStandard(behaviors.StdAbsolute)
	require.NoError(t, err)
	report, err := e.AddBehavior(spec, rules.PolicyClean)
	require.NoError(t, err)
	assert.True(t, report.Attached)
	assert.Len(t, report.Conflicts, 2)

	assert.Equal(t, []any{3, 5, 1}, e.Items())

	t.Run("future values are transformed too", func(t *testing.T) {
		_, err := e.Append(-7)
		require.NoError(t, err)
		assert.Equal(t, []any{3, 5, 1, 7}, e.Items())
	})
}

func TestBehaviorAttachPolicies(t *testing.T) {
	seed := func(t *testing.T) *Engine {
		e := newEngine(t)
		for _, v := range []int{-3, 5} {
			_, err := e.Append(v)
			require.NoError(t, err)
		}
		return e
	}
	absolute := func(t *testing.T) behaviors.Spec {
		spec, err := behaviors.NewStandard(behaviors.StdAbsolute)
		require.NoError(t, err)
		return spec
	}

	t.Run("enforce refuses over conflicting values", func(t *testing.T) {
		e := seed(t)
		report, err := e.AddBehavior(absolute(t), rules.PolicyEnforce)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsAttachConflict(err))
		assert.False(t, report.Attached)
		assert.False(t, e.HasBehavior(behaviors.StdAbsolute))
		assert.Equal(t, []any{-3, 5}, e.Items())
	})

	t.Run("enforce attaches over clean values", func(t *testing.T) {
		e := newEngine(t)
		_, err := e.Append(3)
		require.NoError(t, err)
		report, err := e.AddBehavior(absolute(t), rules.PolicyEnforce)
		require.NoError(t, err)
		assert.True(t, report.Attached)
	})

	t.Run("warn attaches and reports without altering data", func(t *testing.T) {
		e := seed(t)
		report, err := e.AddBehavior(absolute(t), rules.PolicyWarn)
		require.NoError(t, err)
		assert.True(t, report.Attached)
		assert.Len(t, report.Conflicts, 1)
		assert.Equal(t, []any{-3, 5}, e.Items())
	})

	t.Run("ignore leaves existing values alone", func(t *testing.T) {
		e := seed(t)
		report, err := e.AddBehavior(absolute(t), rules.PolicyIgnore)
		require.NoError(t, err)
		assert.True(t, report.Attached)
		assert.Equal(t, []any{-3, 5}, e.Items())

		_, err = e.Append(-9)
		require.NoError(t, err)
		assert.Equal(t, []any{-3, 5, 9}, e.Items())
	})

	t.Run("duplicate behavior is refused", func(t *testing.T) {
		e := newEngine(t)
		_, err := e.AddBehavior(absolute(t), rules.PolicyIgnore)
		require.NoError(t, err)
		_, err = e.AddBehavior(absolute(t), rules.PolicyIgnore)
		require.Error(t, err)
	})
}

func TestOrderingBehavior(t *testing.T) {
	t.Run("sorted insertion", func(t *testing.T) {
		e := newEngine(t)
		_, err := e.AddBehavior(behaviors.NewOrdering(nil), rules.PolicyEnforce)
		require.NoError(t, err)

		for _, v := range []int{3, 1, 2} {
			_, err := e.Append(v)
			require.NoError(t, err)
		}
		assert.Equal(t, []any{1, 2, 3}, e.Items())
	})

	t.Run("clean attach re-sorts existing values", func(t *testing.T) {
		e := newEngine(t)
		for _, v := range []int{3, 1, 2} {
			_, err := e.Append(v)
			require.NoError(t, err)
		}

		_, err := e.AddBehavior(behaviors.NewOrdering(nil), rules.PolicyClean)
		require.NoError(t, err)
		assert.Equal(t, []any{1, 2, 3}, e.Items())
	})

	t.Run("custom comparator reverses", func(t *testing.T) {
		e := newEngine(t)
		reverse := func(args ...any) (any, error) {
			return args[1].(int) - args[0].(int), nil
		}
		_, err := e.AddBehavior(behaviors.NewOrdering(func(args ...any) (any, error) { return reverse(args...) }), rules.PolicyEnforce)
		require.NoError(t, err)

		for _, v := range []int{1, 3, 2} {
			_, err := e.Append(v)
			require.NoError(t, err)
		}
		assert.Equal(t, []any{3, 2, 1}, e.Items())
	})

	t.Run("requires a sequential collection", func(t *testing.T) {
		e := newEngine(t)
		addTriangleBase(t, e)
		_, err := e.AddEdge("A", "C", "extra", 0, nil)
		require.NoError(t, err)

		_, err = e.AddBehavior(behaviors.NewOrdering(nil), rules.PolicyEnforce)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsValidation(err))
	})
}

func TestListOperations(t *testing.T) {
	e := newEngine(t)
	for _, v := range []string{"a", "c"} {
		_, err := e.Append(v)
		require.NoError(t, err)
	}

	t.Run("insert at shifts later elements", func(t *testing.T) {
		_, err := e.InsertAt(1, "b")
		require.NoError(t, err)
		assert.Equal(t, []any{"a", "b", "c"}, e.Items())
	})

	t.Run("insert at front", func(t *testing.T) {
		_, err := e.InsertAt(0, "front")
		require.NoError(t, err)
		assert.Equal(t, []any{"front", "a", "b", "c"}, e.Items())
	})

	t.Run("past-the-end appends", func(t *testing.T) {
		_, err := e.InsertAt(99, "tail")
		require.NoError(t, err)
		assert.Equal(t, []any{"front", "a", "b", "c", "tail"}, e.Items())
	})

	t.Run("negative index", func(t *testing.T) {
		_, err := e.InsertAt(-1, "x")
		require.Error(t, err)
		assert.True(t, pkgerrors.IsValidation(err))
	})
}

func TestHashOperations(t *testing.T) {
	e := newEngine(t)
	spec, err := behaviors.NewStandard(behaviors.StdUppercase)
	require.NoError(t, err)
	_, err = e.AddBehavior(spec, rules.PolicyEnforce)
	require.NoError(t, err)

	require.NoError(t, e.Set("name", "ada"))
	v, err := e.Get("name")
	require.NoError(t, err)
	assert.Equal(t, "ADA", v)

	t.Run("set replaces through behaviors", func(t *testing.T) {
		require.NoError(t, e.Set("name", "grace"))
		v, err := e.Get("name")
		require.NoError(t, err)
		assert.Equal(t, "GRACE", v)
	})

	t.Run("keys in insertion order", func(t *testing.T) {
		require.NoError(t, e.Set("lang", "go"))
		assert.Equal(t, []string{"name", "lang"}, e.Keys())
	})

	t.Run("delete", func(t *testing.T) {
		ok, err := e.Delete("lang")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = e.Delete("lang")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("get missing key", func(t *testing.T) {
		_, err := e.Get("ghost")
		require.Error(t, err)
		assert.True(t, pkgerrors.IsReferential(err))
	})

	t.Run("empty key", func(t *testing.T) {
		err := e.Set("", 1)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsValidation(err))
	})
}

func TestCustomBehaviorFailureRejectsMutation(t *testing.T) {
	e := newEngine(t)
	spec, err := behaviors.NewCustom("boom", func(...any) (any, error) {
		return nil, pkgerrors.NewValidation("cannot transform")
	})
	require.NoError(t, err)
	_, err = e.AddBehavior(spec, rules.PolicyIgnore)
	require.NoError(t, err)

	err = e.AddNode("a", 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsBehaviorFailure(err))
	assert.False(t, e.HasNode("a"))
}

func TestUnifiedAttachmentSurface(t *testing.T) {
	e := newEngine(t)
	_, err := e.AddRule("no-cycles", 0, rules.SeverityError, rules.PolicyEnforce)
	require.NoError(t, err)
	spec, err := behaviors.NewStandard(behaviors.StdTrim)
	require.NoError(t, err)
	_, err = e.AddBehavior(spec, rules.PolicyEnforce)
	require.NoError(t, err)

	assert.True(t, e.IsAttached("no-cycles"))
	assert.True(t, e.IsAttached(behaviors.StdTrim))
	assert.False(t, e.IsAttached("sorted"))
	assert.Equal(t, []string{"no-cycles", behaviors.StdTrim}, e.Attachments())

	assert.True(t, e.Detach("no-cycles"))
	assert.True(t, e.Detach(behaviors.StdTrim))
	assert.False(t, e.Detach("no-cycles"))
	assert.Empty(t, e.Attachments())
}

func TestAutoIndexEndToEnd(t *testing.T) {
	e := newEngine(t)
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("u%d", i)
		require.NoError(t, e.AddNode(id, i))
		require.NoError(t, e.SetAttribute(id, "email", fmt.Sprintf("user%d@example.com", i)))
	}

	for i := 0; i < 10; i++ {
		got := e.FindNodes("email", "user2@example.com")
		assert.Equal(t, []string{"u2"}, got)
	}

	stats := e.Stats()
	require.Len(t, stats.Indices, 1)
	assert.Equal(t, "email", stats.Indices[0].Dimension)
	assert.Equal(t, `10 lookups on property "email"`, stats.Indices[0].Rationale)

	t.Run("index tracks later mutations", func(t *testing.T) {
		require.NoError(t, e.SetAttribute("u2", "email", "renamed@example.com"))
		assert.Empty(t, e.FindNodes("email", "user2@example.com"))
		assert.Equal(t, []string{"u2"}, e.FindNodes("email", "renamed@example.com"))

		require.NoError(t, e.RemoveNode("u2"))
		assert.Empty(t, e.FindNodes("email", "renamed@example.com"))
	})
}

func TestShortestPathSelection(t *testing.T) {
	e := newEngine(t)
	addTriangleBase(t, e)

	t.Run("bfs on an ungoverned graph", func(t *testing.T) {
		path, err := e.ShortestPath("A", "C")
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "C"}, path)
	})

	t.Run("no-cycles licenses dag relaxation without changing results", func(t *testing.T) {
		_, err := e.AddRule("no-cycles", 0, rules.SeverityError, rules.PolicyEnforce)
		require.NoError(t, err)

		path, err := e.ShortestPath("A", "C")
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "C"}, path)

		stats := e.Stats()
		require.Len(t, stats.Substitutions, 1)
		assert.Equal(t, "no-cycles", stats.Substitutions[0].LicensedBy)
	})

	t.Run("disconnected endpoints fail fast", func(t *testing.T) {
		require.NoError(t, e.AddNode("island", 0))
		_, err := e.ShortestPath("A", "island")
		require.Error(t, err)
		assert.True(t, pkgerrors.IsReferential(err))
	})

	t.Run("distance counts hops unweighted", func(t *testing.T) {
		dist, err := e.Distance("A", "C")
		require.NoError(t, err)
		assert.Equal(t, 2.0, dist)
	})
}

func TestTraversalsAndTopo(t *testing.T) {
	e := newEngine(t)
	addTriangleBase(t, e)

	order, err := e.BFS("A")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, order)

	topo, err := e.TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, topo)

	assert.Equal(t, []string{"A"}, e.Roots())
	assert.True(t, e.Contains("B"))
	assert.False(t, e.Contains("Z"))
}

func TestAllPathsUsesConfiguredBound(t *testing.T) {
	cfg := config.Default()
	cfg.AllPathsMaxLength = 1
	e := newEngine(t, WithConfig(cfg))
	addTriangleBase(t, e)
	_, err := e.AddEdge("A", "C", "direct", 0, nil)
	require.NoError(t, err)

	paths, err := e.AllPaths("A", "C", 0)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A", "C"}}, paths)

	paths, err = e.AllPaths("A", "C", 5)
	require.NoError(t, err)
	assert.Len(t, paths, 2)
}

func TestExplain(t *testing.T) {
	e := newEngine(t)
	addTriangleBase(t, e)

	t.Run("find_node", func(t *testing.T) {
		plan, err := e.Explain("find_node", "email")
		require.NoError(t, err)
		assert.False(t, plan.UsesIndex)
		assert.Equal(t, "linear-scan", plan.Steps[0].Algorithm)
	})

	t.Run("find_node needs a property", func(t *testing.T) {
		_, err := e.Explain("find_node")
		require.Error(t, err)
	})

	t.Run("shortest_path reflects declared rules", func(t *testing.T) {
		_, err := e.AddRule("no-cycles", 0, rules.SeverityError, rules.PolicyEnforce)
		require.NoError(t, err)
		_, err = e.AddRule("connected", 0, rules.SeverityError, rules.PolicyEnforce)
		require.NoError(t, err)

		plan, err := e.Explain("shortest_path")
		require.NoError(t, err)
		assert.Equal(t, "connected", plan.Steps[0].LicensedBy)
		last := plan.Steps[len(plan.Steps)-1]
		assert.Equal(t, "no-cycles", last.LicensedBy)
	})

	t.Run("traversals", func(t *testing.T) {
		plan, err := e.Explain("bfs")
		require.NoError(t, err)
		assert.Equal(t, "bfs", plan.Operation)
	})

	t.Run("unknown operation", func(t *testing.T) {
		_, err := e.Explain("defragment")
		require.Error(t, err)
	})
}

func TestRetune(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.AddNode("a", 1))
	require.NoError(t, e.SetAttribute("a", "tag", "x"))

	cfg := config.Default()
	cfg.IndexThreshold = 1
	e.Retune(cfg)

	e.FindNodes("tag", "x")
	assert.True(t, e.Stats().HasIndex("property", "tag"))
}

func TestEngineSizeLimits(t *testing.T) {
	cfg := config.Default()
	cfg.MaxNodes = 1
	e := newEngine(t, WithConfig(cfg))

	require.NoError(t, e.AddNode("a", 1))
	err := e.AddNode("b", 2)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}
