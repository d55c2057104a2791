package engine

import (
	"time"

	"go.uber.org/zap"

	"lattice/internal/behaviors"
	"lattice/internal/graph"
	"lattice/internal/rules"
	"lattice/internal/values"
	pkgerrors "lattice/pkg/errors"
)

// Governance surface. Rules and behaviors share one name-based management
// surface: a caller need not know whether a given name is a structural rule
// or a value behavior.

// ruleSpecFromName resolves a catalog name to its spec. The Max* kinds
// require a positive limit.
func ruleSpecFromName(name string, limit int) (rules.Spec, error) {
	switch name {
	case "no-cycles":
		return rules.Spec{Kind: rules.NoCycles}, nil
	case "single-root":
		return rules.Spec{Kind: rules.SingleRoot}, nil
	case "connected":
		return rules.Spec{Kind: rules.Connected}, nil
	case "sorted":
		return rules.Spec{Kind: rules.Sorted}, nil
	case "bidirectional":
		return rules.Spec{Kind: rules.Bidirectional}, nil
	case "max-children", "max-nodes", "max-edges", "max-degree":
		if limit <= 0 {
			return rules.Spec{}, pkgerrors.NewValidation(name + " requires a positive limit")
		}
		kind := map[string]rules.Kind{
			"max-children": rules.MaxChildren,
			"max-nodes":    rules.MaxNodes,
			"max-edges":    rules.MaxEdges,
			"max-degree":   rules.MaxDegree,
		}[name]
		return rules.Spec{Kind: kind, Limit: limit}, nil
	default:
		return rules.Spec{}, pkgerrors.NewValidation("unknown rule: " + name)
	}
}

// AddRule attaches the named rule. Attaching to a non-empty graph is itself
// a mutation reconciled under the retroactive policy; on success the rule
// governs every subsequent mutation.
func (e *Engine) AddRule(name string, limit int, severity rules.Severity, policy rules.RetroactivePolicy) (*rules.AttachReport, error) {
	defer e.observe("add_rule", time.Now())
	e.opt.RecordOperation("add_rule")

	report, _, err := e.attachRule(name, limit, severity, policy)
	return report, err
}

// attachRule does the shared attach work. The returned undo reverses any
// Clean-repair mutations; bundling callers run it when a later member of
// their unit fails, single attaches commit and discard it.
func (e *Engine) attachRule(name string, limit int, severity rules.Severity, policy rules.RetroactivePolicy) (*rules.AttachReport, graph.UndoFunc, error) {
	spec, err := ruleSpecFromName(name, limit)
	if err != nil {
		return nil, nil, err
	}
	if e.HasRule(name) {
		return nil, nil, pkgerrors.NewValidation("rule already attached: " + name)
	}

	inst := rules.NewInstance(spec, severity, policy)
	report, undo, err := e.ruleEngine.Attach(e.graph, inst, e.repairMode())
	if err != nil {
		e.metrics.RecordRejection(name, "rule")
		return report, nil, err
	}
	if len(report.Repaired) > 0 {
		e.metrics.RecordRepair()
	}
	if report.Attached {
		e.ruleInstances = append(e.ruleInstances, inst)
		e.logger.Debug("rule attached", zap.String("rule", name))
	}
	return report, undo, nil
}

// AddRuleset attaches a named rule bundle ("tree", "dag", "bst") as one
// unit: if any member fails to attach, the already attached members are
// detached again, their Clean repairs are undone, and the whole attach
// fails with the graph exactly as it was before the call.
func (e *Engine) AddRuleset(name string, severity rules.Severity, policy rules.RetroactivePolicy) (*rules.AttachReport, error) {
	defer e.observe("add_ruleset", time.Now())
	e.opt.RecordOperation("add_ruleset")

	specs := rules.Ruleset(name)
	if specs == nil {
		return nil, pkgerrors.NewValidation("unknown ruleset: " + name)
	}

	combined := &rules.AttachReport{Attached: true}
	var attached []string
	var undos []graph.UndoFunc
	rollback := func() {
		for i := len(attached) - 1; i >= 0; i-- {
			e.RemoveRule(attached[i])
		}
		for i := len(undos) - 1; i >= 0; i-- {
			undos[i]()
		}
	}

	for _, spec := range specs {
		if e.HasRule(spec.Name()) {
			continue
		}
		report, undo, err := e.attachRule(spec.Name(), spec.Limit, severity, policy)
		if err != nil {
			rollback()
			return report, pkgerrors.Wrap(err, "ruleset "+name+" attach failed")
		}
		attached = append(attached, spec.Name())
		if undo != nil {
			undos = append(undos, undo)
		}
		combined.Conflicts = append(combined.Conflicts, report.Conflicts...)
		combined.Repaired = append(combined.Repaired, report.Repaired...)
	}
	return combined, nil
}

// RemoveRule detaches the named rule, reporting whether it was attached.
func (e *Engine) RemoveRule(name string) bool {
	e.opt.RecordOperation("remove_rule")
	for i, inst := range e.ruleInstances {
		if inst.Name() == name {
			e.ruleInstances = append(e.ruleInstances[:i], e.ruleInstances[i+1:]...)
			e.logger.Debug("rule detached", zap.String("rule", name))
			return true
		}
	}
	return false
}

// HasRule reports whether the named rule is attached.
func (e *Engine) HasRule(name string) bool {
	for _, inst := range e.ruleInstances {
		if inst.Name() == name {
			return true
		}
	}
	return false
}

// Rules returns attached rule names in attachment order.
func (e *Engine) Rules() []string {
	names := make([]string, 0, len(e.ruleInstances))
	for _, inst := range e.ruleInstances {
		names = append(names, inst.Name())
	}
	return names
}

// ClearRules detaches every rule.
func (e *Engine) ClearRules() {
	e.ruleInstances = nil
}

// ruleLimit reports the limit of the named rule, for the optimizer's
// bounded-branching estimates.
func (e *Engine) ruleLimit(name string) (int, bool) {
	for _, inst := range e.ruleInstances {
		if inst.Name() == name {
			return inst.Spec.Limit, true
		}
	}
	return 0, false
}

// AddBehavior attaches a behavior. Attaching to non-empty data is
// reconciled under the retroactive policy: Clean transforms existing
// content immediately and permanently, Warn reports what would change,
// Enforce refuses if anything would, Ignore leaves existing content alone.
func (e *Engine) AddBehavior(spec behaviors.Spec, policy rules.RetroactivePolicy) (*rules.AttachReport, error) {
	defer e.observe("add_behavior", time.Now())
	e.opt.RecordOperation("add_behavior")

	if e.HasBehavior(spec.Name) {
		return nil, pkgerrors.NewValidation("behavior already attached: " + spec.Name)
	}
	if spec.Kind == behaviors.Ordering && e.graph.EdgeCount() > 0 && !e.isList() {
		return nil, pkgerrors.NewValidation("ordering behavior requires a sequential collection")
	}

	inst := behaviors.NewInstance(spec, policy)

	report := &rules.AttachReport{}
	switch policy {
	case rules.PolicyIgnore:
		report.Attached = true

	case rules.PolicyWarn, rules.PolicyEnforce, rules.PolicyClean:
		changes, err := e.behaviorEng.Preview(e.invoker, inst, e.collectionValues())
		if err != nil {
			e.reject(err)
			return nil, err
		}
		for _, c := range changes {
			report.Conflicts = append(report.Conflicts, rules.Conflict{
				Rule: spec.Name,
				Description: "existing value " + values.Display(c.Before) +
					" would become " + values.Display(c.After),
			})
		}

		switch policy {
		case rules.PolicyEnforce:
			if len(changes) > 0 {
				err := pkgerrors.NewAttachConflict(spec.Name, "existing values would be transformed")
				e.metrics.RecordRejection(spec.Name, "behavior")
				return report, err
			}
			report.Attached = true
		case rules.PolicyWarn:
			for _, c := range report.Conflicts {
				e.logger.Warn("behavior attached over conflicting data",
					zap.String("behavior", c.Rule),
					zap.String("conflict", c.Description),
				)
			}
			report.Attached = true
		case rules.PolicyClean:
			if err := e.applyRetroactively(inst, changes); err != nil {
				return report, err
			}
			report.Attached = true
			if len(changes) > 0 {
				e.metrics.RecordRepair()
			}
		}

	default:
		return nil, pkgerrors.NewValidation("unknown retroactive policy")
	}

	if report.Attached {
		e.behaviorInstances = append(e.behaviorInstances, inst)
		e.logger.Debug("behavior attached", zap.String("behavior", spec.Name))
	}
	return report, nil
}

// applyRetroactively commits clean-policy transformation of existing
// content: per-value behaviors rewrite payloads in place, ordering
// behaviors re-sort the sequence. Rules still hold afterwards or the whole
// attach rolls back.
func (e *Engine) applyRetroactively(inst *behaviors.Instance, changes []behaviors.PreviewChange) error {
	if inst.Spec.Kind == behaviors.Ordering {
		if len(changes) == 0 {
			return nil
		}
		return e.resortList(inst)
	}

	ids := e.collectionIDs()
	type revert struct {
		id  string
		old any
	}
	var reverts []revert
	for _, c := range changes {
		node, err := e.graph.Node(ids[c.Index])
		if err != nil {
			continue
		}
		reverts = append(reverts, revert{id: node.ID(), old: node.Value()})
		node.SetValue(c.After)
	}

	if err := e.ruleEngine.ValidateAll(e.graph, e.ruleInstances); err != nil {
		for i := len(reverts) - 1; i >= 0; i-- {
			if node, nerr := e.graph.Node(reverts[i].id); nerr == nil {
				node.SetValue(reverts[i].old)
			}
		}
		e.reject(err)
		return pkgerrors.NewAttachConflict(inst.Name(), "retroactive transform violates an attached rule: "+err.Error())
	}
	return nil
}

// RemoveBehavior detaches the named behavior, reporting whether it was
// attached.
func (e *Engine) RemoveBehavior(name string) bool {
	e.opt.RecordOperation("remove_behavior")
	for i, inst := range e.behaviorInstances {
		if inst.Name() == name {
			e.behaviorInstances = append(e.behaviorInstances[:i], e.behaviorInstances[i+1:]...)
			e.logger.Debug("behavior detached", zap.String("behavior", name))
			return true
		}
	}
	return false
}

// HasBehavior reports whether the named behavior is attached.
func (e *Engine) HasBehavior(name string) bool {
	for _, inst := range e.behaviorInstances {
		if inst.Name() == name {
			return true
		}
	}
	return false
}

// Behaviors returns attached behavior names in attachment order.
func (e *Engine) Behaviors() []string {
	names := make([]string, 0, len(e.behaviorInstances))
	for _, inst := range e.behaviorInstances {
		names = append(names, inst.Name())
	}
	return names
}

// ClearBehaviors detaches every behavior.
func (e *Engine) ClearBehaviors() {
	e.behaviorInstances = nil
}

// IsAttached reports whether name is attached as either a rule or a
// behavior.
func (e *Engine) IsAttached(name string) bool {
	return e.HasRule(name) || e.HasBehavior(name)
}

// Detach removes name from whichever catalog holds it, rules first.
func (e *Engine) Detach(name string) bool {
	if e.RemoveRule(name) {
		return true
	}
	return e.RemoveBehavior(name)
}

// Attachments returns every attached rule and behavior name, rules first,
// each in attachment order.
func (e *Engine) Attachments() []string {
	return append(e.Rules(), e.Behaviors()...)
}
