package validate

import (
	"fmt"

	"github.com/silvamed/ontoforge/ontology"
)

// builtinRules is the core pipeline, in evaluation order: structural,
// semantic, consistency, completeness. Rule ids are stable; review
// tooling keys on them.
func builtinRules(v *Validator) []Rule {
	return []Rule{
		{ID: "STR001", Description: "every non-root entity has a valid, present parent", Check: checkParents},
		{ID: "STR002", Description: "relationship endpoints exist and are not removed", Check: checkEndpoints},
		{ID: "STR003", Description: "containment graph is acyclic", Check: checkContainmentCycles},
		{ID: "SEM001", Description: "labels are non-empty and meet the minimum length",
			Check: checkLabels(v.weights.MinLabelLength)},
		{ID: "SEM002", Description: "required kind-specific fields are present", Check: checkRequiredFields},
		{ID: "CON001", Description: "relationship types match their endpoint kinds", Check: checkKindCompatibility},
		{ID: "CON002", Description: "functional types have at most one outgoing edge per source", Check: checkFunctional},
		{ID: "CON003", Description: "symmetric relationships exist in both directions", Check: checkSymmetric},
		{ID: "CON004", Description: "relationships with a registered inverse suggest the inverse edge", Check: checkInverseSuggestions},
		{ID: "CON005", Description: "approve and reject reviews do not coexist unresolved", Check: checkConflictingReviews},
		{ID: "COM001", Description: "systems carry their expected subsystems", Check: checkChecklist(v.checklist)},
	}
}

// checkParents flags entities whose parent is missing, removed or of the
// wrong kind. A removed parent is an error: the child dangles in the
// containment chain even though the edge still resolves.
func checkParents(g *Graph) []Issue {
	var issues []Issue
	for _, e := range g.Entities {
		if e.Removed || e.Kind == ontology.KindSystem {
			continue
		}
		parent := g.Entity(e.ParentID)
		switch {
		case parent == nil:
			issues = append(issues, Issue{
				RuleID: "STR001", Severity: SeverityError, EntityID: e.ID,
				Message: fmt.Sprintf("%s %q references missing parent %s", e.Kind, e.Label, e.ParentID),
			})
		case parent.Removed:
			issues = append(issues, Issue{
				RuleID: "STR001", Severity: SeverityError, EntityID: e.ID,
				Message: fmt.Sprintf("%s %q references removed parent %q", e.Kind, e.Label, parent.Label),
			})
		case parent.Kind != e.Kind.ParentKind():
			issues = append(issues, Issue{
				RuleID: "STR001", Severity: SeverityError, EntityID: e.ID,
				Message: fmt.Sprintf("%s %q has %s parent, expected %s", e.Kind, e.Label, parent.Kind, e.Kind.ParentKind()),
			})
		}
	}
	return issues
}

func checkEndpoints(g *Graph) []Issue {
	var issues []Issue
	for _, r := range g.Relationships {
		if r.Removed {
			continue
		}
		for _, end := range []struct{ id, side string }{
			{r.SourceID, "source"}, {r.TargetID, "target"},
		} {
			e := g.Entity(end.id)
			switch {
			case e == nil:
				issues = append(issues, Issue{
					RuleID: "STR002", Severity: SeverityError, RelationshipID: r.ID,
					Message: fmt.Sprintf("%s edge %s %s is missing", r.Type, end.side, end.id),
				})
			case e.Removed:
				issues = append(issues, Issue{
					RuleID: "STR002", Severity: SeverityError, RelationshipID: r.ID,
					Message: fmt.Sprintf("%s edge %s %q is removed", r.Type, end.side, e.Label),
				})
			}
		}
	}
	return issues
}

// checkContainmentCycles re-verifies acyclicity over the snapshot. The
// container enforces this at insert time; the validator proves it still
// holds for restored or externally assembled snapshots.
func checkContainmentCycles(g *Graph) []Issue {
	const (
		unvisited = iota
		inStack
		done
	)
	state := make(map[string]int)

	var issues []Issue
	var visit func(id string) bool
	visit = func(id string) bool {
		state[id] = inStack
		for _, r := range g.Outgoing(id) {
			if !r.Type.IsContainment() {
				continue
			}
			switch state[r.TargetID] {
			case inStack:
				issues = append(issues, Issue{
					RuleID: "STR003", Severity: SeverityError, RelationshipID: r.ID,
					Message: fmt.Sprintf("containment cycle through %s -> %s", r.SourceID, r.TargetID),
				})
				return false
			case unvisited:
				if !visit(r.TargetID) {
					return false
				}
			}
		}
		state[id] = done
		return true
	}

	for _, e := range g.Entities {
		if state[e.ID] == unvisited {
			if !visit(e.ID) {
				break
			}
		}
	}
	return issues
}

func checkLabels(minLength int) func(g *Graph) []Issue {
	return func(g *Graph) []Issue {
		var issues []Issue
		for _, e := range g.Entities {
			if e.Removed {
				continue
			}
			switch {
			case e.Label == "":
				issues = append(issues, Issue{
					RuleID: "SEM001", Severity: SeverityError, EntityID: e.ID,
					Message: fmt.Sprintf("%s %s has an empty label", e.Kind, e.ID),
				})
			case len(e.Label) < minLength:
				issues = append(issues, Issue{
					RuleID: "SEM001", Severity: SeverityWarning, EntityID: e.ID,
					Message: fmt.Sprintf("%s label %q is shorter than %d characters", e.Kind, e.Label, minLength),
				})
			}
		}
		return issues
	}
}

// checkRequiredFields enforces kind-specific minimums: a spare part
// without a part number cannot be ordered, so that is an error; a
// component without one is only a gap.
func checkRequiredFields(g *Graph) []Issue {
	var issues []Issue
	for _, e := range g.Entities {
		if e.Removed {
			continue
		}
		switch e.Kind {
		case ontology.KindSparePart:
			if e.SparePart != nil && e.SparePart.PartNumber == "" {
				issues = append(issues, Issue{
					RuleID: "SEM002", Severity: SeverityError, EntityID: e.ID,
					Message: fmt.Sprintf("spare part %q has no part number", e.Label),
				})
			}
		case ontology.KindComponent:
			if e.Component != nil && e.Component.PartNumber == "" {
				issues = append(issues, Issue{
					RuleID: "SEM002", Severity: SeverityWarning, EntityID: e.ID,
					Message: fmt.Sprintf("component %q has no part number", e.Label),
				})
			}
		}
	}
	return issues
}

func checkKindCompatibility(g *Graph) []Issue {
	var issues []Issue
	for _, r := range g.Relationships {
		if r.Removed {
			continue
		}
		src, dst := g.Entity(r.SourceID), g.Entity(r.TargetID)
		if src == nil || dst == nil {
			continue // STR002 already flagged it
		}
		if !r.Type.AllowsKinds(src.Kind, dst.Kind) {
			issues = append(issues, Issue{
				RuleID: "CON001", Severity: SeverityError, RelationshipID: r.ID,
				Message: fmt.Sprintf("%s does not allow %s -> %s", r.Type, src.Kind, dst.Kind),
			})
		}
	}
	return issues
}

func checkFunctional(g *Graph) []Issue {
	type key struct {
		source string
		t      ontology.RelationType
	}
	counts := make(map[key]int)
	for _, r := range g.Relationships {
		if r.Removed || !r.Functional {
			continue
		}
		counts[key{r.SourceID, r.Type}]++
	}

	var issues []Issue
	for k, n := range counts {
		if n > 1 {
			issues = append(issues, Issue{
				RuleID: "CON002", Severity: SeverityError, EntityID: k.source,
				Message: fmt.Sprintf("%s has %d outgoing %s edges, functional types allow one", k.source, n, k.t),
			})
		}
	}
	return issues
}

func checkSymmetric(g *Graph) []Issue {
	var issues []Issue
	for _, r := range g.Relationships {
		if r.Removed || !r.Symmetric {
			continue
		}
		if !g.HasEdge(r.Type, r.TargetID, r.SourceID) {
			issues = append(issues, Issue{
				RuleID: "CON003", Severity: SeverityWarning, RelationshipID: r.ID,
				Message: fmt.Sprintf("symmetric %s edge exists %s -> %s but not the reverse", r.Type, r.SourceID, r.TargetID),
			})
		}
	}
	return issues
}

// checkInverseSuggestions surfaces the missing inverse of a typed edge as
// a suggestion. The container does not auto-create inverses by default, to
// avoid silently doubling expert-reviewable items; the suggestion lives
// here instead.
func checkInverseSuggestions(g *Graph) []Issue {
	var issues []Issue
	for _, r := range g.Relationships {
		if r.Removed || r.Symmetric || r.Type.IsContainment() {
			continue
		}
		inv := r.Type.Inverse()
		if inv == "" || inv.IsContainment() {
			continue
		}
		if !g.HasEdge(inv, r.TargetID, r.SourceID) {
			issues = append(issues, Issue{
				RuleID: "CON004", Severity: SeverityInfo, RelationshipID: r.ID,
				Message: fmt.Sprintf("%s %s -> %s has no %s inverse; consider adding it", r.Type, r.SourceID, r.TargetID, inv),
			})
		}
	}
	return issues
}

// checkConflictingReviews flags audit trails where an approve and a
// reject coexist with no later action settling the disagreement.
func checkConflictingReviews(g *Graph) []Issue {
	var issues []Issue
	for _, e := range g.Entities {
		if e.Removed {
			continue
		}
		lastApprove, lastReject, lastResolve := -1, -1, -1
		for i, rec := range e.Meta.Reviews {
			switch rec.Action {
			case ontology.ActionApprove:
				lastApprove = i
			case ontology.ActionReject:
				lastReject = i
			case ontology.ActionReopen, ontology.ActionRequestRevision:
				lastResolve = i
			}
		}
		// A reopen or revision request after the earlier verdict settles
		// the disagreement; without one, the trail is contradictory.
		if lastApprove >= 0 && lastReject >= 0 && lastResolve < min(lastApprove, lastReject) {
			issues = append(issues, Issue{
				RuleID: "CON005", Severity: SeverityWarning, EntityID: e.ID,
				Message: fmt.Sprintf("%q carries both approve and reject reviews without a resolving action", e.Label),
			})
		}
	}
	return issues
}

func checkChecklist(checklist Checklist) func(g *Graph) []Issue {
	return func(g *Graph) []Issue {
		var issues []Issue
		for _, e := range g.Entities {
			if e.Removed || e.Kind != ontology.KindSystem || e.System == nil {
				continue
			}
			expected := checklist[e.System.SystemType]
			if len(expected) == 0 {
				continue
			}

			present := make(map[ontology.SubsystemType]bool)
			for _, r := range g.Outgoing(e.ID) {
				if r.Type != ontology.RelHasSubsystem {
					continue
				}
				if sub := g.Entity(r.TargetID); sub != nil && !sub.Removed && sub.Subsystem != nil {
					present[sub.Subsystem.SubsystemType] = true
				}
			}
			for _, want := range expected {
				if !present[want] {
					issues = append(issues, Issue{
						RuleID: "COM001", Severity: SeverityWarning, EntityID: e.ID,
						Message: fmt.Sprintf("system %q is missing expected subsystem %s", e.Label, want),
					})
				}
			}
		}
		return issues
	}
}

// ruleRegulatoryFields is a stock domain rule: a system placed on the
// market needs its manufacturer and model number recorded.
func ruleRegulatoryFields() Rule {
	return Rule{
		ID:          "DOM001",
		Description: "systems record manufacturer and model number",
		Check: func(g *Graph) []Issue {
			var issues []Issue
			for _, e := range g.Entities {
				if e.Removed || e.Kind != ontology.KindSystem || e.System == nil {
					continue
				}
				if e.System.Manufacturer == "" {
					issues = append(issues, Issue{
						RuleID: "DOM001", Severity: SeverityWarning, EntityID: e.ID,
						Message: fmt.Sprintf("system %q has no manufacturer", e.Label),
					})
				}
				if e.System.ModelNumber == "" {
					issues = append(issues, Issue{
						RuleID: "DOM001", Severity: SeverityWarning, EntityID: e.ID,
						Message: fmt.Sprintf("system %q has no model number", e.Label),
					})
				}
			}
			return issues
		},
	}
}

// ruleApprovedLowConfidence flags expert-approved items whose recorded
// confidence sits below the floor, a sign the approval predates an
// extraction rerun.
func ruleApprovedLowConfidence(floor float64) Rule {
	return Rule{
		ID:          "DOM002",
		Description: "approved entities meet the confidence floor",
		Check: func(g *Graph) []Issue {
			var issues []Issue
			for _, e := range g.Entities {
				if e.Removed || e.Meta.Status != ontology.StatusExpertApproved {
					continue
				}
				if e.Meta.Confidence < floor {
					issues = append(issues, Issue{
						RuleID: "DOM002", Severity: SeverityWarning, EntityID: e.ID,
						Message: fmt.Sprintf("approved %s %q has confidence %.2f, below %.2f",
							e.Kind, e.Label, e.Meta.Confidence, floor),
					})
				}
			}
			return issues
		},
	}
}
