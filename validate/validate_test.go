package validate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silvamed/ontoforge/ontology"
)

func newValidator() *Validator {
	return New(DefaultWeights(), DefaultChecklist())
}

// completeLinac builds a system that passes every built-in rule.
func completeLinac(t *testing.T) (*ontology.Container, string) {
	t.Helper()
	c := ontology.New(ontology.Options{})

	sys := ontology.NewSystem("LINAC TrueBeam", ontology.SystemAttrs{
		SystemType:   ontology.SystemLinac,
		Manufacturer: "Varian",
		ModelNumber:  "TB-2024",
	})
	sys.Meta.Confidence = 0.95
	sysID, err := c.AddEntity(sys)
	require.NoError(t, err)

	for label, st := range map[string]ontology.SubsystemType{
		"Beam Delivery":        ontology.SubsystemBeamDelivery,
		"Patient Positioning":  ontology.SubsystemPatientPositioning,
		"Treatment Control":    ontology.SubsystemTreatmentControl,
		"Safety Interlock":     ontology.SubsystemSafetyInterlock,
		"Cooling Distribution": ontology.SubsystemCooling,
	} {
		sub := ontology.NewSubsystem(label, sysID, ontology.SubsystemAttrs{SubsystemType: st})
		sub.Meta.Confidence = 0.9
		_, err := c.AddEntity(sub)
		require.NoError(t, err)
	}
	return c, sysID
}

func issuesByRule(report *Report, ruleID string) []Issue {
	var out []Issue
	for _, issue := range report.Issues {
		if issue.RuleID == ruleID {
			out = append(out, issue)
		}
	}
	return out
}

func TestCleanGraphScoresFull(t *testing.T) {
	c, _ := completeLinac(t)

	report, err := newValidator().Run(context.Background(), c)
	require.NoError(t, err)
	assert.Empty(t, report.Issues)
	assert.True(t, report.Valid())
	assert.Equal(t, 100.0, report.Score)
}

func TestRemovedParentIsStructuralError(t *testing.T) {
	c, _ := completeLinac(t)

	subs := c.EntitiesOfKind(ontology.KindSubsystem)
	var beamID string
	for _, s := range subs {
		if s.Label == "Beam Delivery" {
			beamID = s.ID
		}
	}
	require.NotEmpty(t, beamID)

	comp := ontology.NewComponent("Waveguide", beamID, ontology.ComponentAttrs{PartNumber: "WG-7"})
	comp.Meta.Confidence = 0.9
	_, err := c.AddEntity(comp)
	require.NoError(t, err)

	require.NoError(t, c.RemoveEntity(beamID, "expert-1", "duplicate"))

	report, err := newValidator().Run(context.Background(), c)
	require.NoError(t, err)
	assert.False(t, report.Valid())

	str001 := issuesByRule(report, "STR001")
	require.Len(t, str001, 1)
	assert.Equal(t, SeverityError, str001[0].Severity)
	assert.Equal(t, comp.ID, str001[0].EntityID)

	// the missing beam_delivery checklist entry surfaces too
	assert.NotEmpty(t, issuesByRule(report, "COM001"))
}

func TestSparePartWithoutPartNumber(t *testing.T) {
	c, _ := completeLinac(t)
	subs := c.EntitiesOfKind(ontology.KindSubsystem)
	comp := ontology.NewComponent("Klystron", subs[0].ID, ontology.ComponentAttrs{PartNumber: "KLY-1"})
	comp.Meta.Confidence = 0.9
	compID, err := c.AddEntity(comp)
	require.NoError(t, err)

	part := ontology.NewSparePart("Spare Window", compID, ontology.SparePartAttrs{})
	part.Meta.Confidence = 0.9
	_, err = c.AddEntity(part)
	require.NoError(t, err)

	report, err := newValidator().Run(context.Background(), c)
	require.NoError(t, err)

	sem002 := issuesByRule(report, "SEM002")
	require.Len(t, sem002, 1)
	assert.Equal(t, SeverityError, sem002[0].Severity)
}

func TestInverseSuggestionIsInfo(t *testing.T) {
	c, _ := completeLinac(t)
	subs := c.EntitiesOfKind(ontology.KindSubsystem)
	require.GreaterOrEqual(t, len(subs), 2)

	r := ontology.NewRelationship(ontology.RelControls, subs[0].ID, subs[1].ID)
	r.Meta.Confidence = 0.9
	_, err := c.AddRelationship(r)
	require.NoError(t, err)

	report, err := newValidator().Run(context.Background(), c)
	require.NoError(t, err)
	assert.True(t, report.Valid(), "a missing inverse is a suggestion, not a defect")

	con004 := issuesByRule(report, "CON004")
	require.Len(t, con004, 1)
	assert.Equal(t, SeverityInfo, con004[0].Severity)
	assert.Contains(t, con004[0].Message, "controlled_by")
}

func TestSymmetricMissingReverseIsWarning(t *testing.T) {
	c, _ := completeLinac(t)
	subs := c.EntitiesOfKind(ontology.KindSubsystem)

	r := ontology.NewRelationship(ontology.RelConnectedTo, subs[0].ID, subs[1].ID)
	r.Meta.Confidence = 0.9
	_, err := c.AddRelationship(r)
	require.NoError(t, err)

	report, err := newValidator().Run(context.Background(), c)
	require.NoError(t, err)

	con003 := issuesByRule(report, "CON003")
	require.Len(t, con003, 1)
	assert.Equal(t, SeverityWarning, con003[0].Severity)
}

func TestChecklistFlagsMissingSubsystems(t *testing.T) {
	c := ontology.New(ontology.Options{})
	sys := ontology.NewSystem("Bare LINAC", ontology.SystemAttrs{
		SystemType:   ontology.SystemLinac,
		Manufacturer: "Elekta",
		ModelNumber:  "V1",
	})
	sys.Meta.Confidence = 0.9
	_, err := c.AddEntity(sys)
	require.NoError(t, err)

	report, err := newValidator().Run(context.Background(), c)
	require.NoError(t, err)

	com001 := issuesByRule(report, "COM001")
	assert.Len(t, com001, len(DefaultChecklist()[ontology.SystemLinac]))
	for _, issue := range com001 {
		assert.Equal(t, SeverityWarning, issue.Severity)
	}
}

func TestConflictingReviewsFlagged(t *testing.T) {
	c, sysID := completeLinac(t)

	_, err := c.Transition(sysID, ontology.ActionReopen, "expert-1", "queue it")
	require.NoError(t, err)
	_, err = c.Transition(sysID, ontology.ActionApprove, "expert-1", "looks right")
	require.NoError(t, err)
	_, err = c.Transition(sysID, ontology.ActionReject, "expert-2", "disagree")
	require.NoError(t, err)

	report, err := newValidator().Run(context.Background(), c)
	require.NoError(t, err)

	con005 := issuesByRule(report, "CON005")
	require.Len(t, con005, 1)
	assert.Equal(t, sysID, con005[0].EntityID)

	// a reopen settles the disagreement
	_, err = c.Transition(sysID, ontology.ActionReopen, "lead-1", "re-review after dispute")
	require.NoError(t, err)
	report, err = newValidator().Run(context.Background(), c)
	require.NoError(t, err)
	assert.Empty(t, issuesByRule(report, "CON005"))
}

func TestFunctionalViolationDetectedInSnapshot(t *testing.T) {
	// The container blocks double part_of edges at insert; the rule
	// still catches hand-assembled snapshots.
	snap := &ontology.Snapshot{}
	g := newGraph(snap)
	assert.Empty(t, checkFunctional(g))

	a, b, x := "EN-a", "EN-b", "EN-x"
	r1 := ontology.NewRelationship(ontology.RelPartOf, x, a)
	r2 := ontology.NewRelationship(ontology.RelPartOf, x, b)
	g = newGraph(&ontology.Snapshot{Relationships: []*ontology.Relationship{r1, r2}})

	issues := checkFunctional(g)
	require.Len(t, issues, 1)
	assert.Equal(t, "CON002", issues[0].RuleID)
	assert.Equal(t, x, issues[0].EntityID)
}

func TestScoreDeductions(t *testing.T) {
	c, _ := completeLinac(t)

	// one error: spare-part-less part number via a component child chain
	subs := c.EntitiesOfKind(ontology.KindSubsystem)
	comp := ontology.NewComponent("Magnetron", subs[0].ID, ontology.ComponentAttrs{PartNumber: "MAG-2"})
	comp.Meta.Confidence = 0.9
	compID, err := c.AddEntity(comp)
	require.NoError(t, err)
	part := ontology.NewSparePart("Filament", compID, ontology.SparePartAttrs{})
	part.Meta.Confidence = 0.2 // also below the confidence floor
	_, err = c.AddEntity(part)
	require.NoError(t, err)

	report, err := newValidator().Run(context.Background(), c)
	require.NoError(t, err)
	require.Equal(t, 1, report.Errors)
	require.Equal(t, 0, report.Warnings)

	// 100 - 10*1 - 10*(1/8 low confidence)
	assert.InDelta(t, 100-10-10.0/8, report.Score, 0.001)
}

func TestRunCancellation(t *testing.T) {
	c, _ := completeLinac(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newValidator().Run(ctx, c)
	require.Error(t, err)
	require.NotNil(t, report)
}

func TestRegisterDomainRule(t *testing.T) {
	c, sysID := completeLinac(t)

	v := newValidator()
	v.RegisterRule(Rule{
		ID:          "DOM099",
		Description: "every system carries a serial number",
		Check: func(g *Graph) []Issue {
			var issues []Issue
			for _, e := range g.Entities {
				if e.Kind == ontology.KindSystem && e.System != nil && e.System.SerialNumber == "" {
					issues = append(issues, Issue{
						RuleID: "DOM099", Severity: SeverityWarning, EntityID: e.ID,
						Message: "system has no serial number",
					})
				}
			}
			return issues
		},
	})

	report, err := v.Run(context.Background(), c)
	require.NoError(t, err)
	dom099 := issuesByRule(report, "DOM099")
	require.Len(t, dom099, 1)
	assert.Equal(t, sysID, dom099[0].EntityID)
}
