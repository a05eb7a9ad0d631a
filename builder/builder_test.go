package builder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silvamed/ontoforge/ontology"
)

func newTestBuilder(t *testing.T) (*Builder, *ontology.Container) {
	t.Helper()
	c := ontology.New(ontology.Options{})
	return New(c, DefaultThresholds()), c
}

func seedSystem(t *testing.T, c *ontology.Container) string {
	t.Helper()
	id, err := c.AddEntity(ontology.NewSystem("LINAC TrueBeam", ontology.SystemAttrs{
		SystemType: ontology.SystemLinac,
	}))
	require.NoError(t, err)
	return id
}

func TestMergeBatchCreatesSubsystemWithContainment(t *testing.T) {
	b, c := newTestBuilder(t)
	sysID := seedSystem(t, c)

	report, err := b.MergeBatch(context.Background(), Batch{
		Entities: []EntityCandidate{{
			Kind:       ontology.KindSubsystem,
			Label:      "Beam Delivery",
			ParentHint: sysID,
			Confidence: 0.9,
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 0, report.Merged)
	require.Len(t, report.PendingReview, 1)

	sub, err := c.Entity(report.PendingReview[0].ID)
	require.NoError(t, err)
	assert.Equal(t, ontology.StatusPendingReview, sub.Meta.Status)
	assert.Equal(t, sysID, sub.ParentID)

	rels := c.RelationshipsOf(sysID, ontology.DirectionOutgoing)
	require.Len(t, rels, 1)
	assert.Equal(t, ontology.RelHasSubsystem, rels[0].Type)
	assert.Equal(t, sub.ID, rels[0].TargetID)
}

func TestMergeBatchLowConfidenceSkipsReviewQueue(t *testing.T) {
	b, c := newTestBuilder(t)
	sysID := seedSystem(t, c)

	report, err := b.MergeBatch(context.Background(), Batch{
		Entities: []EntityCandidate{{
			Kind:       ontology.KindSubsystem,
			Label:      "Cooling",
			ParentHint: sysID,
			Confidence: 0.4,
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Empty(t, report.PendingReview)

	subs := c.EntitiesOfKind(ontology.KindSubsystem)
	require.Len(t, subs, 1)
	assert.Equal(t, ontology.StatusNotValidated, subs[0].Meta.Status)
}

func TestMergeBatchOrphanResolvedOnRetry(t *testing.T) {
	b, c := newTestBuilder(t)
	seedSystem(t, c)

	// The component arrives before its parent subsystem
	report, err := b.MergeBatch(context.Background(), Batch{
		Entities: []EntityCandidate{
			{
				Kind:       ontology.KindComponent,
				Label:      "Multi-Leaf Collimator",
				ParentHint: "Beam Delivery",
				Confidence: 0.85,
			},
			{
				Kind:       ontology.KindSubsystem,
				Label:      "Beam Delivery",
				ParentHint: "LINAC TrueBeam",
				Confidence: 0.9,
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)
	assert.Empty(t, report.UnresolvedOrphans)

	comps := c.EntitiesOfKind(ontology.KindComponent)
	require.Len(t, comps, 1)
	subs := c.EntitiesOfKind(ontology.KindSubsystem)
	require.Len(t, subs, 1)
	assert.Equal(t, subs[0].ID, comps[0].ParentID)
}

func TestMergeBatchReportsUnresolvedOrphan(t *testing.T) {
	b, c := newTestBuilder(t)
	seedSystem(t, c)

	report, err := b.MergeBatch(context.Background(), Batch{
		Entities: []EntityCandidate{{
			Kind:       ontology.KindComponent,
			Label:      "Waveguide",
			ParentHint: "No Such Subsystem",
			Confidence: 0.8,
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Created)
	assert.Equal(t, []string{"Waveguide"}, report.UnresolvedOrphans)
	assert.Empty(t, c.EntitiesOfKind(ontology.KindComponent))
}

func TestMergeBatchDuplicatePartNumberMerges(t *testing.T) {
	b, c := newTestBuilder(t)
	sysID := seedSystem(t, c)
	subID, err := c.AddEntity(ontology.NewSubsystem("Beam Delivery", sysID,
		ontology.SubsystemAttrs{SubsystemType: ontology.SubsystemBeamDelivery}))
	require.NoError(t, err)

	batch := Batch{Entities: []EntityCandidate{
		{
			Kind:       ontology.KindComponent,
			Label:      "Multi-Leaf Collimator",
			ParentHint: subID,
			Confidence: 0.9,
			Component:  &ontology.ComponentAttrs{PartNumber: "MLC-120"},
		},
		{
			Kind:       ontology.KindComponent,
			Label:      "Multi Leaf Collimator",
			ParentHint: subID,
			Confidence: 0.8,
			Component:  &ontology.ComponentAttrs{PartNumber: "MLC-120", Manufacturer: "Varian"},
		},
	}}

	report, err := b.MergeBatch(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Merged)
	assert.Equal(t, 0, report.TentativeMerges)

	comps := c.EntitiesOfKind(ontology.KindComponent)
	require.Len(t, comps, 1)

	// survivor gains the merged-duplicate record and the blank fill
	var mergeRecords int
	for _, rec := range comps[0].Meta.Reviews {
		if rec.Action == ontology.ActionMergeDuplicate {
			mergeRecords++
		}
	}
	assert.Equal(t, 1, mergeRecords)
	assert.Equal(t, "Varian", comps[0].Component.Manufacturer)
}

func TestMergeBatchFuzzyMatchFlaggedTentative(t *testing.T) {
	b, c := newTestBuilder(t)
	sysID := seedSystem(t, c)

	_, err := b.MergeBatch(context.Background(), Batch{
		Entities: []EntityCandidate{{
			Kind:       ontology.KindSubsystem,
			Label:      "Patient Positioning",
			ParentHint: sysID,
			Confidence: 0.9,
		}},
	})
	require.NoError(t, err)

	report, err := b.MergeBatch(context.Background(), Batch{
		Entities: []EntityCandidate{{
			Kind:       ontology.KindSubsystem,
			Label:      "Patient Positioning Robotic Couch",
			ParentHint: sysID,
			Confidence: 0.7,
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 1, report.Merged)
	assert.Equal(t, 1, report.TentativeMerges)

	subs := c.EntitiesOfKind(ontology.KindSubsystem)
	require.Len(t, subs, 1)
	assert.True(t, subs[0].Meta.HasTag("tentative_merge"))
}

func TestMergeOverridesOnlyWithConfidenceMargin(t *testing.T) {
	b, c := newTestBuilder(t)
	sysID := seedSystem(t, c)
	subID, err := c.AddEntity(ontology.NewSubsystem("Beam Delivery", sysID,
		ontology.SubsystemAttrs{SubsystemType: ontology.SubsystemBeamDelivery}))
	require.NoError(t, err)

	comp := ontology.NewComponent("Klystron", subID, ontology.ComponentAttrs{
		PartNumber:   "KLY-1",
		Manufacturer: "CPI",
	})
	comp.Meta.Confidence = 0.8
	_, err = c.AddEntity(comp)
	require.NoError(t, err)

	// within the margin: existing value kept
	_, err = b.MergeBatch(context.Background(), Batch{
		Entities: []EntityCandidate{{
			Kind:       ontology.KindComponent,
			Label:      "Klystron",
			ParentHint: subID,
			Confidence: 0.85,
			Component:  &ontology.ComponentAttrs{PartNumber: "KLY-1", Manufacturer: "Thales"},
		}},
	})
	require.NoError(t, err)
	got, err := c.Entity(comp.ID)
	require.NoError(t, err)
	assert.Equal(t, "CPI", got.Component.Manufacturer)

	// above the margin: candidate wins, field_override recorded
	_, err = b.MergeBatch(context.Background(), Batch{
		Entities: []EntityCandidate{{
			Kind:       ontology.KindComponent,
			Label:      "Klystron",
			ParentHint: subID,
			Confidence: 0.99,
			Component:  &ontology.ComponentAttrs{PartNumber: "KLY-1", Manufacturer: "Thales"},
		}},
	})
	require.NoError(t, err)
	got, err = c.Entity(comp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Thales", got.Component.Manufacturer)

	var overrides int
	for _, rec := range got.Meta.Reviews {
		if rec.Action == ontology.ActionFieldOverride {
			overrides++
		}
	}
	assert.Equal(t, 1, overrides)
}

func TestMergeBatchIdempotent(t *testing.T) {
	b, c := newTestBuilder(t)

	batch := Batch{
		Entities: []EntityCandidate{
			{Kind: ontology.KindSystem, Label: "LINAC TrueBeam", Confidence: 0.95,
				System: &ontology.SystemAttrs{SystemType: ontology.SystemLinac}},
			{Kind: ontology.KindSubsystem, Label: "Beam Delivery",
				ParentHint: "LINAC TrueBeam", Confidence: 0.9},
			{Kind: ontology.KindComponent, Label: "Multi-Leaf Collimator",
				ParentHint: "Beam Delivery", Confidence: 0.85,
				Component: &ontology.ComponentAttrs{PartNumber: "MLC-120"}},
		},
		Relationships: []RelationshipCandidate{{
			Type:       ontology.RelMonitors,
			Source:     "Beam Delivery",
			Target:     "Multi-Leaf Collimator",
			Confidence: 0.8,
		}},
	}

	_, err := b.MergeBatch(context.Background(), batch)
	require.NoError(t, err)
	first := c.Snapshot()

	report, err := b.MergeBatch(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Created)

	second := c.Snapshot()
	require.Len(t, second.Entities, len(first.Entities))
	require.Len(t, second.Relationships, len(first.Relationships))
	for i := range first.Entities {
		assert.Equal(t, first.Entities[i].Meta.Reviews, second.Entities[i].Meta.Reviews,
			"replaying a batch must not grow the audit trail of %s", first.Entities[i].Label)
		assert.Equal(t, first.Entities[i].Meta.Confidence, second.Entities[i].Meta.Confidence)
	}
}

func TestMergeBatchRelationshipMergeOrCreate(t *testing.T) {
	b, c := newTestBuilder(t)
	sysID := seedSystem(t, c)
	subID, err := c.AddEntity(ontology.NewSubsystem("Treatment Control", sysID,
		ontology.SubsystemAttrs{SubsystemType: ontology.SubsystemTreatmentControl}))
	require.NoError(t, err)
	sub2ID, err := c.AddEntity(ontology.NewSubsystem("Beam Delivery", sysID,
		ontology.SubsystemAttrs{SubsystemType: ontology.SubsystemBeamDelivery}))
	require.NoError(t, err)

	report, err := b.MergeBatch(context.Background(), Batch{
		Relationships: []RelationshipCandidate{{
			Type: ontology.RelControls, Source: subID, Target: sub2ID, Confidence: 0.6,
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)

	// same edge again with higher confidence merges and ratchets up
	report, err = b.MergeBatch(context.Background(), Batch{
		Relationships: []RelationshipCandidate{{
			Type: ontology.RelControls, Source: "Treatment Control", Target: "Beam Delivery",
			Confidence: 0.9,
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 1, report.Merged)

	r := c.RelationshipByKey(ontology.RelControls, subID, sub2ID)
	require.NotNil(t, r)
	assert.Equal(t, 0.9, r.Meta.Confidence)
}

func TestMergeBatchRejectsBadCandidates(t *testing.T) {
	b, _ := newTestBuilder(t)

	report, err := b.MergeBatch(context.Background(), Batch{
		Entities: []EntityCandidate{
			{Kind: ontology.KindSystem, Label: "   ", Confidence: 0.9},
			{Kind: "gizmo", Label: "Thing", Confidence: 0.9},
			{Kind: ontology.KindSystem, Label: "Overconfident", Confidence: 1.5},
		},
		Relationships: []RelationshipCandidate{
			{Type: "owns", Source: "a", Target: "b", Confidence: 0.5},
			{Type: ontology.RelControls, Source: "ghost", Target: "spirit", Confidence: 0.5},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 5, report.Rejected)

	codes := make([]string, 0, len(report.Errors))
	for _, e := range report.Errors {
		codes = append(codes, e.Code)
	}
	assert.Contains(t, codes, ReasonEmptyLabel)
	assert.Contains(t, codes, ReasonInvalidKind)
	assert.Contains(t, codes, ReasonInvalidConfidence)
	assert.Contains(t, codes, ReasonInvalidRelType)
	assert.Contains(t, codes, ReasonMissingEndpoint)
}

func TestMergeBatchCancellation(t *testing.T) {
	b, _ := newTestBuilder(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := b.MergeBatch(ctx, Batch{
		Entities: []EntityCandidate{{Kind: ontology.KindSystem, Label: "LINAC", Confidence: 0.9}},
	})
	require.Error(t, err)
	require.NotNil(t, report, "partial report must be returned on cancellation")
	assert.Equal(t, 0, report.Created)
}

func TestPendingReviewSortedLowestConfidenceFirst(t *testing.T) {
	b, c := newTestBuilder(t)
	sysID := seedSystem(t, c)

	report, err := b.MergeBatch(context.Background(), Batch{
		Entities: []EntityCandidate{
			{Kind: ontology.KindSubsystem, Label: "Imaging", ParentHint: sysID, Confidence: 0.95},
			{Kind: ontology.KindSubsystem, Label: "Cooling", ParentHint: sysID, Confidence: 0.72},
			{Kind: ontology.KindSubsystem, Label: "Power Supply", ParentHint: sysID, Confidence: 0.88},
		},
	})
	require.NoError(t, err)
	require.Len(t, report.PendingReview, 3)
	assert.Equal(t, "Cooling", report.PendingReview[0].Label)
	assert.Equal(t, "Power Supply", report.PendingReview[1].Label)
	assert.Equal(t, "Imaging", report.PendingReview[2].Label)
}

func TestThresholdsValidate(t *testing.T) {
	require.NoError(t, DefaultThresholds().Validate())

	bad := DefaultThresholds()
	bad.FuzzyMatch = 0.9
	require.Error(t, bad.Validate())

	bad = DefaultThresholds()
	bad.ExactMatch = 1.5
	require.Error(t, bad.Validate())
}
