package builder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/silvamed/ontoforge/errors"
	"github.com/silvamed/ontoforge/logger"
	"github.com/silvamed/ontoforge/ontology"
)

// DefaultActor is recorded on audit entries the builder writes.
const DefaultActor = "builder@ontoforge"

// Thresholds tunes identity resolution and status assignment. The merge
// thresholds are configuration, not constants; these are the defaults.
type Thresholds struct {
	// ExactMatch is the similarity above which a candidate merges
	// without a tentative flag (exact or field-backed matches land here).
	ExactMatch float64 `json:"exact_match"`
	// FuzzyMatch is the label-only similarity above which a candidate
	// merges flagged as tentative.
	FuzzyMatch float64 `json:"fuzzy_match"`
	// ReviewFloor is the confidence at or above which new entities enter
	// the review queue as pending_review instead of not_validated.
	ReviewFloor float64 `json:"review_floor"`
	// OverrideMargin is how much a candidate's confidence must exceed an
	// existing entity's before non-blank fields are overwritten.
	OverrideMargin float64 `json:"override_margin"`
}

// DefaultThresholds returns the stock tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ExactMatch:     0.85,
		FuzzyMatch:     0.6,
		ReviewFloor:    0.7,
		OverrideMargin: 0.1,
	}
}

// Validate rejects thresholds outside [0,1] or ordered wrong.
func (t Thresholds) Validate() error {
	for name, v := range map[string]float64{
		"exact_match": t.ExactMatch, "fuzzy_match": t.FuzzyMatch,
		"review_floor": t.ReviewFloor, "override_margin": t.OverrideMargin,
	} {
		if v < 0 || v > 1 {
			return errors.Newf("threshold %s must be in [0,1], got %f", name, v)
		}
	}
	if t.FuzzyMatch > t.ExactMatch {
		return errors.Newf("fuzzy_match (%f) must not exceed exact_match (%f)",
			t.FuzzyMatch, t.ExactMatch)
	}
	return nil
}

// Builder turns raw candidate batches into container mutations, resolving
// identity against what already exists. It holds no state across calls;
// the container is the single source of truth.
type Builder struct {
	container  *ontology.Container
	thresholds Thresholds
	actor      string
	log        *zap.SugaredLogger
}

// New creates a builder over c.
func New(c *ontology.Container, t Thresholds) *Builder {
	return &Builder{
		container:  c,
		thresholds: t,
		actor:      DefaultActor,
		log:        logger.Named("builder"),
	}
}

// orphan is an entity candidate whose parent hint did not resolve on the
// first pass. Parents may arrive later in the same batch, so orphans are
// retried once after the rest of the batch is applied.
type orphan struct {
	cand EntityCandidate
}

// MergeBatch applies a batch to the container: normalize, resolve
// identity, merge or create, then relationship inference. Cancellation is
// checked between candidates; on cancellation the partial report is
// returned alongside the context error, so partial application is
// reported, not hidden.
func (b *Builder) MergeBatch(ctx context.Context, batch Batch) (*Report, error) {
	report := &Report{StartTime: time.Now()}

	var orphans []orphan
	for i := range batch.Entities {
		if err := ctx.Err(); err != nil {
			report.finish()
			return report, errors.Wrap(err, "batch merge aborted")
		}
		cand := batch.Entities[i]
		b.mergeEntityCandidate(cand, report, &orphans, false)
	}

	// One retry pass: parents may have been created later in the batch
	retry := orphans
	orphans = nil
	for _, o := range retry {
		b.mergeEntityCandidate(o.cand, report, &orphans, true)
	}
	for _, o := range orphans {
		report.UnresolvedOrphans = append(report.UnresolvedOrphans, o.cand.Label)
	}

	for i := range batch.Relationships {
		if err := ctx.Err(); err != nil {
			report.finish()
			return report, errors.Wrap(err, "batch merge aborted")
		}
		b.mergeRelationshipCandidate(batch.Relationships[i], report)
	}

	report.finish()
	b.log.Infow("batch merged",
		"created", report.Created,
		"merged", report.Merged,
		"rejected", report.Rejected,
		"orphans", len(report.UnresolvedOrphans),
		"duration", report.EndTime.Sub(report.StartTime),
	)
	return report, nil
}

// mergeEntityCandidate runs one candidate through normalize, identity
// resolution and merge-or-create. Unresolvable parents queue the
// candidate as an orphan unless this is already the retry pass.
func (b *Builder) mergeEntityCandidate(cand EntityCandidate, report *Report, orphans *[]orphan, isRetry bool) {
	if code := cand.normalize(); code != "" {
		report.reject(code, fmt.Sprintf("candidate %q dropped: %s", cand.Label, code), cand.Label)
		return
	}

	parentID := ""
	if cand.Kind != ontology.KindSystem {
		var ok bool
		parentID, ok = b.resolveParent(&cand)
		if !ok {
			if isRetry {
				b.log.Warnw("orphan candidate unresolved after retry",
					"label", cand.Label, "parent_hint", cand.ParentHint)
			}
			*orphans = append(*orphans, orphan{cand: cand})
			return
		}
	}

	match, score, tentative := b.resolve(&cand)
	if match != nil {
		b.mergeInto(match, &cand, score, tentative, report)
		return
	}

	e := cand.toEntity(parentID, b.thresholds.ReviewFloor)
	id, err := b.container.AddEntity(e)
	if err != nil {
		report.reject(ReasonInvariant, err.Error(), cand.Label)
		return
	}
	report.Created++
	if e.Meta.Status == ontology.StatusPendingReview {
		report.PendingReview = append(report.PendingReview, PendingItem{
			ID: id, Label: cand.Label, Confidence: cand.Confidence,
		})
	}
	b.log.Debugw("entity created", "id", id, "kind", cand.Kind, "label", cand.Label)
}

// resolveParent turns a parent hint (id or label) into an entity id.
func (b *Builder) resolveParent(cand *EntityCandidate) (string, bool) {
	if e, err := b.container.Entity(cand.ParentHint); err == nil {
		return e.ID, true
	}
	parentKind := cand.Kind.ParentKind()
	if exact := b.container.ResolveEntityByLabel(parentKind, cand.ParentHint); len(exact) > 0 {
		return exact[0].ID, true
	}
	want := normalizeLabel(cand.ParentHint)
	for _, e := range b.container.EntitiesOfKind(parentKind) {
		if normalizeLabel(e.Label) == want {
			return e.ID, true
		}
	}
	return "", false
}

// resolve searches existing entities of the candidate's kind for the best
// identity match. A part-number match is authoritative and scores 1.0;
// otherwise the label similarity decides. Scores at or above ExactMatch
// merge cleanly; scores between FuzzyMatch and ExactMatch merge flagged
// tentative; anything lower is a distinct entity.
func (b *Builder) resolve(cand *EntityCandidate) (match *ontology.Entity, score float64, tentative bool) {
	candPN := candidatePartNumber(cand)

	var best *ontology.Entity
	bestScore := 0.0
	for _, e := range b.container.EntitiesOfKind(cand.Kind) {
		s := labelSimilarity(cand.Label, e.Label)
		if candPN != "" && e.PartNumber() != "" && strings.EqualFold(candPN, e.PartNumber()) {
			s = 1
		}
		if s > bestScore {
			best, bestScore = e, s
		}
	}

	switch {
	case best == nil:
		return nil, 0, false
	case bestScore >= b.thresholds.ExactMatch:
		return best, bestScore, false
	case bestScore >= b.thresholds.FuzzyMatch:
		return best, bestScore, true
	default:
		return nil, 0, false
	}
}

// mergeInto folds a candidate into an existing entity. Blank fields are
// filled; non-blank fields are overwritten only when the candidate's
// confidence exceeds the existing confidence by the override margin, with
// a field_override audit entry naming what changed. A merge that changes
// nothing and was already recorded appends no audit, keeping batch
// replays idempotent.
func (b *Builder) mergeInto(existing *ontology.Entity, cand *EntityCandidate, score float64, tentative bool, report *Report) {
	patch, overridden := buildMergePatch(existing, cand, b.thresholds.OverrideMargin)

	mergeComment := fmt.Sprintf("merged duplicate %q (similarity %.2f)", cand.Label, score)
	if tentative {
		mergeComment += ", tentative"
		if !existing.Meta.HasTag("tentative_merge") || patch.Tags != nil {
			patch.Tags = appendMissing(patchedTags(existing, patch), "tentative_merge")
		}
	}

	// A candidate indistinguishable from the stored entity, or one whose
	// collapse is already on the audit trail, merges without mutating
	// anything. Replaying a batch leaves the graph untouched.
	if emptyPatch(patch) && (cand.Label == existing.Label || hasMergeRecord(existing, mergeComment)) {
		report.Merged++
		if tentative {
			report.TentativeMerges++
		}
		return
	}

	records := []ontology.ReviewRecord{{
		ExpertID: b.actor,
		Action:   ontology.ActionMergeDuplicate,
		Comment:  mergeComment,
	}}
	if hasMergeRecord(existing, mergeComment) {
		records = nil
	}
	if len(overridden) > 0 {
		records = append(records, ontology.ReviewRecord{
			ExpertID: b.actor,
			Action:   ontology.ActionFieldOverride,
			Comment: fmt.Sprintf("overrode %s (confidence %.2f > %.2f)",
				strings.Join(overridden, ", "), cand.Confidence, existing.Meta.Confidence),
		})
	}

	if err := b.container.MergeEntity(existing.ID, patch, records...); err != nil {
		report.reject(ReasonInvariant, err.Error(), cand.Label)
		return
	}
	report.Merged++
	if tentative {
		report.TentativeMerges++
	}
	b.log.Debugw("entity merged",
		"id", existing.ID, "into", existing.Label, "candidate", cand.Label,
		"similarity", score, "tentative", tentative)
}

// mergeRelationshipCandidate merges or creates one typed edge, keyed on
// (type, source, target).
func (b *Builder) mergeRelationshipCandidate(cand RelationshipCandidate, report *Report) {
	if code := cand.normalize(); code != "" {
		report.reject(code, fmt.Sprintf("relationship %s dropped: %s", cand.Type, code), "")
		return
	}

	sourceID, ok := b.resolveEndpoint(cand.Source)
	if !ok {
		report.reject(ReasonMissingEndpoint,
			fmt.Sprintf("relationship %s: source %q not found", cand.Type, cand.Source), "")
		return
	}
	targetID, ok := b.resolveEndpoint(cand.Target)
	if !ok {
		report.reject(ReasonMissingEndpoint,
			fmt.Sprintf("relationship %s: target %q not found", cand.Type, cand.Target), "")
		return
	}

	if existing := b.container.RelationshipByKey(cand.Type, sourceID, targetID); existing != nil {
		report.Merged++
		if cand.Confidence <= existing.Meta.Confidence {
			return
		}
		patch := ontology.RelationshipPatch{Confidence: &cand.Confidence}
		rec := ontology.ReviewRecord{
			ExpertID: b.actor,
			Action:   ontology.ActionMergeDuplicate,
			Comment: fmt.Sprintf("merged duplicate edge, confidence %.2f -> %.2f",
				existing.Meta.Confidence, cand.Confidence),
		}
		if err := b.container.MergeRelationship(existing.ID, patch, rec); err != nil {
			report.reject(ReasonInvariant, err.Error(), "")
			report.Merged--
		}
		return
	}

	r := ontology.NewRelationship(cand.Type, sourceID, targetID)
	r.Description = cand.Description
	r.Meta.Confidence = cand.Confidence
	if cand.Confidence >= b.thresholds.ReviewFloor {
		r.Meta.Status = ontology.StatusPendingReview
	}
	if _, err := b.container.AddRelationship(r); err != nil {
		report.reject(ReasonInvariant, err.Error(), "")
		return
	}
	report.Created++
}

// resolveEndpoint turns an id-or-label reference into an entity id. Label
// lookup spans all kinds; the reference must be unambiguous.
func (b *Builder) resolveEndpoint(ref string) (string, bool) {
	if e, err := b.container.Entity(ref); err == nil {
		return e.ID, true
	}
	want := normalizeLabel(ref)
	var found string
	for _, kind := range []ontology.Kind{
		ontology.KindSystem, ontology.KindSubsystem,
		ontology.KindComponent, ontology.KindSparePart,
	} {
		for _, e := range b.container.EntitiesOfKind(kind) {
			if normalizeLabel(e.Label) != want {
				continue
			}
			if found != "" && found != e.ID {
				return "", false // ambiguous
			}
			found = e.ID
		}
	}
	return found, found != ""
}

// candidatePartNumber extracts the exact-match field for identity
// resolution, when the kind carries one.
func candidatePartNumber(c *EntityCandidate) string {
	switch {
	case c.Component != nil:
		return c.Component.PartNumber
	case c.SparePart != nil:
		return c.SparePart.PartNumber
	case c.System != nil:
		return c.System.SerialNumber
	}
	return ""
}

func hasMergeRecord(e *ontology.Entity, comment string) bool {
	for _, rec := range e.Meta.Reviews {
		if rec.Action == ontology.ActionMergeDuplicate && rec.Comment == comment {
			return true
		}
	}
	return false
}

func appendMissing(tags []string, tag string) []string {
	for _, t := range tags {
		if t == tag {
			return tags
		}
	}
	return append(tags, tag)
}

// patchedTags returns the tag set the patch would leave on the entity.
func patchedTags(e *ontology.Entity, patch ontology.EntityPatch) []string {
	if patch.Tags != nil {
		return patch.Tags
	}
	return append([]string(nil), e.Meta.Tags...)
}

func emptyPatch(p ontology.EntityPatch) bool {
	return p.Label == nil && p.Description == nil && p.MediaRef == nil &&
		p.Confidence == nil && p.Tags == nil && len(p.Specs) == 0 &&
		p.System == nil && p.Subsystem == nil && p.Component == nil && p.SparePart == nil
}
