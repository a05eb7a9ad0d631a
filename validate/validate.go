package validate

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/silvamed/ontoforge/errors"
	"github.com/silvamed/ontoforge/logger"
	"github.com/silvamed/ontoforge/ontology"
)

// Severity grades an issue. Errors gate the quality score hard, warnings
// softly, info issues are suggestions only.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue is one finding of a validation run, referencing the offending
// entity or relationship so review tooling can jump straight to it.
type Issue struct {
	RuleID         string   `json:"rule_id"`
	Severity       Severity `json:"severity"`
	Message        string   `json:"message"`
	EntityID       string   `json:"entity_id,omitempty"`
	RelationshipID string   `json:"relationship_id,omitempty"`
}

// Rule is one named check over the snapshot view. Domain-specific rules
// plug in through Validator.RegisterRule and run after the built-in
// pipeline.
type Rule struct {
	ID          string
	Description string
	Check       func(g *Graph) []Issue
}

// Weights tunes the quality score and the thresholds the built-in rules
// check against.
type Weights struct {
	// Error and Warning are the per-issue score deductions.
	Error   float64 `json:"error"`
	Warning float64 `json:"warning"`
	// LowConfidence scales the deduction for the fraction of entities
	// below ConfidenceFloor.
	LowConfidence   float64 `json:"low_confidence"`
	ConfidenceFloor float64 `json:"confidence_floor"`
	MinLabelLength  int     `json:"min_label_length"`
}

// DefaultWeights returns the stock scoring.
func DefaultWeights() Weights {
	return Weights{
		Error:           10,
		Warning:         2,
		LowConfidence:   10,
		ConfidenceFloor: 0.7,
		MinLabelLength:  3,
	}
}

// Checklist declares the subsystem types a complete system of a given
// type is expected to carry. Missing entries surface as warnings.
type Checklist map[ontology.SystemType][]ontology.SubsystemType

// DefaultChecklist covers linear accelerators, the best-understood device
// family in the corpus. Other system types carry no expectations until
// configured.
func DefaultChecklist() Checklist {
	return Checklist{
		ontology.SystemLinac: {
			ontology.SubsystemBeamDelivery,
			ontology.SubsystemPatientPositioning,
			ontology.SubsystemTreatmentControl,
			ontology.SubsystemSafetyInterlock,
			ontology.SubsystemCooling,
		},
	}
}

// Report is the outcome of one validation run against one snapshot. It
// may be stale by the time it is displayed; re-validate after any merge.
type Report struct {
	Issues   []Issue   `json:"issues"`
	Score    float64   `json:"score"`
	Errors   int       `json:"errors"`
	Warnings int       `json:"warnings"`
	Infos    int       `json:"infos"`
	Entities int       `json:"entities_checked"`
	RunAt    time.Time `json:"run_at"`
}

// Valid reports whether the run found no errors. Warnings and infos do
// not invalidate a graph.
func (r *Report) Valid() bool {
	return r.Errors == 0
}

// Validator runs the ordered rule pipeline: structural, semantic,
// consistency, completeness, then domain rules. It is read-only over the
// container.
type Validator struct {
	weights   Weights
	checklist Checklist
	domain    []Rule
	log       *zap.SugaredLogger
}

// New creates a validator with the built-in pipeline and the two stock
// domain rules registered.
func New(weights Weights, checklist Checklist) *Validator {
	v := &Validator{
		weights:   weights,
		checklist: checklist,
		log:       logger.Named("validate"),
	}
	v.RegisterRule(ruleRegulatoryFields())
	v.RegisterRule(ruleApprovedLowConfidence(weights.ConfidenceFloor))
	return v
}

// RegisterRule appends a domain rule. Domain rules run last, so they can
// be added without touching the core pipeline.
func (v *Validator) RegisterRule(r Rule) {
	v.domain = append(v.domain, r)
}

// Run validates a consistent snapshot of the container. Cancellation is
// checked between rules; a cancelled run returns the issues found so far
// alongside the context error.
func (v *Validator) Run(ctx context.Context, c *ontology.Container) (*Report, error) {
	g := newGraph(c.Snapshot())
	report := &Report{RunAt: time.Now(), Entities: len(g.Entities)}

	rules := make([]Rule, 0, len(builtinRules(v))+len(v.domain))
	rules = append(rules, builtinRules(v)...)
	rules = append(rules, v.domain...)

	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			v.score(g, report)
			return report, errors.Wrapf(err, "validation aborted before rule %s", rule.ID)
		}
		for _, issue := range rule.Check(g) {
			report.Issues = append(report.Issues, issue)
			switch issue.Severity {
			case SeverityError:
				report.Errors++
			case SeverityWarning:
				report.Warnings++
			default:
				report.Infos++
			}
		}
	}

	v.score(g, report)
	v.log.Infow("validation run complete",
		"entities", report.Entities,
		"errors", report.Errors,
		"warnings", report.Warnings,
		"infos", report.Infos,
		"score", report.Score,
	)
	return report, nil
}

// score computes the 0-100 quality score: full marks minus weighted error
// and warning deductions, minus the low-confidence fraction deduction.
func (v *Validator) score(g *Graph, report *Report) {
	s := 100.0
	s -= v.weights.Error * float64(report.Errors)
	s -= v.weights.Warning * float64(report.Warnings)

	live, low := 0, 0
	for _, e := range g.Entities {
		if e.Removed {
			continue
		}
		live++
		if e.Meta.Confidence < v.weights.ConfidenceFloor {
			low++
		}
	}
	if live > 0 {
		s -= v.weights.LowConfidence * float64(low) / float64(live)
	}

	if s < 0 {
		s = 0
	}
	if s > 100 {
		s = 100
	}
	report.Score = s
}
