package builder

import (
	"strings"

	"github.com/silvamed/ontoforge/ontology"
)

// EntityCandidate is a raw extraction result proposed for ingestion:
// a kind, a label, a confidence, an optional parent hint and whatever
// kind-specific attributes the extraction pass produced. Candidates are
// untrusted input; Normalize decides whether they are usable at all.
type EntityCandidate struct {
	Kind        ontology.Kind `json:"kind" yaml:"kind"`
	Label       string        `json:"label" yaml:"label"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Confidence  float64       `json:"confidence" yaml:"confidence"`

	// ParentHint names the containing entity, either by id or by label.
	// Empty for System candidates.
	ParentHint string `json:"parent_hint,omitempty" yaml:"parent_hint,omitempty"`

	Tags     []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	MediaRef string   `json:"media_ref,omitempty" yaml:"media_ref,omitempty"`

	Specs map[string]ontology.Specification `json:"specifications,omitempty" yaml:"specifications,omitempty"`

	System    *ontology.SystemAttrs    `json:"system,omitempty" yaml:"system,omitempty"`
	Subsystem *ontology.SubsystemAttrs `json:"subsystem,omitempty" yaml:"subsystem,omitempty"`
	Component *ontology.ComponentAttrs `json:"component,omitempty" yaml:"component,omitempty"`
	SparePart *ontology.SparePartAttrs `json:"spare_part,omitempty" yaml:"spare_part,omitempty"`

	// Provenance of the extraction pass that produced this candidate.
	SourceDocument   string `json:"source_document,omitempty" yaml:"source_document,omitempty"`
	SourcePage       int    `json:"source_page,omitempty" yaml:"source_page,omitempty"`
	ExtractionMethod string `json:"extraction_method,omitempty" yaml:"extraction_method,omitempty"`
}

// RelationshipCandidate proposes a typed edge. Source and Target name
// entities by id or by label; labels are resolved against the batch's
// freshly created entities first, then the container.
type RelationshipCandidate struct {
	Type        ontology.RelationType `json:"type" yaml:"type"`
	Source      string                `json:"source" yaml:"source"`
	Target      string                `json:"target" yaml:"target"`
	Description string                `json:"description,omitempty" yaml:"description,omitempty"`
	Confidence  float64               `json:"confidence" yaml:"confidence"`
}

// Batch is one ingestion unit: the entities and relationships of a single
// extraction pass over a document.
type Batch struct {
	Entities      []EntityCandidate      `json:"entities" yaml:"entities"`
	Relationships []RelationshipCandidate `json:"relationships,omitempty" yaml:"relationships,omitempty"`
}

// Reason codes for rejected candidates. Rejections are data, not errors:
// they land in the merge report so nothing is silently dropped.
const (
	ReasonEmptyLabel       = "empty_label"
	ReasonInvalidKind      = "invalid_kind"
	ReasonInvalidConfidence = "invalid_confidence"
	ReasonAttrsMismatch    = "attrs_kind_mismatch"
	ReasonInvalidEnum      = "invalid_enum"
	ReasonMissingParent    = "missing_parent_hint"
	ReasonInvalidRelType   = "invalid_relationship_type"
	ReasonMissingEndpoint  = "missing_endpoint"
	ReasonInvariant        = "invariant_violation"
)

// normalize trims and canonicalizes the candidate in place and returns a
// rejection reason code, or "" when the candidate is usable. Enum values
// are lowercased and underscored before validation so "Beam Delivery"
// and "beam_delivery" both canonicalize.
func (c *EntityCandidate) normalize() string {
	c.Label = collapseWhitespace(c.Label)
	if c.Label == "" {
		return ReasonEmptyLabel
	}
	c.Kind = ontology.Kind(canonicalizeEnum(string(c.Kind)))
	if !c.Kind.Valid() {
		return ReasonInvalidKind
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return ReasonInvalidConfidence
	}
	if c.Kind != ontology.KindSystem && strings.TrimSpace(c.ParentHint) == "" {
		return ReasonMissingParent
	}
	c.ParentHint = strings.TrimSpace(c.ParentHint)
	c.Description = strings.TrimSpace(c.Description)

	// Attrs for the wrong kind are a candidate defect, not a field to fix
	if (c.System != nil && c.Kind != ontology.KindSystem) ||
		(c.Subsystem != nil && c.Kind != ontology.KindSubsystem) ||
		(c.Component != nil && c.Kind != ontology.KindComponent) ||
		(c.SparePart != nil && c.Kind != ontology.KindSparePart) {
		return ReasonAttrsMismatch
	}

	switch c.Kind {
	case ontology.KindSystem:
		if c.System == nil {
			c.System = &ontology.SystemAttrs{SystemType: ontology.SystemGeneric}
		}
		c.System.SystemType = ontology.SystemType(canonicalizeEnum(string(c.System.SystemType)))
		if c.System.SystemType == "" {
			c.System.SystemType = ontology.SystemGeneric
		}
		if !c.System.SystemType.Valid() {
			return ReasonInvalidEnum
		}
	case ontology.KindSubsystem:
		if c.Subsystem == nil {
			c.Subsystem = &ontology.SubsystemAttrs{}
		}
		if c.Subsystem.SubsystemType == "" {
			c.Subsystem.SubsystemType = inferSubsystemType(c.Label)
		}
		c.Subsystem.SubsystemType = ontology.SubsystemType(canonicalizeEnum(string(c.Subsystem.SubsystemType)))
		if !c.Subsystem.SubsystemType.Valid() {
			return ReasonInvalidEnum
		}
	case ontology.KindComponent:
		if c.Component == nil {
			c.Component = &ontology.ComponentAttrs{}
		}
		c.Component.PartNumber = strings.TrimSpace(c.Component.PartNumber)
	case ontology.KindSparePart:
		if c.SparePart == nil {
			c.SparePart = &ontology.SparePartAttrs{}
		}
		c.SparePart.PartNumber = strings.TrimSpace(c.SparePart.PartNumber)
	}
	return ""
}

// normalize canonicalizes the relationship candidate and returns a
// rejection reason code, or "".
func (c *RelationshipCandidate) normalize() string {
	c.Type = ontology.RelationType(canonicalizeEnum(string(c.Type)))
	if !c.Type.Valid() {
		return ReasonInvalidRelType
	}
	c.Source = strings.TrimSpace(c.Source)
	c.Target = strings.TrimSpace(c.Target)
	if c.Source == "" || c.Target == "" {
		return ReasonMissingEndpoint
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return ReasonInvalidConfidence
	}
	return ""
}

// toEntity builds the container entity for a candidate that resolved to
// no existing match. Status depends on the review floor: confident
// candidates go straight to the expert queue.
func (c *EntityCandidate) toEntity(parentID string, reviewFloor float64) *ontology.Entity {
	var e *ontology.Entity
	switch c.Kind {
	case ontology.KindSystem:
		e = ontology.NewSystem(c.Label, *c.System)
	case ontology.KindSubsystem:
		e = ontology.NewSubsystem(c.Label, parentID, *c.Subsystem)
	case ontology.KindComponent:
		e = ontology.NewComponent(c.Label, parentID, *c.Component)
	case ontology.KindSparePart:
		e = ontology.NewSparePart(c.Label, parentID, *c.SparePart)
	}
	e.Description = c.Description
	e.MediaRef = c.MediaRef
	e.Specs = c.Specs
	e.Meta.Confidence = c.Confidence
	e.Meta.Tags = append([]string(nil), c.Tags...)
	e.Meta.SourceDocument = c.SourceDocument
	e.Meta.SourcePage = c.SourcePage
	e.Meta.ExtractionMethod = c.ExtractionMethod
	if c.Confidence >= reviewFloor {
		e.Meta.Status = ontology.StatusPendingReview
	} else {
		e.Meta.Status = ontology.StatusNotValidated
	}
	return e
}

// inferSubsystemType guesses a subsystem type from label keywords, the
// way extraction passes label obvious subsystems. Unrecognized labels
// fall back to mechanical, the broadest bucket.
func inferSubsystemType(label string) ontology.SubsystemType {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "beam"):
		return ontology.SubsystemBeamDelivery
	case strings.Contains(l, "position") || strings.Contains(l, "couch") || strings.Contains(l, "table"):
		return ontology.SubsystemPatientPositioning
	case strings.Contains(l, "imag") || strings.Contains(l, "detector"):
		return ontology.SubsystemImaging
	case strings.Contains(l, "control"):
		return ontology.SubsystemTreatmentControl
	case strings.Contains(l, "safety") || strings.Contains(l, "interlock"):
		return ontology.SubsystemSafetyInterlock
	case strings.Contains(l, "cool") || strings.Contains(l, "chiller"):
		return ontology.SubsystemCooling
	case strings.Contains(l, "power"):
		return ontology.SubsystemPowerSupply
	case strings.Contains(l, "software"):
		return ontology.SubsystemSoftware
	case strings.Contains(l, "hydraulic"):
		return ontology.SubsystemHydraulic
	case strings.Contains(l, "pneumatic"):
		return ontology.SubsystemPneumatic
	case strings.Contains(l, "electric"):
		return ontology.SubsystemElectrical
	default:
		return ontology.SubsystemMechanical
	}
}

func canonicalizeEnum(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	return strings.ReplaceAll(v, " ", "_")
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
