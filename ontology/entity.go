package ontology

import (
	"time"

	"github.com/google/uuid"
)

// NewEntityID generates an entity identifier: "EN" + UUID.
func NewEntityID() string {
	return "EN" + uuid.NewString()
}

// NewRelationshipID generates a relationship identifier: "RE" + UUID.
func NewRelationshipID() string {
	return "RE" + uuid.NewString()
}

// Specification is a single technical parameter attached to an entity,
// e.g. leaf speed, beam energy, supply voltage.
type Specification struct {
	Value              string  `json:"value"`
	Unit               string  `json:"unit,omitempty"`
	Tolerance          string  `json:"tolerance,omitempty"`
	MinValue           float64 `json:"min_value,omitempty"`
	MaxValue           float64 `json:"max_value,omitempty"`
	MeasurementMethod  string  `json:"measurement_method,omitempty"`
	ComplianceStandard string  `json:"compliance_standard,omitempty"`
}

// Metadata carries provenance, confidence and the review trail shared by
// entities and relationships. Reviews is append-only; status changes are
// always paired with a new review record.
type Metadata struct {
	Confidence       float64          `json:"confidence"`
	Status           ValidationStatus `json:"status"`
	CreatedAt        time.Time        `json:"created_at"`
	ModifiedAt       time.Time        `json:"modified_at"`
	Tags             []string         `json:"tags,omitempty"`
	Reviews          []ReviewRecord   `json:"reviews,omitempty"`
	SourceDocument   string           `json:"source_document,omitempty"`
	SourcePage       int              `json:"source_page,omitempty"`
	ExtractionMethod string           `json:"extraction_method,omitempty"`
}

// HasTag reports whether tag is present in the tag set.
func (m *Metadata) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTag adds tag if not already present.
func (m *Metadata) AddTag(tag string) {
	if !m.HasTag(tag) {
		m.Tags = append(m.Tags, tag)
	}
}

// SystemAttrs holds attributes valid only for System entities.
type SystemAttrs struct {
	SystemType      SystemType `json:"system_type"`
	ModelNumber     string     `json:"model_number,omitempty"`
	Manufacturer    string     `json:"manufacturer,omitempty"`
	SerialNumber    string     `json:"serial_number,omitempty"`
	SoftwareVersion string     `json:"software_version,omitempty"`
	HardwareVersion string     `json:"hardware_version,omitempty"`
}

// SubsystemAttrs holds attributes valid only for Subsystem entities.
type SubsystemAttrs struct {
	SubsystemType SubsystemType `json:"subsystem_type"`
}

// ComponentAttrs holds attributes valid only for Component entities.
type ComponentAttrs struct {
	ComponentType       string          `json:"component_type,omitempty"`
	PartNumber          string          `json:"part_number,omitempty"`
	Manufacturer        string          `json:"manufacturer,omitempty"`
	Model               string          `json:"model,omitempty"`
	LifecycleStatus     LifecycleStatus `json:"lifecycle_status,omitempty"`
	MaintenanceSchedule string          `json:"maintenance_schedule,omitempty"`
}

// SparePartAttrs holds attributes valid only for SparePart entities.
type SparePartAttrs struct {
	PartNumber           string          `json:"part_number,omitempty"`
	Manufacturer         string          `json:"manufacturer,omitempty"`
	Supplier             string          `json:"supplier,omitempty"`
	LifecycleStatus      LifecycleStatus `json:"lifecycle_status,omitempty"`
	MaintenanceCycle     string          `json:"maintenance_cycle,omitempty"`
	ReplacementFrequency string          `json:"replacement_frequency,omitempty"`
	StockLevel           int             `json:"stock_level,omitempty"`
	ReorderPoint         int             `json:"reorder_point,omitempty"`
	LeadTime             string          `json:"lead_time,omitempty"`
}

// Entity is a typed node in the ontology graph. Exactly one of the
// kind-specific attribute pointers is non-nil, matching Kind. ParentID is
// empty for System entities and required for every other kind; the parent
// must be of Kind.ParentKind().
type Entity struct {
	ID          string `json:"id"`
	Kind        Kind   `json:"kind"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	ParentID    string `json:"parent_id,omitempty"`

	System    *SystemAttrs    `json:"system,omitempty"`
	Subsystem *SubsystemAttrs `json:"subsystem,omitempty"`
	Component *ComponentAttrs `json:"component,omitempty"`
	SparePart *SparePartAttrs `json:"spare_part,omitempty"`

	Specs    map[string]Specification `json:"specs,omitempty"`
	MediaRef string                   `json:"media_ref,omitempty"`
	Meta     Metadata                 `json:"meta"`
	Removed  bool                     `json:"removed,omitempty"`
}

// NewSystem creates a System entity with a fresh id.
func NewSystem(label string, attrs SystemAttrs) *Entity {
	return &Entity{
		ID:     NewEntityID(),
		Kind:   KindSystem,
		Label:  label,
		System: &attrs,
	}
}

// NewSubsystem creates a Subsystem entity with a fresh id.
func NewSubsystem(label, parentID string, attrs SubsystemAttrs) *Entity {
	return &Entity{
		ID:        NewEntityID(),
		Kind:      KindSubsystem,
		Label:     label,
		ParentID:  parentID,
		Subsystem: &attrs,
	}
}

// NewComponent creates a Component entity with a fresh id.
func NewComponent(label, parentID string, attrs ComponentAttrs) *Entity {
	return &Entity{
		ID:        NewEntityID(),
		Kind:      KindComponent,
		Label:     label,
		ParentID:  parentID,
		Component: &attrs,
	}
}

// NewSparePart creates a SparePart entity with a fresh id.
func NewSparePart(label, parentID string, attrs SparePartAttrs) *Entity {
	return &Entity{
		ID:        NewEntityID(),
		Kind:      KindSparePart,
		Label:     label,
		ParentID:  parentID,
		SparePart: &attrs,
	}
}

// PartNumber returns the kind-specific part number, or "" when the kind
// carries none.
func (e *Entity) PartNumber() string {
	switch e.Kind {
	case KindComponent:
		if e.Component != nil {
			return e.Component.PartNumber
		}
	case KindSparePart:
		if e.SparePart != nil {
			return e.SparePart.PartNumber
		}
	}
	return ""
}

// validateShape checks the tagged-union invariant: Kind is valid and
// exactly the matching attrs pointer is set.
func (e *Entity) validateShape() error {
	if !e.Kind.Valid() {
		return errInvalidKind(string(e.Kind))
	}

	set := 0
	if e.System != nil {
		set++
	}
	if e.Subsystem != nil {
		set++
	}
	if e.Component != nil {
		set++
	}
	if e.SparePart != nil {
		set++
	}
	if set != 1 {
		return errAttrsMismatch(e.Kind, set)
	}

	var match bool
	switch e.Kind {
	case KindSystem:
		match = e.System != nil
	case KindSubsystem:
		match = e.Subsystem != nil
	case KindComponent:
		match = e.Component != nil
	case KindSparePart:
		match = e.SparePart != nil
	}
	if !match {
		return errAttrsMismatch(e.Kind, set)
	}
	return nil
}

// clone returns a deep copy so query results never alias container state.
func (e *Entity) clone() *Entity {
	cp := *e
	if e.System != nil {
		a := *e.System
		cp.System = &a
	}
	if e.Subsystem != nil {
		a := *e.Subsystem
		cp.Subsystem = &a
	}
	if e.Component != nil {
		a := *e.Component
		cp.Component = &a
	}
	if e.SparePart != nil {
		a := *e.SparePart
		cp.SparePart = &a
	}
	if e.Specs != nil {
		cp.Specs = make(map[string]Specification, len(e.Specs))
		for k, v := range e.Specs {
			cp.Specs[k] = v
		}
	}
	cp.Meta.Tags = append([]string(nil), e.Meta.Tags...)
	cp.Meta.Reviews = append([]ReviewRecord(nil), e.Meta.Reviews...)
	return &cp
}
