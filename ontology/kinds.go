// Package ontology implements the typed knowledge graph at the heart of
// ontoforge: entities in a strict containment hierarchy
// (System > Subsystem > Component > SparePart), typed relationships with
// algebraic properties, the container that owns both, and the expert
// review state machine with its append-only audit trail.
package ontology

// Kind identifies the entity kind. The four kinds form a strict
// containment chain: System > Subsystem > Component > SparePart.
type Kind string

const (
	KindSystem    Kind = "system"
	KindSubsystem Kind = "subsystem"
	KindComponent Kind = "component"
	KindSparePart Kind = "spare_part"
)

// Kinds lists all entity kinds in containment order, root first.
var Kinds = []Kind{KindSystem, KindSubsystem, KindComponent, KindSparePart}

// Valid reports whether k is a known entity kind.
func (k Kind) Valid() bool {
	switch k {
	case KindSystem, KindSubsystem, KindComponent, KindSparePart:
		return true
	}
	return false
}

// ParentKind returns the required parent kind for k, or "" for the root kind.
func (k Kind) ParentKind() Kind {
	switch k {
	case KindSubsystem:
		return KindSystem
	case KindComponent:
		return KindSubsystem
	case KindSparePart:
		return KindComponent
	}
	return ""
}

// Depth returns the position of k in the containment chain, root = 0.
func (k Kind) Depth() int {
	switch k {
	case KindSystem:
		return 0
	case KindSubsystem:
		return 1
	case KindComponent:
		return 2
	case KindSparePart:
		return 3
	}
	return -1
}

// ValidationStatus is the review lifecycle state of an entity or relationship.
type ValidationStatus string

const (
	StatusNotValidated   ValidationStatus = "not_validated"
	StatusPendingReview  ValidationStatus = "pending_review"
	StatusExpertApproved ValidationStatus = "expert_approved"
	StatusExpertRejected ValidationStatus = "expert_rejected"
	StatusNeedsRevision  ValidationStatus = "needs_revision"
)

// Statuses lists all validation statuses.
var Statuses = []ValidationStatus{
	StatusNotValidated,
	StatusPendingReview,
	StatusExpertApproved,
	StatusExpertRejected,
	StatusNeedsRevision,
}

// Valid reports whether s is a known validation status.
func (s ValidationStatus) Valid() bool {
	switch s {
	case StatusNotValidated, StatusPendingReview, StatusExpertApproved,
		StatusExpertRejected, StatusNeedsRevision:
		return true
	}
	return false
}

// SystemType classifies top-level medical device systems.
type SystemType string

const (
	SystemLinac      SystemType = "linac"
	SystemCTScanner  SystemType = "ct_scanner"
	SystemMRI        SystemType = "mri"
	SystemUltrasound SystemType = "ultrasound"
	SystemXRay       SystemType = "xray"
	SystemGeneric    SystemType = "generic"
)

// Valid reports whether t is a known system type.
func (t SystemType) Valid() bool {
	switch t {
	case SystemLinac, SystemCTScanner, SystemMRI, SystemUltrasound,
		SystemXRay, SystemGeneric:
		return true
	}
	return false
}

// SubsystemType classifies subsystems. The first group is LINAC-specific,
// the second is generic across device families.
type SubsystemType string

const (
	SubsystemBeamDelivery       SubsystemType = "beam_delivery"
	SubsystemPatientPositioning SubsystemType = "patient_positioning"
	SubsystemImaging            SubsystemType = "imaging"
	SubsystemTreatmentControl   SubsystemType = "treatment_control"
	SubsystemSafetyInterlock    SubsystemType = "safety_interlock"
	SubsystemCooling            SubsystemType = "cooling"
	SubsystemPowerSupply        SubsystemType = "power_supply"

	SubsystemMechanical SubsystemType = "mechanical"
	SubsystemElectrical SubsystemType = "electrical"
	SubsystemSoftware   SubsystemType = "software"
	SubsystemHydraulic  SubsystemType = "hydraulic"
	SubsystemPneumatic  SubsystemType = "pneumatic"
)

// Valid reports whether t is a known subsystem type.
func (t SubsystemType) Valid() bool {
	switch t {
	case SubsystemBeamDelivery, SubsystemPatientPositioning, SubsystemImaging,
		SubsystemTreatmentControl, SubsystemSafetyInterlock, SubsystemCooling,
		SubsystemPowerSupply, SubsystemMechanical, SubsystemElectrical,
		SubsystemSoftware, SubsystemHydraulic, SubsystemPneumatic:
		return true
	}
	return false
}

// LifecycleStatus tracks component and spare-part availability.
type LifecycleStatus string

const (
	LifecycleActive       LifecycleStatus = "active"
	LifecycleDeprecated   LifecycleStatus = "deprecated"
	LifecycleObsolete     LifecycleStatus = "obsolete"
	LifecycleAvailable    LifecycleStatus = "available"
	LifecycleDiscontinued LifecycleStatus = "discontinued"
)
