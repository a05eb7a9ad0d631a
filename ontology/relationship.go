package ontology

// RelationType identifies a relationship type from the closed vocabulary.
type RelationType string

const (
	// Containment
	RelHasSubsystem RelationType = "has_subsystem"
	RelHasComponent RelationType = "has_component"
	RelHasSparePart RelationType = "has_spare_part"
	RelPartOf       RelationType = "part_of"

	// Functional
	RelControls     RelationType = "controls"
	RelControlledBy RelationType = "controlled_by"
	RelMonitors     RelationType = "monitors"
	RelMonitoredBy  RelationType = "monitored_by"
	RelRequires     RelationType = "requires"
	RelProvides     RelationType = "provides"

	// Causal
	RelCauses     RelationType = "causes"
	RelCausedBy   RelationType = "caused_by"
	RelAffects    RelationType = "affects"
	RelAffectedBy RelationType = "affected_by"

	// Spatial
	RelConnectedTo RelationType = "connected_to"
	RelAdjacentTo  RelationType = "adjacent_to"

	// Temporal
	RelPrecedes RelationType = "precedes"
	RelFollows  RelationType = "follows"
)

// KindPair is an allowed (source-kind, target-kind) combination for a
// relationship type.
type KindPair struct {
	Source Kind
	Target Kind
}

// TypeDef declares the static properties of a relationship type: which
// entity kinds it may connect, its registered inverse, and its algebraic
// flag defaults. Checked at construction, not left to runtime string
// comparison.
type TypeDef struct {
	Type        RelationType
	Inverse     RelationType // "" if no registered inverse
	Functional  bool         // a source has at most one target of this type
	Symmetric   bool         // A->B implies B->A
	Transitive  bool         // A->B, B->C implies A->C is inferable
	Irreflexive bool         // no self loops; with Transitive, no cycles at all
	Allowed     []KindPair   // empty means any kind combination
}

// anyToAny builds the full cross product of kinds for types that may
// connect entities at any level (causal, spatial, temporal).
func anyToAny() []KindPair {
	pairs := make([]KindPair, 0, len(Kinds)*len(Kinds))
	for _, s := range Kinds {
		for _, t := range Kinds {
			pairs = append(pairs, KindPair{s, t})
		}
	}
	return pairs
}

// functionalPairs restricts functional/monitoring types to subsystem and
// component level, where control loops live.
var functionalPairs = []KindPair{
	{KindSubsystem, KindSubsystem},
	{KindSubsystem, KindComponent},
	{KindComponent, KindSubsystem},
	{KindComponent, KindComponent},
}

// typeTable is the static compatibility table for the closed vocabulary.
// Containment types are transitive and irreflexive, which is what the
// container's cycle check keys on. part_of is functional: a child has
// exactly one parent.
var typeTable = map[RelationType]TypeDef{
	RelHasSubsystem: {
		Type: RelHasSubsystem, Inverse: RelPartOf, Transitive: true, Irreflexive: true,
		Allowed: []KindPair{{KindSystem, KindSubsystem}},
	},
	RelHasComponent: {
		Type: RelHasComponent, Inverse: RelPartOf, Transitive: true, Irreflexive: true,
		Allowed: []KindPair{{KindSubsystem, KindComponent}},
	},
	RelHasSparePart: {
		Type: RelHasSparePart, Inverse: RelPartOf, Transitive: true, Irreflexive: true,
		Allowed: []KindPair{{KindComponent, KindSparePart}},
	},
	RelPartOf: {
		Type: RelPartOf, Functional: true, Transitive: true, Irreflexive: true,
		Allowed: []KindPair{
			{KindSubsystem, KindSystem},
			{KindComponent, KindSubsystem},
			{KindSparePart, KindComponent},
		},
	},
	RelControls:     {Type: RelControls, Inverse: RelControlledBy, Allowed: functionalPairs},
	RelControlledBy: {Type: RelControlledBy, Inverse: RelControls, Allowed: functionalPairs},
	RelMonitors:     {Type: RelMonitors, Inverse: RelMonitoredBy, Allowed: functionalPairs},
	RelMonitoredBy:  {Type: RelMonitoredBy, Inverse: RelMonitors, Allowed: functionalPairs},
	RelRequires:     {Type: RelRequires, Inverse: RelProvides, Allowed: anyToAny()},
	RelProvides:     {Type: RelProvides, Inverse: RelRequires, Allowed: anyToAny()},
	RelCauses:       {Type: RelCauses, Inverse: RelCausedBy, Transitive: true, Allowed: anyToAny()},
	RelCausedBy:     {Type: RelCausedBy, Inverse: RelCauses, Transitive: true, Allowed: anyToAny()},
	RelAffects:      {Type: RelAffects, Inverse: RelAffectedBy, Allowed: anyToAny()},
	RelAffectedBy:   {Type: RelAffectedBy, Inverse: RelAffects, Allowed: anyToAny()},
	RelConnectedTo:  {Type: RelConnectedTo, Inverse: RelConnectedTo, Symmetric: true, Allowed: anyToAny()},
	RelAdjacentTo:   {Type: RelAdjacentTo, Inverse: RelAdjacentTo, Symmetric: true, Allowed: anyToAny()},
	RelPrecedes:     {Type: RelPrecedes, Inverse: RelFollows, Transitive: true, Irreflexive: true, Allowed: anyToAny()},
	RelFollows:      {Type: RelFollows, Inverse: RelPrecedes, Transitive: true, Irreflexive: true, Allowed: anyToAny()},
}

// Valid reports whether t is in the closed vocabulary.
func (t RelationType) Valid() bool {
	_, ok := typeTable[t]
	return ok
}

// Def returns the static definition for t.
func (t RelationType) Def() (TypeDef, bool) {
	def, ok := typeTable[t]
	return def, ok
}

// Inverse returns the registered inverse type, or "" if none.
func (t RelationType) Inverse() RelationType {
	return typeTable[t].Inverse
}

// AllowsKinds reports whether t may connect a source of kind src to a
// target of kind dst.
func (t RelationType) AllowsKinds(src, dst Kind) bool {
	def, ok := typeTable[t]
	if !ok {
		return false
	}
	for _, p := range def.Allowed {
		if p.Source == src && p.Target == dst {
			return true
		}
	}
	return false
}

// ContainmentType returns the has_* relationship type a parent of kind
// parentKind uses toward its children, or "" for leaf kinds.
func ContainmentType(parentKind Kind) RelationType {
	switch parentKind {
	case KindSystem:
		return RelHasSubsystem
	case KindSubsystem:
		return RelHasComponent
	case KindComponent:
		return RelHasSparePart
	}
	return ""
}

// IsContainment reports whether t is one of the has_* containment types.
func (t RelationType) IsContainment() bool {
	switch t {
	case RelHasSubsystem, RelHasComponent, RelHasSparePart:
		return true
	}
	return false
}

// Relationship is a directed, typed edge between two entity ids. The
// algebraic flags are copied from the type definition at construction so
// a stored edge remains self-describing in exports.
type Relationship struct {
	ID          string       `json:"id"`
	Type        RelationType `json:"type"`
	SourceID    string       `json:"source_id"`
	TargetID    string       `json:"target_id"`
	Description string       `json:"description,omitempty"`
	Functional  bool         `json:"functional"`
	Symmetric   bool         `json:"symmetric"`
	Transitive  bool         `json:"transitive"`
	Meta        Metadata     `json:"meta"`
	Removed     bool         `json:"removed,omitempty"`
}

// NewRelationship creates a relationship with a fresh id and flags from
// the type table.
func NewRelationship(t RelationType, sourceID, targetID string) *Relationship {
	def := typeTable[t]
	return &Relationship{
		ID:         NewRelationshipID(),
		Type:       t,
		SourceID:   sourceID,
		TargetID:   targetID,
		Functional: def.Functional,
		Symmetric:  def.Symmetric,
		Transitive: def.Transitive,
	}
}

// Key identifies a relationship by semantic identity (type + endpoints),
// the unit of merge-or-create in the builder.
func (r *Relationship) Key() string {
	return string(r.Type) + "|" + r.SourceID + "|" + r.TargetID
}

// clone returns a deep copy so query results never alias container state.
func (r *Relationship) clone() *Relationship {
	cp := *r
	cp.Meta.Tags = append([]string(nil), r.Meta.Tags...)
	cp.Meta.Reviews = append([]ReviewRecord(nil), r.Meta.Reviews...)
	return &cp
}
