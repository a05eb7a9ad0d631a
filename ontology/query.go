package ontology

import "strings"

// Filter selects entities by pure predicates over kind, status,
// confidence, tags and label. A zero Filter matches every non-removed
// entity. Filters never mutate anything and can be re-run against later
// snapshots.
type Filter struct {
	Kinds          []Kind
	Statuses       []ValidationStatus
	MinConfidence  *float64
	MaxConfidence  *float64
	Tags           []string // entity must carry every listed tag
	LabelContains  string   // case-insensitive substring
	IncludeRemoved bool

	// Pagination for the review UI. Zero Limit means no limit.
	Offset int
	Limit  int
}

func (f *Filter) matches(e *Entity) bool {
	if e.Removed && !f.IncludeRemoved {
		return false
	}
	if len(f.Kinds) > 0 && !containsKind(f.Kinds, e.Kind) {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, e.Meta.Status) {
		return false
	}
	if f.MinConfidence != nil && e.Meta.Confidence < *f.MinConfidence {
		return false
	}
	if f.MaxConfidence != nil && e.Meta.Confidence > *f.MaxConfidence {
		return false
	}
	for _, tag := range f.Tags {
		if !e.Meta.HasTag(tag) {
			return false
		}
	}
	if f.LabelContains != "" &&
		!strings.Contains(strings.ToLower(e.Label), strings.ToLower(f.LabelContains)) {
		return false
	}
	return true
}

func containsKind(kinds []Kind, k Kind) bool {
	for _, kk := range kinds {
		if kk == k {
			return true
		}
	}
	return false
}

func containsStatus(statuses []ValidationStatus, s ValidationStatus) bool {
	for _, ss := range statuses {
		if ss == s {
			return true
		}
	}
	return false
}

// Query returns copies of entities matching the filter, in insertion
// order. Results are fully materialized under the read lock so callers
// observe a consistent snapshot.
func (c *Container) Query(f Filter) []*Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*Entity
	skipped := 0
	for _, e := range c.entities.all() {
		if !f.matches(e) {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		out = append(out, e.clone())
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out
}

// Direction selects relationship orientation relative to an entity.
type Direction int

const (
	DirectionOutgoing Direction = iota
	DirectionIncoming
	DirectionBoth
)

// RelationshipsOf returns copies of the non-removed relationships touching
// the entity in the given direction.
func (c *Container) RelationshipsOf(id string, dir Direction) []*Relationship {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*Relationship
	appendLive := func(rels []*Relationship) {
		for _, r := range rels {
			if !r.Removed {
				out = append(out, r.clone())
			}
		}
	}

	switch dir {
	case DirectionOutgoing:
		appendLive(c.relationships.outgoing(id))
	case DirectionIncoming:
		appendLive(c.relationships.incoming(id))
	case DirectionBoth:
		appendLive(c.relationships.outgoing(id))
		for _, r := range c.relationships.incoming(id) {
			if !r.Removed && r.SourceID != r.TargetID {
				out = append(out, r.clone())
			}
		}
	}
	return out
}

// Statistics summarizes the container for dashboards and merge reports.
type Statistics struct {
	TotalEntities      int                      `json:"total_entities"`
	TotalRelationships int                      `json:"total_relationships"`
	EntitiesByKind     map[Kind]int             `json:"entities_by_kind"`
	RelationshipsByType map[RelationType]int    `json:"relationships_by_type"`
	StatusHistogram    map[ValidationStatus]int `json:"status_histogram"`
	AverageConfidence  float64                  `json:"average_confidence"`
	RemovedEntities    int                      `json:"removed_entities"`
}

// Statistics computes counts by kind, type and validation status over the
// non-removed population.
func (c *Container) Statistics() Statistics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := Statistics{
		EntitiesByKind:      make(map[Kind]int),
		RelationshipsByType: make(map[RelationType]int),
		StatusHistogram:     make(map[ValidationStatus]int),
	}

	var confidenceSum float64
	for _, e := range c.entities.all() {
		if e.Removed {
			stats.RemovedEntities++
			continue
		}
		stats.TotalEntities++
		stats.EntitiesByKind[e.Kind]++
		stats.StatusHistogram[e.Meta.Status]++
		confidenceSum += e.Meta.Confidence
	}
	for _, r := range c.relationships.all() {
		if r.Removed {
			continue
		}
		stats.TotalRelationships++
		stats.RelationshipsByType[r.Type]++
	}
	if stats.TotalEntities > 0 {
		stats.AverageConfidence = confidenceSum / float64(stats.TotalEntities)
	}
	return stats
}
