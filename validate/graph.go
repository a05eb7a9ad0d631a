package validate

import (
	"github.com/silvamed/ontoforge/ontology"
)

// Graph is the read-only view a validation run works against: one
// consistent snapshot of the container, indexed for rule checks. Removed
// items are kept (rules reason about them explicitly); rules never see
// the live container, so a run can never mutate it.
type Graph struct {
	Entities      []*ontology.Entity
	Relationships []*ontology.Relationship

	byID     map[string]*ontology.Entity
	outgoing map[string][]*ontology.Relationship
	byKey    map[string]*ontology.Relationship
}

func newGraph(snap *ontology.Snapshot) *Graph {
	g := &Graph{
		Entities:      snap.Entities,
		Relationships: snap.Relationships,
		byID:          make(map[string]*ontology.Entity, len(snap.Entities)),
		outgoing:      make(map[string][]*ontology.Relationship),
		byKey:         make(map[string]*ontology.Relationship, len(snap.Relationships)),
	}
	for _, e := range snap.Entities {
		g.byID[e.ID] = e
	}
	for _, r := range snap.Relationships {
		if r.Removed {
			continue
		}
		g.outgoing[r.SourceID] = append(g.outgoing[r.SourceID], r)
		g.byKey[r.Key()] = r
	}
	return g
}

// Entity returns the snapshotted entity with the given id, or nil.
func (g *Graph) Entity(id string) *ontology.Entity {
	return g.byID[id]
}

// Outgoing returns the live (non-removed) edges with the given source.
func (g *Graph) Outgoing(sourceID string) []*ontology.Relationship {
	return g.outgoing[sourceID]
}

// HasEdge reports whether a live edge with the given semantic identity
// exists in the snapshot.
func (g *Graph) HasEdge(t ontology.RelationType, sourceID, targetID string) bool {
	_, ok := g.byKey[string(t)+"|"+sourceID+"|"+targetID]
	return ok
}
