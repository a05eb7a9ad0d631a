package ontology

import (
	"sort"

	"github.com/silvamed/ontoforge/errors"
)

// Snapshot is the flat, ordered export projection of a container:
// all entities first, then all relationships, each ordered by creation
// time. It carries everything (attributes, flags, statuses, audit trails)
// an external serializer needs to emit OWL, RDF or JSON-LD, without
// committing to a wire format. The same shape round-trips through
// Restore, replayed through the runtime invariant checks.
type Snapshot struct {
	Entities      []*Entity       `json:"entities"`
	Relationships []*Relationship `json:"relationships"`
}

// Snapshot produces the export dump of the container, removed items
// included: rejected and removed knowledge stays auditable.
func (c *Container) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return &Snapshot{
		Entities:      c.entities.sortedByCreation(),
		Relationships: c.relationships.sortedByCreation(),
	}
}

// Restore rebuilds container state from a snapshot, replaying every
// entity and relationship through the same invariant checks used at
// runtime. Entities are inserted in containment order (root kinds first)
// so parents always precede children regardless of snapshot ordering.
// The container must be empty.
func (c *Container) Restore(snap *Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entities.len() > 0 || c.relationships.len() > 0 {
		return errors.New("restore requires an empty container")
	}

	entities := append([]*Entity(nil), snap.Entities...)
	sort.SliceStable(entities, func(i, j int) bool {
		return entities[i].Kind.Depth() < entities[j].Kind.Depth()
	})

	for _, e := range entities {
		// Containment edges come from the snapshot itself
		if _, err := c.addEntityLocked(e.clone(), false); err != nil {
			return errors.Wrapf(err, "restore entity %s", e.ID)
		}
	}
	for _, r := range snap.Relationships {
		if _, err := c.addRelationshipLocked(r.clone()); err != nil {
			return errors.Wrapf(err, "restore relationship %s", r.ID)
		}
	}

	c.log.Infow("Container restored from snapshot",
		"entities", len(snap.Entities),
		"relationships", len(snap.Relationships),
	)
	return nil
}
