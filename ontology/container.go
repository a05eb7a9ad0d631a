package ontology

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/silvamed/ontoforge/errors"
	"github.com/silvamed/ontoforge/logger"
)

// Options configures container behavior.
type Options struct {
	// AutoCreateInverse creates the inverse edge whenever a relationship
	// with a registered inverse is added. Default false: the missing
	// inverse is surfaced as a validator suggestion instead, so expert
	// review queues are not silently doubled.
	AutoCreateInverse bool
}

// Container owns the full set of entities and relationships as a single
// consistent snapshot. All mutations are serialized through the write
// lock; reads run concurrently and observe either fully-before or
// fully-after a given write, never a partial mutation.
type Container struct {
	mu            sync.RWMutex
	entities      *entityStore
	relationships *relationshipStore
	opts          Options
	log           *zap.SugaredLogger
}

// New creates an empty container.
func New(opts Options) *Container {
	return &Container{
		entities:      newEntityStore(),
		relationships: newRelationshipStore(),
		opts:          opts,
		log:           logger.Named("ontology"),
	}
}

// AddEntity validates and stores an entity, synthesizing the containment
// relationship from its parent reference so the parent pointer and the
// has_* edge can never disagree. Returns the assigned id.
//
// Rejections (invariant violations) are recoverable by the caller fixing
// the input: invalid kind shape, missing or wrong-kind parent, duplicate
// id.
func (c *Container) AddEntity(e *Entity) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addEntityLocked(e, true)
}

func (c *Container) addEntityLocked(e *Entity, synthesizeContainment bool) (string, error) {
	if e == nil {
		return "", errors.AssertionFailedf("nil entity")
	}
	if err := e.validateShape(); err != nil {
		return "", err
	}

	parentKind := e.Kind.ParentKind()
	if parentKind == "" {
		if e.ParentID != "" {
			return "", errors.NewInvariantViolation(
				"system %q must not declare a parent", e.Label)
		}
	} else {
		if e.ParentID == "" {
			return "", errors.NewInvariantViolation(
				"%s %q requires a parent %s", e.Kind, e.Label, parentKind)
		}
		parent := c.entities.get(e.ParentID)
		if parent == nil {
			return "", errors.Wrapf(errors.ErrOrphanReference,
				"%s %q references missing parent %s", e.Kind, e.Label, e.ParentID)
		}
		if parent.Kind != parentKind {
			return "", errors.NewInvariantViolation(
				"%s %q requires a %s parent, got %s %s",
				e.Kind, e.Label, parentKind, parent.Kind, parent.ID)
		}
	}

	if e.ID == "" {
		e.ID = NewEntityID()
	}

	now := time.Now()
	if e.Meta.CreatedAt.IsZero() {
		e.Meta.CreatedAt = now
	}
	if e.Meta.ModifiedAt.IsZero() {
		e.Meta.ModifiedAt = now
	}
	if e.Meta.Status == "" {
		e.Meta.Status = StatusNotValidated
	}

	if err := c.entities.insert(e); err != nil {
		return "", err
	}

	if synthesizeContainment && e.ParentID != "" {
		rel := NewRelationship(ContainmentType(parentKind), e.ParentID, e.ID)
		rel.Meta.Confidence = e.Meta.Confidence
		rel.Meta.Status = e.Meta.Status
		rel.Description = "containment synthesized from parent reference"
		if _, err := c.addRelationshipLocked(rel); err != nil {
			// Containment of a freshly inserted child cannot collide or
			// cycle; any failure here is a programming error.
			c.entities.purge(e.ID)
			return "", errors.Wrap(err, "synthesize containment")
		}
	}

	c.log.Debugw("Entity added",
		"id", e.ID,
		"kind", e.Kind,
		"label", e.Label,
		"status", e.Meta.Status,
	)
	return e.ID, nil
}

// AddRelationship validates and stores a typed edge. Rejects missing
// endpoints, (type, source-kind, target-kind) triples outside the
// compatibility table, duplicates of the same semantic identity, second
// outgoing edges of a functional type, and edges that would close a cycle
// in a transitive irreflexive type.
func (c *Container) AddRelationship(r *Relationship) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addRelationshipLocked(r)
}

func (c *Container) addRelationshipLocked(r *Relationship) (string, error) {
	if r == nil {
		return "", errors.AssertionFailedf("nil relationship")
	}
	def, ok := r.Type.Def()
	if !ok {
		return "", errors.NewInvariantViolation("unknown relationship type %q", r.Type)
	}

	source := c.entities.get(r.SourceID)
	if source == nil {
		return "", errors.Wrapf(errors.ErrOrphanReference,
			"relationship %s references missing source %s", r.Type, r.SourceID)
	}
	target := c.entities.get(r.TargetID)
	if target == nil {
		return "", errors.Wrapf(errors.ErrOrphanReference,
			"relationship %s references missing target %s", r.Type, r.TargetID)
	}

	if !r.Type.AllowsKinds(source.Kind, target.Kind) {
		return "", errors.NewInvariantViolation(
			"%s may not connect %s to %s", r.Type, source.Kind, target.Kind)
	}

	if def.Irreflexive && r.SourceID == r.TargetID {
		return "", errors.NewInvariantViolation(
			"%s is irreflexive, self reference on %s rejected", r.Type, r.SourceID)
	}

	// Removed edges replayed from a snapshot no longer constrain the
	// live graph, so functional and cycle checks only apply to live ones.
	if def.Functional && !r.Removed {
		for _, existing := range c.relationships.outgoing(r.SourceID) {
			if existing.Type == r.Type && !existing.Removed {
				return "", errors.NewInvariantViolation(
					"%s is functional, source %s already has %s", r.Type, r.SourceID, existing.ID)
			}
		}
	}

	if def.Transitive && def.Irreflexive && !r.Removed &&
		c.wouldCreateCycle(r.Type, r.SourceID, r.TargetID) {
		return "", errors.NewInvariantViolation(
			"adding %s %s -> %s would create a cycle", r.Type, r.SourceID, r.TargetID)
	}

	// Agreement between parent references and has_* edges: a containment
	// edge is only valid when it matches the child's parent pointer.
	if r.Type.IsContainment() && target.ParentID != r.SourceID {
		return "", errors.NewInvariantViolation(
			"%s %s -> %s contradicts parent reference %s of %s",
			r.Type, r.SourceID, r.TargetID, target.ParentID, r.TargetID)
	}

	if r.ID == "" {
		r.ID = NewRelationshipID()
	}
	now := time.Now()
	if r.Meta.CreatedAt.IsZero() {
		r.Meta.CreatedAt = now
	}
	if r.Meta.ModifiedAt.IsZero() {
		r.Meta.ModifiedAt = now
	}
	if r.Meta.Status == "" {
		r.Meta.Status = StatusNotValidated
	}
	r.Functional = def.Functional
	r.Symmetric = def.Symmetric
	r.Transitive = def.Transitive

	if err := c.relationships.insert(r); err != nil {
		return "", err
	}

	if c.opts.AutoCreateInverse && def.Inverse != "" && !r.Type.IsContainment() {
		if c.relationships.getByKey(def.Inverse, r.TargetID, r.SourceID) == nil {
			inv := NewRelationship(def.Inverse, r.TargetID, r.SourceID)
			inv.Meta.Confidence = r.Meta.Confidence
			inv.Meta.Status = r.Meta.Status
			inv.Description = "auto-created inverse of " + r.ID
			if err := c.relationships.insert(inv); err != nil {
				c.log.Warnw("Failed to auto-create inverse edge",
					"relationship", r.ID,
					"inverse_type", def.Inverse,
					"error", err,
				)
			}
		}
	}

	c.log.Debugw("Relationship added",
		"id", r.ID,
		"type", r.Type,
		"source", r.SourceID,
		"target", r.TargetID,
	)
	return r.ID, nil
}

// wouldCreateCycle reports whether source is reachable from target over
// edges of the given type. Callers must hold the lock.
func (c *Container) wouldCreateCycle(t RelationType, sourceID, targetID string) bool {
	seen := make(map[string]bool)
	stack := []string{targetID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == sourceID {
			return true
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		for _, rel := range c.relationships.outgoing(id) {
			if rel.Type == t && !rel.Removed {
				stack = append(stack, rel.TargetID)
			}
		}
	}
	return false
}

// Entity returns a copy of the entity with the given id.
func (c *Container) Entity(id string) (*Entity, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e := c.entities.get(id)
	if e == nil {
		return nil, errors.NewNotFound("entity %s", id)
	}
	return e.clone(), nil
}

// Relationship returns a copy of the relationship with the given id.
func (c *Container) Relationship(id string) (*Relationship, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r := c.relationships.get(id)
	if r == nil {
		return nil, errors.NewNotFound("relationship %s", id)
	}
	return r.clone(), nil
}

// ChildrenOf returns the ids of direct children of the given entity.
func (c *Container) ChildrenOf(id string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entities.childrenOf(id)
}

// UpdateEntity applies a partial update through the container's single
// mutation path.
func (c *Container) UpdateEntity(id string, patch EntityPatch, actorID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entities.updateFields(id, patch, actorID)
}

// UpdateRelationship applies a partial update to a relationship.
func (c *Container) UpdateRelationship(id string, patch RelationshipPatch, actorID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.relationships.updateFields(id, patch, actorID)
}

// MergeEntity applies a builder merge: the patch and its audit records
// (merge_duplicate, field_override) land atomically under one write lock.
func (c *Container) MergeEntity(id string, patch EntityPatch, records ...ReviewRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entities.mergeFields(id, patch, records)
}

// MergeRelationship applies a builder merge to a relationship.
func (c *Container) MergeRelationship(id string, patch RelationshipPatch, records ...ReviewRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.relationships.mergeFields(id, patch, records)
}

// RelationshipByKey returns a copy of the relationship with the given
// semantic identity, or nil when no such edge is stored.
func (c *Container) RelationshipByKey(t RelationType, sourceID, targetID string) *Relationship {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r := c.relationships.getByKey(t, sourceID, targetID)
	if r == nil {
		return nil
	}
	return r.clone()
}

// RemoveEntity flips the logical removed flag. The entity stays in the
// graph for auditability; the validator flags children left behind.
func (c *Container) RemoveEntity(id, actorID, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entities.remove(id, actorID, reason)
}

// RemoveRelationship flips the logical removed flag on a relationship.
func (c *Container) RemoveRelationship(id, actorID, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.relationships.remove(id, actorID, reason)
}

// Purge physically deletes everything previously removed logically. An
// entity is purgeable when it is removed and every child below it is
// purgeable too: a removed subsystem with a live component stays. Edges
// touching a purged entity go with it, whatever their own removed flag,
// so referential integrity holds afterwards. Returns counts of purged
// entities and relationships.
func (c *Container) Purge() (entities, relationships int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Purgeable set, computed leaves-first.
	purgeable := make(map[string]bool)
	for {
		grew := false
		for _, e := range c.entities.all() {
			if !e.Removed || purgeable[e.ID] {
				continue
			}
			blocked := false
			for _, kid := range c.entities.children[e.ID] {
				if !purgeable[kid] {
					blocked = true
					break
				}
			}
			if !blocked {
				purgeable[e.ID] = true
				grew = true
			}
		}
		if !grew {
			break
		}
	}

	for _, r := range c.relationships.all() {
		if r.Removed || purgeable[r.SourceID] || purgeable[r.TargetID] {
			c.relationships.purge(r.ID)
			relationships++
		}
	}

	for id := range purgeable {
		// Children are in the set too; deletion order does not matter once
		// the edges are gone.
		c.entities.purge(id)
		entities++
	}

	c.log.Infow("Purged removed items",
		"entities", entities,
		"relationships", relationships,
	)
	return entities, relationships
}

// ResolveEntityByLabel returns copies of non-removed entities of the given
// kind, matching label exactly. Used by identity resolution and the CLI.
func (c *Container) ResolveEntityByLabel(kind Kind, label string) []*Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*Entity
	for _, e := range c.entities.all() {
		if e.Kind == kind && !e.Removed && e.Label == label {
			out = append(out, e.clone())
		}
	}
	return out
}

// EntitiesOfKind returns copies of all non-removed entities of a kind.
func (c *Container) EntitiesOfKind(kind Kind) []*Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*Entity
	for _, e := range c.entities.all() {
		if e.Kind == kind && !e.Removed {
			out = append(out, e.clone())
		}
	}
	return out
}
