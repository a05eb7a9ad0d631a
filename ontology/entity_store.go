package ontology

import (
	"sort"
	"time"

	"github.com/silvamed/ontoforge/errors"
)

// entityStore holds the entity nodes. It is not safe for concurrent use;
// the Container serializes access through its lock.
type entityStore struct {
	byID     map[string]*Entity
	children map[string][]string // parent id -> child ids, insertion order
	order    []string            // insertion order for deterministic dumps
}

func newEntityStore() *entityStore {
	return &entityStore{
		byID:     make(map[string]*Entity),
		children: make(map[string][]string),
	}
}

// insert stores e under its id. Fails with ErrDuplicateID when the id is
// already taken.
func (s *entityStore) insert(e *Entity) error {
	if _, exists := s.byID[e.ID]; exists {
		return errors.Wrapf(errors.ErrDuplicateID, "entity %s", e.ID)
	}
	s.byID[e.ID] = e
	s.order = append(s.order, e.ID)
	if e.ParentID != "" {
		s.children[e.ParentID] = append(s.children[e.ParentID], e.ID)
	}
	return nil
}

// get returns the live entity or nil.
func (s *entityStore) get(id string) *Entity {
	return s.byID[id]
}

// childrenOf returns the ids of direct children, in insertion order.
func (s *entityStore) childrenOf(id string) []string {
	return append([]string(nil), s.children[id]...)
}

// len returns the number of stored entities, including removed ones.
func (s *entityStore) len() int {
	return len(s.byID)
}

// all returns live pointers in insertion order. Callers must not expose
// them outside the lock without cloning.
func (s *entityStore) all() []*Entity {
	out := make([]*Entity, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// EntityPatch is a partial update for an entity. Nil fields are left
// untouched. Kind-specific attribute replacements must match the entity's
// kind.
type EntityPatch struct {
	Label       *string
	Description *string
	MediaRef    *string
	Confidence  *float64
	Tags        []string // replaces the tag set when non-nil
	Specs       map[string]Specification

	System    *SystemAttrs
	Subsystem *SubsystemAttrs
	Component *ComponentAttrs
	SparePart *SparePartAttrs
}

// updateFields applies patch to the entity with the given id, appending an
// audit record. An edit on a needs_revision item moves it back to
// pending_review. Fails with ErrNotFound if absent.
func (s *entityStore) updateFields(id string, patch EntityPatch, actorID string) error {
	e := s.byID[id]
	if e == nil {
		return errors.NewNotFound("entity %s", id)
	}
	if err := applyEntityPatch(e, patch); err != nil {
		return err
	}

	now := time.Now()
	e.Meta.ModifiedAt = now
	e.Meta.Reviews = append(e.Meta.Reviews, ReviewRecord{
		ExpertID:  actorID,
		Action:    ActionEdit,
		Comment:   "fields updated",
		Timestamp: now,
	})
	// An edited revision goes back into the review queue
	if e.Meta.Status == StatusNeedsRevision {
		e.Meta.Status = StatusPendingReview
	}
	return nil
}

// mergeFields applies patch and appends the caller-supplied audit records
// instead of the generic edit record. Used by builder merges, which record
// merge_duplicate and field_override actions.
func (s *entityStore) mergeFields(id string, patch EntityPatch, records []ReviewRecord) error {
	e := s.byID[id]
	if e == nil {
		return errors.NewNotFound("entity %s", id)
	}
	if err := applyEntityPatch(e, patch); err != nil {
		return err
	}

	now := time.Now()
	e.Meta.ModifiedAt = now
	for _, rec := range records {
		if rec.Timestamp.IsZero() {
			rec.Timestamp = now
		}
		e.Meta.Reviews = append(e.Meta.Reviews, rec)
	}
	return nil
}

func applyEntityPatch(e *Entity, patch EntityPatch) error {
	if patch.Label != nil {
		e.Label = *patch.Label
	}
	if patch.Description != nil {
		e.Description = *patch.Description
	}
	if patch.MediaRef != nil {
		e.MediaRef = *patch.MediaRef
	}
	if patch.Confidence != nil {
		if *patch.Confidence < 0 || *patch.Confidence > 1 {
			return errors.Newf("confidence must be in [0,1], got %f", *patch.Confidence)
		}
		e.Meta.Confidence = *patch.Confidence
	}
	if patch.Tags != nil {
		e.Meta.Tags = append([]string(nil), patch.Tags...)
	}
	for name, spec := range patch.Specs {
		if e.Specs == nil {
			e.Specs = make(map[string]Specification)
		}
		e.Specs[name] = spec
	}

	if patch.System != nil {
		if e.Kind != KindSystem {
			return errAttrsForWrongKind(e.Kind, KindSystem)
		}
		e.System = patch.System
	}
	if patch.Subsystem != nil {
		if e.Kind != KindSubsystem {
			return errAttrsForWrongKind(e.Kind, KindSubsystem)
		}
		e.Subsystem = patch.Subsystem
	}
	if patch.Component != nil {
		if e.Kind != KindComponent {
			return errAttrsForWrongKind(e.Kind, KindComponent)
		}
		e.Component = patch.Component
	}
	if patch.SparePart != nil {
		if e.Kind != KindSparePart {
			return errAttrsForWrongKind(e.Kind, KindSparePart)
		}
		e.SparePart = patch.SparePart
	}
	return nil
}

// remove flips the logical removed flag. Rejected or removed entities stay
// in the graph for auditability.
func (s *entityStore) remove(id, actorID, reason string) error {
	e := s.byID[id]
	if e == nil {
		return errors.NewNotFound("entity %s", id)
	}
	if e.Removed {
		return nil
	}
	now := time.Now()
	e.Removed = true
	e.Meta.ModifiedAt = now
	e.Meta.Reviews = append(e.Meta.Reviews, ReviewRecord{
		ExpertID:  actorID,
		Action:    ActionRemove,
		Comment:   reason,
		Timestamp: now,
	})
	return nil
}

// purge physically deletes an entity. Only used by explicit purge
// operations, never by the normal review flow.
func (s *entityStore) purge(id string) {
	e := s.byID[id]
	if e == nil {
		return
	}
	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if e.ParentID != "" {
		kids := s.children[e.ParentID]
		for i, kid := range kids {
			if kid == id {
				s.children[e.ParentID] = append(kids[:i], kids[i+1:]...)
				break
			}
		}
	}
	delete(s.children, id)
}

// sortedByCreation returns clones ordered by creation time, id as
// tiebreaker. This is the export projection ordering.
func (s *entityStore) sortedByCreation() []*Entity {
	out := make([]*Entity, 0, len(s.byID))
	for _, e := range s.byID {
		out = append(out, e.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Meta.CreatedAt.Equal(out[j].Meta.CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].Meta.CreatedAt.Before(out[j].Meta.CreatedAt)
	})
	return out
}

func errInvalidKind(kind string) error {
	return errors.NewInvariantViolation("unknown entity kind %q", kind)
}

func errAttrsMismatch(kind Kind, set int) error {
	return errors.NewInvariantViolation(
		"entity of kind %s must carry exactly its own attribute set (got %d attribute blocks)", kind, set)
}

func errAttrsForWrongKind(actual, patched Kind) error {
	return errors.NewInvariantViolation(
		"cannot apply %s attributes to a %s entity", patched, actual)
}
