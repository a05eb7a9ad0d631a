package ontology

import (
	"sort"
	"time"

	"github.com/silvamed/ontoforge/errors"
)

// relationshipStore holds the typed edges. Not safe for concurrent use;
// the Container serializes access through its lock.
type relationshipStore struct {
	byID     map[string]*Relationship
	byKey    map[string]string   // type|source|target -> id
	bySource map[string][]string // source id -> relationship ids
	byTarget map[string][]string // target id -> relationship ids
	order    []string
}

func newRelationshipStore() *relationshipStore {
	return &relationshipStore{
		byID:     make(map[string]*Relationship),
		byKey:    make(map[string]string),
		bySource: make(map[string][]string),
		byTarget: make(map[string][]string),
	}
}

// insert stores r. Fails with ErrDuplicateID when either the id or the
// (type, source, target) identity is already present.
func (s *relationshipStore) insert(r *Relationship) error {
	if _, exists := s.byID[r.ID]; exists {
		return errors.Wrapf(errors.ErrDuplicateID, "relationship %s", r.ID)
	}
	if existing, exists := s.byKey[r.Key()]; exists {
		return errors.Wrapf(errors.ErrDuplicateID,
			"relationship %s %s -> %s already stored as %s",
			r.Type, r.SourceID, r.TargetID, existing)
	}
	s.byID[r.ID] = r
	s.byKey[r.Key()] = r.ID
	s.bySource[r.SourceID] = append(s.bySource[r.SourceID], r.ID)
	s.byTarget[r.TargetID] = append(s.byTarget[r.TargetID], r.ID)
	s.order = append(s.order, r.ID)
	return nil
}

// get returns the live relationship or nil.
func (s *relationshipStore) get(id string) *Relationship {
	return s.byID[id]
}

// getByKey returns the relationship with the given semantic identity, or nil.
func (s *relationshipStore) getByKey(t RelationType, sourceID, targetID string) *Relationship {
	id, ok := s.byKey[string(t)+"|"+sourceID+"|"+targetID]
	if !ok {
		return nil
	}
	return s.byID[id]
}

// outgoing returns live relationships with the given source.
func (s *relationshipStore) outgoing(sourceID string) []*Relationship {
	out := make([]*Relationship, 0, len(s.bySource[sourceID]))
	for _, id := range s.bySource[sourceID] {
		out = append(out, s.byID[id])
	}
	return out
}

// incoming returns live relationships with the given target.
func (s *relationshipStore) incoming(targetID string) []*Relationship {
	out := make([]*Relationship, 0, len(s.byTarget[targetID]))
	for _, id := range s.byTarget[targetID] {
		out = append(out, s.byID[id])
	}
	return out
}

// len returns the number of stored relationships, including removed ones.
func (s *relationshipStore) len() int {
	return len(s.byID)
}

// all returns live pointers in insertion order.
func (s *relationshipStore) all() []*Relationship {
	out := make([]*Relationship, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// RelationshipPatch is a partial update for a relationship.
type RelationshipPatch struct {
	Description *string
	Confidence  *float64
	Tags        []string
}

// updateFields applies patch, appending an audit record. Fails with
// ErrNotFound if absent.
func (s *relationshipStore) updateFields(id string, patch RelationshipPatch, actorID string) error {
	r := s.byID[id]
	if r == nil {
		return errors.NewNotFound("relationship %s", id)
	}
	if err := applyRelationshipPatch(r, patch); err != nil {
		return err
	}

	now := time.Now()
	r.Meta.ModifiedAt = now
	r.Meta.Reviews = append(r.Meta.Reviews, ReviewRecord{
		ExpertID:  actorID,
		Action:    ActionEdit,
		Comment:   "fields updated",
		Timestamp: now,
	})
	if r.Meta.Status == StatusNeedsRevision {
		r.Meta.Status = StatusPendingReview
	}
	return nil
}

// mergeFields applies patch and appends the caller-supplied audit records.
func (s *relationshipStore) mergeFields(id string, patch RelationshipPatch, records []ReviewRecord) error {
	r := s.byID[id]
	if r == nil {
		return errors.NewNotFound("relationship %s", id)
	}
	if err := applyRelationshipPatch(r, patch); err != nil {
		return err
	}

	now := time.Now()
	r.Meta.ModifiedAt = now
	for _, rec := range records {
		if rec.Timestamp.IsZero() {
			rec.Timestamp = now
		}
		r.Meta.Reviews = append(r.Meta.Reviews, rec)
	}
	return nil
}

func applyRelationshipPatch(r *Relationship, patch RelationshipPatch) error {
	if patch.Description != nil {
		r.Description = *patch.Description
	}
	if patch.Confidence != nil {
		if *patch.Confidence < 0 || *patch.Confidence > 1 {
			return errors.Newf("confidence must be in [0,1], got %f", *patch.Confidence)
		}
		r.Meta.Confidence = *patch.Confidence
	}
	if patch.Tags != nil {
		r.Meta.Tags = append([]string(nil), patch.Tags...)
	}
	return nil
}

// remove flips the logical removed flag.
func (s *relationshipStore) remove(id, actorID, reason string) error {
	r := s.byID[id]
	if r == nil {
		return errors.NewNotFound("relationship %s", id)
	}
	if r.Removed {
		return nil
	}
	now := time.Now()
	r.Removed = true
	r.Meta.ModifiedAt = now
	r.Meta.Reviews = append(r.Meta.Reviews, ReviewRecord{
		ExpertID:  actorID,
		Action:    ActionRemove,
		Comment:   reason,
		Timestamp: now,
	})
	return nil
}

// purge physically deletes a relationship. Only used by explicit purge
// operations, never by the normal review flow.
func (s *relationshipStore) purge(id string) {
	r := s.byID[id]
	if r == nil {
		return
	}
	delete(s.byID, id)
	delete(s.byKey, r.Key())
	s.bySource[r.SourceID] = removeID(s.bySource[r.SourceID], id)
	s.byTarget[r.TargetID] = removeID(s.byTarget[r.TargetID], id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// sortedByCreation returns clones ordered by creation time, id as
// tiebreaker. This is the export projection ordering.
func (s *relationshipStore) sortedByCreation() []*Relationship {
	out := make([]*Relationship, 0, len(s.byID))
	for _, r := range s.byID {
		out = append(out, r.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Meta.CreatedAt.Equal(out[j].Meta.CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].Meta.CreatedAt.Before(out[j].Meta.CreatedAt)
	})
	return out
}
