package ontology

import (
	"time"

	"github.com/silvamed/ontoforge/errors"
)

// ReviewAction is an expert action against an entity or relationship.
type ReviewAction string

const (
	ActionApprove            ReviewAction = "approve"
	ActionReject             ReviewAction = "reject"
	ActionRequestRevision    ReviewAction = "request_revision"
	ActionReopen             ReviewAction = "reopen"
	ActionComment            ReviewAction = "comment"
	ActionConfidenceOverride ReviewAction = "confidence_override"

	// Recorded by the builder, not by experts
	ActionMergeDuplicate ReviewAction = "merge_duplicate"
	ActionFieldOverride  ReviewAction = "field_override"
	ActionEdit           ReviewAction = "edit"
	ActionRemove         ReviewAction = "remove"
)

// ReviewRecord is one immutable entry in the audit trail.
type ReviewRecord struct {
	ExpertID  string       `json:"expert_id"`
	Action    ReviewAction `json:"action"`
	Comment   string       `json:"comment,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// statusAfter maps a status-changing action to the resulting status.
var statusAfter = map[ReviewAction]ValidationStatus{
	ActionApprove:         StatusExpertApproved,
	ActionReject:          StatusExpertRejected,
	ActionRequestRevision: StatusNeedsRevision,
	ActionReopen:          StatusPendingReview,
}

// allowedFrom lists the statuses each status-changing action may start
// from. Approve and reject remain available on terminal states: nothing is
// permanently locked, an approved entity can still be rejected later.
// not_validated items must be reopened into pending_review first.
var allowedFrom = map[ReviewAction][]ValidationStatus{
	ActionApprove: {
		StatusPendingReview, StatusNeedsRevision,
		StatusExpertApproved, StatusExpertRejected,
	},
	ActionReject: {
		StatusPendingReview, StatusNeedsRevision,
		StatusExpertApproved, StatusExpertRejected,
	},
	ActionRequestRevision: {
		StatusPendingReview, StatusExpertApproved, StatusExpertRejected,
	},
	ActionReopen: {
		StatusNotValidated, StatusPendingReview, StatusNeedsRevision,
		StatusExpertApproved, StatusExpertRejected,
	},
}

// transitionAllowed reports whether action may be applied at status.
// Comment and confidence_override never change status and are always
// allowed.
func transitionAllowed(status ValidationStatus, action ReviewAction) bool {
	if action == ActionComment || action == ActionConfidenceOverride {
		return true
	}
	from, ok := allowedFrom[action]
	if !ok {
		return false
	}
	for _, s := range from {
		if s == status {
			return true
		}
	}
	return false
}

// TransitionResult reports the outcome of one item in a bulk transition.
type TransitionResult struct {
	ID     string           `json:"id"`
	Status ValidationStatus `json:"status,omitempty"`
	Err    error            `json:"-"`
	Error  string           `json:"error,omitempty"`
}

// Transition applies an expert review action to the entity or relationship
// with the given id. Every transition requires an actor and a comment; the
// audit record is appended atomically with the status change under the
// container's write lock.
func (c *Container) Transition(id string, action ReviewAction, expertID, comment string) (ValidationStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transitionLocked(id, action, expertID, comment, 0)
}

// OverrideConfidence applies an expert confidence override, recording the
// old and new values in the audit trail.
func (c *Container) OverrideConfidence(id string, confidence float64, expertID, comment string) error {
	if confidence < 0 || confidence > 1 {
		return errors.Newf("confidence must be in [0,1], got %f", confidence)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.transitionLocked(id, ActionConfidenceOverride, expertID, comment, confidence)
	return err
}

func (c *Container) transitionLocked(id string, action ReviewAction, expertID, comment string, confidence float64) (ValidationStatus, error) {
	if expertID == "" {
		return "", errors.New("transition requires an expert id")
	}
	if comment == "" {
		return "", errors.New("transition requires a comment")
	}

	meta := c.metaOf(id)
	if meta == nil {
		return "", errors.NewNotFound("no entity or relationship %s", id)
	}

	if !transitionAllowed(meta.Status, action) {
		return "", errors.Wrapf(errors.ErrInvalidTransition,
			"%s not allowed from %s", action, meta.Status)
	}

	now := time.Now()
	meta.Reviews = append(meta.Reviews, ReviewRecord{
		ExpertID:  expertID,
		Action:    action,
		Comment:   comment,
		Timestamp: now,
	})
	if next, ok := statusAfter[action]; ok {
		meta.Status = next
	}
	if action == ActionConfidenceOverride {
		meta.Confidence = confidence
	}
	meta.ModifiedAt = now

	c.log.Debugw("Review transition applied",
		"id", id,
		"action", action,
		"expert", expertID,
		"status", meta.Status,
	)
	return meta.Status, nil
}

// BulkTransition applies the same transition to many ids. Each item is
// atomic on its own; a failure on one item does not roll back the others.
func (c *Container) BulkTransition(ids []string, action ReviewAction, expertID, comment string) []TransitionResult {
	results := make([]TransitionResult, 0, len(ids))
	for _, id := range ids {
		status, err := c.Transition(id, action, expertID, comment)
		res := TransitionResult{ID: id, Status: status, Err: err}
		if err != nil {
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	return results
}

// ReviewHistory returns a copy of the audit trail for id, oldest first.
func (c *Container) ReviewHistory(id string) ([]ReviewRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	meta := c.metaOf(id)
	if meta == nil {
		return nil, errors.NewNotFound("no entity or relationship %s", id)
	}
	return append([]ReviewRecord(nil), meta.Reviews...), nil
}

// metaOf returns the live metadata for an entity or relationship id.
// Callers must hold the lock.
func (c *Container) metaOf(id string) *Metadata {
	if e := c.entities.get(id); e != nil {
		return &e.Meta
	}
	if r := c.relationships.get(id); r != nil {
		return &r.Meta
	}
	return nil
}
