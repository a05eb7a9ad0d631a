package builder

import (
	"sort"
	"time"
)

// CandidateError is a rejected candidate with its reason code. Rejections
// are part of the report, never silently dropped.
type CandidateError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Label   string `json:"label,omitempty"`
}

// PendingItem is a newly created entity waiting for expert review.
type PendingItem struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Report summarizes one batch merge. Counts cover entities and
// relationships together; PendingReview is sorted lowest confidence
// first so experts see the shakiest items on top.
type Report struct {
	Created           int              `json:"created"`
	Merged            int              `json:"merged"`
	TentativeMerges   int              `json:"tentative_merges"`
	Rejected          int              `json:"rejected"`
	Errors            []CandidateError `json:"errors,omitempty"`
	UnresolvedOrphans []string         `json:"unresolved_orphans,omitempty"`
	PendingReview     []PendingItem    `json:"pending_review,omitempty"`
	StartTime         time.Time        `json:"start_time"`
	EndTime           time.Time        `json:"end_time"`
}

func (r *Report) reject(code, message, label string) {
	r.Rejected++
	r.Errors = append(r.Errors, CandidateError{Code: code, Message: message, Label: label})
}

func (r *Report) finish() {
	r.EndTime = time.Now()
	sort.SliceStable(r.PendingReview, func(i, j int) bool {
		return r.PendingReview[i].Confidence < r.PendingReview[j].Confidence
	})
}
