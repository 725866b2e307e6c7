package types

import (
	"sync/atomic"
	"time"
)

// Status buckets for an admission decision.
type Status string

const (
	StatusAccepted   Status = "Accepted"
	StatusRejected   Status = "Rejected"
	StatusWaitlisted Status = "Waitlisted"
	StatusInterview  Status = "Interview"
	StatusOther      Status = "Other"
)

// Degree buckets.
type Degree string

const (
	DegreeMasters Degree = "Masters"
	DegreePhD     Degree = "PhD"
	DegreeOther   Degree = "Other"
)

// Nationality buckets.
type Nationality string

const (
	NationalityAmerican      Nationality = "American"
	NationalityInternational Nationality = "International"
	NationalityOther         Nationality = "Other"
)

// CleanedRecord is the validated, typed form of one entry. Optional fields
// are pointers so that a missing value serializes as an explicit null rather
// than being dropped from the object shape.
type CleanedRecord struct {
	ID  int64  `json:"id" bson:"id"`
	URL string `json:"url" bson:"url"`

	Program      *string      `json:"program" bson:"program"`
	Institution  *string      `json:"institution" bson:"institution"`
	Comments     *string      `json:"comments" bson:"comments"`
	DateAdded    *string      `json:"date_added" bson:"date_added"`
	Status       *Status      `json:"status" bson:"status"`
	DecisionDate *string      `json:"decision_date" bson:"decision_date"`
	Term         *string      `json:"term" bson:"term"`
	Nationality  *Nationality `json:"nationality" bson:"nationality"`
	GPA          *float64     `json:"gpa" bson:"gpa"`
	GRETotal     *float64     `json:"gre_total" bson:"gre_total"`
	GREVerbal    *float64     `json:"gre_verbal" bson:"gre_verbal"`
	GREAW        *float64     `json:"gre_aw" bson:"gre_aw"`
	Degree       *Degree      `json:"degree" bson:"degree"`

	// DateAddedRaw keeps the original text when the date failed to parse.
	DateAddedRaw string `json:"date_added_raw,omitempty" bson:"date_added_raw,omitempty"`

	Completeness int       `json:"completeness_percentage" bson:"completeness_percentage"`
	Failed       bool      `json:"failed" bson:"failed"`
	ProcessedAt  time.Time `json:"processed_at" bson:"processed_at"`
}

// Checkpoint is a durable snapshot of run progress. A new snapshot replaces
// the prior one atomically; see engine.CheckpointStore.
type Checkpoint struct {
	// PageCursor is the next listing page the walker has not visited.
	PageCursor int `json:"page_cursor"`

	// SeenIDs holds every entry id committed so far, across resumes.
	SeenIDs []int64 `json:"seen_ids"`

	// PendingStubs are entries discovered but not yet processed when the
	// checkpoint was taken; a resumed run reenqueues them instead of
	// re-walking their listing pages.
	PendingStubs []EntryStub `json:"pending_stubs,omitempty"`

	SucceededCount int       `json:"succeeded_count"`
	FailedCount    int       `json:"failed_count"`
	LastSavedAt    time.Time `json:"last_saved_at"`
}

// NewRunStats returns zeroed counters with the start time set.
func NewRunStats() *RunStats {
	return &RunStats{StartTime: time.Now()}
}

// RunStats tracks run-wide counters. Owned by the orchestrator; counters are
// atomic so workers and the walker can bump them without locks.
type RunStats struct {
	Attempted    atomic.Int64
	Succeeded    atomic.Int64
	Failed       atomic.Int64
	Duplicates   atomic.Int64
	PagesWalked  atomic.Int64
	PageFailures atomic.Int64
	StartTime    time.Time
}

// Snapshot returns a copy of the counters safe for logging.
func (s *RunStats) Snapshot() map[string]any {
	return map[string]any{
		"attempted":     s.Attempted.Load(),
		"succeeded":     s.Succeeded.Load(),
		"failed":        s.Failed.Load(),
		"duplicates":    s.Duplicates.Load(),
		"pages_walked":  s.PagesWalked.Load(),
		"page_failures": s.PageFailures.Load(),
		"elapsed":       time.Since(s.StartTime).String(),
	}
}
