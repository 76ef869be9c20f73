// Package session implements the per-user intake state machine: photos are
// buffered until the threshold is reached, then analyzed and persisted as a
// sellable item.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/adgedenkers/mythos-arcturus-sub000/internal/model"
)

// PhotosPerItem is the number of photos buffered before analysis triggers.
const PhotosPerItem = 3

// State of an intake session.
type State int

const (
	StateInactive State = iota
	StateCollecting
	StateAnalyzing
)

func (s State) String() string {
	switch s {
	case StateCollecting:
		return "collecting"
	case StateAnalyzing:
		return "analyzing"
	default:
		return "inactive"
	}
}

// Outcome of the most recent analysis attempt.
const (
	OutcomeCompleted = "completed"
	OutcomeDegraded  = "degraded"
	OutcomeFailed    = "failed"
)

// Session holds one user's intake state. It lives in process memory only;
// a restart discards it (accepted limitation for a single-instance
// deployment). All mutation goes through the session mutex, which is what
// prevents a concurrent burst of photos from double-triggering analysis.
type Session struct {
	mu sync.Mutex

	userID      string
	intakeID    string
	state       State
	photos      []model.PendingPhoto
	created     []model.ItemSummary
	startedAt   time.Time
	lastOutcome string

	// cancel aborts an in-flight analysis when the user exits intake
	// mode before it resolves.
	cancel context.CancelFunc

	// wg tracks the in-flight analysis goroutine.
	wg sync.WaitGroup
}

// Status is a read-only snapshot of a session.
type Status struct {
	State        string  `json:"state"`
	PhotoCount   int     `json:"photo_count"`
	ItemsCreated int     `json:"items_created"`
	TotalPrice   float64 `json:"total_price"`
	LastOutcome  string  `json:"last_outcome,omitempty"`
	StartedAt    string  `json:"started_at"`
}

// Summary reports what a session produced, for the end-of-session message.
type Summary struct {
	ItemsCreated int                 `json:"items_created"`
	TotalPrice   float64             `json:"total_price"`
	Items        []model.ItemSummary `json:"items,omitempty"`
}

// summaryLocked builds the session summary. Callers hold s.mu.
func (s *Session) summaryLocked() *Summary {
	sum := &Summary{ItemsCreated: len(s.created)}
	if len(s.created) > 0 {
		sum.Items = make([]model.ItemSummary, len(s.created))
		copy(sum.Items, s.created)
	}
	for _, it := range s.created {
		sum.TotalPrice += it.EstimatedPrice
	}
	return sum
}

func (s *Session) statusLocked() *Status {
	st := &Status{
		State:        s.state.String(),
		PhotoCount:   len(s.photos),
		ItemsCreated: len(s.created),
		LastOutcome:  s.lastOutcome,
		StartedAt:    s.startedAt.Format(time.RFC3339),
	}
	for _, it := range s.created {
		st.TotalPrice += it.EstimatedPrice
	}
	return st
}
