/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: types.go
Description: Core statistics types for the Akaylee Invariants engine. Atomic
counters track the candidate pipeline across worker goroutines; a snapshot
struct freezes them for reports and logs.
*/

package core

import (
	"sync/atomic"
	"time"
)

// LearnStats tracks pipeline counters across all workers. All updates go
// through atomic operations; read a consistent view via Snapshot.
type LearnStats struct {
	CandidatesGenerated int64
	CandidatesEvaluated int64
	CandidatesHeld      int64
	CandidatesRefuted   int64
	BudgetLimited       int64
	ExamplesLoaded      int64
	ExamplesSkipped     int64
	SolverQueries       int64

	startTime time.Time
}

// NewLearnStats creates the counter set with the clock started.
func NewLearnStats() *LearnStats {
	return &LearnStats{startTime: time.Now()}
}

// IncrementGenerated records one enumerated candidate.
func (s *LearnStats) IncrementGenerated() {
	atomic.AddInt64(&s.CandidatesGenerated, 1)
}

// IncrementEvaluated records one candidate checked against the corpus.
func (s *LearnStats) IncrementEvaluated() {
	atomic.AddInt64(&s.CandidatesEvaluated, 1)
}

// IncrementHeld records one candidate that survived corpus evaluation.
func (s *LearnStats) IncrementHeld() {
	atomic.AddInt64(&s.CandidatesHeld, 1)
}

// IncrementRefuted records one candidate killed by the refutation engine.
func (s *LearnStats) IncrementRefuted() {
	atomic.AddInt64(&s.CandidatesRefuted, 1)
}

// IncrementBudgetLimited records one candidate accepted with its refutation
// budget exhausted.
func (s *LearnStats) IncrementBudgetLimited() {
	atomic.AddInt64(&s.BudgetLimited, 1)
}

// IncrementSolverQueries records one SMT query issued.
func (s *LearnStats) IncrementSolverQueries() {
	atomic.AddInt64(&s.SolverQueries, 1)
}

// AddExamples records corpus loading results.
func (s *LearnStats) AddExamples(loaded, skipped int) {
	atomic.AddInt64(&s.ExamplesLoaded, int64(loaded))
	atomic.AddInt64(&s.ExamplesSkipped, int64(skipped))
}

// StatsSnapshot is a frozen, report-friendly view of the counters.
type StatsSnapshot struct {
	CandidatesGenerated int64         `json:"candidates_generated"`
	CandidatesEvaluated int64         `json:"candidates_evaluated"`
	CandidatesHeld      int64         `json:"candidates_held"`
	CandidatesRefuted   int64         `json:"candidates_refuted"`
	BudgetLimited       int64         `json:"budget_limited"`
	ExamplesLoaded      int64         `json:"examples_loaded"`
	ExamplesSkipped     int64         `json:"examples_skipped"`
	SolverQueries       int64         `json:"solver_queries"`
	Elapsed             time.Duration `json:"elapsed"`
}

// Snapshot returns a consistent copy of the counters.
func (s *LearnStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		CandidatesGenerated: atomic.LoadInt64(&s.CandidatesGenerated),
		CandidatesEvaluated: atomic.LoadInt64(&s.CandidatesEvaluated),
		CandidatesHeld:      atomic.LoadInt64(&s.CandidatesHeld),
		CandidatesRefuted:   atomic.LoadInt64(&s.CandidatesRefuted),
		BudgetLimited:       atomic.LoadInt64(&s.BudgetLimited),
		ExamplesLoaded:      atomic.LoadInt64(&s.ExamplesLoaded),
		ExamplesSkipped:     atomic.LoadInt64(&s.ExamplesSkipped),
		SolverQueries:       atomic.LoadInt64(&s.SolverQueries),
		Elapsed:             time.Since(s.startTime),
	}
}
