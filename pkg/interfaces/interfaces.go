/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: interfaces.go
Description: Shared interfaces and value types for the Akaylee Invariants engine.
Defines verdicts, run diagnostics, and the learner configuration used across all
packages to break import cycles and enable proper modular design.
*/

package interfaces

import (
	"time"
)

// Verdict is the tri-state result of evaluating one candidate against one example.
type Verdict int

const (
	// VerdictHolds means at least one binding assignment exists and the
	// constraint is satisfied under the template's quantification mode.
	VerdictHolds Verdict = iota

	// VerdictViolated means binding assignments exist and the constraint is
	// false under the template's quantification mode.
	VerdictViolated

	// VerdictInapplicable means the example tree contains no node assignment
	// matching the candidate's symbol bindings. Distinct from VerdictViolated.
	VerdictInapplicable
)

// String returns the canonical name of the verdict.
func (v Verdict) String() string {
	switch v {
	case VerdictHolds:
		return "HOLDS"
	case VerdictViolated:
		return "VIOLATED"
	case VerdictInapplicable:
		return "INAPPLICABLE"
	default:
		return "UNKNOWN"
	}
}

// AggregateVerdict summarizes the evaluation of one candidate over a full
// example set. Evaluation short-circuits on the first violation, so
// CounterExample names at most one example.
type AggregateVerdict struct {
	Support        int    // Examples on which the candidate was applicable and held
	Inapplicable   int    // Examples without any matching node assignment
	Violated       bool   // True if any example produced VerdictViolated
	CounterExample string // ID of the violating example, if Violated
}

// DiagnosticKind classifies a per-item diagnostic attached to run metadata.
type DiagnosticKind string

const (
	DiagCatalogError      DiagnosticKind = "catalog_error"      // Malformed template, skipped
	DiagParseError        DiagnosticKind = "parse_error"        // Example failed to decode/validate, excluded
	DiagTruncatedSearch   DiagnosticKind = "truncated_search"   // Candidate enumeration hit a cap
	DiagSolverUnavailable DiagnosticKind = "solver_unavailable" // Solving collaborator unreachable
)

// Diagnostic is a non-fatal, per-item problem surfaced in the run summary.
// Structural errors (bad grammar, empty corpus) are returned as errors instead.
type Diagnostic struct {
	Kind   DiagnosticKind `json:"kind"`
	Source string         `json:"source"` // Template name, example ID, or component
	Detail string         `json:"detail"`
}

// LearnConfig contains all configuration parameters for an invariant
// learning run. Supports both command-line flags and configuration files.
type LearnConfig struct {
	// Input configuration
	GrammarPath string `json:"grammar_path"` // Path to the grammar JSON file
	CorpusDir   string `json:"corpus_dir"`   // Directory containing example derivation trees
	CatalogPath string `json:"catalog_path"` // Path to the template catalog YAML file

	// Output configuration
	OutputPath   string `json:"output_path"`   // Destination for the invariant report
	OutputFormat string `json:"output_format"` // Report format (json, text)

	// Search budget configuration
	MaxCandidates  int           `json:"max_candidates"`  // Maximum candidates per template
	MaxArity       int           `json:"max_arity"`       // Maximum placeholder binding arity
	MaxAssignments int           `json:"max_assignments"` // Maximum node assignments per (candidate, example)
	RefuteRounds   int           `json:"refute_rounds"`   // Mutation rounds per candidate
	RefuteTimeout  time.Duration `json:"refute_timeout"`  // Per-candidate refutation deadline

	// Corpus reduction configuration
	MaxExamples int `json:"max_examples"` // Corpus cap before k-path reduction
	PathLength  int `json:"path_length"`  // k for symbol-path coverage reduction

	// Execution configuration
	Workers int   `json:"workers"` // Number of parallel workers (0 = auto-detect)
	Seed    int64 `json:"seed"`    // RNG seed for reproducible mutation search

	// Solver configuration
	SolverCommand  string        `json:"solver_command"`  // External SMT solver binary ("" disables)
	SolverSessions int           `json:"solver_sessions"` // Pooled solver sessions
	SolverTimeout  time.Duration `json:"solver_timeout"`  // Per-query solver deadline

	// Logging configuration
	LogLevel string `json:"log_level"` // Logging level (debug, info, warn, error)
	LogFile  string `json:"log_file"`  // Log file path
	JSONLogs bool   `json:"json_logs"` // Use JSON log format

	// Run identification
	SessionID string `json:"session_id"` // Unique run identifier
}

// Reporter receives engine lifecycle events for telemetry and live reporting.
type Reporter interface {
	// OnCandidateEvaluated is called after a candidate has been checked
	// against the full example set.
	OnCandidateEvaluated(candidateKey string, verdict AggregateVerdict)

	// OnCandidateRefuted is called when the refutation engine produced a
	// counterexample for a candidate.
	OnCandidateRefuted(candidateKey string)

	// OnInvariantAccepted is called when a candidate survived refutation.
	OnInvariantAccepted(candidateKey string, budgetLimited bool)
}
