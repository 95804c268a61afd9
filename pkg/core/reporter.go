/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: reporter.go
Description: Report rendering and lifecycle telemetry for the Akaylee Invariants
engine. Serializes learned invariants with their evidence and run diagnostics to
JSON or plain text, and provides a logrus-backed Reporter for live engine events.
The JSON report carries template names and bindings so invariants can be
reconstructed and re-checked against a new corpus.
*/

package core

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/kleascm/akaylee-invariants/pkg/interfaces"
	"github.com/kleascm/akaylee-invariants/pkg/logging"
)

// ReportInvariant is one learned invariant as it appears in the report.
type ReportInvariant struct {
	ID            string            `json:"id"`
	Template      string            `json:"template"`
	Bindings      map[string]string `json:"bindings"`
	Formula       string            `json:"formula"`
	Support       int               `json:"support"`
	Inapplicable  int               `json:"inapplicable"`
	Specificity   int               `json:"specificity"`
	Precision     float64           `json:"precision"`
	BudgetLimited bool              `json:"budget_limited,omitempty"`
}

// ReportBudget records the search bounds the run was validated up to.
// Invariants in the report are best-effort statements relative to these
// limits, not proofs.
type ReportBudget struct {
	MaxCandidates  int           `json:"max_candidates"`
	MaxAssignments int           `json:"max_assignments"`
	RefuteRounds   int           `json:"refute_rounds"`
	RefuteTimeout  time.Duration `json:"refute_timeout"`
}

// Report is the full output of one learning run.
type Report struct {
	SessionID   string                  `json:"session_id"`
	GeneratedAt time.Time               `json:"generated_at"`
	GrammarPath string                  `json:"grammar_path"`
	CorpusDir   string                  `json:"corpus_dir"`
	Budget      ReportBudget            `json:"budget"`
	Invariants  []ReportInvariant       `json:"invariants"`
	Diagnostics []interfaces.Diagnostic `json:"diagnostics,omitempty"`
	Stats       StatsSnapshot           `json:"stats"`
}

// BuildReport assembles the report from a run result.
func BuildReport(config *interfaces.LearnConfig, result *Result) *Report {
	report := &Report{
		SessionID:   result.SessionID,
		GeneratedAt: time.Now().UTC(),
		GrammarPath: config.GrammarPath,
		CorpusDir:   config.CorpusDir,
		Budget: ReportBudget{
			MaxCandidates:  config.MaxCandidates,
			MaxAssignments: config.MaxAssignments,
			RefuteRounds:   config.RefuteRounds,
			RefuteTimeout:  config.RefuteTimeout,
		},
		Diagnostics: result.Diagnostics,
		Stats:       result.Stats,
	}
	for _, inv := range result.Invariants {
		report.Invariants = append(report.Invariants, ReportInvariant{
			ID:            inv.Candidate.ID(),
			Template:      inv.Candidate.Template.Name,
			Bindings:      inv.Candidate.Bindings,
			Formula:       inv.Candidate.NormalizedFormula(),
			Support:       inv.Support,
			Inapplicable:  inv.Inapplicable,
			Specificity:   inv.Specificity,
			Precision:     inv.Precision,
			BudgetLimited: inv.BudgetLimited,
		})
	}
	return report
}

// WriteJSON renders the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// WriteText renders the report as a human-readable summary.
func (r *Report) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "Invariant learning report %s\n", r.SessionID)
	fmt.Fprintf(w, "Grammar: %s\n", r.GrammarPath)
	fmt.Fprintf(w, "Corpus:  %s (%d examples, %d skipped)\n",
		r.CorpusDir, r.Stats.ExamplesLoaded, r.Stats.ExamplesSkipped)
	fmt.Fprintf(w, "Validated up to budget: %d refutation rounds, %s per candidate\n\n",
		r.Budget.RefuteRounds, r.Budget.RefuteTimeout)

	if len(r.Invariants) == 0 {
		fmt.Fprintln(w, "No invariants learned.")
	}
	for i, inv := range r.Invariants {
		flag := ""
		if inv.BudgetLimited {
			flag = " [budget-limited]"
		}
		fmt.Fprintf(w, "%3d. %s%s\n", i+1, inv.Formula, flag)
		fmt.Fprintf(w, "     template=%s support=%d precision=%.2f specificity=%d\n",
			inv.Template, inv.Support, inv.Precision, inv.Specificity)
	}

	if len(r.Diagnostics) > 0 {
		fmt.Fprintf(w, "\nDiagnostics (%d):\n", len(r.Diagnostics))
		for _, d := range r.Diagnostics {
			fmt.Fprintf(w, "  [%s] %s: %s\n", d.Kind, d.Source, d.Detail)
		}
	}

	snapshot := r.Stats
	fmt.Fprintf(w, "\nCandidates: %d generated, %d evaluated, %d held, %d refuted\n",
		snapshot.CandidatesGenerated, snapshot.CandidatesEvaluated,
		snapshot.CandidatesHeld, snapshot.CandidatesRefuted)
	fmt.Fprintf(w, "Elapsed: %s\n", snapshot.Elapsed.Round(time.Millisecond))
	return nil
}

// LoadReport reads a JSON report back, for re-checking invariants against a
// new corpus.
func LoadReport(r io.Reader) (*Report, error) {
	var report Report
	if err := json.NewDecoder(r).Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &report, nil
}

// LoggerReporter logs engine lifecycle events through the structured logger.
type LoggerReporter struct {
	logger *logging.Logger
}

// NewLoggerReporter creates a reporter writing to the logger at debug and
// info levels.
func NewLoggerReporter(logger *logging.Logger) *LoggerReporter {
	return &LoggerReporter{logger: logger}
}

// OnCandidateEvaluated logs the corpus verdict for one candidate.
func (r *LoggerReporter) OnCandidateEvaluated(candidateKey string, verdict interfaces.AggregateVerdict) {
	r.logger.WithFields(map[string]interface{}{
		"candidate":    candidateKey,
		"support":      verdict.Support,
		"inapplicable": verdict.Inapplicable,
		"violated":     verdict.Violated,
	}).Debug("Candidate evaluated")
}

// OnCandidateRefuted logs a successful refutation.
func (r *LoggerReporter) OnCandidateRefuted(candidateKey string) {
	r.logger.WithFields(map[string]interface{}{
		"candidate": candidateKey,
	}).Debug("Candidate refuted")
}

// OnInvariantAccepted logs an accepted invariant.
func (r *LoggerReporter) OnInvariantAccepted(candidateKey string, budgetLimited bool) {
	r.logger.WithFields(map[string]interface{}{
		"candidate":      candidateKey,
		"budget_limited": budgetLimited,
	}).Info("Invariant accepted")
}
