/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: engine.go
Description: Main learning engine for the Akaylee Invariants engine. Coordinates
grammar indexing, corpus loading, candidate instantiation, parallel evaluation,
parallel refutation, and ranking into a single deterministic pipeline. Uses
dependency injection for the solver and reporter collaborators and worker pools
sized to the configured parallelism.
*/

package core

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/kleascm/akaylee-invariants/pkg/catalog"
	"github.com/kleascm/akaylee-invariants/pkg/evaluate"
	"github.com/kleascm/akaylee-invariants/pkg/grammar"
	"github.com/kleascm/akaylee-invariants/pkg/instantiate"
	"github.com/kleascm/akaylee-invariants/pkg/interfaces"
	"github.com/kleascm/akaylee-invariants/pkg/logging"
	"github.com/kleascm/akaylee-invariants/pkg/rank"
	"github.com/kleascm/akaylee-invariants/pkg/refute"
	"github.com/kleascm/akaylee-invariants/pkg/solver"
)

// Engine is the invariant learning engine. Construct with NewEngine, inject
// optional collaborators with the SetX methods, then Initialize and Run.
type Engine struct {
	config *interfaces.LearnConfig
	logger *logging.Logger

	grammar      *grammar.Grammar
	index        *grammar.Index
	catalog      *catalog.Catalog
	corpus       *Corpus
	instantiator *instantiate.Instantiator
	evaluator    *evaluate.Evaluator
	refuter      *refute.Refuter
	ranker       *rank.Ranker

	smt      *solver.Solver
	reporter interfaces.Reporter

	stats *LearnStats

	diagMu      sync.Mutex
	diagnostics []interfaces.Diagnostic

	initialized bool
}

// Result is the outcome of one learning run.
type Result struct {
	Invariants  []*rank.Invariant
	Diagnostics []interfaces.Diagnostic
	Stats       StatsSnapshot
	SessionID   string
}

// NewEngine creates an uninitialized engine for the configuration.
func NewEngine(config *interfaces.LearnConfig, logger *logging.Logger) *Engine {
	return &Engine{
		config: config,
		logger: logger,
		stats:  NewLearnStats(),
	}
}

// SetReporter injects a lifecycle reporter. Must be called before Run.
func (e *Engine) SetReporter(reporter interfaces.Reporter) {
	e.reporter = reporter
}

// SetSolver injects an SMT solver, overriding the one resolved from the
// configuration. Must be called before Initialize.
func (e *Engine) SetSolver(smt *solver.Solver) {
	e.smt = smt
}

// Stats returns the live pipeline counters.
func (e *Engine) Stats() *LearnStats {
	return e.stats
}

// Index returns the grammar index. Valid after Initialize.
func (e *Engine) Index() *grammar.Index {
	return e.index
}

// Catalog returns the loaded template catalog. Valid after Initialize.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Corpus returns the loaded example corpus. Valid after Initialize.
func (e *Engine) Corpus() *Corpus {
	return e.corpus
}

// Initialize loads the grammar, catalog, and corpus, builds the grammar
// index, and wires the pipeline components. Grammar failures and an empty
// corpus or catalog are fatal; per-item problems become diagnostics.
func (e *Engine) Initialize() error {
	if e.config.SessionID == "" {
		e.config.SessionID = uuid.New().String()
	}

	g, err := grammar.LoadGrammar(e.config.GrammarPath)
	if err != nil {
		return fmt.Errorf("failed to load grammar: %w", err)
	}
	e.grammar = g
	e.index = grammar.NewIndex(g)
	e.logger.Infof("Grammar loaded: %d symbols", len(g.Symbols()))

	cat, catDiags, err := catalog.LoadCatalog(e.config.CatalogPath)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	e.addDiagnostics(catDiags...)
	e.catalog = cat
	e.logger.Infof("Catalog loaded: %d templates, %d skipped", cat.Len(), len(catDiags))

	corpus, corpusDiags, err := LoadCorpus(g, e.config.CorpusDir, e.config.MaxExamples)
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}
	e.addDiagnostics(corpusDiags...)
	e.stats.AddExamples(corpus.Len(), len(corpusDiags))

	if e.config.PathLength > 0 {
		before := corpus.Len()
		corpus.ReduceByPaths(e.config.PathLength)
		e.logger.Infof("Corpus reduced by %d-path coverage: %d -> %d examples",
			e.config.PathLength, before, corpus.Len())
	}
	e.corpus = corpus

	e.instantiator = instantiate.NewInstantiator(e.index, instantiate.Config{
		MaxArity:      e.config.MaxArity,
		MaxCandidates: e.config.MaxCandidates,
	})
	e.instantiator.SetInputReachability(corpus.ReachabilityPairs())

	e.evaluator = evaluate.NewEvaluator(e.config.MaxAssignments)

	mutator := refute.NewMutator(e.index, e.config.Seed, 0)
	e.refuter = refute.NewRefuter(e.index, e.evaluator, mutator, refute.Config{
		Rounds:  e.config.RefuteRounds,
		Timeout: e.config.RefuteTimeout,
	})
	e.setupSolver()

	e.ranker = rank.NewRanker(e.index, e.evaluator)

	e.initialized = true
	return nil
}

// setupSolver resolves the configured SMT solver. A missing binary is a
// diagnostic, not a failure: refutation degrades to mutation only.
func (e *Engine) setupSolver() {
	if e.smt == nil && e.config.SolverCommand != "" {
		smt, err := solver.NewSolver(solver.Config{
			Command:  e.config.SolverCommand,
			Sessions: e.config.SolverSessions,
			Timeout:  e.config.SolverTimeout,
		})
		if err != nil {
			if errors.Is(err, solver.ErrUnavailable) {
				e.addDiagnostics(interfaces.Diagnostic{
					Kind:   interfaces.DiagSolverUnavailable,
					Source: e.config.SolverCommand,
					Detail: err.Error(),
				})
				e.logger.Warnf("SMT solver unavailable, refutation is mutation-only: %v", err)
				return
			}
			e.logger.Warnf("SMT solver setup failed: %v", err)
			return
		}
		e.smt = smt
	}
	if e.smt != nil {
		e.refuter.SetSolver(e.smt)
	}
}

// Run executes the full pipeline: instantiate, evaluate, refute, rank.
// Deterministic for a fixed configuration and corpus; cancellation via ctx
// stops refutation early and reports survivors as budget-limited.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if !e.initialized {
		return nil, fmt.Errorf("engine not initialized")
	}

	candidates := e.generateCandidates()
	e.logger.Infof("Candidate generation complete: %d unique candidates", len(candidates))

	survivors := e.evaluatePhase(ctx, candidates)
	e.logger.Infof("Evaluation complete: %d candidates held on the corpus", len(survivors))

	invariants, negatives := e.refutePhase(ctx, survivors)
	e.logger.Infof("Refutation complete: %d invariants survived, %d negatives collected",
		len(invariants), len(negatives))

	reduced := e.ranker.Reduce(invariants, negatives)
	e.logger.Infof("Reduction complete: %d invariants reported", len(reduced))

	return &Result{
		Invariants:  reduced,
		Diagnostics: e.Diagnostics(),
		Stats:       e.stats.Snapshot(),
		SessionID:   e.config.SessionID,
	}, nil
}

// generateCandidates enumerates every template in catalog order and
// deduplicates by candidate key. Order is deterministic: templates by
// catalog position, bindings lexicographic.
func (e *Engine) generateCandidates() []*instantiate.Candidate {
	var candidates []*instantiate.Candidate
	seen := make(map[string]bool)

	for _, tpl := range e.catalog.Templates() {
		diag := e.instantiator.Instantiate(tpl, func(c *instantiate.Candidate) bool {
			e.stats.IncrementGenerated()
			if !seen[c.Key()] {
				seen[c.Key()] = true
				candidates = append(candidates, c)
			}
			return true
		})
		if diag != nil {
			e.addDiagnostics(*diag)
			e.logger.Warnf("Template %s: %s", tpl.Name, diag.Detail)
		}
	}
	return candidates
}

// evaluated pairs a candidate with its corpus verdict, preserving the
// candidate's position so parallel evaluation stays deterministic.
type evaluated struct {
	index     int
	candidate *instantiate.Candidate
	verdict   interfaces.AggregateVerdict
}

// evaluatePhase checks all candidates against the corpus on a worker pool
// and returns those that applied somewhere and were never violated, in
// generation order.
func (e *Engine) evaluatePhase(ctx context.Context, candidates []*instantiate.Candidate) []evaluated {
	examples := e.corpus.Examples()
	results := make([]evaluated, len(candidates))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < e.workers(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				c := candidates[i]
				verdict := e.evaluator.EvaluateAll(c, examples)
				e.stats.IncrementEvaluated()
				if e.reporter != nil {
					e.reporter.OnCandidateEvaluated(c.Key(), verdict)
				}
				results[i] = evaluated{index: i, candidate: c, verdict: verdict}
			}
		}()
	}

feed:
	for i := range candidates {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	var survivors []evaluated
	for _, r := range results {
		if r.candidate == nil || r.verdict.Violated || r.verdict.Support == 0 {
			continue
		}
		e.stats.IncrementHeld()
		survivors = append(survivors, r)
	}
	return survivors
}

// refutePhase attacks the surviving candidates on a worker pool. Refuted
// candidates contribute their counterexample trees to the negatives pool;
// the rest become invariants, in generation order.
func (e *Engine) refutePhase(ctx context.Context, survivors []evaluated) ([]*rank.Invariant, []*evaluate.Example) {
	examples := e.corpus.Examples()
	outcomes := make([]refute.Outcome, len(survivors))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < e.workers(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcome := e.refuter.Refute(ctx, survivors[i].candidate, examples)
				if outcome.SolverTried {
					e.stats.IncrementSolverQueries()
				}
				outcomes[i] = outcome
			}
		}()
	}

feed:
	for i := range survivors {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	var invariants []*rank.Invariant
	var negatives []*evaluate.Example
	for i, s := range survivors {
		outcome := outcomes[i]
		if outcome.Refuted {
			e.stats.IncrementRefuted()
			if e.reporter != nil {
				e.reporter.OnCandidateRefuted(s.candidate.Key())
			}
			if outcome.CounterExample != nil {
				negatives = append(negatives, outcome.CounterExample)
			}
			continue
		}
		if outcome.BudgetLimited {
			e.stats.IncrementBudgetLimited()
		}
		if e.reporter != nil {
			e.reporter.OnInvariantAccepted(s.candidate.Key(), outcome.BudgetLimited)
		}
		invariants = append(invariants, &rank.Invariant{
			Candidate:     s.candidate,
			Support:       s.verdict.Support,
			Inapplicable:  s.verdict.Inapplicable,
			Specificity:   s.candidate.Specificity(),
			BudgetLimited: outcome.BudgetLimited,
		})
	}
	return invariants, negatives
}

func (e *Engine) workers() int {
	if e.config.Workers > 0 {
		return e.config.Workers
	}
	return runtime.NumCPU()
}

// Diagnostics returns a copy of the diagnostics collected so far.
func (e *Engine) Diagnostics() []interfaces.Diagnostic {
	e.diagMu.Lock()
	defer e.diagMu.Unlock()
	return append([]interfaces.Diagnostic(nil), e.diagnostics...)
}

func (e *Engine) addDiagnostics(diags ...interfaces.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	e.diagMu.Lock()
	e.diagnostics = append(e.diagnostics, diags...)
	e.diagMu.Unlock()
}
