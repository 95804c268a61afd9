/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: refuter.go
Description: Refutation engine for the Akaylee Invariants engine. Actively
attacks candidates that held on the corpus: a mutation strategy evaluates the
candidate on grammar-valid perturbations of corpus trees, and a solver strategy
asks an SMT solver for numeric counter-models and embeds them back into real
trees. Every refutation is confirmed by the evaluator on a grammar-valid tree
before it counts. Per-candidate budgets keep the search bounded.
*/

package refute

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kleascm/akaylee-invariants/pkg/catalog"
	"github.com/kleascm/akaylee-invariants/pkg/evaluate"
	"github.com/kleascm/akaylee-invariants/pkg/grammar"
	"github.com/kleascm/akaylee-invariants/pkg/instantiate"
	"github.com/kleascm/akaylee-invariants/pkg/interfaces"
	"github.com/kleascm/akaylee-invariants/pkg/solver"
)

// Config bounds the refutation effort per candidate.
type Config struct {
	Rounds  int           // Mutation attempts per candidate
	Timeout time.Duration // Wall clock budget per candidate
}

// DefaultConfig returns the standard refutation budget.
func DefaultConfig() Config {
	return Config{Rounds: 200, Timeout: 5 * time.Second}
}

// Outcome is the result of attacking one candidate.
type Outcome struct {
	Refuted        bool
	CounterExample *evaluate.Example // The confirming tree, when refuted
	BudgetLimited  bool              // Budget exhausted without refutation
	SolverTried    bool              // The solver strategy was applicable and ran
}

// Refuter attacks surviving candidates within a per-candidate budget.
// Safe for concurrent use; the mutator serializes its random source.
type Refuter struct {
	index     *grammar.Index
	evaluator *evaluate.Evaluator
	mutator   *Mutator
	config    Config

	// Optional SMT collaborator. Nil disables the solver strategy.
	smt *solver.Solver
}

// NewRefuter creates a refuter over the grammar index.
func NewRefuter(index *grammar.Index, evaluator *evaluate.Evaluator, mutator *Mutator, config Config) *Refuter {
	if config.Rounds <= 0 {
		config.Rounds = 200
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	return &Refuter{
		index:     index,
		evaluator: evaluator,
		mutator:   mutator,
		config:    config,
	}
}

// SetSolver installs the SMT collaborator. Must be called before Refute.
func (r *Refuter) SetSolver(smt *solver.Solver) {
	r.smt = smt
}

// Refute attacks the candidate: solver strategy first when applicable, then
// mutation rounds until refutation, budget exhaustion, or context
// cancellation. A candidate that survives a fully spent budget is reported
// budget-limited, not proven. The mutation search runs on a per-candidate
// fork of the mutator, so its random draws depend only on the run seed and
// the candidate, never on how candidates are scheduled across workers.
func (r *Refuter) Refute(ctx context.Context, c *instantiate.Candidate, examples []*evaluate.Example) Outcome {
	deadline, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	outcome := Outcome{}

	if counter := r.refuteWithSolver(deadline, c, examples, &outcome); counter != nil {
		outcome.Refuted = true
		outcome.CounterExample = counter
		return outcome
	}

	mutator := r.mutator.Fork(c.Key())
	for round := 0; round < r.config.Rounds; round++ {
		if deadline.Err() != nil {
			outcome.BudgetLimited = true
			return outcome
		}

		base := r.baseTree(mutator, examples, round)
		mutant := mutator.Mutate(base)
		if mutant == nil {
			break
		}
		if r.evaluator.Evaluate(c, mutant) == interfaces.VerdictViolated {
			outcome.Refuted = true
			outcome.CounterExample = &evaluate.Example{
				ID:   fmt.Sprintf("mutant-%s-%d", c.ID(), round),
				Tree: mutant,
			}
			return outcome
		}
	}

	outcome.BudgetLimited = deadline.Err() != nil
	return outcome
}

// baseTree cycles through the corpus as mutation seeds, falling back to a
// fresh random tree when the corpus is empty.
func (r *Refuter) baseTree(mutator *Mutator, examples []*evaluate.Example, round int) *grammar.Node {
	if len(examples) == 0 {
		return mutator.Generate(grammar.StartSymbol)
	}
	return examples[round%len(examples)].Tree
}

// refuteWithSolver asks the SMT solver for values violating the candidate's
// numeric constraints, embeds them into a corpus tree, and confirms the
// violation with the evaluator. Returns the confirming example, or nil.
func (r *Refuter) refuteWithSolver(ctx context.Context, c *instantiate.Candidate, examples []*evaluate.Example, outcome *Outcome) *evaluate.Example {
	if r.smt == nil || c.Template.Quantifier != catalog.QuantifierForAll {
		return nil
	}
	script, ok := r.buildQuery(c)
	if !ok {
		return nil
	}
	outcome.SolverTried = true

	result, model, err := r.smt.CheckSat(ctx, script)
	if err != nil || result != solver.ResultSat {
		return nil
	}

	for _, example := range examples {
		if tree := r.embedModel(c, example.Tree, model); tree != nil {
			if r.evaluator.Evaluate(c, tree) == interfaces.VerdictViolated {
				return &evaluate.Example{
					ID:   fmt.Sprintf("solver-%s-%s", c.ID(), example.ID),
					Tree: tree,
				}
			}
		}
	}
	return nil
}

// buildQuery renders the negation of the candidate formula as an SMT-LIB2
// script over integer placeholder variables. Applicable only when every
// clause compares int() terms and integer literals; the second result is
// false otherwise.
func (r *Refuter) buildQuery(c *instantiate.Candidate) (string, bool) {
	var sb strings.Builder
	declared := make(map[string]bool)

	for _, ph := range c.Template.Placeholders {
		symbol := c.Symbol(ph.Name)
		if r.index.Kind(symbol) != grammar.KindNumericLeaf {
			return "", false
		}
		if declared[ph.Name] {
			continue
		}
		declared[ph.Name] = true
		fmt.Fprintf(&sb, "(declare-const %s Int)\n", ph.Name)
		if !r.index.AllowsNegative(symbol) {
			fmt.Fprintf(&sb, "(assert (>= %s 0))\n", ph.Name)
		}
	}

	conjuncts := make([]string, 0, len(c.Template.Formula.Clauses))
	for _, clause := range c.Template.Formula.Clauses {
		smt, ok := clauseToSMT(clause)
		if !ok {
			return "", false
		}
		conjuncts = append(conjuncts, smt)
	}
	if len(conjuncts) == 0 {
		return "", false
	}

	body := conjuncts[0]
	if len(conjuncts) > 1 {
		body = "(and " + strings.Join(conjuncts, " ") + ")"
	}
	fmt.Fprintf(&sb, "(assert (not %s))\n", body)
	return sb.String(), true
}

// clauseToSMT renders one numeric comparison clause. Structural predicates
// and string-valued terms are outside the solver's theory here.
func clauseToSMT(clause *catalog.Clause) (string, bool) {
	if clause.IsPredicate() {
		return "", false
	}
	left, ok := termToSMT(clause.Left)
	if !ok {
		return "", false
	}
	right, ok := termToSMT(clause.Right)
	if !ok {
		return "", false
	}

	switch clause.Op {
	case catalog.OpEq:
		return fmt.Sprintf("(= %s %s)", left, right), true
	case catalog.OpNe:
		return fmt.Sprintf("(not (= %s %s))", left, right), true
	case catalog.OpLt, catalog.OpLe, catalog.OpGt, catalog.OpGe:
		return fmt.Sprintf("(%s %s %s)", clause.Op, left, right), true
	}
	return "", false
}

func termToSMT(term *catalog.Term) (string, bool) {
	switch {
	case term.IsInt:
		if term.IntVal < 0 {
			return fmt.Sprintf("(- %d)", -term.IntVal), true
		}
		return fmt.Sprintf("%d", term.IntVal), true
	case term.Fn == "int" && len(term.Args) == 1 && !term.Args[0].IsLiteral:
		return term.Args[0].Name, true
	}
	return "", false
}

// embedModel substitutes the solver's values into the tree: for each
// placeholder a subtree deriving exactly the model value replaces the first
// matching site. Returns nil when a value cannot be derived, sites collide,
// or the result fails grammar validation.
func (r *Refuter) embedModel(c *instantiate.Candidate, tree *grammar.Node, model solver.Model) *grammar.Node {
	current := tree
	used := make(map[string]bool)

	for _, ph := range c.Template.Placeholders {
		value, ok := model[ph.Name]
		if !ok {
			return nil
		}
		symbol := c.Symbol(ph.Name)
		replacement := r.mutator.Derive(symbol, value)
		if replacement == nil {
			return nil
		}

		site, ok := freshSite(current.Filter(symbol), used)
		if !ok {
			return nil
		}
		used[pathKey(site.Path)] = true

		current = current.Replace(site.Path, replacement)
		if current == nil {
			return nil
		}
	}

	if err := grammar.ValidateTree(r.index.Grammar(), current); err != nil {
		return nil
	}
	return current
}

func freshSite(matches []grammar.Match, used map[string]bool) (grammar.Match, bool) {
	for _, m := range matches {
		if !used[pathKey(m.Path)] {
			return m, true
		}
	}
	return grammar.Match{}, false
}

func pathKey(p grammar.Path) string {
	var sb strings.Builder
	for _, idx := range p {
		fmt.Fprintf(&sb, "%d.", idx)
	}
	return sb.String()
}
