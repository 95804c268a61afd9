/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: ranker.go
Description: Invariant ranking and reduction for the Akaylee Invariants engine.
Deduplicates accepted candidates whose formulas are syntactic renamings of each
other, prunes invariants implied by a more general accepted invariant of the
same template, scores precision against refutation-generated negative examples,
and orders the survivors deterministically for reporting.
*/

package rank

import (
	"sort"

	"github.com/kleascm/akaylee-invariants/pkg/catalog"
	"github.com/kleascm/akaylee-invariants/pkg/evaluate"
	"github.com/kleascm/akaylee-invariants/pkg/grammar"
	"github.com/kleascm/akaylee-invariants/pkg/instantiate"
	"github.com/kleascm/akaylee-invariants/pkg/interfaces"
)

// Invariant is an accepted candidate together with its evidence.
type Invariant struct {
	Candidate     *instantiate.Candidate
	Support       int     // Examples where it applied and held
	Inapplicable  int     // Examples it did not apply to
	Specificity   int     // Distinct grammar symbols constrained
	Precision     float64 // Fraction of negatives rejected, 1.0 with no negatives
	BudgetLimited bool    // Refutation budget ran out before completion
}

// Ranker reduces and orders accepted invariants. Read-only after
// construction.
type Ranker struct {
	index     *grammar.Index
	evaluator *evaluate.Evaluator
}

// NewRanker creates a ranker over the grammar index.
func NewRanker(index *grammar.Index, evaluator *evaluate.Evaluator) *Ranker {
	return &Ranker{index: index, evaluator: evaluator}
}

// Reduce deduplicates and prunes the invariant set, then orders it. The
// input slice is not modified. Negatives are counterexample trees produced
// while refuting other candidates; they sharpen precision scores and are
// optional.
func (r *Ranker) Reduce(invariants []*Invariant, negatives []*evaluate.Example) []*Invariant {
	result := r.deduplicate(invariants)
	result = r.pruneImplied(result)
	r.scorePrecision(result, negatives)
	r.order(result)
	return result
}

// deduplicate collapses invariants whose normalized formulas coincide:
// renaming-equivalent instantiations across templates state the same fact.
// The representative keeps the highest support, then the earliest catalog
// position.
func (r *Ranker) deduplicate(invariants []*Invariant) []*Invariant {
	best := make(map[string]*Invariant, len(invariants))
	var keys []string

	for _, inv := range invariants {
		key := inv.Candidate.NormalizedFormula()
		current, ok := best[key]
		if !ok {
			best[key] = inv
			keys = append(keys, key)
			continue
		}
		if inv.Support > current.Support ||
			(inv.Support == current.Support && inv.Candidate.Template.Order < current.Candidate.Template.Order) {
			best[key] = inv
		}
	}

	result := make([]*Invariant, 0, len(keys))
	for _, key := range keys {
		result = append(result, best[key])
	}
	return result
}

// pruneImplied drops invariants subsumed by a more general accepted
// invariant of the same template. A subsumes B when both are universally
// quantified, A's support is at least B's, and slot for slot A's symbol
// either equals B's or derives it, with at least one strict derivation.
// The broader statement already covers every node the narrower one
// constrains.
func (r *Ranker) pruneImplied(invariants []*Invariant) []*Invariant {
	result := make([]*Invariant, 0, len(invariants))
	for _, inv := range invariants {
		implied := false
		for _, other := range invariants {
			if other != inv && r.subsumes(other, inv) {
				implied = true
				break
			}
		}
		if !implied {
			result = append(result, inv)
		}
	}
	return result
}

func (r *Ranker) subsumes(a, b *Invariant) bool {
	if a.Candidate.Template != b.Candidate.Template {
		return false
	}
	if a.Candidate.Template.Quantifier != catalog.QuantifierForAll {
		return false
	}
	if a.Support < b.Support {
		return false
	}

	strict := false
	for _, ph := range a.Candidate.Template.Placeholders {
		sa := a.Candidate.Symbol(ph.Name)
		sb := b.Candidate.Symbol(ph.Name)
		if sa == sb {
			continue
		}
		if !r.index.Reachable(sa, sb) {
			return false
		}
		strict = true
	}
	return strict
}

// scorePrecision evaluates each invariant against the negatives pool. An
// invariant rejecting more known-bad trees discriminates better. Examples
// where the invariant does not apply are excluded from the denominator.
func (r *Ranker) scorePrecision(invariants []*Invariant, negatives []*evaluate.Example) {
	for _, inv := range invariants {
		inv.Precision = 1.0
		if len(negatives) == 0 {
			continue
		}
		rejected, applicable := 0, 0
		for _, negative := range negatives {
			switch r.evaluator.Evaluate(inv.Candidate, negative.Tree) {
			case interfaces.VerdictViolated:
				rejected++
				applicable++
			case interfaces.VerdictHolds:
				applicable++
			}
		}
		if applicable > 0 {
			inv.Precision = float64(rejected) / float64(applicable)
		}
	}
}

// order sorts by support, precision, then specificity, all descending,
// breaking remaining ties by catalog position and candidate key so runs
// over the same inputs report identically.
func (r *Ranker) order(invariants []*Invariant) {
	sort.SliceStable(invariants, func(i, j int) bool {
		a, b := invariants[i], invariants[j]
		if a.Support != b.Support {
			return a.Support > b.Support
		}
		if a.Precision != b.Precision {
			return a.Precision > b.Precision
		}
		if a.Specificity != b.Specificity {
			return a.Specificity > b.Specificity
		}
		if a.Candidate.Template.Order != b.Candidate.Template.Order {
			return a.Candidate.Template.Order < b.Candidate.Template.Order
		}
		return a.Candidate.Key() < b.Candidate.Key()
	})
}
