/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: evaluator.go
Description: Example evaluator for the Akaylee Invariants engine. Binds candidate
placeholders to concrete derivation tree nodes by symbol matching, evaluates the
template formula under the declared quantification mode, and returns a tri-state
verdict. Pure function of (candidate, tree): never mutates shared state.
*/

package evaluate

import (
	"github.com/kleascm/akaylee-invariants/pkg/catalog"
	"github.com/kleascm/akaylee-invariants/pkg/grammar"
	"github.com/kleascm/akaylee-invariants/pkg/instantiate"
	"github.com/kleascm/akaylee-invariants/pkg/interfaces"
)

// Example is one parsed derivation tree with its corpus identity.
type Example struct {
	ID   string
	Path string // Source file, for diagnostics
	Tree *grammar.Node
}

// Evaluator checks candidates against examples. Read-only after
// construction and safe for concurrent use across workers.
type Evaluator struct {
	maxAssignments int
}

// NewEvaluator creates an evaluator. maxAssignments bounds the number of
// node assignments tried per (candidate, example) pair; zero means the
// default of 512.
func NewEvaluator(maxAssignments int) *Evaluator {
	if maxAssignments <= 0 {
		maxAssignments = 512
	}
	return &Evaluator{maxAssignments: maxAssignments}
}

// Evaluate checks one candidate against one example tree.
//
// Placeholders bind to nodes labeled with their bound symbol anywhere in the
// tree, in deterministic pre-order; assignments must map placeholders to
// pairwise distinct nodes. With no assignment at all, the verdict is
// INAPPLICABLE. Assignments the formula cannot meaningfully check (e.g.
// int() over non-numeric text) are skipped; if none remain, the verdict is
// likewise INAPPLICABLE. Otherwise the declared quantification mode decides:
// forall fails on the first false assignment, exists succeeds on the first
// true one. When the assignment cap truncates an exists search without a
// witness the verdict is INAPPLICABLE, never VIOLATED: the witness may lie
// beyond the cap.
func (e *Evaluator) Evaluate(c *instantiate.Candidate, tree *grammar.Node) interfaces.Verdict {
	placeholders := c.Template.Placeholders
	matches := make([][]grammar.Match, len(placeholders))
	for i, ph := range placeholders {
		matches[i] = tree.Filter(c.Symbol(ph.Name))
		if len(matches[i]) == 0 {
			return interfaces.VerdictInapplicable
		}
	}

	var (
		tried     int
		checked   int
		sawTrue   bool
		sawFalse  bool
		truncated bool
		selection = make([]int, len(placeholders))
	)

	env := &catalog.Env{
		Node: func(name string) *grammar.Node {
			return matches[c.Template.PlaceholderIndex(name)][selection[c.Template.PlaceholderIndex(name)]].Node
		},
		Path: func(name string) grammar.Path {
			idx := c.Template.PlaceholderIndex(name)
			return matches[idx][selection[idx]].Path
		},
		Symbol: func(name string) string {
			return c.Symbol(name)
		},
	}

	quantifier := c.Template.Quantifier

	var enumerate func(slot int) bool // Returns false to stop enumeration
	enumerate = func(slot int) bool {
		if slot == len(placeholders) {
			if !distinctSelection(matches, selection) {
				return true
			}
			if tried >= e.maxAssignments {
				truncated = true
				return false
			}
			tried++

			value, checkable := c.Template.Formula.Eval(env)
			if !checkable {
				return true
			}
			checked++
			if value {
				sawTrue = true
				if quantifier == catalog.QuantifierExists {
					return false // Witness found.
				}
			} else {
				sawFalse = true
				if quantifier == catalog.QuantifierForAll {
					return false // Counter-assignment found.
				}
			}
			return true
		}
		for idx := range matches[slot] {
			selection[slot] = idx
			if !enumerate(slot + 1) {
				return false
			}
		}
		return true
	}
	enumerate(0)

	if checked == 0 {
		return interfaces.VerdictInapplicable
	}

	switch quantifier {
	case catalog.QuantifierExists:
		if sawTrue {
			return interfaces.VerdictHolds
		}
		// A violation claim needs the full assignment space: a witness may
		// lie beyond the cap, so a truncated search is not conclusive.
		if truncated {
			return interfaces.VerdictInapplicable
		}
		return interfaces.VerdictViolated
	default:
		if sawFalse {
			return interfaces.VerdictViolated
		}
		return interfaces.VerdictHolds
	}
}

// distinctSelection rejects assignments mapping two placeholders to the
// same tree node. A template with two numeric slots is inapplicable to an
// example with a single matching leaf rather than violated.
func distinctSelection(matches [][]grammar.Match, selection []int) bool {
	for i := range selection {
		for j := i + 1; j < len(selection); j++ {
			if samePath(matches[i][selection[i]].Path, matches[j][selection[j]].Path) {
				return false
			}
		}
	}
	return true
}

func samePath(p, q grammar.Path) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// EvaluateAll checks the candidate against the full example set,
// short-circuiting on the first violation: a single counterexample is
// conclusive. Support counts examples where the candidate was applicable
// and held.
func (e *Evaluator) EvaluateAll(c *instantiate.Candidate, examples []*Example) interfaces.AggregateVerdict {
	var agg interfaces.AggregateVerdict
	for _, example := range examples {
		switch e.Evaluate(c, example.Tree) {
		case interfaces.VerdictViolated:
			agg.Violated = true
			agg.CounterExample = example.ID
			return agg
		case interfaces.VerdictHolds:
			agg.Support++
		case interfaces.VerdictInapplicable:
			agg.Inapplicable++
		}
	}
	return agg
}
