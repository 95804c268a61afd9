/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: instantiator.go
Description: Candidate instantiator for the Akaylee Invariants engine. Enumerates
every symbol-to-placeholder binding consistent with the grammar index and a
template's applicability predicate, in deterministic lexicographic order, with
configurable caps on binding arity and candidate count per template.
*/

package instantiate

import (
	"fmt"

	"github.com/kleascm/akaylee-invariants/pkg/catalog"
	"github.com/kleascm/akaylee-invariants/pkg/grammar"
	"github.com/kleascm/akaylee-invariants/pkg/interfaces"
)

// Config bounds the combinatorial search per template.
type Config struct {
	MaxArity      int // Templates with more placeholders are skipped
	MaxCandidates int // Enumeration truncates deterministically after this many
}

// DefaultConfig returns the standard search bounds.
func DefaultConfig() Config {
	return Config{MaxArity: 4, MaxCandidates: 5000}
}

// Instantiator streams candidates for templates against a grammar index.
// Read-only after construction and safe for concurrent use.
type Instantiator struct {
	index  *grammar.Index
	config Config

	// Optional reachability refinement derived from the example corpus:
	// a pair (a, b) is present when b was observed below a in some example.
	// When set, "within" requirements consult it instead of the grammar,
	// which prunes bindings no example can ever match.
	inputReach map[[2]string]bool
}

// NewInstantiator creates an instantiator over the grammar index.
func NewInstantiator(index *grammar.Index, config Config) *Instantiator {
	return &Instantiator{index: index, config: config}
}

// SetInputReachability installs the corpus-derived reachability relation.
func (it *Instantiator) SetInputReachability(pairs map[[2]string]bool) {
	it.inputReach = pairs
}

// Instantiate enumerates all candidates of the template in lexicographic
// symbol order, calling yield for each. Enumeration stops early when yield
// returns false. The returned diagnostic is non-nil when the search was
// truncated by a cap; truncation keeps the first candidates in canonical
// order rather than failing.
func (it *Instantiator) Instantiate(tpl *catalog.Template, yield func(*Candidate) bool) *interfaces.Diagnostic {
	if len(tpl.Placeholders) > it.config.MaxArity {
		return &interfaces.Diagnostic{
			Kind:   interfaces.DiagTruncatedSearch,
			Source: tpl.Name,
			Detail: fmt.Sprintf("template arity %d exceeds maximum %d, template skipped",
				len(tpl.Placeholders), it.config.MaxArity),
		}
	}

	// Candidate symbol pool per placeholder, filtered by kind up front.
	pools := make([][]string, len(tpl.Placeholders))
	for i, ph := range tpl.Placeholders {
		pools[i] = it.symbolPool(ph)
		if len(pools[i]) == 0 {
			return nil // No admissible symbols: template yields nothing.
		}
	}

	produced := 0
	truncated := false
	bindings := make(map[string]string, len(tpl.Placeholders))

	var enumerate func(slot int) bool
	enumerate = func(slot int) bool {
		if slot == len(tpl.Placeholders) {
			if !it.admissible(tpl, bindings) {
				return true
			}
			if produced >= it.config.MaxCandidates {
				truncated = true
				return false
			}
			produced++
			return yield(NewCandidate(tpl, bindings))
		}
		for _, symbol := range pools[slot] {
			bindings[tpl.Placeholders[slot].Name] = symbol
			if !enumerate(slot + 1) {
				return false
			}
		}
		delete(bindings, tpl.Placeholders[slot].Name)
		return true
	}
	enumerate(0)

	if truncated {
		return &interfaces.Diagnostic{
			Kind:   interfaces.DiagTruncatedSearch,
			Source: tpl.Name,
			Detail: fmt.Sprintf("candidate enumeration truncated at %d", it.config.MaxCandidates),
		}
	}
	return nil
}

// Collect gathers all candidates of the template into a slice.
func (it *Instantiator) Collect(tpl *catalog.Template) ([]*Candidate, *interfaces.Diagnostic) {
	var result []*Candidate
	diag := it.Instantiate(tpl, func(c *Candidate) bool {
		result = append(result, c)
		return true
	})
	return result, diag
}

// symbolPool returns the lexicographically ordered symbols admissible for
// the placeholder's type constraint.
func (it *Instantiator) symbolPool(ph catalog.Placeholder) []string {
	if ph.Symbol != "" {
		if it.index.Grammar().Defines(ph.Symbol) {
			return []string{ph.Symbol}
		}
		return nil
	}

	var pool []string
	for _, symbol := range it.index.Grammar().Symbols() {
		if ph.AnyKind || it.index.Kind(symbol) == ph.Kind {
			pool = append(pool, symbol)
		}
	}
	return pool
}

// admissible applies the template's applicability predicate to a complete
// binding tuple. Grammar-level constraints only.
func (it *Instantiator) admissible(tpl *catalog.Template, bindings map[string]string) bool {
	if tpl.Require.Distinct {
		seen := make(map[string]bool, len(bindings))
		for _, symbol := range bindings {
			if seen[symbol] {
				return false
			}
			seen[symbol] = true
		}
	}

	if tpl.Require.ReachableFromRoot {
		for _, symbol := range bindings {
			if !it.index.ReachableFromStart(symbol) {
				return false
			}
		}
	}

	for _, pair := range tpl.Require.Within {
		outer := bindings[pair[0]]
		inner := bindings[pair[1]]
		if !it.reachable(outer, inner) {
			return false
		}
	}
	return true
}

func (it *Instantiator) reachable(from, to string) bool {
	if it.inputReach != nil {
		return it.inputReach[[2]string{from, to}]
	}
	return it.index.Reachable(from, to)
}
