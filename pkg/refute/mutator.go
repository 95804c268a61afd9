/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: mutator.go
Description: Grammar-directed tree mutator for the Akaylee Invariants engine.
Generates random derivation trees within a depth budget, mutates corpus trees
by regenerating subtrees in place, and derives subtrees yielding an exact text
so solver model values can be embedded as grammar-valid counterexamples.
*/

package refute

import (
	"hash/fnv"
	"math/rand"
	"sync"

	"github.com/kleascm/akaylee-invariants/pkg/grammar"
)

// Mutator produces and perturbs derivation trees. Randomness is seeded for
// reproducible runs; the internal lock makes the shared rand source safe
// across refutation workers. Fork derives an independent mutator per
// candidate so that one candidate's search never consumes another's draws.
type Mutator struct {
	index *grammar.Index

	mu   sync.Mutex
	rng  *rand.Rand
	seed int64

	maxDepth int
}

// NewMutator creates a mutator over the grammar index with the given seed.
// maxDepth bounds generated trees; zero means the default of 16.
func NewMutator(index *grammar.Index, seed int64, maxDepth int) *Mutator {
	if maxDepth <= 0 {
		maxDepth = 16
	}
	return &Mutator{
		index:    index,
		rng:      rand.New(rand.NewSource(seed)),
		seed:     seed,
		maxDepth: maxDepth,
	}
}

// Fork returns a mutator whose random sequence depends only on the run seed
// and the key, not on draws taken elsewhere. Refutation forks per candidate
// key, which keeps parallel searches independent of goroutine scheduling.
func (m *Mutator) Fork(key string) *Mutator {
	h := fnv.New64a()
	h.Write([]byte(key))
	seed := m.seed ^ int64(h.Sum64())
	return &Mutator{
		index:    m.index,
		rng:      rand.New(rand.NewSource(seed)),
		seed:     seed,
		maxDepth: m.maxDepth,
	}
}

// Generate builds a random derivation tree for the symbol. Alternatives are
// chosen uniformly while the depth budget allows, then restricted to minimal
// expansions so generation always terminates on recursive grammars.
func (m *Mutator) Generate(symbol string) *grammar.Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expand(symbol, m.maxDepth)
}

func (m *Mutator) expand(symbol string, budget int) *grammar.Node {
	alternatives := m.index.Grammar().Alternatives(symbol)
	if len(alternatives) == 0 {
		return &grammar.Node{Label: symbol}
	}

	// Under budget pressure only minimal-depth alternatives stay in play.
	eligible := make([]grammar.Alternative, 0, len(alternatives))
	for _, alt := range alternatives {
		if m.alternativeDepth(alt) <= budget {
			eligible = append(eligible, alt)
		}
	}
	if len(eligible) == 0 {
		eligible = m.minimalAlternatives(alternatives)
	}
	alt := eligible[m.rng.Intn(len(eligible))]

	node := &grammar.Node{Label: symbol}
	for _, el := range alt {
		if el.NonTerminal {
			node.Children = append(node.Children, m.expand(el.Value, budget-1))
			continue
		}
		if el.Value != "" {
			node.Children = append(node.Children, &grammar.Node{Label: el.Value})
		}
	}
	return node
}

func (m *Mutator) alternativeDepth(alt grammar.Alternative) int {
	depth := 1
	for _, el := range alt {
		if el.NonTerminal {
			if d := m.index.MinDepth(el.Value) + 1; d > depth {
				depth = d
			}
		}
	}
	return depth
}

func (m *Mutator) minimalAlternatives(alternatives []grammar.Alternative) []grammar.Alternative {
	best := 1 << 30
	var result []grammar.Alternative
	for _, alt := range alternatives {
		d := m.alternativeDepth(alt)
		if d < best {
			best = d
			result = result[:0]
		}
		if d == best {
			result = append(result, alt)
		}
	}
	return result
}

// Mutate returns a copy of the tree with one randomly chosen nonterminal
// subtree regenerated. The input tree is never modified. Returns nil when
// the tree has no mutable node.
func (m *Mutator) Mutate(tree *grammar.Node) *grammar.Node {
	var sites []grammar.Match
	for _, symbol := range m.index.Grammar().Symbols() {
		if symbol == grammar.StartSymbol {
			continue
		}
		sites = append(sites, tree.Filter(symbol)...)
	}
	if len(sites) == 0 {
		return nil
	}

	m.mu.Lock()
	site := sites[m.rng.Intn(len(sites))]
	m.mu.Unlock()

	replacement := m.Generate(site.Node.Label)
	return tree.Replace(site.Path, replacement)
}

// MutateAt regenerates the subtree at the site, substituting the given
// replacement instead of a random one. Used to embed solver model values.
func (m *Mutator) MutateAt(tree *grammar.Node, site grammar.Match, replacement *grammar.Node) *grammar.Node {
	if replacement == nil || replacement.Label != site.Node.Label {
		return nil
	}
	return tree.Replace(site.Path, replacement)
}

// Derive builds a derivation tree for the symbol whose terminal yield is
// exactly text, or nil when the grammar cannot produce it. Top-down search
// over alternatives with a step budget; intended for leaf-like symbols whose
// expansions are shallow, which is where solver values get embedded.
func (m *Mutator) Derive(symbol string, text string) *grammar.Node {
	steps := 4096
	return deriveSymbol(m.index.Grammar(), symbol, text, m.maxDepth, &steps)
}

func deriveSymbol(g *grammar.Grammar, symbol string, text string, depth int, steps *int) *grammar.Node {
	if depth <= 0 || *steps <= 0 {
		return nil
	}
	*steps--

	for _, alt := range g.Alternatives(symbol) {
		children := deriveSequence(g, alt, text, depth-1, steps)
		if children == nil {
			continue
		}
		return &grammar.Node{Label: symbol, Children: children}
	}
	return nil
}

// deriveSequence matches text against an element sequence, trying every
// split point for nonterminal elements. Returns the child nodes, or nil.
// An empty expansion matching empty text yields a non-nil empty slice.
func deriveSequence(g *grammar.Grammar, alt grammar.Alternative, text string, depth int, steps *int) []*grammar.Node {
	if *steps <= 0 {
		return nil
	}

	if len(alt) == 0 {
		if text == "" {
			return []*grammar.Node{}
		}
		return nil
	}

	el := alt[0]
	if !el.NonTerminal {
		if el.Value == "" {
			return deriveSequence(g, alt[1:], text, depth, steps)
		}
		if len(text) < len(el.Value) || text[:len(el.Value)] != el.Value {
			return nil
		}
		rest := deriveSequence(g, alt[1:], text[len(el.Value):], depth, steps)
		if rest == nil {
			return nil
		}
		return append([]*grammar.Node{{Label: el.Value}}, rest...)
	}

	// Longest-first keeps greedy symbols (digit runs) from splitting early.
	for cut := len(text); cut >= 0; cut-- {
		sub := deriveSymbol(g, el.Value, text[:cut], depth, steps)
		if sub == nil {
			continue
		}
		rest := deriveSequence(g, alt[1:], text[cut:], depth, steps)
		if rest == nil {
			continue
		}
		return append([]*grammar.Node{sub}, rest...)
	}
	return nil
}
