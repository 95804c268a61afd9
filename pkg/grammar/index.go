/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: index.go
Description: Precomputed grammar index for the Akaylee Invariants engine.
Provides symbol reachability, symbol kind classification, and minimal expansion
depths. Built once per grammar via fixed-point iteration with explicit visited
sets, safe on recursive grammars. Pure read-only data after construction.
*/

package grammar

import (
	"regexp"
	"sort"
	"strings"
)

// SymbolKind classifies a nonterminal for template placeholder typing.
// Closed enumeration, checked at instantiation time.
type SymbolKind int

const (
	// KindNumericLeaf derives only numeric text (digits, sign, decimal point).
	KindNumericLeaf SymbolKind = iota

	// KindStringLeaf derives flat strings without structural branching.
	KindStringLeaf

	// KindListLike is self-recursive with branching expansions (repetition).
	KindListLike

	// KindStructural is everything else: interior composite structure.
	KindStructural
)

// String returns the catalog-facing name of the kind.
func (k SymbolKind) String() string {
	switch k {
	case KindNumericLeaf:
		return "numeric-leaf"
	case KindStringLeaf:
		return "string-leaf"
	case KindListLike:
		return "list-like"
	default:
		return "structural"
	}
}

// ParseSymbolKind maps a catalog kind name to its SymbolKind. The second
// result is false for unknown names.
func ParseSymbolKind(name string) (SymbolKind, bool) {
	switch name {
	case "numeric-leaf":
		return KindNumericLeaf, true
	case "string-leaf":
		return KindStringLeaf, true
	case "list-like":
		return KindListLike, true
	case "structural":
		return KindStructural, true
	default:
		return KindStructural, false
	}
}

var numericTerminal = regexp.MustCompile(`^[0-9.eE+-]+$`)

// Index holds precomputed reachability and typing information over a
// grammar's symbol set. Immutable after construction and safely shared
// across workers.
type Index struct {
	grammar *Grammar
	reach   map[string]map[string]bool // reach[a][b]: b occurs at any depth in an expansion of a
	kinds   map[string]SymbolKind
	minAlt  map[string]int // Minimal expansion depth per symbol
}

// NewIndex builds the index: direct derivation edges, transitive closure,
// minimal expansion depths, then kind classification. O(symbols^2) expected.
func NewIndex(g *Grammar) *Index {
	idx := &Index{
		grammar: g,
		reach:   make(map[string]map[string]bool, len(g.Symbols())),
		kinds:   make(map[string]SymbolKind, len(g.Symbols())),
		minAlt:  make(map[string]int, len(g.Symbols())),
	}

	idx.buildReachability()
	idx.buildMinDepths()
	for _, symbol := range g.Symbols() {
		idx.kinds[symbol] = idx.classify(symbol)
	}
	return idx
}

// buildReachability computes, for every nonterminal, the set of nonterminals
// reachable through its expansions. BFS with a visited set per source symbol
// keeps recursive grammars from looping.
func (x *Index) buildReachability() {
	direct := make(map[string][]string, len(x.grammar.Symbols()))
	for _, symbol := range x.grammar.Symbols() {
		seen := make(map[string]bool)
		for _, alt := range x.grammar.Alternatives(symbol) {
			for _, el := range alt {
				if el.NonTerminal && !seen[el.Value] {
					seen[el.Value] = true
					direct[symbol] = append(direct[symbol], el.Value)
				}
			}
		}
		sort.Strings(direct[symbol])
	}

	for _, source := range x.grammar.Symbols() {
		visited := make(map[string]bool)
		queue := append([]string(nil), direct[source]...)
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			if visited[current] {
				continue
			}
			visited[current] = true
			queue = append(queue, direct[current]...)
		}
		x.reach[source] = visited
	}
}

// buildMinDepths computes the minimal derivation depth of each symbol by
// fixed-point iteration. Bounded: depths only decrease, and the iteration
// stops when no update occurs.
func (x *Index) buildMinDepths() {
	const unbounded = 1 << 30
	for _, symbol := range x.grammar.Symbols() {
		x.minAlt[symbol] = unbounded
	}

	for changed := true; changed; {
		changed = false
		for _, symbol := range x.grammar.Symbols() {
			for _, alt := range x.grammar.Alternatives(symbol) {
				depth := 1
				for _, el := range alt {
					if el.NonTerminal {
						if d := x.minAlt[el.Value]; d+1 > depth {
							depth = d + 1
						}
					}
				}
				if depth < x.minAlt[symbol] {
					x.minAlt[symbol] = depth
					changed = true
				}
			}
		}
	}
}

// Reachable reports whether symbol b can appear, at any depth, in some
// expansion of symbol a.
func (x *Index) Reachable(a, b string) bool {
	return x.reach[a][b]
}

// ReachableFromStart reports whether the symbol occurs in the language at all.
func (x *Index) ReachableFromStart(symbol string) bool {
	return symbol == StartSymbol || x.Reachable(StartSymbol, symbol)
}

// Kind returns the classification of the symbol.
func (x *Index) Kind(symbol string) SymbolKind {
	return x.kinds[symbol]
}

// MinDepth returns the minimal derivation depth of the symbol.
func (x *Index) MinDepth(symbol string) int {
	return x.minAlt[symbol]
}

// Grammar returns the underlying grammar.
func (x *Index) Grammar() *Grammar {
	return x.grammar
}

// classify assigns the symbol kind. Precedence: numeric-leaf, string-leaf,
// list-like, structural. The closure of a leaf kind covers the symbol itself
// plus everything it reaches.
func (x *Index) classify(symbol string) SymbolKind {
	closure := []string{symbol}
	for reached := range x.reach[symbol] {
		closure = append(closure, reached)
	}

	allNumeric := true
	hasDigit := false
	hasTerminal := false
	flat := true
	for _, member := range closure {
		for _, alt := range x.grammar.Alternatives(member) {
			nonterminals := 0
			for _, el := range alt {
				if el.NonTerminal {
					nonterminals++
					continue
				}
				if el.Value == "" {
					continue
				}
				hasTerminal = true
				if !numericTerminal.MatchString(el.Value) {
					allNumeric = false
				}
				if strings.ContainsAny(el.Value, "0123456789") {
					hasDigit = true
				}
			}
			if nonterminals > 1 {
				flat = false
			}
		}
	}

	// Sign, exponent, and decimal point marks alone never make a symbol
	// numeric: the closure must also produce a digit.
	switch {
	case hasTerminal && allNumeric && hasDigit:
		return KindNumericLeaf
	case hasTerminal && flat:
		return KindStringLeaf
	case x.reach[symbol][symbol]:
		return KindListLike
	default:
		return KindStructural
	}
}

// TerminalAlphabet returns the sorted set of terminal strings producible
// anywhere in the reachability closure of the symbol (the symbol included).
func (x *Index) TerminalAlphabet(symbol string) []string {
	seen := make(map[string]bool)
	collect := func(s string) {
		for _, t := range x.grammar.Terminals(s) {
			seen[t] = true
		}
	}
	collect(symbol)
	for reached := range x.reach[symbol] {
		collect(reached)
	}

	result := make([]string, 0, len(seen))
	for t := range seen {
		result = append(result, t)
	}
	sort.Strings(result)
	return result
}

// AllowsNegative reports whether the symbol's closure can produce a minus
// sign, i.e. whether its numeric domain includes negative values.
func (x *Index) AllowsNegative(symbol string) bool {
	for _, t := range x.TerminalAlphabet(symbol) {
		for i := 0; i < len(t); i++ {
			if t[i] == '-' {
				return true
			}
		}
	}
	return false
}
