/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: grammar.go
Description: Context-free grammar model for the Akaylee Invariants engine. Loads
grammars from JSON (nonterminal -> ordered alternative expansions), validates
structural integrity, and exposes deterministic symbol iteration for candidate
instantiation.
*/

package grammar

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// GrammarError indicates a malformed grammar. Fatal: the entire run aborts.
type GrammarError struct {
	Path   string
	Reason string
}

func (e *GrammarError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("grammar error: %s", e.Reason)
	}
	return fmt.Sprintf("grammar error in %s: %s", e.Path, e.Reason)
}

// StartSymbol is the root nonterminal every grammar must define.
const StartSymbol = "<start>"

// Element is one piece of an alternative expansion: either a terminal string
// or a reference to a nonterminal symbol.
type Element struct {
	Value       string // Terminal text, or nonterminal name including angle brackets
	NonTerminal bool
}

// Alternative is one ordered expansion of a nonterminal.
type Alternative []Element

// Grammar is an immutable context-free grammar, shared read-only by all
// components once loaded.
type Grammar struct {
	productions map[string][]Alternative
	symbols     []string // Nonterminals in lexicographic order
}

// IsNonterminal reports whether a symbol name denotes a nonterminal.
func IsNonterminal(symbol string) bool {
	return len(symbol) > 2 && strings.HasPrefix(symbol, "<") && strings.HasSuffix(symbol, ">")
}

// LoadGrammar reads and validates a grammar from a JSON file mapping
// nonterminals to alternative expansion strings, e.g.
//
//	{"<start>": ["<num>"], "<num>": ["<digit><num>", "<digit>"], "<digit>": ["0", "1"]}
func LoadGrammar(path string) (*Grammar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &GrammarError{Path: path, Reason: fmt.Sprintf("cannot read file: %v", err)}
	}

	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &GrammarError{Path: path, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	g, err := NewGrammar(raw)
	if err != nil {
		if ge, ok := err.(*GrammarError); ok {
			ge.Path = path
		}
		return nil, err
	}
	return g, nil
}

// NewGrammar builds and validates a grammar from its raw string form.
func NewGrammar(raw map[string][]string) (*Grammar, error) {
	if len(raw) == 0 {
		return nil, &GrammarError{Reason: "grammar defines no productions"}
	}
	if _, ok := raw[StartSymbol]; !ok {
		return nil, &GrammarError{Reason: fmt.Sprintf("missing start symbol %s", StartSymbol)}
	}

	g := &Grammar{productions: make(map[string][]Alternative, len(raw))}

	for symbol, alternatives := range raw {
		if !IsNonterminal(symbol) {
			return nil, &GrammarError{Reason: fmt.Sprintf("production key %q is not a nonterminal", symbol)}
		}
		if len(alternatives) == 0 {
			return nil, &GrammarError{Reason: fmt.Sprintf("nonterminal %s has no alternatives", symbol)}
		}

		parsed := make([]Alternative, 0, len(alternatives))
		for _, alt := range alternatives {
			elements, err := splitExpansion(alt)
			if err != nil {
				return nil, &GrammarError{Reason: fmt.Sprintf("bad expansion %q of %s: %v", alt, symbol, err)}
			}
			parsed = append(parsed, elements)
		}
		g.productions[symbol] = parsed
	}

	// Every referenced nonterminal must be defined.
	for symbol, alternatives := range g.productions {
		for _, alt := range alternatives {
			for _, el := range alt {
				if el.NonTerminal {
					if _, ok := g.productions[el.Value]; !ok {
						return nil, &GrammarError{Reason: fmt.Sprintf(
							"%s references undefined nonterminal %s", symbol, el.Value)}
					}
				}
			}
		}
	}

	g.symbols = make([]string, 0, len(g.productions))
	for symbol := range g.productions {
		g.symbols = append(g.symbols, symbol)
	}
	sort.Strings(g.symbols)

	return g, nil
}

// splitExpansion tokenizes one expansion string into terminal and
// nonterminal elements. "<digit><num>" -> [<digit>, <num>]; "a<x>b" -> [a, <x>, b].
func splitExpansion(expansion string) (Alternative, error) {
	var result Alternative
	rest := expansion

	for len(rest) > 0 {
		open := strings.IndexByte(rest, '<')
		if open < 0 {
			result = append(result, Element{Value: rest})
			break
		}
		if open > 0 {
			result = append(result, Element{Value: rest[:open]})
			rest = rest[open:]
		}
		close := strings.IndexByte(rest, '>')
		if close < 0 {
			return nil, fmt.Errorf("unterminated nonterminal reference")
		}
		name := rest[:close+1]
		if !IsNonterminal(name) {
			return nil, fmt.Errorf("empty nonterminal reference")
		}
		result = append(result, Element{Value: name, NonTerminal: true})
		rest = rest[close+1:]
	}

	// An empty expansion is allowed (epsilon).
	return result, nil
}

// Symbols returns all nonterminals in lexicographic order. The slice is
// shared; callers must not modify it.
func (g *Grammar) Symbols() []string {
	return g.symbols
}

// Alternatives returns the ordered expansions of a nonterminal, or nil if
// the symbol is not defined.
func (g *Grammar) Alternatives(symbol string) []Alternative {
	return g.productions[symbol]
}

// Defines reports whether the grammar has a production for the symbol.
func (g *Grammar) Defines(symbol string) bool {
	_, ok := g.productions[symbol]
	return ok
}

// Terminals returns the lexicographically sorted set of terminal strings
// producible directly by the symbol's own alternatives.
func (g *Grammar) Terminals(symbol string) []string {
	seen := make(map[string]bool)
	for _, alt := range g.productions[symbol] {
		for _, el := range alt {
			if !el.NonTerminal && el.Value != "" {
				seen[el.Value] = true
			}
		}
	}
	result := make([]string, 0, len(seen))
	for t := range seen {
		result = append(result, t)
	}
	sort.Strings(result)
	return result
}
