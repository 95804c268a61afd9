/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: corpus.go
Description: Example corpus management for the Akaylee Invariants engine. Loads
pre-parsed derivation trees from a directory of JSON files, skipping malformed
examples with diagnostics, optionally reduces the corpus by symbol k-path
coverage, and derives the input reachability relation used to prune candidate
bindings.
*/

package core

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kleascm/akaylee-invariants/pkg/evaluate"
	"github.com/kleascm/akaylee-invariants/pkg/grammar"
	"github.com/kleascm/akaylee-invariants/pkg/interfaces"
)

// Corpus is the loaded example set. Immutable after loading except for the
// explicit reduction pass.
type Corpus struct {
	grammar  *grammar.Grammar
	examples []*evaluate.Example
}

// LoadCorpus reads every .json file under dir as a derivation tree, in
// sorted filename order. Malformed or invalid trees become DiagParseError
// diagnostics and are skipped; the error is non-nil only when the directory
// is unreadable or no valid example remains. maxExamples caps the load,
// zero means unlimited.
func LoadCorpus(g *grammar.Grammar, dir string, maxExamples int) (*Corpus, []interfaces.Diagnostic, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read corpus directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	corpus := &Corpus{grammar: g}
	var diags []interfaces.Diagnostic

	for _, name := range names {
		if maxExamples > 0 && len(corpus.examples) >= maxExamples {
			break
		}
		id := strings.TrimSuffix(name, ".json")
		path := filepath.Join(dir, name)
		tree, err := grammar.DecodeTree(g, path, id)
		if err != nil {
			diags = append(diags, interfaces.Diagnostic{
				Kind:   interfaces.DiagParseError,
				Source: name,
				Detail: err.Error(),
			})
			continue
		}
		corpus.examples = append(corpus.examples, &evaluate.Example{ID: id, Path: path, Tree: tree})
	}

	if len(corpus.examples) == 0 {
		return nil, diags, fmt.Errorf("no valid examples in %s", dir)
	}
	return corpus, diags, nil
}

// Examples returns the examples in load order. Shared slice; callers must
// not modify it.
func (c *Corpus) Examples() []*evaluate.Example {
	return c.examples
}

// Len returns the number of loaded examples.
func (c *Corpus) Len() int {
	return len(c.examples)
}

// ReduceByPaths shrinks the corpus to a covering subset: for every symbol
// k-path occurring anywhere in the corpus, the smallest example containing
// it is kept. Candidate evaluation sees the same structural variety at a
// fraction of the cost. k <= 0 leaves the corpus untouched.
func (c *Corpus) ReduceByPaths(k int) {
	if k <= 0 || len(c.examples) <= 1 {
		return
	}

	bySize := append([]*evaluate.Example(nil), c.examples...)
	sort.SliceStable(bySize, func(i, j int) bool {
		si, sj := bySize[i].Tree.Size(), bySize[j].Tree.Size()
		if si != sj {
			return si < sj
		}
		return bySize[i].ID < bySize[j].ID
	})

	covered := make(map[string]bool)
	keep := make(map[string]bool)
	for _, example := range bySize {
		contributes := false
		for _, path := range symbolKPaths(example.Tree, k) {
			if !covered[path] {
				covered[path] = true
				contributes = true
			}
		}
		if contributes {
			keep[example.ID] = true
		}
	}

	reduced := make([]*evaluate.Example, 0, len(keep))
	for _, example := range c.examples {
		if keep[example.ID] {
			reduced = append(reduced, example)
		}
	}
	c.examples = reduced
}

// symbolKPaths returns every window of k consecutive nonterminal labels
// along root-to-leaf chains, rendered as a joined key.
func symbolKPaths(tree *grammar.Node, k int) []string {
	seen := make(map[string]bool)
	var result []string
	for _, chain := range tree.SymbolPaths() {
		limit := len(chain) - k
		for start := 0; start <= limit; start++ {
			key := strings.Join(chain[start:start+k], " ")
			if !seen[key] {
				seen[key] = true
				result = append(result, key)
			}
		}
	}
	return result
}

// ReachabilityPairs derives the observed containment relation from the
// corpus: the pair (a, b) is present when some example has a node labeled b
// below a node labeled a. A strict refinement of grammar reachability; used
// to prune bindings no example can match.
func (c *Corpus) ReachabilityPairs() map[[2]string]bool {
	pairs := make(map[[2]string]bool)
	for _, example := range c.examples {
		for _, chain := range example.Tree.SymbolPaths() {
			for i := 0; i < len(chain); i++ {
				for j := i + 1; j < len(chain); j++ {
					pairs[[2]string{chain[i], chain[j]}] = true
				}
			}
		}
	}
	return pairs
}
