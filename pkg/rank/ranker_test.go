/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: ranker_test.go
Description: Tests for invariant reduction and ranking: renaming deduplication,
implication pruning over symbol derivation, precision scoring against negative
examples, and the deterministic report order.
*/

package rank

import (
	"testing"

	"github.com/kleascm/akaylee-invariants/pkg/catalog"
	"github.com/kleascm/akaylee-invariants/pkg/evaluate"
	"github.com/kleascm/akaylee-invariants/pkg/grammar"
	"github.com/kleascm/akaylee-invariants/pkg/instantiate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIndex(t *testing.T) *grammar.Index {
	t.Helper()
	g, err := grammar.NewGrammar(map[string][]string{
		"<start>": {"<num>"},
		"<num>":   {"<digit><num>", "<digit>"},
		"<digit>": {"0", "1", "2", "5", "9"},
	})
	require.NoError(t, err)
	return grammar.NewIndex(g)
}

func mustCatalog(t *testing.T, yaml string) *catalog.Catalog {
	t.Helper()
	cat, diags, err := catalog.ParseCatalog([]byte(yaml))
	require.NoError(t, err)
	require.Empty(t, diags)
	return cat
}

func digits(values ...string) *grammar.Node {
	root := &grammar.Node{Label: "<start>"}
	for _, v := range values {
		root.Children = append(root.Children, &grammar.Node{
			Label: "<num>",
			Children: []*grammar.Node{{
				Label:    "<digit>",
				Children: []*grammar.Node{{Label: v}},
			}},
		})
	}
	return root
}

func TestDeduplicateRenamings(t *testing.T) {
	cat := mustCatalog(t, `
- name: comes-before
  placeholders:
    - name: x
      kind: numeric-leaf
    - name: y
      kind: numeric-leaf
  constraint: "before(x, y)"
- name: comes-after
  placeholders:
    - name: p
      kind: numeric-leaf
    - name: q
      kind: numeric-leaf
  constraint: "after(p, q)"
`)
	idx := testIndex(t)
	r := NewRanker(idx, evaluate.NewEvaluator(0))

	a := &Invariant{
		Candidate: instantiate.NewCandidate(cat.Templates()[0],
			map[string]string{"x": "<digit>", "y": "<num>"}),
		Support: 4,
	}
	b := &Invariant{
		Candidate: instantiate.NewCandidate(cat.Templates()[1],
			map[string]string{"p": "<num>", "q": "<digit>"}),
		Support: 4,
	}
	require.Equal(t, a.Candidate.NormalizedFormula(), b.Candidate.NormalizedFormula())

	reduced := r.Reduce([]*Invariant{a, b}, nil)
	require.Len(t, reduced, 1)
	assert.Equal(t, "comes-before", reduced[0].Candidate.Template.Name,
		"earliest catalog position wins the tie")
}

func TestPruneImpliedByDerivation(t *testing.T) {
	cat := mustCatalog(t, `
- name: non-negative
  placeholders:
    - name: x
      kind: numeric-leaf
  constraint: "int(x) >= 0"
`)
	idx := testIndex(t)
	r := NewRanker(idx, evaluate.NewEvaluator(0))
	tpl := cat.Templates()[0]

	general := &Invariant{
		Candidate: instantiate.NewCandidate(tpl, map[string]string{"x": "<num>"}),
		Support:   5,
	}
	specific := &Invariant{
		Candidate: instantiate.NewCandidate(tpl, map[string]string{"x": "<digit>"}),
		Support:   5,
	}

	reduced := r.Reduce([]*Invariant{general, specific}, nil)
	require.Len(t, reduced, 1)
	assert.Equal(t, "<num>", reduced[0].Candidate.Symbol("x"),
		"<num> derives <digit>, the broader statement subsumes the narrower")
}

func TestPruneImpliedRespectsSupport(t *testing.T) {
	cat := mustCatalog(t, `
- name: non-negative
  placeholders:
    - name: x
      kind: numeric-leaf
  constraint: "int(x) >= 0"
`)
	idx := testIndex(t)
	r := NewRanker(idx, evaluate.NewEvaluator(0))
	tpl := cat.Templates()[0]

	general := &Invariant{
		Candidate: instantiate.NewCandidate(tpl, map[string]string{"x": "<num>"}),
		Support:   2,
	}
	specific := &Invariant{
		Candidate: instantiate.NewCandidate(tpl, map[string]string{"x": "<digit>"}),
		Support:   5,
	}

	reduced := r.Reduce([]*Invariant{general, specific}, nil)
	assert.Len(t, reduced, 2, "weaker support never subsumes stronger evidence")
}

func TestPruneImpliedSkipsExists(t *testing.T) {
	cat := mustCatalog(t, `
- name: has-five
  quantifier: exists
  placeholders:
    - name: x
      kind: numeric-leaf
  constraint: "int(x) == 5"
`)
	idx := testIndex(t)
	r := NewRanker(idx, evaluate.NewEvaluator(0))
	tpl := cat.Templates()[0]

	a := &Invariant{Candidate: instantiate.NewCandidate(tpl, map[string]string{"x": "<num>"}), Support: 3}
	b := &Invariant{Candidate: instantiate.NewCandidate(tpl, map[string]string{"x": "<digit>"}), Support: 3}

	reduced := r.Reduce([]*Invariant{a, b}, nil)
	assert.Len(t, reduced, 2, "existential statements are not subsumed by broader symbols")
}

func TestScorePrecision(t *testing.T) {
	cat := mustCatalog(t, `
- name: small
  placeholders:
    - name: x
      kind: numeric-leaf
  constraint: "int(x) <= 3"
- name: non-negative
  placeholders:
    - name: x
      kind: numeric-leaf
  constraint: "int(x) >= 0"
`)
	idx := testIndex(t)
	r := NewRanker(idx, evaluate.NewEvaluator(0))

	discriminating := &Invariant{
		Candidate: instantiate.NewCandidate(cat.Templates()[0], map[string]string{"x": "<num>"}),
		Support:   3,
	}
	vacuous := &Invariant{
		Candidate: instantiate.NewCandidate(cat.Templates()[1], map[string]string{"x": "<num>"}),
		Support:   3,
	}

	negatives := []*evaluate.Example{
		{ID: "neg-1", Tree: digits("9")},
		{ID: "neg-2", Tree: digits("5")},
		{ID: "neg-3", Tree: digits("1")},
	}

	reduced := r.Reduce([]*Invariant{discriminating, vacuous}, negatives)
	require.Len(t, reduced, 2)

	// Ties on support break by precision: the discriminating invariant
	// rejects 2 of 3 negatives, the vacuous one rejects none.
	assert.Equal(t, "small", reduced[0].Candidate.Template.Name)
	assert.InDelta(t, 2.0/3.0, reduced[0].Precision, 1e-9)
	assert.InDelta(t, 0.0, reduced[1].Precision, 1e-9)
}

func TestPrecisionDefaultsWithoutNegatives(t *testing.T) {
	cat := mustCatalog(t, `
- name: non-negative
  placeholders:
    - name: x
      kind: numeric-leaf
  constraint: "int(x) >= 0"
`)
	idx := testIndex(t)
	r := NewRanker(idx, evaluate.NewEvaluator(0))
	inv := &Invariant{
		Candidate: instantiate.NewCandidate(cat.Templates()[0], map[string]string{"x": "<digit>"}),
		Support:   1,
	}
	reduced := r.Reduce([]*Invariant{inv}, nil)
	require.Len(t, reduced, 1)
	assert.Equal(t, 1.0, reduced[0].Precision)
}

func TestOrderDeterministic(t *testing.T) {
	cat := mustCatalog(t, `
- name: first
  placeholders:
    - name: x
      kind: numeric-leaf
  constraint: "int(x) >= 0"
- name: second
  placeholders:
    - name: x
      kind: numeric-leaf
    - name: y
      kind: numeric-leaf
  constraint: "int(x) <= int(y)"
`)
	idx := testIndex(t)
	r := NewRanker(idx, evaluate.NewEvaluator(0))

	lowSupport := &Invariant{
		Candidate: instantiate.NewCandidate(cat.Templates()[0], map[string]string{"x": "<digit>"}),
		Support:   1, Specificity: 1,
	}
	highSupport := &Invariant{
		Candidate: instantiate.NewCandidate(cat.Templates()[1],
			map[string]string{"x": "<digit>", "y": "<num>"}),
		Support: 7, Specificity: 2,
	}

	reduced := r.Reduce([]*Invariant{lowSupport, highSupport}, nil)
	require.Len(t, reduced, 2)
	assert.Equal(t, 7, reduced[0].Support, "support sorts first, descending")
}
