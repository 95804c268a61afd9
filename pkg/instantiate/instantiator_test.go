/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: instantiator_test.go
Description: Tests for candidate instantiation: deterministic lexicographic
enumeration, placeholder kind filtering, applicability requirements, search
truncation diagnostics, and candidate identity and normalization.
*/

package instantiate

import (
	"testing"

	"github.com/kleascm/akaylee-invariants/pkg/catalog"
	"github.com/kleascm/akaylee-invariants/pkg/grammar"
	"github.com/kleascm/akaylee-invariants/pkg/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIndex(t *testing.T) *grammar.Index {
	t.Helper()
	g, err := grammar.NewGrammar(map[string][]string{
		"<start>":  {"<record>"},
		"<record>": {"<name>=<num>;<record>", "<name>=<num>"},
		"<name>":   {"<letter><name>", "<letter>"},
		"<letter>": {"a", "b"},
		"<num>":    {"<digit><num>", "<digit>"},
		"<digit>":  {"0", "1", "2", "5", "9"},
	})
	require.NoError(t, err)
	return grammar.NewIndex(g)
}

func mustTemplate(t *testing.T, yaml string) *catalog.Template {
	t.Helper()
	cat, diags, err := catalog.ParseCatalog([]byte(yaml))
	require.NoError(t, err)
	require.Empty(t, diags)
	return cat.Templates()[0]
}

func TestInstantiateKindFiltering(t *testing.T) {
	tpl := mustTemplate(t, `
- name: non-negative
  placeholders:
    - name: x
      kind: numeric-leaf
  constraint: "int(x) >= 0"
`)
	it := NewInstantiator(testIndex(t), DefaultConfig())

	candidates, diag := it.Collect(tpl)
	require.Nil(t, diag)
	require.Len(t, candidates, 2)
	assert.Equal(t, "<digit>", candidates[0].Symbol("x"))
	assert.Equal(t, "<num>", candidates[1].Symbol("x"))
}

func TestInstantiateDeterministicOrder(t *testing.T) {
	tpl := mustTemplate(t, `
- name: pair
  placeholders:
    - name: x
      kind: numeric-leaf
    - name: y
      kind: numeric-leaf
  constraint: "int(x) <= int(y)"
`)
	it := NewInstantiator(testIndex(t), DefaultConfig())

	first, diag := it.Collect(tpl)
	require.Nil(t, diag)
	second, _ := it.Collect(tpl)

	require.Len(t, first, 4)
	for i := range first {
		assert.Equal(t, first[i].Key(), second[i].Key(), "enumeration must be stable")
	}
	assert.Equal(t, "pair|x=<digit>|y=<digit>", first[0].Key())
	assert.Equal(t, "pair|x=<num>|y=<num>", first[3].Key())
}

func TestInstantiateDistinctRequirement(t *testing.T) {
	tpl := mustTemplate(t, `
- name: pair
  placeholders:
    - name: x
      kind: numeric-leaf
    - name: y
      kind: numeric-leaf
  constraint: "int(x) <= int(y)"
  require:
    distinct: true
`)
	it := NewInstantiator(testIndex(t), DefaultConfig())

	candidates, diag := it.Collect(tpl)
	require.Nil(t, diag)
	require.Len(t, candidates, 2)
	for _, c := range candidates {
		assert.NotEqual(t, c.Symbol("x"), c.Symbol("y"))
	}
}

func TestInstantiateSymbolRestriction(t *testing.T) {
	tpl := mustTemplate(t, `
- name: fixed
  placeholders:
    - name: x
      symbol: "<num>"
  constraint: "int(x) >= 0"
`)
	it := NewInstantiator(testIndex(t), DefaultConfig())
	candidates, diag := it.Collect(tpl)
	require.Nil(t, diag)
	require.Len(t, candidates, 1)
	assert.Equal(t, "<num>", candidates[0].Symbol("x"))

	ghost := mustTemplate(t, `
- name: ghost
  placeholders:
    - name: x
      symbol: "<ghost>"
  constraint: "int(x) >= 0"
`)
	candidates, diag = it.Collect(ghost)
	assert.Nil(t, diag)
	assert.Empty(t, candidates, "undefined symbol yields no candidates")
}

func TestInstantiateWithinRequirement(t *testing.T) {
	tpl := mustTemplate(t, `
- name: nested
  placeholders:
    - name: outer
      kind: list-like
    - name: inner
      kind: numeric-leaf
  constraint: "len(inner) <= len(outer)"
  require:
    within:
      - [outer, inner]
`)
	it := NewInstantiator(testIndex(t), DefaultConfig())

	candidates, diag := it.Collect(tpl)
	require.Nil(t, diag)
	// list-like: <name>, <record>; numeric-leaf: <digit>, <num>.
	// <name> reaches neither numeric symbol; <record> reaches both.
	require.Len(t, candidates, 2)
	for _, c := range candidates {
		assert.Equal(t, "<record>", c.Symbol("outer"))
	}
}

func TestInstantiateInputReachabilityRefinement(t *testing.T) {
	tpl := mustTemplate(t, `
- name: nested
  placeholders:
    - name: outer
      kind: list-like
    - name: inner
      kind: numeric-leaf
  constraint: "len(inner) <= len(outer)"
  require:
    within:
      - [outer, inner]
`)
	it := NewInstantiator(testIndex(t), DefaultConfig())
	it.SetInputReachability(map[[2]string]bool{
		{"<record>", "<num>"}: true,
	})

	candidates, diag := it.Collect(tpl)
	require.Nil(t, diag)
	require.Len(t, candidates, 1)
	assert.Equal(t, "<num>", candidates[0].Symbol("inner"))
}

func TestInstantiateArityCap(t *testing.T) {
	tpl := mustTemplate(t, `
- name: wide
  placeholders:
    - name: a
      kind: numeric-leaf
    - name: b
      kind: numeric-leaf
    - name: c
      kind: numeric-leaf
  constraint: "int(a) <= int(b) && int(b) <= int(c)"
`)
	it := NewInstantiator(testIndex(t), Config{MaxArity: 2, MaxCandidates: 100})

	candidates, diag := it.Collect(tpl)
	assert.Empty(t, candidates)
	require.NotNil(t, diag)
	assert.Equal(t, interfaces.DiagTruncatedSearch, diag.Kind)
	assert.Contains(t, diag.Detail, "arity")
}

func TestInstantiateTruncation(t *testing.T) {
	tpl := mustTemplate(t, `
- name: pair
  placeholders:
    - name: x
      kind: numeric-leaf
    - name: y
      kind: numeric-leaf
  constraint: "int(x) <= int(y)"
`)
	it := NewInstantiator(testIndex(t), Config{MaxArity: 4, MaxCandidates: 3})

	candidates, diag := it.Collect(tpl)
	assert.Len(t, candidates, 3, "truncation keeps the first candidates in order")
	require.NotNil(t, diag)
	assert.Equal(t, interfaces.DiagTruncatedSearch, diag.Kind)
}

func TestCandidateIdentity(t *testing.T) {
	tpl := mustTemplate(t, `
- name: pair
  placeholders:
    - name: x
      kind: numeric-leaf
    - name: y
      kind: numeric-leaf
  constraint: "int(x) <= int(y)"
`)
	a := NewCandidate(tpl, map[string]string{"x": "<digit>", "y": "<num>"})
	b := NewCandidate(tpl, map[string]string{"y": "<num>", "x": "<digit>"})

	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, a.ID(), b.ID())
	assert.Len(t, a.ID(), 16)
	assert.Equal(t, 2, a.Specificity())
	assert.Equal(t, "pair[x=<digit>, y=<num>]", a.String())

	same := NewCandidate(tpl, map[string]string{"x": "<num>", "y": "<num>"})
	assert.Equal(t, 1, same.Specificity())
}

func TestNormalizedFormulaRenamingDedup(t *testing.T) {
	forward := mustTemplate(t, `
- name: comes-before
  placeholders:
    - name: x
      kind: numeric-leaf
    - name: y
      kind: string-leaf
  constraint: "before(x, y)"
`)
	backward := mustTemplate(t, `
- name: comes-after
  placeholders:
    - name: p
      kind: string-leaf
    - name: q
      kind: numeric-leaf
  constraint: "after(p, q)"
`)

	a := NewCandidate(forward, map[string]string{"x": "<num>", "y": "<letter>"})
	b := NewCandidate(backward, map[string]string{"p": "<letter>", "q": "<num>"})

	assert.NotEqual(t, a.Key(), b.Key())
	assert.Equal(t, a.NormalizedFormula(), b.NormalizedFormula(),
		"renaming-equivalent candidates normalize identically")
}

func TestInstantiateYieldStopsEarly(t *testing.T) {
	tpl := mustTemplate(t, `
- name: pair
  placeholders:
    - name: x
      kind: numeric-leaf
    - name: y
      kind: numeric-leaf
  constraint: "int(x) <= int(y)"
`)
	it := NewInstantiator(testIndex(t), DefaultConfig())

	var seen int
	diag := it.Instantiate(tpl, func(c *Candidate) bool {
		seen++
		return seen < 2
	})
	assert.Nil(t, diag)
	assert.Equal(t, 2, seen)
}
