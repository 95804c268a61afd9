/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: evaluator_test.go
Description: Tests for candidate evaluation: tri-state verdicts, distinct node
assignments, quantification modes, checkability skipping, assignment caps, and
corpus-level aggregation with counterexample traceability.
*/

package evaluate

import (
	"testing"

	"github.com/kleascm/akaylee-invariants/pkg/catalog"
	"github.com/kleascm/akaylee-invariants/pkg/grammar"
	"github.com/kleascm/akaylee-invariants/pkg/instantiate"
	"github.com/kleascm/akaylee-invariants/pkg/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(label string, children ...*grammar.Node) *grammar.Node {
	return &grammar.Node{Label: label, Children: children}
}

// digits builds a <start> tree holding the given single-digit <num> leaves.
func digits(values ...string) *grammar.Node {
	root := node("<start>")
	for _, v := range values {
		root.Children = append(root.Children,
			node("<num>", node("<digit>", node(v))))
	}
	return root
}

func candidate(t *testing.T, yaml string, bindings map[string]string) *instantiate.Candidate {
	t.Helper()
	cat, diags, err := catalog.ParseCatalog([]byte(yaml))
	require.NoError(t, err)
	require.Empty(t, diags)
	return instantiate.NewCandidate(cat.Templates()[0], bindings)
}

const nonNegativeYAML = `
- name: non-negative
  placeholders:
    - name: x
      kind: numeric-leaf
  constraint: "int(x) >= 0"
`

const orderedPairYAML = `
- name: ordered-pair
  placeholders:
    - name: x
      kind: numeric-leaf
    - name: y
      kind: numeric-leaf
  constraint: "int(x) <= int(y)"
`

func TestEvaluateHolds(t *testing.T) {
	c := candidate(t, nonNegativeYAML, map[string]string{"x": "<num>"})
	e := NewEvaluator(0)
	assert.Equal(t, interfaces.VerdictHolds, e.Evaluate(c, digits("1", "5")))
}

func TestEvaluateViolated(t *testing.T) {
	c := candidate(t, `
- name: small
  placeholders:
    - name: x
      kind: numeric-leaf
  constraint: "int(x) <= 3"
`, map[string]string{"x": "<num>"})
	e := NewEvaluator(0)
	assert.Equal(t, interfaces.VerdictViolated, e.Evaluate(c, digits("1", "5")))
}

func TestEvaluateInapplicableNoMatches(t *testing.T) {
	c := candidate(t, nonNegativeYAML, map[string]string{"x": "<num>"})
	e := NewEvaluator(0)
	tree := node("<start>", node("<name>", node("<letter>", node("a"))))
	assert.Equal(t, interfaces.VerdictInapplicable, e.Evaluate(c, tree))
}

func TestEvaluateDistinctNodesRequired(t *testing.T) {
	// One <num> node but two placeholders: no distinct assignment exists,
	// so the verdict is INAPPLICABLE rather than VIOLATED.
	c := candidate(t, orderedPairYAML, map[string]string{"x": "<num>", "y": "<num>"})
	e := NewEvaluator(0)
	assert.Equal(t, interfaces.VerdictInapplicable, e.Evaluate(c, digits("5")))
	assert.Equal(t, interfaces.VerdictViolated, e.Evaluate(c, digits("5", "2")))
	assert.Equal(t, interfaces.VerdictHolds, e.Evaluate(c, digits("2", "2")))
}

func TestEvaluateNonCheckableSkipped(t *testing.T) {
	c := candidate(t, nonNegativeYAML, map[string]string{"x": "<name>"})
	e := NewEvaluator(0)
	// int() over "a" never parses: no checkable assignment.
	tree := node("<start>", node("<name>", node("a")))
	assert.Equal(t, interfaces.VerdictInapplicable, e.Evaluate(c, tree))
}

func TestEvaluateExists(t *testing.T) {
	c := candidate(t, `
- name: has-five
  quantifier: exists
  placeholders:
    - name: x
      kind: numeric-leaf
  constraint: "int(x) == 5"
`, map[string]string{"x": "<num>"})
	e := NewEvaluator(0)

	assert.Equal(t, interfaces.VerdictHolds, e.Evaluate(c, digits("1", "5")))
	assert.Equal(t, interfaces.VerdictViolated, e.Evaluate(c, digits("1", "2")))
}

func TestEvaluateAssignmentCap(t *testing.T) {
	c := candidate(t, orderedPairYAML, map[string]string{"x": "<num>", "y": "<num>"})
	e := NewEvaluator(1)

	// Only the first distinct assignment (first <num>, second <num>) is
	// tried: 2 <= 2 holds. The violating pair (5, 2) is never reached.
	verdict := e.Evaluate(c, digits("2", "2", "5"))
	assert.Equal(t, interfaces.VerdictHolds, verdict)
}

func TestEvaluateExistsCapIsNotConclusive(t *testing.T) {
	c := candidate(t, `
- name: has-five
  quantifier: exists
  placeholders:
    - name: x
      kind: numeric-leaf
  constraint: "int(x) == 5"
`, map[string]string{"x": "<num>"})

	tree := digits("1", "2", "5")
	assert.Equal(t, interfaces.VerdictHolds, NewEvaluator(0).Evaluate(c, tree))

	// With the cap at one assignment the witness is never reached. The
	// truncated search must not claim a violation.
	assert.Equal(t, interfaces.VerdictInapplicable, NewEvaluator(1).Evaluate(c, tree))
}

func TestEvaluateAllShortCircuits(t *testing.T) {
	c := candidate(t, `
- name: small
  placeholders:
    - name: x
      kind: numeric-leaf
  constraint: "int(x) <= 3"
`, map[string]string{"x": "<num>"})
	e := NewEvaluator(0)

	examples := []*Example{
		{ID: "ok-1", Tree: digits("1")},
		{ID: "bad", Tree: digits("9")},
		{ID: "ok-2", Tree: digits("2")},
	}
	agg := e.EvaluateAll(c, examples)
	assert.True(t, agg.Violated)
	assert.Equal(t, "bad", agg.CounterExample)
	assert.Equal(t, 1, agg.Support, "evaluation stops at the counterexample")
}

func TestEvaluateAllAggregates(t *testing.T) {
	c := candidate(t, nonNegativeYAML, map[string]string{"x": "<num>"})
	e := NewEvaluator(0)

	inapplicable := node("<start>", node("<name>", node("a")))
	examples := []*Example{
		{ID: "a", Tree: digits("1")},
		{ID: "b", Tree: inapplicable},
		{ID: "c", Tree: digits("5", "9")},
	}
	agg := e.EvaluateAll(c, examples)
	assert.False(t, agg.Violated)
	assert.Equal(t, 2, agg.Support)
	assert.Equal(t, 1, agg.Inapplicable)
	assert.Empty(t, agg.CounterExample)
}
