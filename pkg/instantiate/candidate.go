/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: candidate.go
Description: Candidate value type for the Akaylee Invariants engine. A candidate
is a template bound to one specific assignment of placeholders to grammar
symbols. Candidates are comparable and hashable so identical instantiations
deduplicate across templates and runs.
*/

package instantiate

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"github.com/kleascm/akaylee-invariants/pkg/catalog"
)

// Candidate binds every placeholder of a template to a grammar symbol.
// Immutable value object; node-level matching happens later in evaluation.
type Candidate struct {
	Template *catalog.Template
	Bindings map[string]string // Placeholder name -> grammar symbol

	key string
}

// NewCandidate creates a candidate for the template with the given bindings.
// The bindings map is copied.
func NewCandidate(tpl *catalog.Template, bindings map[string]string) *Candidate {
	copied := make(map[string]string, len(bindings))
	for name, symbol := range bindings {
		copied[name] = symbol
	}
	c := &Candidate{Template: tpl, Bindings: copied}
	c.key = c.buildKey()
	return c
}

// buildKey renders the canonical identity string in placeholder declaration
// order, so equal instantiations always compare equal.
func (c *Candidate) buildKey() string {
	var sb strings.Builder
	sb.WriteString(c.Template.Name)
	for _, ph := range c.Template.Placeholders {
		sb.WriteByte('|')
		sb.WriteString(ph.Name)
		sb.WriteByte('=')
		sb.WriteString(c.Bindings[ph.Name])
	}
	return sb.String()
}

// Key returns the canonical identity of the candidate.
func (c *Candidate) Key() string {
	return c.key
}

// ID returns a short stable digest of the candidate identity.
func (c *Candidate) ID() string {
	sum := sha256.Sum256([]byte(c.key))
	return fmt.Sprintf("%x", sum[:8])
}

// Symbol returns the grammar symbol bound to the placeholder.
func (c *Candidate) Symbol(placeholder string) string {
	return c.Bindings[placeholder]
}

// Specificity returns the number of distinct grammar symbols constrained by
// the candidate. More specific candidates rank higher.
func (c *Candidate) Specificity() int {
	distinct := make(map[string]bool, len(c.Bindings))
	for _, symbol := range c.Bindings {
		distinct[symbol] = true
	}
	return len(distinct)
}

// NormalizedFormula returns the candidate's concrete constraint in canonical
// form, with placeholders substituted by their bound symbols. Two candidates
// whose formulas are syntactic renamings of each other normalize identically.
func (c *Candidate) NormalizedFormula() string {
	quantified := make([]string, 0, len(c.Template.Placeholders))
	for _, ph := range c.Template.Placeholders {
		quantified = append(quantified, c.Bindings[ph.Name])
	}
	sort.Strings(quantified)
	body := c.Template.Formula.Normalize(func(placeholder string) string {
		return c.Bindings[placeholder]
	})
	return fmt.Sprintf("%s %s: %s", c.Template.Quantifier, strings.Join(quantified, " "), body)
}

// String renders the candidate for logs and reports.
func (c *Candidate) String() string {
	pairs := make([]string, 0, len(c.Template.Placeholders))
	for _, ph := range c.Template.Placeholders {
		pairs = append(pairs, fmt.Sprintf("%s=%s", ph.Name, c.Bindings[ph.Name]))
	}
	return fmt.Sprintf("%s[%s]", c.Template.Name, strings.Join(pairs, ", "))
}
