/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: catalog.go
Description: Template catalog for the Akaylee Invariants engine. Loads the
ordered collection of constraint templates from a YAML repository, validates
placeholder typing and formula skeletons, and skips malformed entries with a
CatalogError diagnostic while the remaining catalog still loads.
*/

package catalog

import (
	"fmt"
	"os"

	"github.com/kleascm/akaylee-invariants/pkg/grammar"
	"github.com/kleascm/akaylee-invariants/pkg/interfaces"
	"gopkg.in/yaml.v3"
)

// CatalogError indicates a malformed template. The template is skipped; the
// remaining catalog still loads.
type CatalogError struct {
	Template string
	Reason   string
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog error in template %q: %s", e.Template, e.Reason)
}

// Quantifier is the declared quantification mode of a template over its
// matching node assignments. Explicit per-template metadata, never inferred
// from formula shape.
type Quantifier string

const (
	// QuantifierForAll requires the constraint for every matching assignment.
	QuantifierForAll Quantifier = "forall"

	// QuantifierExists requires the constraint for at least one assignment.
	QuantifierExists Quantifier = "exists"
)

// Placeholder is one typed slot of a template.
type Placeholder struct {
	Name    string
	Kind    grammar.SymbolKind
	Symbol  string // Optional: restrict to one exact grammar symbol
	AnyKind bool   // True when kind is "subtree": any nonterminal matches
}

// Requirements is the template's applicability predicate over a symbol
// binding tuple. Grammar-level constraints only, never example-specific.
type Requirements struct {
	Distinct          bool        // Placeholders must bind distinct symbols
	ReachableFromRoot bool        // Every bound symbol must occur in the language
	Within            [][2]string // [outer, inner]: inner must be reachable from outer
}

// Template is an immutable constraint template with typed placeholder slots.
type Template struct {
	Name         string
	Group        string
	Order        int // Position in the catalog, used for deterministic tie-breaks
	Quantifier   Quantifier
	Placeholders []Placeholder
	Formula      *Formula
	Constraint   string // Raw skeleton source
	Require      Requirements
}

// Placeholder returns the declared placeholder with the name, or nil.
func (t *Template) Placeholder(name string) *Placeholder {
	for i := range t.Placeholders {
		if t.Placeholders[i].Name == name {
			return &t.Placeholders[i]
		}
	}
	return nil
}

// PlaceholderIndex returns the declaration position of the placeholder, or -1.
func (t *Template) PlaceholderIndex(name string) int {
	for i := range t.Placeholders {
		if t.Placeholders[i].Name == name {
			return i
		}
	}
	return -1
}

// Catalog is the ordered, restartable collection of valid templates.
type Catalog struct {
	templates []*Template
}

// Templates returns the templates in catalog order. The slice is shared;
// callers must not modify it.
func (c *Catalog) Templates() []*Template {
	return c.templates
}

// Len returns the number of valid templates.
func (c *Catalog) Len() int {
	return len(c.templates)
}

// templateSpec is the YAML shape of one catalog entry.
type templateSpec struct {
	Name         string `yaml:"name"`
	Group        string `yaml:"group"`
	Quantifier   string `yaml:"quantifier"`
	Placeholders []struct {
		Name   string `yaml:"name"`
		Kind   string `yaml:"kind"`
		Symbol string `yaml:"symbol"`
	} `yaml:"placeholders"`
	Constraint string `yaml:"constraint"`
	Require    struct {
		Distinct          bool       `yaml:"distinct"`
		ReachableFromRoot bool       `yaml:"reachable-from-root"`
		Within            [][]string `yaml:"within"`
	} `yaml:"require"`
}

// LoadCatalog reads the template repository from a YAML file. Malformed
// entries are skipped and reported as DiagCatalogError diagnostics; the
// returned error is non-nil only for file-level failures or an empty result.
func LoadCatalog(path string) (*Catalog, []interfaces.Diagnostic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses catalog YAML content. See LoadCatalog.
func ParseCatalog(data []byte) (*Catalog, []interfaces.Diagnostic, error) {
	var specs []templateSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, nil, fmt.Errorf("invalid catalog YAML: %w", err)
	}
	if len(specs) == 0 {
		return nil, nil, fmt.Errorf("catalog defines no templates")
	}

	catalog := &Catalog{}
	var diags []interfaces.Diagnostic
	seen := make(map[string]bool)

	for _, spec := range specs {
		tpl, err := buildTemplate(spec, len(catalog.templates), seen)
		if err != nil {
			diags = append(diags, interfaces.Diagnostic{
				Kind:   interfaces.DiagCatalogError,
				Source: spec.Name,
				Detail: err.Error(),
			})
			continue
		}
		seen[tpl.Name] = true
		catalog.templates = append(catalog.templates, tpl)
	}

	if len(catalog.templates) == 0 {
		return nil, diags, fmt.Errorf("no valid templates in catalog")
	}
	return catalog, diags, nil
}

func buildTemplate(spec templateSpec, order int, seen map[string]bool) (*Template, error) {
	fail := func(format string, args ...interface{}) error {
		return &CatalogError{Template: spec.Name, Reason: fmt.Sprintf(format, args...)}
	}

	if spec.Name == "" {
		return nil, fail("missing template name")
	}
	if seen[spec.Name] {
		return nil, fail("duplicate template name")
	}

	quantifier := Quantifier(spec.Quantifier)
	if spec.Quantifier == "" {
		quantifier = QuantifierForAll
	} else if quantifier != QuantifierForAll && quantifier != QuantifierExists {
		return nil, fail("unknown quantifier %q", spec.Quantifier)
	}

	if len(spec.Placeholders) == 0 {
		return nil, fail("template declares no placeholders")
	}

	tpl := &Template{
		Name:       spec.Name,
		Group:      spec.Group,
		Order:      order,
		Quantifier: quantifier,
		Constraint: spec.Constraint,
	}

	declared := make(map[string]bool, len(spec.Placeholders))
	for _, ph := range spec.Placeholders {
		if ph.Name == "" {
			return nil, fail("placeholder with empty name")
		}
		if declared[ph.Name] {
			return nil, fail("duplicate placeholder %q", ph.Name)
		}
		declared[ph.Name] = true

		placeholder := Placeholder{Name: ph.Name, Symbol: ph.Symbol}
		if ph.Symbol != "" && !grammar.IsNonterminal(ph.Symbol) {
			return nil, fail("placeholder %q restricts to %q, which is not a nonterminal", ph.Name, ph.Symbol)
		}
		switch ph.Kind {
		case "subtree", "":
			placeholder.AnyKind = true
		default:
			kind, ok := grammar.ParseSymbolKind(ph.Kind)
			if !ok {
				return nil, fail("placeholder %q has unknown kind %q", ph.Name, ph.Kind)
			}
			placeholder.Kind = kind
		}
		tpl.Placeholders = append(tpl.Placeholders, placeholder)
	}

	if spec.Constraint == "" {
		return nil, fail("missing constraint skeleton")
	}
	formula, err := ParseFormula(spec.Constraint)
	if err != nil {
		return nil, fail("malformed formula skeleton: %v", err)
	}
	tpl.Formula = formula

	for _, name := range formula.Placeholders() {
		if !declared[name] {
			return nil, fail("formula references undeclared placeholder %q", name)
		}
	}

	tpl.Require.Distinct = spec.Require.Distinct
	tpl.Require.ReachableFromRoot = spec.Require.ReachableFromRoot
	for _, pair := range spec.Require.Within {
		if len(pair) != 2 {
			return nil, fail("within requirement must name exactly two placeholders")
		}
		if !declared[pair[0]] || !declared[pair[1]] {
			return nil, fail("within requirement references undeclared placeholder")
		}
		tpl.Require.Within = append(tpl.Require.Within, [2]string{pair[0], pair[1]})
	}

	return tpl, nil
}
