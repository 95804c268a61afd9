/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: formula.go
Description: Formula skeleton language for constraint templates in the Akaylee
Invariants engine. A skeleton is a conjunction of comparisons and structural
predicates over typed placeholders, e.g. "int(x) >= 0" or
"len(x) <= len(y) && before(x, y)". Parsed once at catalog load time into an
immutable AST, evaluated against node bindings during candidate evaluation.
*/

package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kleascm/akaylee-invariants/pkg/grammar"
)

// CompareOp is a binary comparison operator in a formula skeleton.
type CompareOp string

const (
	OpEq CompareOp = "=="
	OpNe CompareOp = "!="
	OpLt CompareOp = "<"
	OpLe CompareOp = "<="
	OpGt CompareOp = ">"
	OpGe CompareOp = ">="
)

// Arg is a placeholder reference or a quoted literal inside a call.
type Arg struct {
	Name      string // Placeholder name, when not a literal
	Literal   string // Literal text, when IsLiteral
	IsLiteral bool
}

func (a Arg) String() string {
	if a.IsLiteral {
		return "'" + a.Literal + "'"
	}
	return a.Name
}

// Term is one side of a comparison: a function call over placeholders, an
// integer literal, or a string literal.
type Term struct {
	Fn     string // "int", "len", "str", "depth", "count"; empty for literals
	Args   []Arg
	IntVal int64
	StrVal string
	IsInt  bool
	IsStr  bool
}

func (t Term) String() string {
	switch {
	case t.IsInt:
		return strconv.FormatInt(t.IntVal, 10)
	case t.IsStr:
		return "'" + t.StrVal + "'"
	default:
		parts := make([]string, len(t.Args))
		for i, a := range t.Args {
			parts[i] = a.String()
		}
		return fmt.Sprintf("%s(%s)", t.Fn, strings.Join(parts, ", "))
	}
}

// Clause is a single conjunct: either a comparison of two terms or a
// structural predicate call.
type Clause struct {
	// Comparison form
	Left  *Term
	Right *Term
	Op    CompareOp

	// Predicate form ("before", "within", "equal", "contains", "startswith", "endswith")
	Pred     string
	PredArgs []Arg
}

// IsPredicate reports whether the clause is a structural predicate call.
func (c *Clause) IsPredicate() bool {
	return c.Pred != ""
}

func (c *Clause) String() string {
	if c.IsPredicate() {
		parts := make([]string, len(c.PredArgs))
		for i, a := range c.PredArgs {
			parts[i] = a.String()
		}
		return fmt.Sprintf("%s(%s)", c.Pred, strings.Join(parts, ", "))
	}
	return fmt.Sprintf("%s %s %s", c.Left.String(), c.Op, c.Right.String())
}

// Formula is a parsed skeleton: the conjunction of its clauses.
type Formula struct {
	Clauses []*Clause
	raw     string
}

// String returns the source form the formula was parsed from.
func (f *Formula) String() string {
	return f.raw
}

// Placeholders returns the sorted set of placeholder names the formula
// references.
func (f *Formula) Placeholders() []string {
	seen := make(map[string]bool)
	addArgs := func(args []Arg) {
		for _, a := range args {
			if !a.IsLiteral {
				seen[a.Name] = true
			}
		}
	}
	for _, c := range f.Clauses {
		if c.IsPredicate() {
			addArgs(c.PredArgs)
			continue
		}
		addArgs(c.Left.Args)
		addArgs(c.Right.Args)
	}
	result := make([]string, 0, len(seen))
	for name := range seen {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// Env supplies the concrete binding of placeholders for one assignment
// during evaluation.
type Env struct {
	Node   func(placeholder string) *grammar.Node
	Path   func(placeholder string) grammar.Path
	Symbol func(placeholder string) string // Bound grammar symbol (count predicate)
}

// Eval evaluates the formula under the binding. The second result is false
// when the assignment is not meaningfully checkable (e.g. int() over
// non-numeric text); such assignments are skipped by the evaluator, never
// treated as violations.
func (f *Formula) Eval(env *Env) (value bool, checkable bool) {
	for _, clause := range f.Clauses {
		v, ok := clause.eval(env)
		if !ok {
			return false, false
		}
		if !v {
			return false, true
		}
	}
	return true, true
}

func (c *Clause) eval(env *Env) (bool, bool) {
	if c.IsPredicate() {
		return c.evalPredicate(env)
	}

	lv, lok := c.Left.eval(env)
	rv, rok := c.Right.eval(env)
	if !lok || !rok {
		return false, false
	}

	// Integer comparison when both sides are numeric, string otherwise.
	if lv.isInt && rv.isInt {
		return compareInt(lv.intVal, rv.intVal, c.Op), true
	}
	if lv.isInt != rv.isInt {
		return false, false
	}
	return compareString(lv.strVal, rv.strVal, c.Op)
}

type termValue struct {
	intVal int64
	strVal string
	isInt  bool
}

func (t *Term) eval(env *Env) (termValue, bool) {
	switch {
	case t.IsInt:
		return termValue{intVal: t.IntVal, isInt: true}, true
	case t.IsStr:
		return termValue{strVal: t.StrVal}, true
	}

	switch t.Fn {
	case "int":
		text := argText(env, t.Args[0])
		n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return termValue{}, false
		}
		return termValue{intVal: n, isInt: true}, true
	case "len":
		return termValue{intVal: int64(len(argText(env, t.Args[0]))), isInt: true}, true
	case "str":
		return termValue{strVal: argText(env, t.Args[0])}, true
	case "depth":
		node := env.Node(t.Args[0].Name)
		return termValue{intVal: int64(node.Depth()), isInt: true}, true
	case "count":
		node := env.Node(t.Args[0].Name)
		label := t.Args[1].Literal
		if !t.Args[1].IsLiteral {
			label = env.Symbol(t.Args[1].Name)
		}
		return termValue{intVal: int64(node.CountLabel(label)), isInt: true}, true
	}
	return termValue{}, false
}

// argText resolves an argument to node text or literal text.
func argText(env *Env, a Arg) string {
	if a.IsLiteral {
		return a.Literal
	}
	return env.Node(a.Name).Text()
}

func (c *Clause) evalPredicate(env *Env) (bool, bool) {
	switch c.Pred {
	case "before", "after":
		x, y := c.PredArgs[0].Name, c.PredArgs[1].Name
		if c.Pred == "after" {
			x, y = y, x
		}
		return pathBefore(env.Path(x), env.Path(y)), true
	case "within":
		return pathWithin(env.Path(c.PredArgs[0].Name), env.Path(c.PredArgs[1].Name)), true
	case "equal":
		return argText(env, c.PredArgs[0]) == argText(env, c.PredArgs[1]), true
	case "contains":
		return strings.Contains(argText(env, c.PredArgs[0]), argText(env, c.PredArgs[1])), true
	case "startswith":
		return strings.HasPrefix(argText(env, c.PredArgs[0]), argText(env, c.PredArgs[1])), true
	case "endswith":
		return strings.HasSuffix(argText(env, c.PredArgs[0]), argText(env, c.PredArgs[1])), true
	}
	return false, false
}

// pathBefore reports whether the node at p occurs strictly before the node
// at q in left-to-right order. Ancestors are not "before" their descendants.
func pathBefore(p, q grammar.Path) bool {
	for i := 0; i < len(p) && i < len(q); i++ {
		if p[i] != q[i] {
			return p[i] < q[i]
		}
	}
	return false
}

// pathWithin reports whether the node at p lies strictly inside the subtree
// rooted at q.
func pathWithin(p, q grammar.Path) bool {
	if len(p) <= len(q) {
		return false
	}
	for i := range q {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

func compareInt(a, b int64, op CompareOp) bool {
	switch op {
	case OpEq:
		return a == b
	case OpNe:
		return a != b
	case OpLt:
		return a < b
	case OpLe:
		return a <= b
	case OpGt:
		return a > b
	case OpGe:
		return a >= b
	}
	return false
}

func compareString(a, b string, op CompareOp) (bool, bool) {
	switch op {
	case OpEq:
		return a == b, true
	case OpNe:
		return a != b, true
	default:
		// Ordered comparison over strings is not meaningful here.
		return false, false
	}
}

// Normalize returns a canonical rendering of the formula with placeholders
// substituted by their bound names. Renaming-equivalent formulas normalize
// to the same string: "after(x, y)" becomes "before(y, x)", descending
// comparisons are flipped, and symmetric operators order their operands.
func (f *Formula) Normalize(subst func(placeholder string) string) string {
	clauses := make([]string, 0, len(f.Clauses))
	for _, c := range f.Clauses {
		clauses = append(clauses, c.normalize(subst))
	}
	sort.Strings(clauses)
	return strings.Join(clauses, " && ")
}

func (c *Clause) normalize(subst func(string) string) string {
	rename := func(args []Arg) []string {
		out := make([]string, len(args))
		for i, a := range args {
			if a.IsLiteral {
				out[i] = "'" + a.Literal + "'"
			} else {
				out[i] = subst(a.Name)
			}
		}
		return out
	}

	if c.IsPredicate() {
		pred := c.Pred
		args := rename(c.PredArgs)
		if pred == "after" {
			pred = "before"
			args[0], args[1] = args[1], args[0]
		}
		if pred == "equal" && args[1] < args[0] {
			args[0], args[1] = args[1], args[0]
		}
		return fmt.Sprintf("%s(%s)", pred, strings.Join(args, ", "))
	}

	left := c.Left.normalizeTerm(subst)
	right := c.Right.normalizeTerm(subst)
	op := c.Op
	switch op {
	case OpGt:
		op, left, right = OpLt, right, left
	case OpGe:
		op, left, right = OpLe, right, left
	case OpEq, OpNe:
		if right < left {
			left, right = right, left
		}
	}
	return fmt.Sprintf("%s %s %s", left, op, right)
}

func (t *Term) normalizeTerm(subst func(string) string) string {
	switch {
	case t.IsInt:
		return strconv.FormatInt(t.IntVal, 10)
	case t.IsStr:
		return "'" + t.StrVal + "'"
	}
	parts := make([]string, len(t.Args))
	for i, a := range t.Args {
		if a.IsLiteral {
			parts[i] = "'" + a.Literal + "'"
		} else {
			parts[i] = subst(a.Name)
		}
	}
	return fmt.Sprintf("%s(%s)", t.Fn, strings.Join(parts, ", "))
}
