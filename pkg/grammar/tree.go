/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: tree.go
Description: Derivation tree model for the Akaylee Invariants engine. Trees are
produced by the external parser collaborator and loaded here from their JSON
serialization. Immutable after construction; nodes are addressed by structural
paths and matched by symbol label during candidate evaluation.
*/

package grammar

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ParseError indicates an example that failed to decode or validate against
// the grammar. The example is excluded; the run continues with a warning.
type ParseError struct {
	Example string
	Reason  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in example %s: %s", e.Example, e.Reason)
}

// Node is one node of a derivation tree. Nonterminal nodes carry children;
// terminal nodes carry the literal text in Label and no children.
type Node struct {
	Label    string  `json:"label"`
	Children []*Node `json:"children,omitempty"`
}

// Path addresses a node by the sequence of child indices from the root.
type Path []int

// IsTerminal reports whether the node is a terminal leaf.
func (n *Node) IsTerminal() bool {
	return !IsNonterminal(n.Label)
}

// Text returns the terminal yield of the subtree, i.e. the concatenation of
// all terminal leaves in order.
func (n *Node) Text() string {
	if n.IsTerminal() {
		return n.Label
	}
	var sb strings.Builder
	for _, child := range n.Children {
		sb.WriteString(child.Text())
	}
	return sb.String()
}

// Size returns the number of nodes in the subtree.
func (n *Node) Size() int {
	size := 1
	for _, child := range n.Children {
		size += child.Size()
	}
	return size
}

// Depth returns the height of the subtree (a leaf has depth 1).
func (n *Node) Depth() int {
	max := 0
	for _, child := range n.Children {
		if d := child.Depth(); d > max {
			max = d
		}
	}
	return max + 1
}

// At returns the node addressed by the path, or nil if the path is invalid.
func (n *Node) At(path Path) *Node {
	current := n
	for _, idx := range path {
		if idx < 0 || idx >= len(current.Children) {
			return nil
		}
		current = current.Children[idx]
	}
	return current
}

// Match is a node found by label search together with its structural path.
type Match struct {
	Node *Node
	Path Path
}

// Filter returns all nodes labeled with the symbol, in deterministic
// pre-order. Paths are freshly allocated and safe to retain.
func (n *Node) Filter(symbol string) []Match {
	var result []Match
	n.walk(nil, func(node *Node, path Path) {
		if node.Label == symbol {
			p := make(Path, len(path))
			copy(p, path)
			result = append(result, Match{Node: node, Path: p})
		}
	})
	return result
}

// CountLabel returns the number of nodes in the subtree labeled with symbol.
func (n *Node) CountLabel(symbol string) int {
	count := 0
	n.walk(nil, func(node *Node, _ Path) {
		if node.Label == symbol {
			count++
		}
	})
	return count
}

func (n *Node) walk(path Path, visit func(*Node, Path)) {
	visit(n, path)
	for i, child := range n.Children {
		child.walk(append(path, i), visit)
	}
}

// Clone returns a deep copy of the subtree.
func (n *Node) Clone() *Node {
	clone := &Node{Label: n.Label}
	if len(n.Children) > 0 {
		clone.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			clone.Children[i] = child.Clone()
		}
	}
	return clone
}

// Replace returns a copy of the tree with the subtree at path substituted.
// The receiver is never mutated. Returns nil if the path is invalid.
func (n *Node) Replace(path Path, subtree *Node) *Node {
	if len(path) == 0 {
		return subtree
	}
	idx := path[0]
	if idx < 0 || idx >= len(n.Children) {
		return nil
	}
	replaced := n.Children[idx].Replace(path[1:], subtree)
	if replaced == nil {
		return nil
	}
	clone := &Node{Label: n.Label, Children: make([]*Node, len(n.Children))}
	copy(clone.Children, n.Children)
	clone.Children[idx] = replaced
	return clone
}

// SymbolPaths returns every root-to-leaf sequence of nonterminal labels in
// the tree. Used to derive the input reachability relation.
func (n *Node) SymbolPaths() [][]string {
	var result [][]string
	var descend func(node *Node, prefix []string)
	descend = func(node *Node, prefix []string) {
		if node.IsTerminal() {
			path := make([]string, len(prefix))
			copy(path, prefix)
			result = append(result, path)
			return
		}
		prefix = append(prefix, node.Label)
		if len(node.Children) == 0 {
			path := make([]string, len(prefix))
			copy(path, prefix)
			result = append(result, path)
			return
		}
		for _, child := range node.Children {
			descend(child, prefix)
		}
	}
	descend(n, nil)
	return result
}

// DecodeTree loads one derivation tree from its JSON file and validates it
// against the grammar. The example name is used in diagnostics.
func DecodeTree(g *Grammar, path string, example string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Example: example, Reason: fmt.Sprintf("cannot read file: %v", err)}
	}

	var root Node
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, &ParseError{Example: example, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	if err := ValidateTree(g, &root); err != nil {
		return nil, &ParseError{Example: example, Reason: err.Error()}
	}
	return &root, nil
}

// ValidateTree checks that every nonterminal node expands according to one
// of its grammar alternatives and every terminal matches the expansion text.
func ValidateTree(g *Grammar, root *Node) error {
	if root.Label != StartSymbol {
		return fmt.Errorf("root is %q, want %s", root.Label, StartSymbol)
	}
	return validateNode(g, root)
}

func validateNode(g *Grammar, node *Node) error {
	if node.IsTerminal() {
		if len(node.Children) > 0 {
			return fmt.Errorf("terminal node %q has children", node.Label)
		}
		return nil
	}

	alternatives := g.Alternatives(node.Label)
	if alternatives == nil {
		return fmt.Errorf("unknown nonterminal %s", node.Label)
	}

	if !matchesAnyAlternative(alternatives, node.Children) {
		return fmt.Errorf("children of %s match no alternative", node.Label)
	}

	for _, child := range node.Children {
		if err := validateNode(g, child); err != nil {
			return err
		}
	}
	return nil
}

func matchesAnyAlternative(alternatives []Alternative, children []*Node) bool {
	for _, alt := range alternatives {
		if matchesAlternative(alt, children) {
			return true
		}
	}
	return false
}

func matchesAlternative(alt Alternative, children []*Node) bool {
	// Empty expansions produce childless nodes.
	nonEmpty := make(Alternative, 0, len(alt))
	for _, el := range alt {
		if el.NonTerminal || el.Value != "" {
			nonEmpty = append(nonEmpty, el)
		}
	}
	if len(nonEmpty) != len(children) {
		return false
	}
	for i, el := range nonEmpty {
		if children[i].Label != el.Value {
			return false
		}
		if el.NonTerminal != !children[i].IsTerminal() {
			return false
		}
	}
	return true
}
