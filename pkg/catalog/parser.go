/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: parser.go
Description: Recursive-descent parser for formula skeletons in the Akaylee
Invariants engine. Tokenizes and parses a skeleton string into the Formula AST,
validating function arities and argument shapes. Parse failures surface as
CatalogError for the owning template.
*/

package catalog

import (
	"fmt"
	"strconv"
	"unicode"
)

// numericFns and predicates define the closed vocabulary of the skeleton
// language together with their arities.
var (
	termFns = map[string]int{
		"int":   1,
		"len":   1,
		"str":   1,
		"depth": 1,
		"count": 2,
	}
	predicateFns = map[string]int{
		"before":     2,
		"after":      2,
		"within":     2,
		"equal":      2,
		"contains":   2,
		"startswith": 2,
		"endswith":   2,
	}
)

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokInt
	tokString
	tokLParen
	tokRParen
	tokComma
	tokOp  // Comparison operator
	tokAnd // "&&"
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type lexer struct {
	input string
	pos   int
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
	if l.pos >= len(l.input) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}

	start := l.pos
	ch := l.input[l.pos]

	switch {
	case ch == '(':
		l.pos++
		return token{kind: tokLParen, text: "(", pos: start}, nil
	case ch == ')':
		l.pos++
		return token{kind: tokRParen, text: ")", pos: start}, nil
	case ch == ',':
		l.pos++
		return token{kind: tokComma, text: ",", pos: start}, nil
	case ch == '\'':
		l.pos++
		for l.pos < len(l.input) && l.input[l.pos] != '\'' {
			l.pos++
		}
		if l.pos >= len(l.input) {
			return token{}, fmt.Errorf("unterminated string literal at offset %d", start)
		}
		text := l.input[start+1 : l.pos]
		l.pos++
		return token{kind: tokString, text: text, pos: start}, nil
	case ch == '&':
		if l.pos+1 < len(l.input) && l.input[l.pos+1] == '&' {
			l.pos += 2
			return token{kind: tokAnd, text: "&&", pos: start}, nil
		}
		return token{}, fmt.Errorf("unexpected character %q at offset %d", ch, start)
	case ch == '=' || ch == '!' || ch == '<' || ch == '>':
		if l.pos+1 < len(l.input) && l.input[l.pos+1] == '=' {
			l.pos += 2
			return token{kind: tokOp, text: l.input[start : start+2], pos: start}, nil
		}
		if ch == '<' || ch == '>' {
			l.pos++
			return token{kind: tokOp, text: string(ch), pos: start}, nil
		}
		return token{}, fmt.Errorf("unexpected character %q at offset %d", ch, start)
	case ch == '-' || unicode.IsDigit(rune(ch)):
		l.pos++
		for l.pos < len(l.input) && unicode.IsDigit(rune(l.input[l.pos])) {
			l.pos++
		}
		if l.pos == start+1 && ch == '-' {
			return token{}, fmt.Errorf("dangling minus sign at offset %d", start)
		}
		return token{kind: tokInt, text: l.input[start:l.pos], pos: start}, nil
	case unicode.IsLetter(rune(ch)) || ch == '_':
		l.pos++
		for l.pos < len(l.input) {
			r := rune(l.input[l.pos])
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
				break
			}
			l.pos++
		}
		return token{kind: tokIdent, text: l.input[start:l.pos], pos: start}, nil
	default:
		return token{}, fmt.Errorf("unexpected character %q at offset %d", ch, start)
	}
}

type parser struct {
	tokens []token
	pos    int
}

// ParseFormula parses a formula skeleton string into its AST.
func ParseFormula(input string) (*Formula, error) {
	lx := &lexer{input: input}
	var tokens []token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.kind == tokEOF {
			break
		}
	}

	p := &parser{tokens: tokens}
	formula := &Formula{raw: input}

	for {
		clause, err := p.parseClause()
		if err != nil {
			return nil, err
		}
		formula.Clauses = append(formula.Clauses, clause)

		if p.peek().kind == tokAnd {
			p.pos++
			continue
		}
		break
	}

	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("unexpected token %q at offset %d", p.peek().text, p.peek().pos)
	}
	if len(formula.Clauses) == 0 {
		return nil, fmt.Errorf("empty formula")
	}
	return formula, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	tok := p.tokens[p.pos]
	if tok.kind != kind {
		return token{}, fmt.Errorf("expected %s at offset %d, got %q", what, tok.pos, tok.text)
	}
	p.pos++
	return tok, nil
}

// parseClause parses either a predicate call or a comparison of two terms.
func (p *parser) parseClause() (*Clause, error) {
	tok := p.peek()
	if tok.kind == tokIdent {
		if _, isPred := predicateFns[tok.text]; isPred {
			return p.parsePredicate()
		}
	}

	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	opTok, err := p.expect(tokOp, "comparison operator")
	if err != nil {
		return nil, err
	}
	right, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	return &Clause{Left: left, Right: right, Op: CompareOp(opTok.text)}, nil
}

func (p *parser) parsePredicate() (*Clause, error) {
	name, err := p.expect(tokIdent, "predicate name")
	if err != nil {
		return nil, err
	}
	args, err := p.parseArgs()
	if err != nil {
		return nil, err
	}
	if want := predicateFns[name.text]; len(args) != want {
		return nil, fmt.Errorf("predicate %s takes %d arguments, got %d", name.text, want, len(args))
	}
	if name.text == "before" || name.text == "after" || name.text == "within" {
		for _, a := range args {
			if a.IsLiteral {
				return nil, fmt.Errorf("predicate %s takes placeholder arguments only", name.text)
			}
		}
	}
	return &Clause{Pred: name.text, PredArgs: args}, nil
}

func (p *parser) parseTerm() (*Term, error) {
	tok := p.peek()
	switch tok.kind {
	case tokInt:
		p.pos++
		n, err := strconv.ParseInt(tok.text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad integer literal %q at offset %d", tok.text, tok.pos)
		}
		return &Term{IntVal: n, IsInt: true}, nil
	case tokString:
		p.pos++
		return &Term{StrVal: tok.text, IsStr: true}, nil
	case tokIdent:
		arity, known := termFns[tok.text]
		if !known {
			return nil, fmt.Errorf("unknown function %q at offset %d", tok.text, tok.pos)
		}
		p.pos++
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		if len(args) != arity {
			return nil, fmt.Errorf("function %s takes %d arguments, got %d", tok.text, arity, len(args))
		}
		if args[0].IsLiteral {
			return nil, fmt.Errorf("function %s requires a placeholder as first argument", tok.text)
		}
		return &Term{Fn: tok.text, Args: args}, nil
	default:
		return nil, fmt.Errorf("expected term at offset %d, got %q", tok.pos, tok.text)
	}
}

func (p *parser) parseArgs() ([]Arg, error) {
	if _, err := p.expect(tokLParen, "'('"); err != nil {
		return nil, err
	}
	var args []Arg
	for {
		tok := p.peek()
		switch tok.kind {
		case tokIdent:
			p.pos++
			args = append(args, Arg{Name: tok.text})
		case tokString:
			p.pos++
			args = append(args, Arg{Literal: tok.text, IsLiteral: true})
		default:
			return nil, fmt.Errorf("expected argument at offset %d, got %q", tok.pos, tok.text)
		}

		if p.peek().kind == tokComma {
			p.pos++
			continue
		}
		break
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	return args, nil
}
