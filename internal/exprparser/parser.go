// Package exprparser parses the UPDATE SET sub-language:
// one or more comma-separated assignments, each `<identifier> =
// <expression>`, where expression is arithmetic over `+ - * /`,
// parenthesization, numeric literals, identifiers, and function calls.
//
// The parser validates the grammar and recovers span information for
// error reporting but does not evaluate or type-check expressions. It
// hands back the raw source substring of each right-hand side for
// the kernel generator to reinterpret as shader text.
package exprparser

import (
	"fmt"
	"strings"

	"github.com/rql-db/rql/internal/exprparser/ast"
	"github.com/rql-db/rql/internal/exprparser/lexer"
	"github.com/rql-db/rql/internal/exprparser/token"
	"github.com/rql-db/rql/internal/rqlerr"
	"github.com/rql-db/rql/internal/types"
)

// ParseError carries the offending token's source position alongside
// the message, so callers can render a caret under the failure.
type ParseError struct {
	Pos     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at byte %d: %s", e.Pos, e.Message)
}

// Parse parses source (everything after SET) into an ordered sequence
// of Assignment, each carrying the raw substring of its right-hand
// side.
func Parse(source string) ([]types.Assignment, error) {
	p := &parser{source: source, lex: lexer.New(source)}
	p.next()
	p.next()

	assignments, err := p.parseProgram()
	if err != nil {
		return nil, rqlerr.New(rqlerr.KindParse, "exprparser.Parse", err)
	}
	return assignments, nil
}

// ParseExpression parses a single arithmetic expression (e.g. the raw
// right-hand side of one Assignment) into an ast.Node, without the
// assignment-list wrapper. The GPU executor uses this to evaluate a
// kernel's assignments lane-by-lane (internal/gpu).
func ParseExpression(source string) (ast.Node, error) {
	p := &parser{source: source, lex: lexer.New(source)}
	p.next()
	p.next()

	node, err := p.parseExpr()
	if err != nil {
		return nil, rqlerr.New(rqlerr.KindParse, "exprparser.ParseExpression", err)
	}
	if p.cur.Type != token.EOF {
		return nil, rqlerr.New(rqlerr.KindParse, "exprparser.ParseExpression", &ParseError{Pos: p.cur.Pos, Message: fmt.Sprintf("unexpected trailing token %q", p.cur.Literal)})
	}
	return node, nil
}

type parser struct {
	source string
	lex    *lexer.Lexer
	cur    token.Token
	peek   token.Token
}

func (p *parser) next() {
	p.cur = p.peek
	p.peek = p.lex.NextToken()
}

func (p *parser) parseProgram() ([]types.Assignment, error) {
	var out []types.Assignment
	for {
		a, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
		if p.cur.Type == token.COMMA {
			p.next()
			continue
		}
		if p.cur.Type == token.EOF {
			break
		}
		return nil, &ParseError{Pos: p.cur.Pos, Message: fmt.Sprintf("unexpected token %q", p.cur.Literal)}
	}
	if len(out) == 0 {
		return nil, &ParseError{Pos: 0, Message: "empty SET clause"}
	}
	return out, nil
}

func (p *parser) parseAssignment() (types.Assignment, error) {
	if p.cur.Type != token.IDENT {
		return types.Assignment{}, &ParseError{Pos: p.cur.Pos, Message: fmt.Sprintf("expected identifier, got %q", p.cur.Literal)}
	}
	variable := p.cur.Literal
	p.next()

	if p.cur.Type != token.ASSIGN {
		return types.Assignment{}, &ParseError{Pos: p.cur.Pos, Message: fmt.Sprintf("expected '=', got %q", p.cur.Literal)}
	}
	p.next()

	exprStart := p.cur.Pos
	node, err := p.parseExpr()
	if err != nil {
		return types.Assignment{}, err
	}
	_ = node // validated only; the raw substring is what the kernel wants

	var exprEnd int
	switch p.cur.Type {
	case token.COMMA, token.EOF:
		exprEnd = p.cur.Pos
	default:
		return types.Assignment{}, &ParseError{Pos: p.cur.Pos, Message: fmt.Sprintf("unexpected token %q after expression", p.cur.Literal)}
	}
	if exprEnd > len(p.source) {
		exprEnd = len(p.source)
	}

	expr := strings.TrimSpace(p.source[exprStart:exprEnd])
	if expr == "" {
		return types.Assignment{}, &ParseError{Pos: exprStart, Message: "empty expression"}
	}

	return types.Assignment{Variable: variable, Expression: expr}, nil
}

// parseExpr := term ((PLUS|MINUS) term)*
func (p *parser) parseExpr() (ast.Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == token.PLUS || p.cur.Type == token.MINUS {
		op := p.cur.Literal
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Left: left, Op: op, Right: right}
	}
	return left, nil
}

// parseTerm := factor ((ASTERISK|SLASH) factor)*
func (p *parser) parseTerm() (ast.Node, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == token.ASTERISK || p.cur.Type == token.SLASH {
		op := p.cur.Literal
		p.next()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Left: left, Op: op, Right: right}
	}
	return left, nil
}

// parseFactor := NUMBER | IDENT [LPAREN argList RPAREN] | LPAREN expr RPAREN | MINUS factor
func (p *parser) parseFactor() (ast.Node, error) {
	switch p.cur.Type {
	case token.MINUS:
		start := p.cur.Pos
		p.next()
		inner, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return &ast.BinaryExpr{Left: &ast.NumberLiteral{Value: "0", StartPos: start, EndPos: start}, Op: "-", Right: inner}, nil

	case token.NUMBER:
		n := &ast.NumberLiteral{Value: p.cur.Literal, StartPos: p.cur.Pos, EndPos: p.cur.Pos + len(p.cur.Literal)}
		p.next()
		return n, nil

	case token.IDENT:
		name := p.cur.Literal
		start := p.cur.Pos
		end := start + len(name)
		p.next()
		if p.cur.Type == token.LPAREN {
			p.next()
			var args []ast.Node
			if p.cur.Type != token.RPAREN {
				for {
					arg, err := p.parseExpr()
					if err != nil {
						return nil, err
					}
					args = append(args, arg)
					if p.cur.Type == token.COMMA {
						p.next()
						continue
					}
					break
				}
			}
			if p.cur.Type != token.RPAREN {
				return nil, &ParseError{Pos: p.cur.Pos, Message: fmt.Sprintf("expected ')', got %q", p.cur.Literal)}
			}
			callEnd := p.cur.Pos + 1
			p.next()
			return &ast.CallExpr{Name: name, Args: args, StartPos: start, EndPos: callEnd}, nil
		}
		return &ast.Ident{Name: name, StartPos: start, EndPos: end}, nil

	case token.LPAREN:
		start := p.cur.Pos
		p.next()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.cur.Type != token.RPAREN {
			return nil, &ParseError{Pos: p.cur.Pos, Message: fmt.Sprintf("expected ')', got %q", p.cur.Literal)}
		}
		end := p.cur.Pos + 1
		p.next()
		return &ast.ParenExpr{Inner: inner, StartPos: start, EndPos: end}, nil

	default:
		return nil, &ParseError{Pos: p.cur.Pos, Message: fmt.Sprintf("unexpected token %q", p.cur.Literal)}
	}
}
