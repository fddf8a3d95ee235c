package stylesheet

import (
	"strconv"

	"github.com/MeKo-Tech/alacarte/internal/mapcss"
)

// parseExpr parses a MapCSS eval(...) expression body into a mapcss.Node,
// grounded on original_source's eval grammar
// (include/server/mapcss/mapcss_grammar.cpp). Precedence, loosest to
// tightest: comparison > concat > additive > multiplicative > unary >
// primary.
func (p *parser) parseExpr() (mapcss.Node, error) {
	return p.parseComparison()
}

func (p *parser) parseComparison() (mapcss.Node, error) {
	lhs, err := p.parseConcat()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tokPunct && p.cur().kind != tokIdent {
		return lhs, nil
	}
	ops := map[string]mapcss.BinOp{
		"==": mapcss.OpNumEq, "!=": mapcss.OpNumNe,
		"<": mapcss.OpLt, "<=": mapcss.OpLe, ">": mapcss.OpGt, ">=": mapcss.OpGe,
		"eq": mapcss.OpStrEq, "ne": mapcss.OpStrNe,
	}
	op, ok := ops[p.cur().text]
	if !ok {
		return lhs, nil
	}
	p.advance()
	rhs, err := p.parseConcat()
	if err != nil {
		return nil, err
	}
	return mapcss.Binary{LHS: lhs, Op: op, RHS: rhs}, nil
}

func (p *parser) parseConcat() (mapcss.Node, error) {
	lhs, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokPunct && p.cur().text == "." {
		p.advance()
		rhs, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		lhs = mapcss.Binary{LHS: lhs, Op: mapcss.OpConcat, RHS: rhs}
	}
	return lhs, nil
}

func (p *parser) parseAdditive() (mapcss.Node, error) {
	lhs, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokPunct && (p.cur().text == "+" || p.cur().text == "-") {
		op := mapcss.OpAdd
		if p.cur().text == "-" {
			op = mapcss.OpSub
		}
		p.advance()
		rhs, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		lhs = mapcss.Binary{LHS: lhs, Op: op, RHS: rhs}
	}
	return lhs, nil
}

func (p *parser) parseMultiplicative() (mapcss.Node, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokPunct && (p.cur().text == "*" || p.cur().text == "/") {
		op := mapcss.OpMul
		if p.cur().text == "/" {
			op = mapcss.OpDiv
		}
		p.advance()
		rhs, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		lhs = mapcss.Binary{LHS: lhs, Op: op, RHS: rhs}
	}
	return lhs, nil
}

func (p *parser) parseUnary() (mapcss.Node, error) {
	if p.cur().kind == tokPunct && p.cur().text == "-" {
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return mapcss.Unary{X: x, Op: mapcss.OpNeg}, nil
	}
	if p.cur().kind == tokPunct && p.cur().text == "!" {
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return mapcss.Unary{X: x, Op: mapcss.OpNot}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (mapcss.Node, error) {
	t := p.cur()
	switch {
	case t.kind == tokPunct && t.text == "(":
		p.advance()
		node, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return node, nil

	case t.kind == tokString:
		p.advance()
		return mapcss.Leaf(t.text), nil

	case t.kind == tokNumber:
		p.advance()
		if _, err := strconv.ParseFloat(t.text, 64); err != nil {
			return nil, &ParseError{Pos: t.pos, Msg: "bad number literal " + t.text}
		}
		return mapcss.Leaf(t.text), nil

	case t.kind == tokIdent:
		p.advance()
		if p.cur().kind == tokPunct && p.cur().text == "(" {
			p.advance()
			var args []mapcss.Node
			if !(p.cur().kind == tokPunct && p.cur().text == ")") {
				for {
					arg, err := p.parseExpr()
					if err != nil {
						return nil, err
					}
					args = append(args, arg)
					if p.cur().kind == tokPunct && p.cur().text == "," {
						p.advance()
						continue
					}
					break
				}
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			return mapcss.Call{Fn: t.text, Args: args}, nil
		}
		// A bare identifier in expression position is a literal string.
		return mapcss.Leaf(t.text), nil

	default:
		return nil, &ParseError{Pos: t.pos, Msg: "unexpected token in expression: " + t.text}
	}
}
