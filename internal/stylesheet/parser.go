package stylesheet

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/alacarte/internal/geodata"
	"github.com/MeKo-Tech/alacarte/internal/mapcss"
	"github.com/MeKo-Tech/alacarte/internal/style"
	"github.com/MeKo-Tech/alacarte/internal/tileid"
)

// ParseError reports the source position a MapCSS syntax error occurred at.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("mapcss: %s (at offset %d)", e.Msg, e.Pos)
}

type parser struct {
	toks []token
	pos  int

	// pendingImplicit queues the implicit SelLine/SelArea selector that
	// "line"/"area" element-type keywords contribute, consumed by the
	// next parsePredicates call.
	pendingImplicit []Selector
}

// Parse parses MapCSS source text into a Stylesheet. This is the same
// hand-written recursive-descent shape original_source's mapcss_parser.cpp
// uses (no parser-combinator library appears anywhere in the retrieval
// pack, so this, like internal/mapcss's evaluator, is stdlib-only by
// necessity rather than preference).
func Parse(src string, path string) (*Stylesheet, error) {
	lx := newLexer(src)
	var toks []token
	for {
		t := lx.next()
		toks = append(toks, t)
		if t.kind == tokEOF {
			break
		}
	}
	p := &parser{toks: toks}

	ss := &Stylesheet{Path: path}
	for p.cur().kind != tokEOF {
		if err := p.parseBlock(ss); err != nil {
			return nil, err
		}
	}
	return ss, nil
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expectPunct(s string) error {
	t := p.cur()
	if t.kind != tokPunct || t.text != s {
		return &ParseError{Pos: t.pos, Msg: fmt.Sprintf("expected %q, got %q", s, t.text)}
	}
	p.advance()
	return nil
}

// parseBlock parses one "selector-chain { declarations }" rule, or a
// "canvas { declarations }" block.
func (p *parser) parseBlock(ss *Stylesheet) error {
	if p.cur().kind == tokIdent && p.cur().text == "canvas" {
		p.advance()
		if err := p.expectPunct("{"); err != nil {
			return err
		}
		tmpl := &style.Template{}
		if err := p.parseDeclarations(tmpl); err != nil {
			return err
		}
		ss.CanvasTmpl = tmpl
		return nil
	}

	rule := Rule{ZoomLow: 0, ZoomHigh: tileid.MaxZoom}
	chain, acceptKind, err := p.parseSelectorChain(&rule)
	if err != nil {
		return err
	}
	rule.AcceptKind = acceptKind

	if err := p.expectPunct("{"); err != nil {
		return err
	}
	tmpl := &style.Template{}
	if err := p.parseDeclarations(tmpl); err != nil {
		return err
	}
	chain = append(chain, Selector{Kind: SelApply, Template: tmpl})
	rule.Chain = chain
	ss.Rules = append(ss.Rules, rule)
	return nil
}

// parseSelectorChain parses "elementType[|zSpec] predicate* ('>' elementType predicate*)*".
func (p *parser) parseSelectorChain(rule *Rule) ([]Selector, geodata.ObjectKind, error) {
	kind, err := p.parseElementType(rule, true)
	if err != nil {
		return nil, geodata.KindAny, err
	}
	var chain []Selector
	preds, err := p.parsePredicates()
	if err != nil {
		return nil, kind, err
	}
	chain = append(chain, preds...)

	for p.cur().kind == tokPunct && p.cur().text == ">" {
		p.advance()
		childKind, err := p.parseElementType(rule, false)
		if err != nil {
			return nil, kind, err
		}
		switch childKind {
		case geodata.KindNode:
			chain = append(chain, Selector{Kind: SelChildNodes})
		case geodata.KindWay:
			chain = append(chain, Selector{Kind: SelChildWays})
		default:
			return nil, kind, &ParseError{Pos: p.cur().pos, Msg: "child selector must be node or way"}
		}
		preds, err := p.parsePredicates()
		if err != nil {
			return nil, kind, err
		}
		chain = append(chain, preds...)
	}
	return chain, kind, nil
}

// parseElementType consumes "node"/"way"/"line"/"area"/"relation"/"*",
// optionally followed by a "|z<low>[-<high>]" zoom spec when allowZoom.
func (p *parser) parseElementType(rule *Rule, allowZoom bool) (geodata.ObjectKind, error) {
	t := p.cur()
	if t.kind != tokIdent {
		return geodata.KindAny, &ParseError{Pos: t.pos, Msg: "expected element type"}
	}
	p.advance()

	var kind geodata.ObjectKind
	var implicitSel *Selector
	switch t.text {
	case "node":
		kind = geodata.KindNode
	case "way":
		kind = geodata.KindWay
	case "line":
		kind = geodata.KindWay
		sel := Selector{Kind: SelLine}
		implicitSel = &sel
	case "area":
		kind = geodata.KindWay
		sel := Selector{Kind: SelArea}
		implicitSel = &sel
	case "relation":
		kind = geodata.KindRelation
	case "*":
		kind = geodata.KindAny
	default:
		return geodata.KindAny, &ParseError{Pos: t.pos, Msg: "unknown element type " + t.text}
	}

	if allowZoom && p.cur().kind == tokPunct && p.cur().text == "|" {
		p.advance()
		if err := p.parseZoomSpec(rule); err != nil {
			return kind, err
		}
	}

	if implicitSel != nil {
		p.pendingImplicit = append(p.pendingImplicit, *implicitSel)
	}
	return kind, nil
}

func (p *parser) parseZoomSpec(rule *Rule) error {
	t := p.cur()
	if t.kind != tokIdent || !strings.HasPrefix(t.text, "z") {
		return &ParseError{Pos: t.pos, Msg: "expected zoom spec, e.g. z10-14"}
	}
	p.advance()
	spec := t.text[1:]
	parts := strings.SplitN(spec, "-", 2)
	low, err := strconv.Atoi(parts[0])
	if err != nil {
		return &ParseError{Pos: t.pos, Msg: "bad zoom number"}
	}
	high := low
	if len(parts) == 2 {
		high, err = strconv.Atoi(parts[1])
		if err != nil {
			return &ParseError{Pos: t.pos, Msg: "bad zoom range"}
		}
	}
	rule.ZoomLow = uint8(low)
	rule.ZoomHigh = uint8(high)
	return nil
}

// parsePredicates parses zero or more "[...]" bracket predicates, plus any
// implicit Line/Area selector queued by parseElementType.
func (p *parser) parsePredicates() ([]Selector, error) {
	var out []Selector
	out = append(out, p.pendingImplicit...)
	p.pendingImplicit = nil

	for p.cur().kind == tokPunct && p.cur().text == "[" {
		p.advance()
		sel, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		out = append(out, sel)
		if err := p.expectPunct("]"); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p *parser) parsePredicate() (Selector, error) {
	negate := false
	if p.cur().kind == tokPunct && p.cur().text == "!" {
		negate = true
		p.advance()
	}
	keyTok := p.cur()
	if keyTok.kind != tokIdent {
		return Selector{}, &ParseError{Pos: keyTok.pos, Msg: "expected tag key"}
	}
	p.advance()

	if negate {
		return Selector{Kind: SelHasNotTag, Key: keyTok.text}, nil
	}
	if p.cur().kind == tokPunct && p.cur().text == "]" {
		return Selector{Kind: SelHasTag, Key: keyTok.text}, nil
	}

	op := p.cur()
	p.advance()
	switch op.text {
	case "=":
		v := p.cur()
		p.advance()
		return Selector{Kind: SelTagEquals, Key: keyTok.text, Value: v.text}, nil
	case "!=":
		v := p.cur()
		p.advance()
		return Selector{Kind: SelTagUnequals, Key: keyTok.text, Value: v.text}, nil
	case "=~":
		v := p.cur()
		p.advance()
		re, err := regexp.Compile(v.text)
		if err != nil {
			return Selector{}, &ParseError{Pos: v.pos, Msg: "bad regex: " + err.Error()}
		}
		return Selector{Kind: SelTagMatches, Key: keyTok.text, Regex: v.text, Matcher: re.MatchString}, nil
	case "<", "<=", ">", ">=":
		v := p.cur()
		p.advance()
		n, err := strconv.ParseFloat(v.text, 64)
		if err != nil {
			return Selector{}, &ParseError{Pos: v.pos, Msg: "expected number"}
		}
		ordOps := map[string]OrdOp{"<": OrdLt, "<=": OrdLe, ">": OrdGt, ">=": OrdGe}
		return Selector{Kind: SelTagOrd, Key: keyTok.text, Ord: ordOps[op.text], Num: n}, nil
	default:
		return Selector{}, &ParseError{Pos: op.pos, Msg: "unknown predicate operator " + op.text}
	}
}

// parseDeclarations parses "key: value;" pairs until a closing '}'.
func (p *parser) parseDeclarations(tmpl *style.Template) error {
	for {
		if p.cur().kind == tokPunct && p.cur().text == "}" {
			p.advance()
			return nil
		}
		if p.cur().kind == tokEOF {
			return &ParseError{Pos: p.cur().pos, Msg: "unexpected end of file in declaration block"}
		}
		keyTok := p.cur()
		if keyTok.kind != tokIdent {
			return &ParseError{Pos: keyTok.pos, Msg: "expected declaration key"}
		}
		p.advance()
		if err := p.expectPunct(":"); err != nil {
			return err
		}
		if err := p.parseDeclarationValue(tmpl, keyTok.text); err != nil {
			return err
		}
		if err := p.expectPunct(";"); err != nil {
			return err
		}
	}
}

// rawValueTokens collects every token up to (not including) the next ';'
// or '}', concatenated with single spaces — the literal-value form.
func (p *parser) rawValueTokens() string {
	var parts []string
	for !(p.cur().kind == tokPunct && (p.cur().text == ";" || p.cur().text == "}")) && p.cur().kind != tokEOF {
		parts = append(parts, p.advance().text)
	}
	return strings.Join(parts, " ")
}

// parseEvalExpr parses "eval(" EXPR ")" and returns the expression node, or
// (nil, false) if the value is not an eval(...) form.
func (p *parser) parseEvalExpr() (mapcss.Node, bool, error) {
	if !(p.cur().kind == tokIdent && p.cur().text == "eval") {
		return nil, false, nil
	}
	save := p.pos
	p.advance()
	if !(p.cur().kind == tokPunct && p.cur().text == "(") {
		p.pos = save
		return nil, false, nil
	}
	p.advance()
	node, err := p.parseExpr()
	if err != nil {
		return nil, true, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, true, err
	}
	return node, true, nil
}

func (p *parser) parseDeclarationValue(tmpl *style.Template, key string) error {
	switch key {
	case "width":
		return setField(p, &tmpl.Width, mapcss.CoerceFloat)
	case "color":
		return setField(p, &tmpl.Color, style.ParseColor)
	case "fill-color":
		return setField(p, &tmpl.FillColor, style.ParseColor)
	case "casing-width":
		return setField(p, &tmpl.CasingWidth, mapcss.CoerceFloat)
	case "casing-color":
		return setField(p, &tmpl.CasingColor, style.ParseColor)
	case "casing-dashes":
		return setField(p, &tmpl.CasingDashes, mapcss.CoerceDashes)
	case "casing-linecap":
		return setField(p, &tmpl.CasingCap, style.CoerceLineCap)
	case "casing-linejoin":
		return setField(p, &tmpl.CasingJoin, style.CoerceLineJoin)
	case "font-family":
		return setField(p, &tmpl.FontFamily, mapcss.CoerceString)
	case "font-size":
		return setField(p, &tmpl.FontSize, mapcss.CoerceFloat)
	case "font-weight":
		return setField(p, &tmpl.FontWeight, mapcss.CoerceString)
	case "font-style":
		return setField(p, &tmpl.FontStyle, mapcss.CoerceString)
	case "text":
		return setField(p, &tmpl.Text, mapcss.CoerceString)
	case "text-color":
		return setField(p, &tmpl.TextColor, style.ParseColor)
	case "text-halo-color":
		return setField(p, &tmpl.TextHaloColor, style.ParseColor)
	case "text-halo-radius":
		return setField(p, &tmpl.TextHaloWidth, mapcss.CoerceFloat)
	case "icon-image":
		return setField(p, &tmpl.IconPath, mapcss.CoerceString)
	case "icon-width":
		return setField(p, &tmpl.IconWidth, mapcss.CoerceFloat)
	case "icon-height":
		return setField(p, &tmpl.IconHeight, mapcss.CoerceFloat)
	case "icon-opacity":
		return setField(p, &tmpl.IconOpacity, mapcss.CoerceFloat)
	case "shield-text":
		return setField(p, &tmpl.ShieldText, mapcss.CoerceString)
	case "shield-frame-color":
		return setField(p, &tmpl.ShieldFrameColor, style.ParseColor)
	case "shield-casing-color":
		return setField(p, &tmpl.ShieldCasingColor, style.ParseColor)
	case "shield-shape":
		return setField(p, &tmpl.ShieldShape, style.CoerceShieldShape)
	case "linecap":
		return setField(p, &tmpl.Cap, style.CoerceLineCap)
	case "linejoin":
		return setField(p, &tmpl.Join, style.CoerceLineJoin)
	case "dashes":
		return setField(p, &tmpl.Dashes, mapcss.CoerceDashes)
	case "z-index":
		return setField(p, &tmpl.ZIndex, mapcss.CoerceFloat)
	default:
		// Unknown declarations are skipped rather than rejected, matching
		// MapCSS's tolerance of vendor-specific properties it doesn't
		// understand.
		p.rawValueTokens()
		return nil
	}
}

// setField parses either an eval(...) expression or a literal value for
// one Template field of type T, using coerce both to parse the literal
// form and to interpret the expression's runtime string result.
func setField[T any](p *parser, field **mapcss.Eval[T], coerce mapcss.Coercer[T]) error {
	node, isEval, err := p.parseEvalExpr()
	if err != nil {
		return err
	}
	if isEval {
		*field = mapcss.Expr[T](node, coerce)
		return nil
	}
	raw := p.rawValueTokens()
	v, ok := coerce(raw)
	if !ok {
		// A literal that doesn't parse under this field's type is a
		// stylesheet authoring mistake; leave the field unset rather than
		// failing the whole parse.
		return nil
	}
	*field = mapcss.Literal(v)
	return nil
}
