package stylesheet

import (
	"github.com/MeKo-Tech/alacarte/internal/geodata"
	"github.com/MeKo-Tech/alacarte/internal/style"
)

// Rule is (first_selector chain, zoom range, accept_kind, style template)
// (spec.md §3 "Rule"). The chain is stored as a flat slice terminated by a
// SelApply selector carrying the style.Template to write on a match.
type Rule struct {
	Chain      []Selector
	ZoomLow    uint8
	ZoomHigh   uint8
	AcceptKind geodata.ObjectKind
}

// Match reports whether r applies to obj at zoom, returning the style
// template to fold onto the object's accumulating Style. Matching
// short-circuits on the zoom filter and accept_kind mismatch before
// walking any predicate (spec.md §4.3 complexity contract).
func (r Rule) Match(obj Object, zoom uint8) (bool, *style.Template) {
	if zoom < r.ZoomLow || zoom > r.ZoomHigh {
		return false, nil
	}
	if r.AcceptKind != geodata.KindAny && r.AcceptKind != obj.Kind {
		return false, nil
	}
	tmpl := matchChain([]Object{obj}, r.Chain)
	return tmpl != nil, tmpl
}

// matchChain walks the selector chain against the current candidate set,
// which grows or changes shape on ChildNodes/ChildWays recursion
// (spec.md §4.3: "relation -> member recursion"). It returns the style
// template of the first Apply terminal reached, or nil if the chain
// never terminates in a match.
func matchChain(objs []Object, chain []Selector) *style.Template {
	if len(objs) == 0 || len(chain) == 0 {
		return nil
	}
	sel := chain[0]
	if sel.Kind == SelApply {
		return sel.Template
	}

	var next []Object
	for _, o := range objs {
		ok, children := sel.Match(o)
		if ok {
			next = append(next, children...)
		}
	}
	if len(next) == 0 {
		return nil
	}
	return matchChain(next, chain[1:])
}
