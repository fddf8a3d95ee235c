// Package stylesheet implements the MapCSS selector chain, rule matching,
// and stylesheet parser (spec.md §4.3 "Rule"/"Stylesheet", §3 "Stylesheet").
package stylesheet

import (
	"github.com/MeKo-Tech/alacarte/internal/geodata"
	"github.com/MeKo-Tech/alacarte/internal/mapcss"
	"github.com/MeKo-Tech/alacarte/internal/style"
)

// Object adapts one geo-object (or the synthetic canvas pseudo-object) to
// both mapcss.TagSource and the selector predicates that need more than
// tag lookup (geometry kind, child recursion).
type Object struct {
	Kind    geodata.ObjectKind
	Tags    geodata.Tags
	Closed  bool // way closedness, for the Area/Line selectors
	Strings *geodata.Interner

	// ChildTags holds a relation object's member tags (node and way
	// members alike, in one list); a ChildNodes/ChildWays step turns each
	// entry into a child Object that the selector chain continues matching
	// against (spec.md §4.3 "relation -> member recursion").
	ChildTags []geodata.Tags
}

// Tag implements mapcss.TagSource.
func (o Object) Tag(key string) (string, bool) {
	k := o.Strings.Intern(key)
	v, ok := o.Tags.Get(k)
	if !ok {
		return "", false
	}
	return v.String(), true
}

// SelectorKind enumerates the selector variants spec.md §4.3 lists.
type SelectorKind int

const (
	SelHasTag SelectorKind = iota
	SelHasNotTag
	SelTagEquals
	SelTagUnequals
	SelTagMatches
	SelTagOrd
	SelLine
	SelArea
	SelChildNodes
	SelChildWays
	SelApply
)

// OrdOp is the comparison operator for a TagOrd selector.
type OrdOp int

const (
	OrdLt OrdOp = iota
	OrdLe
	OrdGt
	OrdGe
	OrdEq
	OrdNe
)

// Selector is one predicate in a chain (spec.md §4.3: "a tagged variant;
// the chain is a Vec<Selector> evaluated in order").
type Selector struct {
	Kind SelectorKind

	Key   string // HasTag, HasNotTag, TagEquals, TagUnequals, TagMatches, TagOrd
	Value string // TagEquals, TagUnequals
	Regex string // TagMatches (compiled by the parser into Matcher)

	Matcher func(string) bool // compiled TagMatches regex, nil otherwise

	Ord   OrdOp   // TagOrd
	Num   float64 // TagOrd

	Template *style.Template // SelApply terminal payload
}

// Match reports whether sel accepts obj, and the objects to continue
// matching against: for recursive selectors (ChildNodes/ChildWays) every
// child at once, which the caller — matchChain — loops over. For every
// other selector kind, next is obj unchanged.
func (sel Selector) Match(obj Object) (ok bool, next []Object) {
	switch sel.Kind {
	case SelHasTag:
		return obj.Tag0(sel.Key), []Object{obj}
	case SelHasNotTag:
		return !obj.Tag0(sel.Key), []Object{obj}
	case SelTagEquals:
		v, has := obj.Tag(sel.Key)
		return has && v == sel.Value, []Object{obj}
	case SelTagUnequals:
		v, has := obj.Tag(sel.Key)
		return !has || v != sel.Value, []Object{obj}
	case SelTagMatches:
		v, has := obj.Tag(sel.Key)
		return has && sel.Matcher != nil && sel.Matcher(v), []Object{obj}
	case SelTagOrd:
		v, has := obj.Tag(sel.Key)
		if !has {
			return false, []Object{obj}
		}
		f, ok := mapcss.CoerceFloat(v)
		if !ok {
			return false, []Object{obj}
		}
		return compareOrd(f, sel.Ord, sel.Num), []Object{obj}
	case SelLine:
		return obj.Kind == geodata.KindWay && !obj.Closed, []Object{obj}
	case SelArea:
		return obj.Kind == geodata.KindWay && obj.Closed, []Object{obj}
	case SelChildNodes:
		if obj.Kind != geodata.KindRelation {
			return false, nil
		}
		return true, childObjects(obj, geodata.KindNode)
	case SelChildWays:
		if obj.Kind != geodata.KindRelation {
			return false, nil
		}
		return true, childObjects(obj, geodata.KindWay)
	default:
		return false, []Object{obj}
	}
}

func childObjects(obj Object, kind geodata.ObjectKind) []Object {
	out := make([]Object, 0, len(obj.ChildTags))
	for _, tags := range obj.ChildTags {
		out = append(out, Object{Kind: kind, Tags: tags, Strings: obj.Strings})
	}
	return out
}

func compareOrd(v float64, op OrdOp, n float64) bool {
	switch op {
	case OrdLt:
		return v < n
	case OrdLe:
		return v <= n
	case OrdGt:
		return v > n
	case OrdGe:
		return v >= n
	case OrdEq:
		return v == n
	case OrdNe:
		return v != n
	default:
		return false
	}
}

// Tag0 is a presence-only tag lookup, used by HasTag/HasNotTag.
func (o Object) Tag0(key string) bool {
	_, ok := o.Tag(key)
	return ok
}
