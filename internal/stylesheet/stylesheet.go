package stylesheet

import (
	"github.com/MeKo-Tech/alacarte/internal/style"
)

// Stylesheet is the immutable, parsed contents of one MapCSS file:
// (rules, canvas_style, path) (spec.md §3). It is shared read-only across
// worker goroutines once loaded; there is no mutation after Parse/Load
// returns.
type Stylesheet struct {
	Rules      []Rule
	CanvasTmpl *style.Template
	Path       string
}

// FailFunc is called once per failed field coercion during matching,
// identifying the rule index and field name; callers wire it to a
// mapcss.WarnLimiter-backed log line.
type FailFunc func(ruleIndex int, field string)

// Match runs the full matching algorithm (spec.md §4.3) over objs at the
// given zoom: for each object, every rule is tried in declaration order,
// and every match folds its template onto that object's accumulating
// Style, later rules overriding earlier ones. canvas is a synthetic
// pseudo-object (normally untagged) used only to finalize the canvas
// style from CanvasTmpl.
func (s *Stylesheet) Match(objs []Object, canvas Object, zoom uint8, onFail FailFunc) *style.RenderAttributes {
	ra := style.NewRenderAttributes()
	handles := make([]style.Handle, len(objs))
	for i := range objs {
		handles[i] = ra.Alloc()
	}

	for i, obj := range objs {
		for ri, rule := range s.Rules {
			ok, tmpl := rule.Match(obj, zoom)
			if !ok {
				continue
			}
			idx := ri
			tmpl.ApplyTo(obj, ra.Style(handles[i]), func(field string) {
				if onFail != nil {
					onFail(idx, field)
				}
			})
		}
	}

	if s.CanvasTmpl != nil {
		s.CanvasTmpl.ApplyTo(canvas, ra.Canvas(), func(field string) {
			if onFail != nil {
				onFail(-1, field)
			}
		})
	}

	return ra
}
