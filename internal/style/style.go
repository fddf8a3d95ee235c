// Package style holds the flat render-attribute record MapCSS rules write
// into (spec.md §3 "Style"/"StyleTemplate") and the per-render-pass arena
// that owns them (spec.md §3 "RenderAttributes").
package style

import "github.com/MeKo-Tech/alacarte/internal/mapcss"

// LineCap is the terminator shape drawn at the ends of an open stroke.
type LineCap int

const (
	CapButt LineCap = iota
	CapRound
	CapSquare
)

// LineJoin is the corner shape drawn where two stroke segments meet.
type LineJoin int

const (
	JoinRound LineJoin = iota
	JoinMiter
	JoinBevel
)

// ShieldShape is the frame shape drawn behind shield text.
type ShieldShape int

const (
	ShieldRoundedRect ShieldShape = iota
	ShieldRect
	ShieldCircle
)

// Style is the flat record of concrete render attributes produced per
// (object, tile) during matching (spec.md §3). Every field has a defined
// default so an object matched by zero rules still renders predictably
// (typically invisibly: zero width, transparent colors).
type Style struct {
	Width float64
	Color Color

	FillColor Color

	CasingWidth  float64
	CasingColor  Color
	CasingDashes []float64
	CasingCap    LineCap
	CasingJoin   LineJoin

	FontFamily string
	FontSize   float64
	FontWeight string
	FontStyle  string

	Text          string
	TextColor     Color
	TextHaloColor Color
	TextHaloWidth float64

	IconPath    string
	IconWidth   float64
	IconHeight  float64
	IconOpacity float64

	ShieldText        string
	ShieldFrameColor  Color
	ShieldCasingColor Color
	ShieldShape       ShieldShape

	Cap    LineCap
	Join   LineJoin
	Dashes []float64

	ZIndex float64
}

// Default returns the zero-configuration Style: invisible geometry
// (transparent colors, zero widths) except for the handful of attributes
// that need a nonzero default to behave sanely (icon opacity, font size).
func Default() Style {
	return Style{
		FontFamily:  "sans-serif",
		FontSize:    10,
		IconOpacity: 1,
		Cap:         CapButt,
		Join:        JoinRound,
		CasingCap:   CapButt,
		CasingJoin:  JoinRound,
		ShieldShape: ShieldRoundedRect,
	}
}

// Template is the same shape as Style, but each field is an optional
// Eval[T] — a lazily evaluated expression or a literal, or nil when the
// rule that built this template does not set that field (spec.md §3
// "each field is Option<Eval<T>>").
type Template struct {
	Width *mapcss.Eval[float64]
	Color *mapcss.Eval[Color]

	FillColor *mapcss.Eval[Color]

	CasingWidth  *mapcss.Eval[float64]
	CasingColor  *mapcss.Eval[Color]
	CasingDashes *mapcss.Eval[[]float64]
	CasingCap    *mapcss.Eval[LineCap]
	CasingJoin   *mapcss.Eval[LineJoin]

	FontFamily *mapcss.Eval[string]
	FontSize   *mapcss.Eval[float64]
	FontWeight *mapcss.Eval[string]
	FontStyle  *mapcss.Eval[string]

	Text          *mapcss.Eval[string]
	TextColor     *mapcss.Eval[Color]
	TextHaloColor *mapcss.Eval[Color]
	TextHaloWidth *mapcss.Eval[float64]

	IconPath    *mapcss.Eval[string]
	IconWidth   *mapcss.Eval[float64]
	IconHeight  *mapcss.Eval[float64]
	IconOpacity *mapcss.Eval[float64]

	ShieldText        *mapcss.Eval[string]
	ShieldFrameColor  *mapcss.Eval[Color]
	ShieldCasingColor *mapcss.Eval[Color]
	ShieldShape       *mapcss.Eval[ShieldShape]

	Cap    *mapcss.Eval[LineCap]
	Join   *mapcss.Eval[LineJoin]
	Dashes *mapcss.Eval[[]float64]

	ZIndex *mapcss.Eval[float64]
}

// ApplyTo evaluates every set field of the template against obj and writes
// the result onto out, overwriting any earlier value (spec.md §3: "later
// rule wins when z_index ties"; §4.3: "the accumulated Style for the
// object is the fold of all applies in rule order"). onFail, if non-nil,
// is called once per field whose expression fails to coerce, with the
// field's name — callers wire it to a rate-limited warning
// (internal/mapcss.WarnLimiter).
func (t *Template) ApplyTo(obj mapcss.TagSource, out *Style, onFail func(field string)) {
	if t == nil {
		return
	}
	fail := func(field string) func() {
		if onFail == nil {
			return nil
		}
		return func() { onFail(field) }
	}

	t.Width.Overwrite(obj, &out.Width, fail("width"))
	t.Color.Overwrite(obj, &out.Color, fail("color"))
	t.FillColor.Overwrite(obj, &out.FillColor, fail("fill-color"))

	t.CasingWidth.Overwrite(obj, &out.CasingWidth, fail("casing-width"))
	t.CasingColor.Overwrite(obj, &out.CasingColor, fail("casing-color"))
	t.CasingDashes.Overwrite(obj, &out.CasingDashes, fail("casing-dashes"))
	t.CasingCap.Overwrite(obj, &out.CasingCap, fail("casing-linecap"))
	t.CasingJoin.Overwrite(obj, &out.CasingJoin, fail("casing-linejoin"))

	t.FontFamily.Overwrite(obj, &out.FontFamily, fail("font-family"))
	t.FontSize.Overwrite(obj, &out.FontSize, fail("font-size"))
	t.FontWeight.Overwrite(obj, &out.FontWeight, fail("font-weight"))
	t.FontStyle.Overwrite(obj, &out.FontStyle, fail("font-style"))

	t.Text.Overwrite(obj, &out.Text, fail("text"))
	t.TextColor.Overwrite(obj, &out.TextColor, fail("text-color"))
	t.TextHaloColor.Overwrite(obj, &out.TextHaloColor, fail("text-halo-color"))
	t.TextHaloWidth.Overwrite(obj, &out.TextHaloWidth, fail("text-halo-radius"))

	t.IconPath.Overwrite(obj, &out.IconPath, fail("icon-image"))
	t.IconWidth.Overwrite(obj, &out.IconWidth, fail("icon-width"))
	t.IconHeight.Overwrite(obj, &out.IconHeight, fail("icon-height"))
	t.IconOpacity.Overwrite(obj, &out.IconOpacity, fail("icon-opacity"))

	t.ShieldText.Overwrite(obj, &out.ShieldText, fail("shield-text"))
	t.ShieldFrameColor.Overwrite(obj, &out.ShieldFrameColor, fail("shield-frame-color"))
	t.ShieldCasingColor.Overwrite(obj, &out.ShieldCasingColor, fail("shield-casing-color"))
	t.ShieldShape.Overwrite(obj, &out.ShieldShape, fail("shield-shape"))

	t.Cap.Overwrite(obj, &out.Cap, fail("linecap"))
	t.Join.Overwrite(obj, &out.Join, fail("linejoin"))
	t.Dashes.Overwrite(obj, &out.Dashes, fail("dashes"))

	t.ZIndex.Overwrite(obj, &out.ZIndex, fail("z-index"))
}

// CoerceLineCap and friends adapt the small enum types to mapcss.Coercer.
func CoerceLineCap(s string) (LineCap, bool) {
	switch s {
	case "round":
		return CapRound, true
	case "square":
		return CapSquare, true
	case "butt", "none":
		return CapButt, true
	default:
		return 0, false
	}
}

func CoerceLineJoin(s string) (LineJoin, bool) {
	switch s {
	case "miter":
		return JoinMiter, true
	case "bevel":
		return JoinBevel, true
	case "round":
		return JoinRound, true
	default:
		return 0, false
	}
}

func CoerceShieldShape(s string) (ShieldShape, bool) {
	switch s {
	case "rectangle", "rect":
		return ShieldRect, true
	case "roundrect", "rounded":
		return ShieldRoundedRect, true
	case "circle":
		return ShieldCircle, true
	default:
		return 0, false
	}
}
