package renderer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/alacarte/internal/style"
)

// svgCanvas is the SVG Draw backend: it accumulates markup for the whole
// meta-canvas in painter order, then wraps it in a viewBox-shifted <svg>
// root per tile for SliceTile — SVG's own viewport clipping stands in for
// the pixel-blit an image backend needs (spec.md §4.9 "Slicing").
type svgCanvas struct {
	w, h     int
	elements strings.Builder
}

func newSVGCanvas(w, h int) *svgCanvas {
	return &svgCanvas{w: w, h: h}
}

func cssColor(c style.Color) string {
	if c.A == 0 {
		return "none"
	}
	if c.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", c.R, c.G, c.B, strconv.FormatFloat(float64(c.A)/255, 'f', 3, 64))
}

func pointsAttr(pts []Point) string {
	var b strings.Builder
	for i, p := range pts {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%.2f,%.2f", p.X, p.Y)
	}
	return b.String()
}

func (c *svgCanvas) DrawLine(pts []Point, st LineStyle) {
	if len(pts) < 2 || st.Width <= 0 || st.Color.A == 0 {
		return
	}
	dash := ""
	if len(st.Dashes) > 0 {
		parts := make([]string, len(st.Dashes))
		for i, d := range st.Dashes {
			parts[i] = strconv.FormatFloat(d, 'f', 2, 64)
		}
		dash = fmt.Sprintf(` stroke-dasharray="%s"`, strings.Join(parts, ","))
	}
	fmt.Fprintf(&c.elements,
		`<polyline points="%s" fill="none" stroke="%s" stroke-width="%.2f" stroke-linecap="%s" stroke-linejoin="%s"%s/>`+"\n",
		pointsAttr(pts), cssColor(st.Color), st.Width, capName(st.Cap), joinName(st.Join), dash)
}

func (c *svgCanvas) DrawPolygon(ring []Point, fill style.Color) {
	if fill.A == 0 || len(ring) < 3 {
		return
	}
	fmt.Fprintf(&c.elements, `<polygon points="%s" fill="%s"/>`+"\n", pointsAttr(ring), cssColor(fill))
}

func (c *svgCanvas) DrawText(pos Point, text, fontFamily string, fontSize float64, col style.Color) Rect {
	rect := c.MeasureText(pos, text, fontFamily, fontSize)
	if text != "" && col.A != 0 {
		fmt.Fprintf(&c.elements, `<text x="%.2f" y="%.2f" font-family="%s" font-size="%.2f" fill="%s">%s</text>`+"\n",
			pos.X, pos.Y, fontFamily, fontSize, cssColor(col), escapeXML(text))
	}
	return rect
}

// MeasureText approximates glyph advance width at 0.6*fontSize per
// character, adequate for the greedy overlap solver without a real font
// shaping library.
func (c *svgCanvas) MeasureText(pos Point, text string, fontFamily string, fontSize float64) Rect {
	width := float64(len(text)) * fontSize * 0.6
	return Rect{
		MinX: pos.X, MinY: pos.Y - fontSize*0.8,
		MaxX: pos.X + width, MaxY: pos.Y + fontSize*0.2,
	}
}

func (c *svgCanvas) PaintIcon(pos Point, iconPath string, w, h, opacity float64) {
	if w <= 0 || h <= 0 || opacity <= 0 {
		return
	}
	fmt.Fprintf(&c.elements, `<image x="%.2f" y="%.2f" width="%.2f" height="%.2f" opacity="%.2f" href="%s"/>`+"\n",
		pos.X-w/2, pos.Y-h/2, w, h, opacity, escapeXML(iconPath))
}

func (c *svgCanvas) Encode() ([]byte, error) {
	return c.wrap(0, 0, c.w, c.h), nil
}

func (c *svgCanvas) SliceTile(originPx Point, sizePx int) ([]byte, error) {
	return c.wrap(originPx.X, originPx.Y, sizePx, sizePx), nil
}

func (c *svgCanvas) wrap(x, y float64, w, h int) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="%.2f %.2f %d %d" overflow="hidden">`+"\n",
		w, h, x, y, w, h)
	b.WriteString(c.elements.String())
	b.WriteString("</svg>\n")
	return []byte(b.String())
}

func capName(c style.LineCap) string {
	switch c {
	case style.CapRound:
		return "round"
	case style.CapSquare:
		return "square"
	default:
		return "butt"
	}
}

func joinName(j style.LineJoin) string {
	switch j {
	case style.JoinMiter:
		return "miter"
	case style.JoinBevel:
		return "bevel"
	default:
		return "round"
	}
}

func escapeXML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
