package renderer

import (
	"bytes"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"
	"os"
	"sort"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/MeKo-Tech/alacarte/internal/style"
)

// rasterCanvas is the PNG Draw backend, rasterizing onto an image.NRGBA
// with golang.org/x/image providing icon scaling and bitmap text metrics
// (the teacher's dependency for its own texture/watercolor raster work,
// reused here as the reference rasterizer the Draw collaborator interface
// calls for — spec.md §1 names actual 2D drawing as out of this module's
// core scope).
type rasterCanvas struct {
	img *image.NRGBA
}

func newRasterCanvas(w, h int) *rasterCanvas {
	return &rasterCanvas{img: image.NewNRGBA(image.Rect(0, 0, w, h))}
}

func (c *rasterCanvas) DrawLine(pts []Point, st LineStyle) {
	if len(pts) < 2 || st.Width <= 0 || st.Color.A == 0 {
		return
	}
	forEachDashSegment(pts, st.Dashes, func(a, b Point) {
		c.strokeSegment(a, b, st.Width, st.Color)
	})
}

// strokeSegment paints a width-wide quad along a-b, the simplest
// constant-width stroke a scanline-fill rasterizer can express without a
// dedicated stroking library.
func (c *rasterCanvas) strokeSegment(a, b Point, width float64, col style.Color) {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	hw := width / 2
	nx, ny := -dy/length*hw, dx/length*hw
	c.fillPolygon([]Point{
		{X: a.X + nx, Y: a.Y + ny},
		{X: b.X + nx, Y: b.Y + ny},
		{X: b.X - nx, Y: b.Y - ny},
		{X: a.X - nx, Y: a.Y - ny},
	}, col)
}

func (c *rasterCanvas) DrawPolygon(ring []Point, fill style.Color) {
	if fill.A == 0 {
		return
	}
	c.fillPolygon(ring, fill)
}

// fillPolygon is an even-odd-rule scanline fill, adequate for the convex
// quads strokeSegment emits and for the simple ring geometry MapCSS areas
// produce.
func (c *rasterCanvas) fillPolygon(pts []Point, col style.Color) {
	if len(pts) < 3 {
		return
	}
	src := color.NRGBA{R: col.R, G: col.G, B: col.B, A: col.A}
	bounds := c.img.Bounds()

	minY, maxY := pts[0].Y, pts[0].Y
	for _, p := range pts {
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	y0, y1 := int(math.Floor(minY)), int(math.Ceil(maxY))
	if y0 < bounds.Min.Y {
		y0 = bounds.Min.Y
	}
	if y1 > bounds.Max.Y {
		y1 = bounds.Max.Y
	}

	n := len(pts)
	for y := y0; y < y1; y++ {
		yf := float64(y) + 0.5
		var xs []float64
		for i := 0; i < n; i++ {
			a, b := pts[i], pts[(i+1)%n]
			if (a.Y <= yf) != (b.Y <= yf) {
				t := (yf - a.Y) / (b.Y - a.Y)
				xs = append(xs, a.X+t*(b.X-a.X))
			}
		}
		sort.Float64s(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			x0, x1 := int(math.Round(xs[i])), int(math.Round(xs[i+1]))
			if x0 < bounds.Min.X {
				x0 = bounds.Min.X
			}
			if x1 > bounds.Max.X {
				x1 = bounds.Max.X
			}
			for x := x0; x < x1; x++ {
				c.blend(x, y, src)
			}
		}
	}
}

func (c *rasterCanvas) blend(x, y int, src color.NRGBA) {
	if src.A == 0 {
		return
	}
	if src.A == 255 {
		c.img.SetNRGBA(x, y, src)
		return
	}
	dst := c.img.NRGBAAt(x, y)
	a := float64(src.A) / 255
	blend := func(s, d uint8) uint8 { return uint8(float64(s)*a + float64(d)*(1-a)) }
	c.img.SetNRGBA(x, y, color.NRGBA{
		R: blend(src.R, dst.R),
		G: blend(src.G, dst.G),
		B: blend(src.B, dst.B),
		A: uint8(math.Min(255, float64(src.A)+float64(dst.A)*(1-a))),
	})
}

var textFace = basicfont.Face7x13

func (c *rasterCanvas) DrawText(pos Point, text, fontFamily string, fontSize float64, col style.Color) Rect {
	rect := c.measureText(pos, text, fontSize)
	if text == "" || col.A == 0 {
		return rect
	}
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(color.NRGBA{R: col.R, G: col.G, B: col.B, A: col.A}),
		Face: textFace,
		Dot:  fixed.P(int(pos.X), int(pos.Y)),
	}
	d.DrawString(text)
	return rect
}

func (c *rasterCanvas) MeasureText(pos Point, text, fontFamily string, fontSize float64) Rect {
	return c.measureText(pos, text, fontSize)
}

// measureText uses basicfont.Face7x13's fixed metrics. fontSize is not
// applied to the glyph raster (the bitmap font has one fixed size); it
// still widens the returned rect proportionally so label-placement
// overlap math scales sensibly with the style's requested size.
func (c *rasterCanvas) measureText(pos Point, text string, fontSize float64) Rect {
	scale := 1.0
	if fontSize > 0 {
		scale = fontSize / float64(textFace.Height)
	}
	adv := font.MeasureString(textFace, text).Ceil()
	metrics := textFace.Metrics()
	ascent := float64(metrics.Ascent.Ceil()) * scale
	descent := float64(metrics.Descent.Ceil()) * scale
	return Rect{
		MinX: pos.X, MinY: pos.Y - ascent,
		MaxX: pos.X + float64(adv)*scale, MaxY: pos.Y + descent,
	}
}

func (c *rasterCanvas) PaintIcon(pos Point, iconPath string, w, h, opacity float64) {
	if w <= 0 || h <= 0 || opacity <= 0 {
		return
	}
	dstRect := image.Rect(int(pos.X-w/2), int(pos.Y-h/2), int(pos.X+w/2), int(pos.Y+h/2))

	src := c.loadIcon(iconPath, int(w), int(h))
	if opacity >= 1 {
		xdraw.Draw(c.img, dstRect, src, image.Point{}, xdraw.Over)
		return
	}
	mask := image.NewUniform(color.Alpha{A: uint8(opacity * 255)})
	xdraw.DrawMask(c.img, dstRect, src, image.Point{}, mask, image.Point{}, xdraw.Over)
}

// loadIcon decodes iconPath and scales it to w x h, falling back to a flat
// gray placeholder swatch when the file is missing or undecodable — icon
// asset loading is part of the out-of-scope drawing collaborator spec.md
// §1 carves out, so the reference backend degrades gracefully rather than
// failing the whole render.
func (c *rasterCanvas) loadIcon(iconPath string, w, h int) image.Image {
	if f, err := os.Open(iconPath); err == nil {
		defer f.Close()
		if img, _, err := image.Decode(f); err == nil {
			scaled := image.NewNRGBA(image.Rect(0, 0, w, h))
			xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Over, nil)
			return scaled
		}
	}
	placeholder := image.NewNRGBA(image.Rect(0, 0, w, h))
	fill := color.NRGBA{R: 160, G: 160, B: 160, A: 200}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			placeholder.SetNRGBA(x, y, fill)
		}
	}
	return placeholder
}

func (c *rasterCanvas) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, c.img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *rasterCanvas) SliceTile(originPx Point, sizePx int) ([]byte, error) {
	crop := image.NewNRGBA(image.Rect(0, 0, sizePx, sizePx))
	srcRect := image.Rect(int(originPx.X), int(originPx.Y), int(originPx.X)+sizePx, int(originPx.Y)+sizePx)
	xdraw.Draw(crop, crop.Bounds(), c.img, srcRect.Min, xdraw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, crop); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// forEachDashSegment walks the polyline pts, invoking fn once per "on"
// sub-segment of the dash pattern. A nil/empty dashes slice means solid:
// fn is called once per original segment.
func forEachDashSegment(pts []Point, dashes []float64, fn func(a, b Point)) {
	if len(dashes) == 0 {
		for i := 0; i < len(pts)-1; i++ {
			fn(pts[i], pts[i+1])
		}
		return
	}

	cycle := 0.0
	for _, d := range dashes {
		cycle += d
	}
	if cycle <= 0 {
		return
	}

	pos := 0.0 // distance into the current dash cycle
	for i := 0; i < len(pts)-1; i++ {
		a, b := pts[i], pts[i+1]
		segLen := math.Hypot(b.X-a.X, b.Y-a.Y)
		if segLen == 0 {
			continue
		}
		dirX, dirY := (b.X-a.X)/segLen, (b.Y-a.Y)/segLen

		walked := 0.0
		for walked < segLen {
			idx, into := dashIndex(dashes, pos)
			remain := dashes[idx] - into
			step := math.Min(remain, segLen-walked)

			if idx%2 == 0 { // "on" dash
				p0 := Point{X: a.X + dirX*walked, Y: a.Y + dirY*walked}
				p1 := Point{X: a.X + dirX*(walked+step), Y: a.Y + dirY*(walked+step)}
				fn(p0, p1)
			}

			walked += step
			pos += step
			if pos >= cycle {
				pos -= cycle * math.Floor(pos/cycle)
			}
		}
	}
}

func dashIndex(dashes []float64, pos float64) (idx int, into float64) {
	cycle := 0.0
	for _, d := range dashes {
		cycle += d
	}
	pos = math.Mod(pos, cycle)
	for i, d := range dashes {
		if pos < d {
			return i, pos
		}
		pos -= d
	}
	return 0, 0
}
