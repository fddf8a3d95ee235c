// Package renderer paints a matched RenderAttributes arena onto a meta-tile
// canvas and slices the result into individual tile images (spec.md §3
// "Renderer orchestration", §4.9 layering/label placement/slicing).
// Grounded on original_source/include/server/renderer.hpp and
// src/server/renderer.cpp for the five-logical-layer / OSM-layer-bucket
// compositing order, and on
// MeKo-Christian-WaterColorMap/internal/renderer/multipass.go for the
// per-layer render-then-composite orchestration shape (there per watercolor
// GeoJSON layer, here per MapCSS logical layer and z-index bucket).
package renderer

import "github.com/MeKo-Tech/alacarte/internal/style"

// Point is a pixel-space coordinate local to a meta-canvas (or, for SVG
// output, a coordinate in the same pixel space used as the SVG user unit).
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned pixel rectangle, used both for label/shield
// placement bookkeeping and for describing an object's geometric extent
// (spec.md §4.9 "owner rect").
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

func (r Rect) Width() float64  { return r.MaxX - r.MinX }
func (r Rect) Height() float64 { return r.MaxY - r.MinY }
func (r Rect) Area() float64 {
	w, h := r.Width(), r.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Intersect returns the overlapping rectangle of r and o, which has zero
// area when they don't overlap.
func (r Rect) Intersect(o Rect) Rect {
	return Rect{
		MinX: maxF(r.MinX, o.MinX),
		MinY: maxF(r.MinY, o.MinY),
		MaxX: minF(r.MaxX, o.MaxX),
		MaxY: minF(r.MaxY, o.MaxY),
	}
}

// OverlapRatio is the intersection area as a fraction of r's own area,
// matching the "< 10% of area" acceptance tests spec.md §4.9 describes for
// both shields and labels.
func (r Rect) OverlapRatio(o Rect) float64 {
	area := r.Area()
	if area == 0 {
		return 0
	}
	return r.Intersect(o).Area() / area
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.MinX && p.X <= r.MaxX && p.Y >= r.MinY && p.Y <= r.MaxY
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// LineStyle bundles the stroke attributes Draw needs for a line or a
// polygon's casing/fill outline.
type LineStyle struct {
	Width  float64
	Color  style.Color
	Dashes []float64
	Cap    style.LineCap
	Join   style.LineJoin
}

// Draw is the per-primitive rasterization collaborator spec.md §1 carves
// out of the core's responsibility ("the core delegates per-object
// rasterization to a Draw primitive API and is responsible only for
// orchestration"). Two implementations exist in this package: rasterCanvas
// (PNG, backed by golang.org/x/image) and svgCanvas (SVG, backed by
// generated markup).
type Draw interface {
	// DrawLine strokes an open (or closed, if the caller repeats the first
	// point) polyline.
	DrawLine(pts []Point, st LineStyle)
	// DrawPolygon fills a closed ring with a solid color. No casing is
	// drawn; callers that need both an outline and a fill issue a separate
	// DrawLine call for the casing.
	DrawPolygon(ring []Point, fill style.Color)
	// DrawText draws text with its baseline-left anchor at pos and returns
	// the pixel rect it occupies, for label-placement bookkeeping.
	DrawText(pos Point, text, fontFamily string, fontSize float64, color style.Color) Rect
	// MeasureText returns the rect DrawText would occupy without painting
	// anything, used by the placement solver to evaluate candidates.
	MeasureText(pos Point, text, fontFamily string, fontSize float64) Rect
	// PaintIcon paints iconPath's image, scaled to w x h, centered at pos,
	// at the given opacity in [0,1].
	PaintIcon(pos Point, iconPath string, w, h, opacity float64)
	// Encode finishes the canvas and returns the encoded bytes for the
	// whole meta-canvas; SliceTile (below) is used for the per-tile crop.
	Encode() ([]byte, error)
}

// TileSlicer is implemented by Draw backends that can crop the painted
// meta-canvas down to one contained tile's encoded bytes (spec.md §4.9
// "Slicing": "blit the corresponding TILE_SIZE x TILE_SIZE region, encode
// into PNG or SVG").
type TileSlicer interface {
	SliceTile(originPx Point, sizePx int) ([]byte, error)
}
