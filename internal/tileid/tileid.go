// Package tileid defines the value types that address tiles and meta-tiles
// in the standard web-mercator slippy-map scheme, plus the URL grammar that
// maps an HTTP request path onto a TileIdentifier.
package tileid

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// Format is the image encoding requested for a tile.
type Format int

const (
	PNG Format = iota
	SVG
)

func (f Format) String() string {
	switch f {
	case PNG:
		return "png"
	case SVG:
		return "svg"
	default:
		return "unknown"
	}
}

func (f Format) ContentType() string {
	switch f {
	case PNG:
		return "image/png"
	case SVG:
		return "image/svg+xml"
	default:
		return "application/octet-stream"
	}
}

// ParseFormat maps a URL extension onto a Format. ok is false for anything
// other than "png"/"svg" (the caller is responsible for turning that into a
// 501 Not Implemented, per spec.md §4.1).
func ParseFormat(ext string) (f Format, ok bool) {
	switch ext {
	case "png":
		return PNG, true
	case "svg":
		return SVG, true
	default:
		return PNG, false
	}
}

// MaxZoom is the highest zoom level the server accepts (spec.md §4.1).
const MaxZoom = 18

// DefaultStyle is the reserved stylesheet path used for a sentinel
// "no data at all" default tile.
const DefaultStyle = "/"

// FallbackStyle is the reserved stylesheet path for the built-in fallback
// stylesheet (alaCarte's ".fallback" sentinel, see SPEC_FULL.md §C.3).
const FallbackStyle = ".fallback"

// TileIdentifier addresses a single tile: its coordinates, the stylesheet it
// should be rendered with, and its requested image format. It is a plain
// comparable value so it can be used directly as a map key.
type TileIdentifier struct {
	X, Y       uint32
	Z          uint8
	Stylesheet string
	Format     Format
}

// New validates and constructs a TileIdentifier. z must be in [0, MaxZoom]
// and x, y within [0, 2^z).
func New(x, y uint32, z uint8, stylesheet string, format Format) (TileIdentifier, error) {
	ti := TileIdentifier{X: x, Y: y, Z: z, Stylesheet: stylesheet, Format: format}
	if err := ti.Validate(); err != nil {
		return TileIdentifier{}, err
	}
	return ti, nil
}

// Validate reports whether the coordinate is in range for its zoom level.
func (t TileIdentifier) Validate() error {
	if t.Z > MaxZoom {
		return fmt.Errorf("tileid: zoom %d exceeds maximum %d", t.Z, MaxZoom)
	}
	n := tilesPerAxis(t.Z)
	if t.X >= n || t.Y >= n {
		return fmt.Errorf("tileid: coordinate (%d,%d) out of range for zoom %d", t.X, t.Y, t.Z)
	}
	return nil
}

func tilesPerAxis(z uint8) uint32 {
	return uint32(1) << uint(z)
}

// IsDefault reports whether this identifier addresses the sentinel
// default-tile (fixed static bytes, spec.md §3).
func (t TileIdentifier) IsDefault() bool {
	return t.Stylesheet == DefaultStyle
}

// WithStylesheet returns a copy of t addressed at a different stylesheet,
// used by the stylesheet-resolution fallback chain (SPEC_FULL.md §C.1).
func (t TileIdentifier) WithStylesheet(style string) TileIdentifier {
	t.Stylesheet = style
	return t
}

// Tile returns the orb/maptile representation of this coordinate.
func (t TileIdentifier) Tile() maptile.Tile {
	return maptile.New(t.X, t.Y, maptile.Zoom(t.Z))
}

// Bound returns the tile's geographic bounding box in WGS84 (lon/lat).
func (t TileIdentifier) Bound() orb.Bound {
	return t.Tile().Bound()
}

// MercatorBound returns the tile's bounding box in Web Mercator meters.
func (t TileIdentifier) MercatorBound() Rect {
	b := t.Bound()
	minX, minY := lonLatToMercator(b.Min.Lon(), b.Min.Lat())
	maxX, maxY := lonLatToMercator(b.Max.Lon(), b.Max.Lat())
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	return Rect{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
}

// String renders the identifier as "style/z/x/y.format".
func (t TileIdentifier) String() string {
	return fmt.Sprintf("%s/%d/%d/%d.%s", t.Stylesheet, t.Z, t.X, t.Y, t.Format)
}

// Rect is an axis-aligned rectangle in Web Mercator meters — the unit
// GeodataView queries operate on (spec.md §4.2).
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// Grow expands the rect by fraction*width horizontally and fraction*height
// vertically on every side. This implements the TILE_OVERLAP grow used by
// the original Job::computeRect (SPEC_FULL.md §C.5).
func (r Rect) Grow(fraction float64) Rect {
	dx := (r.MaxX - r.MinX) * fraction
	dy := (r.MaxY - r.MinY) * fraction
	return Rect{
		MinX: r.MinX - dx,
		MinY: r.MinY - dy,
		MaxX: r.MaxX + dx,
		MaxY: r.MaxY + dy,
	}
}

func (r Rect) Width() float64  { return r.MaxX - r.MinX }
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

const earthRadius = 6378137.0

func lonLatToMercator(lon, lat float64) (float64, float64) {
	x := earthRadius * lon * math.Pi / 180.0
	latRad := lat * math.Pi / 180.0
	y := earthRadius * math.Log(math.Tan(math.Pi/4.0+latRad/2.0))
	return x, y
}
