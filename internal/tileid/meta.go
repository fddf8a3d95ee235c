package tileid

// MaxMetaSpan is the maximum width/height of a meta-tile (spec.md §3: a
// 4x4 block of tiles sharing one render pass).
const MaxMetaSpan = 4

// MetaIdentifier addresses a w x h block of tiles sharing one render pass.
// It is derived from an origin TileIdentifier by rounding X and Y down to
// the nearest multiple of MaxMetaSpan and clamping Width/Height against the
// zoom's tile count.
type MetaIdentifier struct {
	X, Y          uint32
	Z             uint8
	Stylesheet    string
	Format        Format
	Width, Height uint32
}

// MetaFor derives the MetaIdentifier containing the given TileIdentifier.
func MetaFor(ti TileIdentifier) MetaIdentifier {
	originX := (ti.X / MaxMetaSpan) * MaxMetaSpan
	originY := (ti.Y / MaxMetaSpan) * MaxMetaSpan
	n := tilesPerAxis(ti.Z)

	width := uint32(MaxMetaSpan)
	if originX+width > n {
		width = n - originX
	}
	height := uint32(MaxMetaSpan)
	if originY+height > n {
		height = n - originY
	}

	return MetaIdentifier{
		X:          originX,
		Y:          originY,
		Z:          ti.Z,
		Stylesheet: ti.Stylesheet,
		Format:     ti.Format,
		Width:      width,
		Height:     height,
	}
}

// ZoomMeta derives the meta-identifier containing tile (0,0) for a
// zoom/stylesheet/format triple, used when seeding prerender at zoom 0
// (where it is the single whole-world tile).
func ZoomMeta(z uint8, stylesheet string, format Format) MetaIdentifier {
	ti := TileIdentifier{X: 0, Y: 0, Z: z, Stylesheet: stylesheet, Format: format}
	return MetaFor(ti)
}

// Contains reports whether tid falls within this meta-tile: same
// zoom/style/format, and coordinates inside [X, X+Width) x [Y, Y+Height).
// This is the invariant spec.md §3 and §8 (property 3) require.
func (m MetaIdentifier) Contains(tid TileIdentifier) bool {
	if tid.Z != m.Z || tid.Stylesheet != m.Stylesheet || tid.Format != m.Format {
		return false
	}
	return tid.X >= m.X && tid.X < m.X+m.Width &&
		tid.Y >= m.Y && tid.Y < m.Y+m.Height
}

// Tiles enumerates every TileIdentifier contained in the meta-tile, in
// row-major order.
func (m MetaIdentifier) Tiles() []TileIdentifier {
	out := make([]TileIdentifier, 0, m.Width*m.Height)
	for dy := uint32(0); dy < m.Height; dy++ {
		for dx := uint32(0); dx < m.Width; dx++ {
			out = append(out, TileIdentifier{
				X:          m.X + dx,
				Y:          m.Y + dy,
				Z:          m.Z,
				Stylesheet: m.Stylesheet,
				Format:     m.Format,
			})
		}
	}
	return out
}

// Origin returns the top-left TileIdentifier of the meta-tile.
func (m MetaIdentifier) Origin() TileIdentifier {
	return TileIdentifier{X: m.X, Y: m.Y, Z: m.Z, Stylesheet: m.Stylesheet, Format: m.Format}
}

// MercatorRect returns the bounding rectangle of the whole meta-tile in Web
// Mercator meters, without overlap.
func (m MetaIdentifier) MercatorRect() Rect {
	topLeft := m.Origin().MercatorBound()
	bottomRight := TileIdentifier{
		X: m.X + m.Width - 1, Y: m.Y + m.Height - 1, Z: m.Z,
		Stylesheet: m.Stylesheet, Format: m.Format,
	}.MercatorBound()

	minX := minF(topLeft.MinX, bottomRight.MinX)
	maxX := maxF(topLeft.MaxX, bottomRight.MaxX)
	minY := minF(topLeft.MinY, bottomRight.MinY)
	maxY := maxF(topLeft.MaxY, bottomRight.MaxY)
	return Rect{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
}

// SubMetas returns the zoom+1 meta-tiles exactly covering this one's area
// (four for a full 4x4 meta, fewer where the child area is smaller),
// used by recursive prerender (spec.md §2 "Prerender flow", §4.8).
func (m MetaIdentifier) SubMetas() []MetaIdentifier {
	childZ := m.Z + 1
	if int(childZ) > MaxZoom {
		return nil
	}
	childX0 := m.X * 2
	childY0 := m.Y * 2
	childWidth := m.Width * 2
	childHeight := m.Height * 2

	var subs []MetaIdentifier
	seen := make(map[MetaIdentifier]bool)
	for oy := childY0; oy < childY0+childHeight; oy += MaxMetaSpan {
		for ox := childX0; ox < childX0+childWidth; ox += MaxMetaSpan {
			ti := TileIdentifier{X: ox, Y: oy, Z: childZ, Stylesheet: m.Stylesheet, Format: m.Format}
			if err := ti.Validate(); err != nil {
				continue
			}
			meta := MetaFor(ti)
			if !seen[meta] {
				seen[meta] = true
				subs = append(subs, meta)
			}
		}
	}
	return subs
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
