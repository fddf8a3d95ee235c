package renderer

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/MeKo-Tech/alacarte/internal/geodata"
	"github.com/MeKo-Tech/alacarte/internal/mapcss"
	"github.com/MeKo-Tech/alacarte/internal/metrics"
	"github.com/MeKo-Tech/alacarte/internal/style"
	"github.com/MeKo-Tech/alacarte/internal/stylesheet"
	"github.com/MeKo-Tech/alacarte/internal/tileid"
)

// TileSize is the pixel width/height of one slippy-map tile.
const TileSize = 256

// Renderer paints a matched RenderAttributes onto a meta-canvas and slices
// it into the tiles a MetaIdentifier contains (spec.md §4.9). It implements
// internal/job.Renderer.
type Renderer struct {
	View    geodata.View
	Strings *geodata.Interner
	Logger  *slog.Logger

	// Metrics, when set, receives per-phase render duration observations
	// (SPEC_FULL.md §C.2). Nil is a valid zero value; RenderMeta skips the
	// observation rather than requiring a caller to build a no-op Metrics.
	Metrics *metrics.Metrics
}

// New builds a Renderer over view, interning tags through strings.
func New(view geodata.View, strings *geodata.Interner, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{View: view, Strings: strings, Logger: logger}
}

func (r *Renderer) observePhase(phase string, start time.Time) {
	if r.Metrics == nil {
		return
	}
	r.Metrics.RenderPhaseDur.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}

// geom carries the pixel-space geometry of one matched object alongside
// its style, kept parallel to the stylesheet.Object slice passed to
// Stylesheet.Match so handles line up by index.
type geom struct {
	kind geodata.ObjectKind
	id   int64
	// pt is valid for nodes.
	pt Point
	// rings holds one polyline per way/relation-member; a way contributes
	// exactly one ring, a relation one per member way.
	rings [][]Point
	closed bool
}

// RenderMeta implements job.Renderer: it queries geodata over rect, matches
// ss against every returned object, paints the result onto a fresh
// meta-canvas sized for meta, and slices out one image per contained tile.
func (r *Renderer) RenderMeta(ctx context.Context, meta tileid.MetaIdentifier, rect tileid.Rect, ss *stylesheet.Stylesheet, warn *mapcss.WarnLimiter) (map[tileid.TileIdentifier][]byte, error) {
	collectStart := time.Now()
	objs, geoms := r.collect(rect)
	r.observePhase("collect", collectStart)

	matchStart := time.Now()
	canvasObj := stylesheet.Object{Kind: geodata.KindAny, Tags: nil, Strings: r.Strings}
	ra := ss.Match(objs, canvasObj, meta.Z, r.failFunc(ss, warn))
	r.observePhase("match", matchStart)

	scaleX, scaleY := metaScale(meta, rect)
	canvasW := int(rect.Width()*scaleX + 0.5)
	canvasH := int(rect.Height()*scaleY + 0.5)
	if canvasW < 1 {
		canvasW = 1
	}
	if canvasH < 1 {
		canvasH = 1
	}

	proj := projector{rect: rect, scaleX: scaleX, scaleY: scaleY}

	canvas := newCanvas(meta.Format, canvasW, canvasH)
	canvasStyle := ra.Canvas()
	if canvasStyle.FillColor != (style.Color{}) {
		canvas.DrawPolygon([]Point{
			{0, 0}, {float64(canvasW), 0}, {float64(canvasW), float64(canvasH)}, {0, float64(canvasH)},
		}, canvasStyle.FillColor)
	}

	paintStart := time.Now()
	paintables := buildPaintables(objs, geoms, ra, proj)
	labels, shields := paintLayers(canvas, paintables)
	r.observePhase("paint", paintStart)

	labelStart := time.Now()
	placeAndDrawLabels(canvas, labels, shields, canvasW, canvasH)
	r.observePhase("label", labelStart)

	encodeStart := time.Now()
	img, err := canvas.Encode()
	if err != nil {
		return nil, err
	}
	r.observePhase("encode", encodeStart)

	slicer, ok := canvas.(TileSlicer)
	if !ok {
		// Backend can't slice; every tile gets the whole meta image. Both
		// backends in this package implement TileSlicer, so only another
		// Canvas implementation reaches this branch.
		tiles := make(map[tileid.TileIdentifier][]byte, len(meta.Tiles()))
		for _, t := range meta.Tiles() {
			tiles[t] = img
		}
		return tiles, nil
	}

	tiles := make(map[tileid.TileIdentifier][]byte, len(meta.Tiles()))
	originTile := meta.Origin().MercatorBound()
	for dy := uint32(0); dy < meta.Height; dy++ {
		for dx := uint32(0); dx < meta.Width; dx++ {
			tid := tileid.TileIdentifier{
				X: meta.X + dx, Y: meta.Y + dy, Z: meta.Z,
				Stylesheet: meta.Stylesheet, Format: meta.Format,
			}
			originPx := proj.project(
				originTile.MinX+float64(dx)*(originTile.Width()),
				originTile.MaxY-float64(dy)*(originTile.Height()),
			)
			data, err := slicer.SliceTile(originPx, TileSize)
			if err != nil {
				return nil, err
			}
			tiles[tid] = data
		}
	}
	return tiles, nil
}

// metaScale returns pixels-per-mercator-meter for meta's *unswollen*
// bounding rect, applied to the (possibly overlap-grown) query rect passed
// by the caller — giving a canvas whose non-overlap region is exactly
// meta.Width/Height tiles wide/tall.
func metaScale(meta tileid.MetaIdentifier, rect tileid.Rect) (float64, float64) {
	base := meta.MercatorRect()
	sx := float64(meta.Width) * TileSize / base.Width()
	sy := float64(meta.Height) * TileSize / base.Height()
	return sx, sy
}

type projector struct {
	rect           tileid.Rect
	scaleX, scaleY float64
}

// project maps a Web Mercator coordinate to meta-canvas pixel space. Pixel
// Y grows downward while Mercator Y grows northward, hence the flip.
func (p projector) project(x, y float64) Point {
	return Point{
		X: (x - p.rect.MinX) * p.scaleX,
		Y: (p.rect.MaxY - y) * p.scaleY,
	}
}

func (r *Renderer) failFunc(ss *stylesheet.Stylesheet, warn *mapcss.WarnLimiter) stylesheet.FailFunc {
	return func(ruleIndex int, field string) {
		if warn == nil {
			return
		}
		if warn.ShouldWarn(mapcss.WarnKey{Rule: ruleIndex, Field: field}) {
			r.Logger.Warn("mapcss field evaluation failed", "stylesheet", ss.Path, "rule", ruleIndex, "field", field)
		}
	}
}

// collect queries every node/way/relation in rect and builds the parallel
// stylesheet.Object / geom slices Stylesheet.Match and the painter need.
// Ways are queried first to keep relation member lookups warm, matching no
// particular requirement of spec.md — just a stable, deterministic order.
func (r *Renderer) collect(rect tileid.Rect) ([]stylesheet.Object, []geom) {
	var objs []stylesheet.Object
	var geoms []geom

	for _, id := range r.View.WaysIn(rect) {
		w, ok := r.View.GetWay(id)
		if !ok {
			continue
		}
		ring := r.wayPoints(w)
		objs = append(objs, stylesheet.Object{Kind: geodata.KindWay, Tags: w.Tags, Closed: w.Closed(), Strings: r.Strings})
		geoms = append(geoms, geom{kind: geodata.KindWay, id: int64(id), rings: [][]Point{ring}, closed: w.Closed()})
	}

	for _, id := range r.View.NodesIn(rect) {
		n, ok := r.View.GetNode(id)
		if !ok {
			continue
		}
		objs = append(objs, stylesheet.Object{Kind: geodata.KindNode, Tags: n.Tags, Strings: r.Strings})
		geoms = append(geoms, geom{kind: geodata.KindNode, id: int64(id), pt: Point{X: n.Pos.X, Y: n.Pos.Y}})
	}

	for _, id := range r.View.RelationsIn(rect) {
		rel, ok := r.View.GetRelation(id)
		if !ok {
			continue
		}
		var childTags []geodata.Tags
		var rings [][]Point
		for _, m := range rel.Members {
			if m.IsNode {
				if n, ok := r.View.GetNode(m.NodeID); ok {
					childTags = append(childTags, n.Tags)
				}
				continue
			}
			if w, ok := r.View.GetWay(m.WayID); ok {
				childTags = append(childTags, w.Tags)
				rings = append(rings, r.wayPoints(w))
			}
		}
		objs = append(objs, stylesheet.Object{Kind: geodata.KindRelation, Tags: rel.Tags, Strings: r.Strings, ChildTags: childTags})
		geoms = append(geoms, geom{kind: geodata.KindRelation, id: int64(id), rings: rings})
	}

	return objs, geoms
}

func (r *Renderer) wayPoints(w geodata.Way) []Point {
	pts := make([]Point, 0, len(w.Nodes))
	for _, nid := range w.Nodes {
		if n, ok := r.View.GetNode(nid); ok {
			pts = append(pts, Point{X: n.Pos.X, Y: n.Pos.Y})
		}
	}
	return pts
}

// paintable is one matched object projected into pixel space and ready to
// be drawn, carrying its fold-resolved Style.
type paintable struct {
	kind   geodata.ObjectKind
	id     int64
	sty    style.Style
	pt     Point
	rings  [][]Point
	closed bool
}

func buildPaintables(objs []stylesheet.Object, geoms []geom, ra *style.RenderAttributes, proj projector) []paintable {
	out := make([]paintable, 0, len(geoms))
	for i, g := range geoms {
		_ = objs[i]
		sty := *ra.Style(style.Handle(i))
		p := paintable{kind: g.kind, id: g.id, sty: sty, closed: g.closed}
		if g.kind == geodata.KindNode {
			p.pt = proj.project(g.pt.X, g.pt.Y)
		}
		for _, ring := range g.rings {
			if len(ring) == 0 {
				continue
			}
			px := make([]Point, len(ring))
			for j, pt := range ring {
				px[j] = proj.project(pt.X, pt.Y)
			}
			p.rings = append(p.rings, px)
		}
		out = append(out, p)
	}
	return out
}

// osmLayer buckets a paintable by z_index/100 (spec.md §4.9: "after each
// OSM 'layer' (z_index / 100) boundary, the five logical layers are
// composited onto the fill layer and cleared, so higher OSM layers are
// drawn strictly above lower ones regardless of z_index").
func osmLayer(p paintable) int {
	return int(p.sty.ZIndex) / 100
}

// paintLayers draws every paintable in OSM-layer, then z-index, then id
// order, five logical layers (Fill, Casing, Stroke, Icons, Labels) at a
// time within each OSM-layer bucket. The reference Draw backends expose a
// single flat canvas rather than separately compositable layer buffers, so
// "compositing onto the fill layer" is realized here as simply drawing in
// that strict order per bucket — later buckets' Fill/Casing/Stroke/Icons
// calls necessarily land on top of everything already painted, which is
// the externally observable effect the spec names. Labels and shields are
// gathered for placement after every bucket has painted its geometry.
func paintLayers(canvas Draw, paintables []paintable) (labels []labelCandidate, shields []shieldCandidate) {
	sort.SliceStable(paintables, func(i, j int) bool {
		a, b := paintables[i], paintables[j]
		if la, lb := osmLayer(a), osmLayer(b); la != lb {
			return la < lb
		}
		if a.sty.ZIndex != b.sty.ZIndex {
			return a.sty.ZIndex < b.sty.ZIndex
		}
		return a.id < b.id
	})

	buckets := bucketByLayer(paintables)
	for _, bucket := range buckets {
		for _, p := range bucket {
			if p.sty.FillColor.A != 0 {
				for _, ring := range p.rings {
					canvas.DrawPolygon(ring, p.sty.FillColor)
				}
			}
		}
		for _, p := range bucket {
			if p.sty.CasingWidth > 0 && p.sty.CasingColor.A != 0 {
				for _, ring := range p.rings {
					canvas.DrawLine(ring, LineStyle{Width: p.sty.CasingWidth, Color: p.sty.CasingColor, Dashes: p.sty.CasingDashes, Cap: p.sty.CasingCap, Join: p.sty.CasingJoin})
				}
			}
		}
		for _, p := range bucket {
			if p.sty.Width > 0 && p.sty.Color.A != 0 {
				for _, ring := range p.rings {
					canvas.DrawLine(ring, LineStyle{Width: p.sty.Width, Color: p.sty.Color, Dashes: p.sty.Dashes, Cap: p.sty.Cap, Join: p.sty.Join})
				}
			}
		}
		for _, p := range bucket {
			if p.sty.IconPath != "" && p.kind == geodata.KindNode {
				canvas.PaintIcon(p.pt, p.sty.IconPath, p.sty.IconWidth, p.sty.IconHeight, p.sty.IconOpacity)
			}
		}
		for _, p := range bucket {
			anchor, owner, ok := labelAnchor(p)
			if !ok {
				continue
			}
			if p.sty.ShieldText != "" {
				shields = append(shields, shieldCandidate{text: p.sty.ShieldText, anchor: anchor, owner: owner, sty: p.sty})
				continue
			}
			if p.sty.Text != "" {
				rect := canvas.MeasureText(anchor, p.sty.Text, p.sty.FontFamily, p.sty.FontSize)
				labels = append(labels, labelCandidate{text: p.sty.Text, anchor: anchor, owner: owner, bounds: rect, sty: p.sty})
			}
		}
	}
	return labels, shields
}

func bucketByLayer(paintables []paintable) [][]paintable {
	var buckets [][]paintable
	var cur []paintable
	curLayer := 0
	first := true
	for _, p := range paintables {
		l := osmLayer(p)
		if first || l != curLayer {
			if len(cur) > 0 {
				buckets = append(buckets, cur)
			}
			cur = nil
			curLayer = l
			first = false
		}
		cur = append(cur, p)
	}
	if len(cur) > 0 {
		buckets = append(buckets, cur)
	}
	return buckets
}

// labelAnchor picks the anchor point and owner rect for a label/shield:
// a node's own position, or a way/relation's ring centroid.
func labelAnchor(p paintable) (Point, Rect, bool) {
	if p.kind == geodata.KindNode {
		return p.pt, Rect{MinX: p.pt.X - 1, MinY: p.pt.Y - 1, MaxX: p.pt.X + 1, MaxY: p.pt.Y + 1}, true
	}
	if len(p.rings) == 0 || len(p.rings[0]) == 0 {
		return Point{}, Rect{}, false
	}
	ring := p.rings[0]
	var sx, sy float64
	minX, minY, maxX, maxY := ring[0].X, ring[0].Y, ring[0].X, ring[0].Y
	for _, pt := range ring {
		sx += pt.X
		sy += pt.Y
		minX, minY = minF(minX, pt.X), minF(minY, pt.Y)
		maxX, maxY = maxF(maxX, pt.X), maxF(maxY, pt.Y)
	}
	n := float64(len(ring))
	anchor := Point{X: sx / n, Y: sy / n}
	return anchor, Rect{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}, true
}
