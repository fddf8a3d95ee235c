package renderer

import (
	"sort"

	"github.com/MeKo-Tech/alacarte/internal/style"
)

// overlapThreshold is the "< 10% of area" acceptance bound spec.md §4.9
// gives for both shield and label placement.
const overlapThreshold = 0.10

// candidateOffsets are the five positions (spec.md §4.9: "try 5 candidate
// positions around each label's anchor") tried for a text label, expressed
// as a fraction of the label's own measured width/height: the anchor
// itself, then above/below/left/right of it.
var candidateOffsets = [5]Point{
	{X: 0, Y: 0},
	{X: 0, Y: -1},
	{X: 0, Y: 1},
	{X: -1, Y: 0},
	{X: 1, Y: 0},
}

type labelCandidate struct {
	text   string
	anchor Point
	owner  Rect // the geometry's owner rect, for the edge-discard rule
	bounds Rect // measured text rect at the anchor (candidate 0)
	sty    style.Style
}

type shieldCandidate struct {
	text   string
	anchor Point
	owner  Rect
	sty    style.Style
}

// placeAndDrawLabels runs the greedy placement solver (spec.md §4.9) and
// paints whatever survives. Shields and labels compete for the same space
// and are processed together in descending font-size order, matching the
// spec's single sorted pass ("sort by font_size desc").
func placeAndDrawLabels(canvas Draw, labels []labelCandidate, shields []shieldCandidate, canvasW, canvasH int) {
	type item struct {
		fontSize float64
		isShield bool
		label    labelCandidate
		shield   shieldCandidate
	}
	items := make([]item, 0, len(labels)+len(shields))
	for _, l := range labels {
		items = append(items, item{fontSize: l.sty.FontSize, label: l})
	}
	for _, s := range shields {
		items = append(items, item{fontSize: s.sty.FontSize, isShield: true, shield: s})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].fontSize > items[j].fontSize })

	canvasRect := Rect{MinX: 0, MinY: 0, MaxX: float64(canvasW), MaxY: float64(canvasH)}
	var placed []Rect

	for _, it := range items {
		if it.isShield {
			s := it.shield
			if s.owner.Area() > 0 && s.owner.Intersect(canvasRect).Area() == 0 {
				continue
			}
			rect := shieldRect(s)
			if maxOverlap(rect, placed) >= overlapThreshold {
				continue
			}
			drawShield(canvas, s, rect)
			placed = append(placed, rect)
			continue
		}

		l := it.label
		if l.owner.Area() > 0 && l.owner.Intersect(canvasRect).Area() == 0 {
			// Owner rect lies entirely outside this meta-tile's canvas; a
			// neighboring tile's render pass owns placing it.
			continue
		}

		best := Rect{}
		bestOverlap := 2.0
		w, h := l.bounds.Width(), l.bounds.Height()
		for _, off := range candidateOffsets {
			cand := Rect{
				MinX: l.anchor.X + off.X*w - w/2,
				MinY: l.anchor.Y + off.Y*h - h/2,
				MaxX: l.anchor.X + off.X*w + w/2,
				MaxY: l.anchor.Y + off.Y*h + h/2,
			}
			ov := maxOverlap(cand, placed)
			if ov < bestOverlap {
				bestOverlap = ov
				best = cand
			}
		}
		if bestOverlap >= overlapThreshold {
			continue
		}
		canvas.DrawText(Point{X: best.MinX, Y: best.MaxY}, l.text, l.sty.FontFamily, l.sty.FontSize, l.sty.TextColor)
		placed = append(placed, best)
	}
}

// maxOverlap returns the largest OverlapRatio of r against any rect
// already placed.
func maxOverlap(r Rect, placed []Rect) float64 {
	max := 0.0
	for _, p := range placed {
		if ov := r.OverlapRatio(p); ov > max {
			max = ov
		}
	}
	return max
}

func shieldRect(s shieldCandidate) Rect {
	w := float64(len(s.text))*s.sty.FontSize*0.6 + 8
	h := s.sty.FontSize + 8
	return Rect{
		MinX: s.anchor.X - w/2, MinY: s.anchor.Y - h/2,
		MaxX: s.anchor.X + w/2, MaxY: s.anchor.Y + h/2,
	}
}

func drawShield(canvas Draw, s shieldCandidate, rect Rect) {
	if s.sty.ShieldCasingColor.A != 0 {
		canvas.DrawPolygon([]Point{
			{X: rect.MinX, Y: rect.MinY}, {X: rect.MaxX, Y: rect.MinY},
			{X: rect.MaxX, Y: rect.MaxY}, {X: rect.MinX, Y: rect.MaxY},
		}, s.sty.ShieldCasingColor)
	}
	if s.sty.ShieldFrameColor.A != 0 {
		canvas.DrawLine([]Point{
			{X: rect.MinX, Y: rect.MinY}, {X: rect.MaxX, Y: rect.MinY},
			{X: rect.MaxX, Y: rect.MaxY}, {X: rect.MinX, Y: rect.MaxY},
			{X: rect.MinX, Y: rect.MinY},
		}, LineStyle{Width: 1, Color: s.sty.ShieldFrameColor})
	}
	canvas.DrawText(Point{X: rect.MinX + 4, Y: rect.MaxY - 4}, s.text, s.sty.FontFamily, s.sty.FontSize, s.sty.TextColor)
}
