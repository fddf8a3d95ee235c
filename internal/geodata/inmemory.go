package geodata

import (
	"sync"

	"github.com/MeKo-Tech/alacarte/internal/tileid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"
)

// nodePointer adapts a Node into orb's quadtree.Pointer interface.
type nodePointer struct {
	id  NodeID
	pos Point
}

func (p nodePointer) Point() orb.Point { return orb.Point{p.pos.X, p.pos.Y} }

// bbox is an axis-aligned bounding box in the same Web Mercator units as
// tileid.Rect, used to index ways and relations.
type bbox struct {
	minX, minY, maxX, maxY float64
}

func (b bbox) intersects(r tileid.Rect) bool {
	return b.minX <= r.MaxX && b.maxX >= r.MinX && b.minY <= r.MaxY && b.maxY >= r.MinY
}

// InMemoryView is a reference GeodataView backed by an in-process quadtree
// over node positions (via github.com/paulmach/orb/quadtree) and a linear
// bounding-box scan over ways and relations. It is not the production
// spatial index spec.md §1 names out of scope — it exists so the rendering
// pipeline is independently testable, and is adequate for small datasets
// (demo fixtures, unit tests, single-city deployments).
type InMemoryView struct {
	mu sync.RWMutex

	bound orb.Bound
	tree  *quadtree.Quadtree

	nodes map[NodeID]Node
	ways  map[WayID]Way
	rels  map[RelID]Relation

	wayBBox map[WayID]bbox
	relBBox map[RelID]bbox
}

// NewInMemoryView creates an empty view. Bound is the full extent the
// quadtree will ever be asked to index (in Web Mercator meters); callers
// typically pass the world extent.
func NewInMemoryView(bound orb.Bound) *InMemoryView {
	return &InMemoryView{
		bound:   bound,
		tree:    quadtree.New(bound),
		nodes:   make(map[NodeID]Node),
		ways:    make(map[WayID]Way),
		rels:    make(map[RelID]Relation),
		wayBBox: make(map[WayID]bbox),
		relBBox: make(map[RelID]bbox),
	}
}

// AddNode inserts or replaces a node.
func (v *InMemoryView) AddNode(n Node) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nodes[n.ID] = n
	return v.tree.Add(nodePointer{id: n.ID, pos: n.Pos})
}

// AddWay inserts or replaces a way; its bounding box is derived from the
// positions of its member nodes that are already present in the view.
func (v *InMemoryView) AddWay(w Way) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ways[w.ID] = w
	v.wayBBox[w.ID] = v.boundsOfNodes(w.Nodes)
}

// AddRelation inserts or replaces a relation; its bounding box is the union
// of its member ways' and nodes' bounding boxes.
func (v *InMemoryView) AddRelation(r Relation) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rels[r.ID] = r

	var box bbox
	first := true
	grow := func(b bbox) {
		if first {
			box, first = b, false
			return
		}
		box.minX = minF(box.minX, b.minX)
		box.minY = minF(box.minY, b.minY)
		box.maxX = maxF(box.maxX, b.maxX)
		box.maxY = maxF(box.maxY, b.maxY)
	}
	for _, m := range r.Members {
		if m.IsNode {
			if n, ok := v.nodes[m.NodeID]; ok {
				grow(bbox{n.Pos.X, n.Pos.Y, n.Pos.X, n.Pos.Y})
			}
		} else if b, ok := v.wayBBox[m.WayID]; ok {
			grow(b)
		}
	}
	v.relBBox[r.ID] = box
}

func (v *InMemoryView) boundsOfNodes(ids []NodeID) bbox {
	var box bbox
	first := true
	for _, id := range ids {
		n, ok := v.nodes[id]
		if !ok {
			continue
		}
		if first {
			box = bbox{n.Pos.X, n.Pos.Y, n.Pos.X, n.Pos.Y}
			first = false
			continue
		}
		box.minX = minF(box.minX, n.Pos.X)
		box.minY = minF(box.minY, n.Pos.Y)
		box.maxX = maxF(box.maxX, n.Pos.X)
		box.maxY = maxF(box.maxY, n.Pos.Y)
	}
	return box
}

func (v *InMemoryView) NodesIn(rect tileid.Rect) []NodeID {
	v.mu.RLock()
	defer v.mu.RUnlock()

	b := orb.Bound{Min: orb.Point{rect.MinX, rect.MinY}, Max: orb.Point{rect.MaxX, rect.MaxY}}
	pts := v.tree.InBound(nil, b)
	out := make([]NodeID, 0, len(pts))
	for _, p := range pts {
		out = append(out, p.(nodePointer).id)
	}
	return out
}

func (v *InMemoryView) WaysIn(rect tileid.Rect) []WayID {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var out []WayID
	for id, box := range v.wayBBox {
		if box.intersects(rect) {
			out = append(out, id)
		}
	}
	return out
}

func (v *InMemoryView) RelationsIn(rect tileid.Rect) []RelID {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var out []RelID
	for id, box := range v.relBBox {
		if box.intersects(rect) {
			out = append(out, id)
		}
	}
	return out
}

// ContainsData reports whether any node, way, or relation falls in rect.
// Nodes are checked first since the quadtree lookup is cheapest.
func (v *InMemoryView) ContainsData(rect tileid.Rect) bool {
	if len(v.NodesIn(rect)) > 0 {
		return true
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, box := range v.wayBBox {
		if box.intersects(rect) {
			return true
		}
	}
	for _, box := range v.relBBox {
		if box.intersects(rect) {
			return true
		}
	}
	return false
}

func (v *InMemoryView) GetNode(id NodeID) (Node, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	n, ok := v.nodes[id]
	return n, ok
}

func (v *InMemoryView) GetWay(id WayID) (Way, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	w, ok := v.ways[id]
	return w, ok
}

func (v *InMemoryView) GetRelation(id RelID) (Relation, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	r, ok := v.rels[id]
	return r, ok
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

var _ View = (*InMemoryView)(nil)
