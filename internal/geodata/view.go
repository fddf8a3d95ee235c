// Package geodata defines the read-only query surface the core consumes
// over a preloaded geographic dataset (spec.md §4.2). The production spatial
// index (an R-tree over the imported binary geodata file) is an external
// collaborator out of this module's scope; View is the interface the core
// depends on, and InMemoryView is a reference implementation used by tests
// and small deployments.
package geodata

import "github.com/MeKo-Tech/alacarte/internal/tileid"

// View is the read-only query interface the rendering pipeline consumes.
// Implementations must be safe for concurrent use by multiple worker
// goroutines (spec.md §5: "Stylesheet, GeodataView are shared read-only").
type View interface {
	// NodesIn returns every node whose point lies in rect.
	NodesIn(rect tileid.Rect) []NodeID
	// WaysIn returns every way whose bounding box intersects rect.
	WaysIn(rect tileid.Rect) []WayID
	// RelationsIn returns every relation whose bounding box intersects rect.
	RelationsIn(rect tileid.Rect) []RelID
	// ContainsData is a cheap predicate used to short-circuit empty tiles
	// (spec.md §4.8 step 3); it must be at least as selective as, and far
	// cheaper than, NodesIn/WaysIn/RelationsIn combined.
	ContainsData(rect tileid.Rect) bool

	GetNode(id NodeID) (Node, bool)
	GetWay(id WayID) (Way, bool)
	GetRelation(id RelID) (Relation, bool)
}
