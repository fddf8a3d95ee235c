package renderer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/alacarte/internal/geodata"
	"github.com/MeKo-Tech/alacarte/internal/mapcss"
	"github.com/MeKo-Tech/alacarte/internal/style"
	"github.com/MeKo-Tech/alacarte/internal/stylesheet"
	"github.com/MeKo-Tech/alacarte/internal/tileid"
)

func tagSet(strings *geodata.Interner, kv ...string) geodata.Tags {
	tags := make(geodata.Tags, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		tags[strings.Intern(kv[i])] = strings.Intern(kv[i+1])
	}
	return tags
}

func newTestView(strings *geodata.Interner) *geodata.InMemoryView {
	view := geodata.NewInMemoryView(geodata.WorldBound())
	view.AddNode(geodata.Node{ID: 1, Pos: geodata.Point{X: -100, Y: -100}})
	view.AddNode(geodata.Node{ID: 2, Pos: geodata.Point{X: 100, Y: -100}})
	view.AddNode(geodata.Node{ID: 3, Pos: geodata.Point{X: 100, Y: 100}})
	view.AddNode(geodata.Node{ID: 4, Pos: geodata.Point{X: -100, Y: 100}})
	view.AddWay(geodata.Way{
		ID:    10,
		Nodes: []geodata.NodeID{1, 2, 3, 4, 1},
		Tags:  tagSet(strings, "highway", "primary"),
	})
	return view
}

func TestRenderMetaProducesOneTilePerMember(t *testing.T) {
	strings := geodata.NewInterner()
	view := newTestView(strings)
	r := New(view, strings, nil)

	meta := tileid.MetaFor(tileid.TileIdentifier{X: 0, Y: 0, Z: 1, Stylesheet: ".fallback", Format: tileid.PNG})
	rect := meta.MercatorRect()

	tiles, err := r.RenderMeta(context.Background(), meta, rect, stylesheet.Fallback(), mapcss.NewWarnLimiter())
	require.NoError(t, err)
	require.Len(t, tiles, len(meta.Tiles()))
	for _, tid := range meta.Tiles() {
		data, ok := tiles[tid]
		require.True(t, ok, "missing tile %v", tid)
		require.NotEmpty(t, data)
	}
}

func TestRenderMetaSVGFormat(t *testing.T) {
	strings := geodata.NewInterner()
	view := newTestView(strings)
	r := New(view, strings, nil)

	meta := tileid.MetaFor(tileid.TileIdentifier{X: 0, Y: 0, Z: 1, Stylesheet: ".fallback", Format: tileid.SVG})
	rect := meta.MercatorRect()

	tiles, err := r.RenderMeta(context.Background(), meta, rect, stylesheet.Fallback(), mapcss.NewWarnLimiter())
	require.NoError(t, err)
	for _, data := range tiles {
		require.Contains(t, string(data), "<svg")
	}
}

func TestOsmLayerBucketing(t *testing.T) {
	p := paintable{}
	p.sty.ZIndex = 250
	require.Equal(t, 2, osmLayer(p))
}

func TestBucketByLayerGroupsContiguousLayers(t *testing.T) {
	a := paintable{sty: styleWithZ(0)}
	b := paintable{sty: styleWithZ(50)}
	c := paintable{sty: styleWithZ(150)}
	buckets := bucketByLayer([]paintable{a, b, c})
	require.Len(t, buckets, 2)
	require.Len(t, buckets[0], 2)
	require.Len(t, buckets[1], 1)
}

func styleWithZ(z float64) style.Style {
	s := style.Default()
	s.ZIndex = z
	return s
}
