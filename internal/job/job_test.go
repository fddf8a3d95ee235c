package job

import (
	"context"
	"testing"

	"github.com/MeKo-Tech/alacarte/internal/geodata"
	"github.com/MeKo-Tech/alacarte/internal/mapcss"
	"github.com/MeKo-Tech/alacarte/internal/stylesheet"
	"github.com/MeKo-Tech/alacarte/internal/tileid"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRenderer struct{ calls int }

func (r *fakeRenderer) RenderMeta(ctx context.Context, meta tileid.MetaIdentifier, rect tileid.Rect, ss *stylesheet.Stylesheet, warn *mapcss.WarnLimiter) (map[tileid.TileIdentifier][]byte, error) {
	r.calls++
	out := make(map[tileid.TileIdentifier][]byte)
	for _, t := range meta.Tiles() {
		out[t] = []byte("rendered")
	}
	return out, nil
}

func blank(f tileid.Format) []byte { return []byte("blank-" + f.String()) }

func TestJobWaitBeforeAnswer(t *testing.T) {
	meta := tileid.ZoomMeta(5, "/default", tileid.PNG)
	j := New(meta, DefaultOverlapFraction)

	ch := j.Wait()
	go j.Answer(Result{Tiles: map[tileid.TileIdentifier][]byte{}})

	res := <-ch
	assert.Nil(t, res.Err)
}

func TestJobAnswerIsExactlyOnce(t *testing.T) {
	meta := tileid.ZoomMeta(5, "/default", tileid.PNG)
	j := New(meta, DefaultOverlapFraction)

	first := Result{Tiles: map[tileid.TileIdentifier][]byte{{}: []byte("first")}}
	second := Result{Err: assert.AnError}

	j.Answer(first)
	j.Answer(second) // must be ignored

	ch := j.Wait()
	res := <-ch
	assert.NoError(t, res.Err)
	assert.Equal(t, first.Tiles, res.Tiles)
}

func TestJobCoalescesManyWaiters(t *testing.T) {
	meta := tileid.ZoomMeta(5, "/default", tileid.PNG)
	j := New(meta, DefaultOverlapFraction)

	const n = 8
	chans := make([]<-chan Result, n)
	for i := range chans {
		chans[i] = j.Wait()
	}
	j.Answer(Result{Tiles: map[tileid.TileIdentifier][]byte{}})

	for _, ch := range chans {
		res := <-ch
		require.NoError(t, res.Err)
	}
}

func TestProcessSkipsRenderWhenEmpty(t *testing.T) {
	view := geodata.NewInMemoryView(orb.Bound{Min: orb.Point{-1e7, -1e7}, Max: orb.Point{1e7, 1e7}})
	renderer := &fakeRenderer{}
	p := &Processor{View: view, Renderer: renderer, Blank: blank}

	meta := tileid.ZoomMeta(3, "/default", tileid.PNG)
	j := New(meta, DefaultOverlapFraction)

	res := p.Process(context.Background(), j, stylesheet.Fallback(), nil)
	require.NoError(t, res.Err)
	assert.Equal(t, 0, renderer.calls, "renderer must not be invoked for an empty region")
	for _, t2 := range meta.Tiles() {
		assert.Equal(t, []byte("blank-png"), res.Tiles[t2])
	}
}

func TestProcessRendersWhenDataPresent(t *testing.T) {
	view := geodata.NewInMemoryView(orb.Bound{Min: orb.Point{-1e7, -1e7}, Max: orb.Point{1e7, 1e7}})
	require.NoError(t, view.AddNode(geodata.Node{ID: 1, Pos: geodata.Point{X: 0, Y: 0}}))
	renderer := &fakeRenderer{}
	p := &Processor{View: view, Renderer: renderer, Blank: blank}

	meta := tileid.ZoomMeta(0, "/default", tileid.PNG)
	j := New(meta, DefaultOverlapFraction)

	res := p.Process(context.Background(), j, stylesheet.Fallback(), nil)
	require.NoError(t, res.Err)
	assert.Equal(t, 1, renderer.calls)
}
