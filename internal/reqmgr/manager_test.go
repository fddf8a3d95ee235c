package reqmgr

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MeKo-Tech/alacarte/internal/geodata"
	"github.com/MeKo-Tech/alacarte/internal/job"
	"github.com/MeKo-Tech/alacarte/internal/mapcss"
	"github.com/MeKo-Tech/alacarte/internal/stylesheet"
	"github.com/MeKo-Tech/alacarte/internal/tilecache"
	"github.com/MeKo-Tech/alacarte/internal/tileid"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRenderer struct {
	calls int32
}

func (r *countingRenderer) RenderMeta(ctx context.Context, meta tileid.MetaIdentifier, rect tileid.Rect, ss *stylesheet.Stylesheet, warn *mapcss.WarnLimiter) (map[tileid.TileIdentifier][]byte, error) {
	atomic.AddInt32(&r.calls, 1)
	time.Sleep(10 * time.Millisecond) // widen the coalescing race window
	out := make(map[tileid.TileIdentifier][]byte)
	for _, t := range meta.Tiles() {
		out[t] = []byte("x")
	}
	return out, nil
}

func worldView() *geodata.InMemoryView {
	v := geodata.NewInMemoryView(orb.Bound{Min: orb.Point{-2e7, -2e7}, Max: orb.Point{2e7, 2e7}})
	_ = v.AddNode(geodata.Node{ID: 1, Pos: geodata.Point{X: 0, Y: 0}})
	return v
}

func TestSubmitUserCoalescesConcurrentRequests(t *testing.T) {
	renderer := &countingRenderer{}
	proc := &job.Processor{View: worldView(), Renderer: renderer, Blank: func(tileid.Format) []byte { return nil }}
	m := New(Config{UserQueueCapacity: 16, Processor: proc})
	m.Start(4)
	defer m.Stop()

	ss := stylesheet.Fallback()
	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tid, err := tileid.New(0, 0, 0, "/default", tileid.PNG)
			require.NoError(t, err)
			j, err := m.SubmitUser(tid, ss)
			require.NoError(t, err)
			res := <-j.Wait()
			require.NoError(t, res.Err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, renderer.calls, "N concurrent requests to the same meta must render exactly once")
}

func TestSubmitUserReturnsErrQueueFullWhenSaturated(t *testing.T) {
	renderer := &countingRenderer{}
	proc := &job.Processor{View: worldView(), Renderer: renderer, Blank: func(tileid.Format) []byte { return nil }}
	m := New(Config{UserQueueCapacity: 2, Processor: proc})
	// No Start(): nothing drains the queue, so it saturates deterministically.

	ss := stylesheet.Fallback()
	tid0, _ := tileid.New(0, 0, 2, "/default", tileid.PNG)
	tid1, _ := tileid.New(0, 0, 3, "/default", tileid.PNG)
	tid2, _ := tileid.New(0, 0, 4, "/default", tileid.PNG)

	_, err := m.SubmitUser(tid0, ss)
	require.NoError(t, err)
	_, err = m.SubmitUser(tid1, ss)
	require.NoError(t, err)
	_, err = m.SubmitUser(tid2, ss)
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestPrerenderCascadesToSubMetas(t *testing.T) {
	renderer := &countingRenderer{}
	proc := &job.Processor{View: worldView(), Renderer: renderer, Blank: func(tileid.Format) []byte { return nil }}
	m := New(Config{UserQueueCapacity: 8, Processor: proc, PrerenderLevel: 1})
	m.Start(2)
	defer m.Stop()

	meta := tileid.ZoomMeta(0, "/default", tileid.PNG)
	m.SubmitPrerender(meta, stylesheet.Fallback(), 0)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&renderer.calls) >= 2
	}, 2*time.Second, 10*time.Millisecond, "zoom-0 prerender plus its zoom-1 sub-meta should both render")
}

func TestSubmitPrerenderSkipsFullyCachedMeta(t *testing.T) {
	renderer := &countingRenderer{}
	proc := &job.Processor{View: worldView(), Renderer: renderer, Blank: func(tileid.Format) []byte { return nil }}
	cache, err := tilecache.New(64, t.TempDir(), 12, nil)
	require.NoError(t, err)

	m := New(Config{UserQueueCapacity: 8, Processor: proc, Cache: cache})
	m.Start(2)
	defer m.Stop()

	meta := tileid.ZoomMeta(0, "/default", tileid.PNG)
	for _, tid := range meta.Tiles() {
		cache.Put(tid, []byte("cached"))
	}

	m.SubmitPrerender(meta, stylesheet.Fallback(), 0)

	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 0, atomic.LoadInt32(&renderer.calls), "a fully cached meta must not be re-rendered")
}
