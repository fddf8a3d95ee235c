// Package job implements the render work unit (spec.md §3 "Job"/"MetaTile")
// and its exactly-once-answered reply coalescing, grounded on
// original_source's include/server/job.hpp and src/server/job.cpp.
package job

import (
	"context"
	"sync"

	"github.com/MeKo-Tech/alacarte/internal/geodata"
	"github.com/MeKo-Tech/alacarte/internal/mapcss"
	"github.com/MeKo-Tech/alacarte/internal/stylesheet"
	"github.com/MeKo-Tech/alacarte/internal/tileid"
)

// DefaultOverlapFraction is TILE_OVERLAP from original_source's
// settings.hpp: "(1.0/META_TILE_SIZE * 0.25)" — for a 4-wide meta tile,
// a quarter-tile-width border.
const DefaultOverlapFraction = 1.0 / 4.0 * 0.25

// Result is the outcome of rendering one meta-tile: either one encoded
// image per contained TileIdentifier, or an error every waiter receives.
type Result struct {
	Tiles map[tileid.TileIdentifier][]byte
	Err   error
}

// Job is one unit of render work for a MetaIdentifier. Multiple concurrent
// requests that land on the same meta-tile share a single Job (coalescing,
// spec.md §4.7/§4.8); Wait registers a waiter and Answer fans the result
// out to all of them exactly once (spec.md §8 testability property:
// "exactly one render job for N concurrent requests to tiles in the same
// meta").
type Job struct {
	Meta tileid.MetaIdentifier
	Rect tileid.Rect // the query/render rectangle, already grown by overlap

	mu       sync.Mutex
	answered bool
	result   Result
	waiters  []chan Result
}

// New builds a Job for meta, computing its overlap-grown rectangle
// (original_source's Job::computeRect).
func New(meta tileid.MetaIdentifier, overlapFraction float64) *Job {
	return &Job{
		Meta: meta,
		Rect: meta.MercatorRect().Grow(overlapFraction),
	}
}

// Wait registers for the job's result, returning a channel that receives
// exactly one Result and is then closed. If the job has already been
// answered, the channel is pre-populated and closed immediately.
func (j *Job) Wait() <-chan Result {
	ch := make(chan Result, 1)
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.answered {
		ch <- j.result
		close(ch)
		return ch
	}
	j.waiters = append(j.waiters, ch)
	return ch
}

// Answer delivers res to every registered waiter and to every future Wait
// call. Calling Answer more than once is a no-op: only the first call's
// result is ever delivered (the exactly-once-answered invariant).
func (j *Job) Answer(res Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.answered {
		return
	}
	j.answered = true
	j.result = res
	for _, ch := range j.waiters {
		ch <- res
		close(ch)
	}
	j.waiters = nil
}

// Renderer is the collaborator that actually paints a meta-tile and slices
// it into its contained tiles. internal/renderer implements this.
type Renderer interface {
	RenderMeta(ctx context.Context, meta tileid.MetaIdentifier, rect tileid.Rect, ss *stylesheet.Stylesheet, warn *mapcss.WarnLimiter) (map[tileid.TileIdentifier][]byte, error)
}

// BlankTileFunc produces the static bytes for a tile known to contain no
// data, keyed by requested format.
type BlankTileFunc func(tileid.Format) []byte

// Processor wires a Job to the geodata view and renderer it needs to
// actually produce tile bytes (original_source's computeTile /
// computeTileNoneData split).
type Processor struct {
	View     geodata.View
	Renderer Renderer
	Blank    BlankTileFunc
}

// Process runs j to completion against ss, answering it exactly once
// before returning. When the job's rectangle contains no geodata at all,
// rendering is skipped entirely and every contained tile is filled with
// the blank placeholder (spec.md §4.8 step 3, the empty-region
// short-circuit: computeTileNoneData).
func (p *Processor) Process(ctx context.Context, j *Job, ss *stylesheet.Stylesheet, warn *mapcss.WarnLimiter) Result {
	if !p.View.ContainsData(j.Rect) {
		tiles := make(map[tileid.TileIdentifier][]byte, len(j.Meta.Tiles()))
		for _, t := range j.Meta.Tiles() {
			tiles[t] = p.Blank(t.Format)
		}
		res := Result{Tiles: tiles}
		j.Answer(res)
		return res
	}

	tiles, err := p.Renderer.RenderMeta(ctx, j.Meta, j.Rect, ss, warn)
	res := Result{Tiles: tiles, Err: err}
	j.Answer(res)
	return res
}
