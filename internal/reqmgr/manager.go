// Package reqmgr implements the RequestManager (spec.md §3): a
// bounded user-request FIFO and an unbounded prerender FIFO feeding a
// worker pool, with in-flight job coalescing so N concurrent requests for
// tiles in the same meta-tile produce exactly one render job
// (spec.md §8 testability properties). Grounded on
// original_source/include/server/request_manager.hpp and
// src/server/request_manager.cpp.
package reqmgr

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/MeKo-Tech/alacarte/internal/job"
	"github.com/MeKo-Tech/alacarte/internal/mapcss"
	"github.com/MeKo-Tech/alacarte/internal/stylesheet"
	"github.com/MeKo-Tech/alacarte/internal/tileid"
	"github.com/MeKo-Tech/alacarte/internal/tilecache"
)

// ErrQueueFull is returned by SubmitUser when the bounded user queue is
// saturated (spec.md §8: "bounded user queue with 503 on overflow" — the
// HTTP layer maps this error to a 503 response).
var ErrQueueFull = errors.New("reqmgr: user request queue is full")

type workItem struct {
	job   *job.Job
	ss    *stylesheet.Stylesheet
	depth int
}

// Manager is the RequestManager. Construct with New, call Start to spin up
// the worker pool, and Stop to drain it.
type Manager struct {
	userCh chan workItem
	preQ   *unboundedQueue

	mu       sync.Mutex
	inflight map[tileid.MetaIdentifier]*job.Job

	processor      *job.Processor
	cache          *tilecache.Cache
	warn           *mapcss.WarnLimiter
	prerenderLevel int
	logger         *slog.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Config bundles Manager's construction parameters. Worker pool size is
// not part of Config: it is passed directly to Start, since a Manager can
// be constructed before the pool size is known (e.g. a future resize).
type Config struct {
	UserQueueCapacity int
	PrerenderLevel    int
	Processor         *job.Processor
	Cache             *tilecache.Cache
	WarnLimiter       *mapcss.WarnLimiter
	Logger            *slog.Logger
}

// New constructs a Manager. Call Start to begin processing.
func New(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		userCh:         make(chan workItem, cfg.UserQueueCapacity),
		preQ:           newUnboundedQueue(),
		inflight:       make(map[tileid.MetaIdentifier]*job.Job),
		processor:      cfg.Processor,
		cache:          cfg.Cache,
		warn:           cfg.WarnLimiter,
		prerenderLevel: cfg.PrerenderLevel,
		logger:         logger,
		stopCh:         make(chan struct{}),
	}
}

// Start launches n worker goroutines that pull from the user queue in
// preference to the prerender queue (FIFO within each class,
// spec.md §3/§8).
func (m *Manager) Start(n int) {
	for i := 0; i < n; i++ {
		m.wg.Add(1)
		go m.workerLoop()
	}
}

// Stop signals every worker to exit and waits for them to drain their
// current item.
func (m *Manager) Stop() {
	close(m.stopCh)
	m.wg.Wait()
}

func (m *Manager) workerLoop() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			return
		case item := <-m.userCh:
			m.process(item)
			continue
		default:
		}

		if item, ok := m.preQ.TryPop(); ok {
			m.process(item)
			continue
		}

		select {
		case <-m.stopCh:
			return
		case item := <-m.userCh:
			m.process(item)
		case <-m.preQ.Signal():
			if item, ok := m.preQ.TryPop(); ok {
				m.process(item)
			}
		}
	}
}

// SubmitUser enqueues (or joins an in-flight render of) the meta-tile
// containing tid, resolved against ss. It returns the shared Job so the
// caller can Wait() for its specific tile's bytes. If the bounded user
// queue is full, it returns ErrQueueFull without touching the coalescing
// map.
func (m *Manager) SubmitUser(tid tileid.TileIdentifier, ss *stylesheet.Stylesheet) (*job.Job, error) {
	meta := tileid.MetaFor(tid)
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.inflight[meta]; ok {
		return j, nil
	}

	j := job.New(meta, job.DefaultOverlapFraction)
	select {
	case m.userCh <- workItem{job: j, ss: ss, depth: 0}:
		m.inflight[meta] = j
		return j, nil
	default:
		return nil, ErrQueueFull
	}
}

// SubmitPrerender enqueues meta on the unbounded prerender queue, unless a
// job for it is already in flight or every tile it contains is already
// cached (spec.md §4.8: submit_prerender drops a meta that is "already
// in-flight or already fully cached"; prerendering is best-effort and
// idempotent, so either case is simply dropped).
func (m *Manager) SubmitPrerender(meta tileid.MetaIdentifier, ss *stylesheet.Stylesheet, depth int) {
	if m.allCached(meta) {
		return
	}
	j, isNew := m.getOrCreateJob(meta)
	if !isNew {
		_ = j
		return
	}
	m.preQ.Push(workItem{job: j, ss: ss, depth: depth})
}

// allCached reports whether every tile meta contains is already present in
// the tile cache, making a render of it redundant.
func (m *Manager) allCached(meta tileid.MetaIdentifier) bool {
	if m.cache == nil {
		return false
	}
	for _, tid := range meta.Tiles() {
		if _, ok := m.cache.Get(tid); !ok {
			return false
		}
	}
	return true
}

func (m *Manager) getOrCreateJob(meta tileid.MetaIdentifier) (*job.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.inflight[meta]; ok {
		return j, false
	}
	j := job.New(meta, job.DefaultOverlapFraction)
	m.inflight[meta] = j
	return j, true
}

func (m *Manager) process(item workItem) {
	res := m.processor.Process(context.Background(), item.job, item.ss, m.warn)

	if res.Err == nil && m.cache != nil {
		for tid, data := range res.Tiles {
			m.cache.Put(tid, data)
		}
	}

	m.mu.Lock()
	delete(m.inflight, item.job.Meta)
	m.mu.Unlock()

	if res.Err != nil {
		m.logger.Error("render job failed", "meta", item.job.Meta, "error", res.Err)
		return
	}

	if int(item.job.Meta.Z) < m.prerenderLevel {
		for _, sub := range item.job.Meta.SubMetas() {
			m.SubmitPrerender(sub, item.ss, item.depth+1)
		}
	}
}

// QueueDepth reports the current bounded-queue occupancy and unbounded
// prerender-queue length, for metrics (internal/metrics).
func (m *Manager) QueueDepth() (user int, prerender int) {
	return len(m.userCh), m.preQ.Len()
}
