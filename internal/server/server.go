// Package server wires alacarte's collaborators into one running process
// (spec.md §9's construction order): strings → geodata → cache →
// stylesheet manager → renderer → request manager → HTTP front end. It is
// the "ServerContext" the teacher's own internal/cmd builds by hand inside
// each run* function, generalized here into one reusable constructor, used
// by the `serve` command.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/MeKo-Tech/alacarte/internal/config"
	"github.com/MeKo-Tech/alacarte/internal/geodata"
	"github.com/MeKo-Tech/alacarte/internal/httpserver"
	"github.com/MeKo-Tech/alacarte/internal/job"
	"github.com/MeKo-Tech/alacarte/internal/metrics"
	"github.com/MeKo-Tech/alacarte/internal/renderer"
	"github.com/MeKo-Tech/alacarte/internal/reqmgr"
	"github.com/MeKo-Tech/alacarte/internal/stylemgr"
	"github.com/MeKo-Tech/alacarte/internal/tilecache"
	"github.com/MeKo-Tech/alacarte/internal/tileid"
)

// Context owns every long-lived collaborator alacarte needs to serve tile
// requests. Nothing outside this package reaches into a collaborator's
// internals directly; internal/cmd only calls Context's own methods.
type Context struct {
	Config   config.Config
	Logger   *slog.Logger
	Strings  *geodata.Interner
	View     geodata.View
	Cache    *tilecache.Cache
	Styles   *stylemgr.Manager
	Metrics  *metrics.Metrics
	Requests *reqmgr.Manager
	HTTP     *httpserver.Server

	watchCancel context.CancelFunc
}

// New constructs every collaborator in the order spec.md §9 mandates,
// starting the stylesheet watch and the request-manager worker pool
// before returning. Callers still need to start an http.Server around
// the handler from ctx.Mux themselves; this package does not do it.
func New(cfg config.Config, logger *slog.Logger) (*Context, error) {
	if logger == nil {
		logger = slog.Default()
	}

	strings := geodata.NewInterner()

	view, err := loadView(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("server: loading geodata: %w", err)
	}

	cache, err := tilecache.New(cfg.CacheSize, cfg.CachePath, cfg.CacheKeepTileZoom, logger)
	if err != nil {
		return nil, fmt.Errorf("server: building tile cache: %w", err)
	}

	styles := stylemgr.New(cfg.StyleSource, cfg.DefaultStyle, logger)
	if cfg.ParseTimeout > 0 {
		styles.SetParseTimeout(cfg.ParseTimeout)
	}
	if err := styles.Load(); err != nil {
		return nil, fmt.Errorf("server: loading stylesheets: %w", err)
	}

	m := metrics.New()

	rend := renderer.New(view, strings, logger)
	rend.Metrics = m
	blank := defaultTileFunc(cfg.DefaultTilePath, logger)
	processor := &job.Processor{View: view, Renderer: rend, Blank: blank}

	requests := reqmgr.New(reqmgr.Config{
		UserQueueCapacity: cfg.MaxQueueSize,
		PrerenderLevel:    cfg.PrerenderLevel,
		Processor:         processor,
		Cache:             cache,
		WarnLimiter:       styles.WarnLimiter(),
		Logger:            logger,
	})

	// A created/modified stylesheet invalidates its cached tiles and
	// reseeds prerender at zoom 0; a removed one only drops its cache
	// entries (spec.md §4.7's per-event scoping, SPEC_FULL.md §C.1).
	styles.SetOnChange(func(style string, kind stylemgr.ChangeKind) {
		if err := cache.DeleteTiles(style); err != nil {
			logger.Warn("cache invalidation failed", "style", style, "error", err)
		}
		if kind == stylemgr.ChangeRemoved {
			return
		}
		m.StylesheetReloads.Inc()
		_, ss := styles.Resolve(style)
		requests.SubmitPrerender(tileid.ZoomMeta(0, style, tileid.PNG), ss, 0)
	})

	ctx := &Context{
		Config:   cfg,
		Logger:   logger,
		Strings:  strings,
		View:     view,
		Cache:    cache,
		Styles:   styles,
		Metrics:  m,
		Requests: requests,
	}
	ctx.HTTP = &httpserver.Server{
		Cache:       cache,
		Styles:      styles,
		Requests:    requests,
		Metrics:     m,
		Logger:      logger,
		DefaultTile: loadDefaultTile(cfg.DefaultTilePath, logger),
		StrictStyle: cfg.StrictStyle,
	}

	requests.Start(cfg.NumThreads)

	watchCtx, cancel := context.WithCancel(context.Background())
	ctx.watchCancel = cancel
	go func() {
		if err := styles.Watch(watchCtx); err != nil && watchCtx.Err() == nil {
			logger.Error("stylesheet watch exited", "error", err)
		}
	}()

	// Seed prerender for every stylesheet already on disk at startup,
	// mirroring the reload path above (spec.md §3: "Prerender flow").
	for _, name := range styles.Names() {
		_, ss := styles.Resolve(name)
		requests.SubmitPrerender(tileid.ZoomMeta(0, name, tileid.PNG), ss, 0)
	}

	return ctx, nil
}

// Close stops the stylesheet watch and the request-manager worker pool.
func (c *Context) Close() {
	if c.watchCancel != nil {
		c.watchCancel()
	}
	c.Styles.Close()
	c.Requests.Stop()
}

// Mux builds the HTTP handler tree: the tile server at "/" and, when a
// metrics address is configured, a standalone /metrics mux is returned
// separately by MetricsHandler.
func (c *Context) Mux() http.Handler {
	return c.HTTP
}

// MetricsHandler returns the Prometheus scrape handler, or nil if metrics
// are disabled (empty MetricsAddr).
func (c *Context) MetricsHandler() http.Handler {
	if c.Config.MetricsAddr == "" {
		return nil
	}
	return c.Metrics.Handler()
}

// loadView builds the reference in-memory GeodataView. The persisted
// binary geodata file spec.md §4.2/§6 names is explicitly opaque to the
// core and produced by an out-of-scope offline importer (spec.md §1's
// non-goals); this module only ever consumes a View, so when a path is
// configured but nothing in this repo can decode its format, Context logs
// that and falls back to an empty view rather than guessing at a wire
// format no component here defines.
func loadView(cfg config.Config, logger *slog.Logger) (geodata.View, error) {
	view := geodata.NewInMemoryView(geodata.WorldBound())
	if cfg.GeodataPath != "" {
		if _, err := os.Stat(cfg.GeodataPath); err != nil {
			return nil, fmt.Errorf("geodata path %q: %w", cfg.GeodataPath, err)
		}
		logger.Warn("geodata import is out of scope for this module; serving an empty view",
			"geodata_path", cfg.GeodataPath)
	}
	return view, nil
}

func loadDefaultTile(path string, logger *slog.Logger) []byte {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("default tile unreadable", "path", path, "error", err)
		return nil
	}
	return data
}

// defaultTileFunc adapts the static default-tile bytes into the
// per-format job.BlankTileFunc the Processor's empty-region short-circuit
// needs (spec.md §4.8 step 3). SVG requests against an empty region get a
// minimal empty <svg> document rather than the (PNG) default tile bytes.
func defaultTileFunc(path string, logger *slog.Logger) job.BlankTileFunc {
	png := loadDefaultTile(path, logger)
	const emptySVG = `<svg xmlns="http://www.w3.org/2000/svg" width="256" height="256"/>`
	return func(format tileid.Format) []byte {
		if format == tileid.SVG {
			return []byte(emptySVG)
		}
		return png
	}
}
