// Package stylemgr implements the hot-reloading StylesheetManager
// (spec.md §3 "StylesheetManager", SPEC_FULL.md §C.3/§C.4): it loads every
// *.mapcss file under a directory, watches that directory for changes, and
// resolves a requested stylesheet name through the fallback chain
// original_source's stylesheet_manager.cpp implements.
package stylemgr

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/MeKo-Tech/alacarte/internal/mapcss"
	"github.com/MeKo-Tech/alacarte/internal/stylesheet"
	"github.com/MeKo-Tech/alacarte/internal/tileid"
	"github.com/fsnotify/fsnotify"
)

// DefaultParseTimeout bounds how long a single stylesheet parse may run
// (spec.md §1: "Timeouts are applied only to stylesheet parsing").
const DefaultParseTimeout = 750 * time.Millisecond

// ChangeKind distinguishes a created-or-modified stylesheet from one
// removed outright (spec.md §4.7: "Created"/"Modified" reload and
// prerender that style; "Deleted" only drops its cache entries).
type ChangeKind int

const (
	ChangeUpserted ChangeKind = iota
	ChangeRemoved
)

// OnChange is invoked once per stylesheet name that actually changed
// across a reload, naming the resolved style and whether it was
// created/modified or removed; internal/server wires this to cache
// invalidation (both kinds) and prerender enqueue (ChangeUpserted only).
type OnChange func(style string, kind ChangeKind)

// Manager owns the directory watch and the live stylesheet set. All
// methods are safe for concurrent use; reads take the RLock, reloads take
// the Lock (spec.md §5: "Stylesheet Manager's read-write lock" is the one
// place the core needs true mutual exclusion).
type Manager struct {
	mu sync.RWMutex

	dir          string
	defaultStyle string
	parseTimeout time.Duration
	logger       *slog.Logger
	onChange     OnChange

	byName   map[string]*stylesheet.Stylesheet
	sources  map[string]string
	fallback *stylesheet.Stylesheet
	warn     *mapcss.WarnLimiter

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// New creates a Manager rooted at dir. defaultStyle is the stylesheet name
// requests fall back to when the one they asked for does not exist
// (tileid.DefaultStyle is itself a sane value). Call Load once before
// serving requests, then Watch to pick up filesystem changes.
func New(dir, defaultStyle string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		dir:          dir,
		defaultStyle: defaultStyle,
		parseTimeout: DefaultParseTimeout,
		logger:       logger,
		byName:       make(map[string]*stylesheet.Stylesheet),
		sources:      make(map[string]string),
		fallback:     stylesheet.Fallback(),
		warn:         mapcss.NewWarnLimiter(),
		done:         make(chan struct{}),
	}
}

// SetOnChange registers the reload callback. Must be called before Watch.
func (m *Manager) SetOnChange(fn OnChange) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// SetParseTimeout overrides DefaultParseTimeout. Must be called before
// Load/Watch.
func (m *Manager) SetParseTimeout(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parseTimeout = d
}

// Load walks dir and parses every *.mapcss file it finds, skipping hidden
// files and subdirectories (SPEC_FULL.md §C.4: "hidden-file/extension
// filtering in the directory watch"). A file that fails to parse is
// logged and skipped; Load itself only errors if dir cannot be walked.
func (m *Manager) Load() error {
	_, _, err := m.reload()
	return err
}

// reload is Load's implementation, additionally reporting which style
// names actually changed: changed holds names whose source text differs
// from (or is new relative to) the previous load, removed holds names
// present before this reload but absent from it. Watch uses this diff to
// scope OnChange to only the styles an event actually affected
// (spec.md §4.7); Load itself discards the diff since nothing is
// listening before the first load completes.
func (m *Manager) reload() (changed, removed []string, err error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, nil, err
	}
	loaded := make(map[string]*stylesheet.Stylesheet)
	sources := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !isStylesheetFile(e.Name()) {
			continue
		}
		name := styleNameFromFile(e.Name())
		ss, data, err := m.parseFile(filepath.Join(m.dir, e.Name()))
		if err != nil {
			m.logger.Warn("mapcss parse failed", "file", e.Name(), "error", err)
			continue
		}
		loaded[name] = ss
		sources[name] = string(data)
	}

	m.mu.Lock()
	for name, src := range sources {
		if prev, ok := m.sources[name]; !ok || prev != src {
			changed = append(changed, name)
		}
	}
	for name := range m.sources {
		if _, ok := sources[name]; !ok {
			removed = append(removed, name)
		}
	}
	m.byName = loaded
	m.sources = sources
	m.warn.Reset()
	m.mu.Unlock()
	return changed, removed, nil
}

func isStylesheetFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(name), ".mapcss")
}

func styleNameFromFile(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	return "/" + base
}

func (m *Manager) parseFile(path string) (*stylesheet.Stylesheet, []byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), m.parseTimeout)
	defer cancel()

	type result struct {
		ss   *stylesheet.Stylesheet
		data []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		data, err := os.ReadFile(path)
		if err != nil {
			ch <- result{nil, nil, err}
			return
		}
		ss, err := stylesheet.Parse(string(data), path)
		ch <- result{ss, data, err}
	}()

	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case r := <-ch:
		return r.ss, r.data, r.err
	}
}

// Resolve implements the fallback chain (SPEC_FULL.md §C.1, grounded on
// original_source's stylesheet_manager.cpp): the requested style, else
// defaultStyle, else the built-in fallback sentinel. It returns the
// *resolved* name (callers rewrite their TileIdentifier to this name so
// cache and disk keys are consistent) and the stylesheet to use.
func (m *Manager) Resolve(requested string) (string, *stylesheet.Stylesheet) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if ss, ok := m.byName[requested]; ok {
		return requested, ss
	}
	if requested != m.defaultStyle {
		if ss, ok := m.byName[m.defaultStyle]; ok {
			return m.defaultStyle, ss
		}
	}
	return tileid.FallbackStyle, m.fallback
}

// WarnLimiter returns the shared per-(rule,field) warning rate limiter,
// reset on every reload.
func (m *Manager) WarnLimiter() *mapcss.WarnLimiter {
	return m.warn
}

// Names returns every currently loaded stylesheet name.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.byName))
	for name := range m.byName {
		out = append(out, name)
	}
	return out
}

// Watch starts an fsnotify watch on dir; every create/write/remove of a
// *.mapcss file triggers a directory rescan and invokes the registered
// OnChange callback once per style that actually changed or was removed
// (spec.md §4.7), not for every currently loaded style. It runs until ctx
// is canceled or Close is called.
func (m *Manager) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(m.dir); err != nil {
		w.Close()
		return err
	}
	m.watcher = w

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.done:
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !isStylesheetFile(filepath.Base(ev.Name)) {
					continue
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				m.logger.Info("stylesheet directory changed, reloading", "event", ev.Op.String(), "file", ev.Name)
				changed, removed, err := m.reload()
				if err != nil {
					m.logger.Error("stylesheet reload failed", "error", err)
					continue
				}
				m.mu.RLock()
				cb := m.onChange
				m.mu.RUnlock()
				if cb == nil {
					continue
				}
				for _, name := range changed {
					cb(name, ChangeUpserted)
				}
				for _, name := range removed {
					cb(name, ChangeRemoved)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				m.logger.Error("stylesheet watch error", "error", err)
			}
		}
	}()
	return nil
}

// Close stops the directory watch goroutine.
func (m *Manager) Close() {
	close(m.done)
}
