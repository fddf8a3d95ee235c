// Package config resolves alacarte's runtime configuration from viper into
// a plain struct, read once at startup (SPEC_FULL.md §A "Configuration"):
// no component past FromViper reads viper directly, mirroring the
// teacher's internal/cmd practice of resolving every viper.Get* call
// inside runServe before constructing collaborators.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config bundles every option spec.md §6 names as the core's collaborator
// config surface, plus the new tile server's own serving flags.
type Config struct {
	// Addr is the HTTP listen address for the tile server.
	Addr string
	// MetricsAddr is the listen address for the Prometheus /metrics
	// endpoint; empty disables it.
	MetricsAddr string

	// NumThreads is the render worker pool size (spec.md §6 num_threads).
	NumThreads int
	// MaxQueueSize bounds the user-request FIFO (spec.md §6
	// max_queue_size).
	MaxQueueSize int

	// CacheSize is the in-memory tile count the LRU retains (spec.md §6
	// cache_size).
	CacheSize int
	// CacheKeepTileZoom is the zoom ceiling for disk spillover (spec.md §6
	// cache_keep_tile).
	CacheKeepTileZoom uint8
	// CachePath is the disk spillover root (spec.md §6 cache_path).
	CachePath string

	// PrerenderLevel is the zoom ceiling for recursive prerender
	// (spec.md §6 prerender_level).
	PrerenderLevel int

	// ParseTimeout bounds a single stylesheet parse (spec.md §6
	// parse_timeout).
	ParseTimeout time.Duration

	// StyleSource is the directory scanned/watched for *.mapcss files
	// (spec.md §6 style_source).
	StyleSource string
	// DefaultStyle names the stylesheet requests fall back to when the
	// one they asked for is missing (spec.md §6 path_to_default_style).
	DefaultStyle string
	// DefaultTilePath is the path to the static bytes served on internal
	// error or malformed request (spec.md §6 path_to_default_tile).
	DefaultTilePath string

	// GeodataPath is the preloaded binary geodata file (spec.md §6,
	// "Geodata file").
	GeodataPath string

	// StrictStyle serves 404 for an unknown style instead of substituting
	// the fallback stylesheet (spec.md §6: "404 Not Found (unknown style
	// under strict mode; default mode substitutes fallback)").
	StrictStyle bool

	LogLevel string
}

// Defaults returns the configuration used when no flag/env/file overrides
// a key, matching the teacher's pattern of viper.SetDefault calls made
// once at CLI init.
func Defaults() Config {
	return Config{
		Addr:              ":8080",
		MetricsAddr:       ":9090",
		NumThreads:        4,
		MaxQueueSize:      128,
		CacheSize:         4096,
		CacheKeepTileZoom: 12,
		CachePath:         "./cache",
		PrerenderLevel:    0,
		ParseTimeout:      750 * time.Millisecond,
		StyleSource:       "./styles",
		DefaultStyle:      "/default",
		DefaultTilePath:   "",
		GeodataPath:       "",
		LogLevel:          "info",
	}
}

// FromViper resolves every key this module reads out of v into a Config,
// falling back to Defaults() for anything unset. Called once, at the top
// of runServe; runValidate reads its keys from viper directly.
func FromViper(v *viper.Viper) Config {
	cfg := Defaults()

	setString(v, "addr", &cfg.Addr)
	setString(v, "metrics-addr", &cfg.MetricsAddr)
	setInt(v, "num-threads", &cfg.NumThreads)
	setInt(v, "max-queue-size", &cfg.MaxQueueSize)
	setInt(v, "cache-size", &cfg.CacheSize)
	if v.IsSet("cache-keep-tile") {
		cfg.CacheKeepTileZoom = uint8(v.GetInt("cache-keep-tile"))
	}
	setString(v, "cache-path", &cfg.CachePath)
	setInt(v, "prerender-level", &cfg.PrerenderLevel)
	if d := v.GetDuration("parse-timeout"); d > 0 {
		cfg.ParseTimeout = d
	}
	setString(v, "style-source", &cfg.StyleSource)
	setString(v, "default-style", &cfg.DefaultStyle)
	setString(v, "default-tile", &cfg.DefaultTilePath)
	setString(v, "geodata", &cfg.GeodataPath)
	setString(v, "log-level", &cfg.LogLevel)
	cfg.StrictStyle = v.GetBool("strict-style")

	return cfg
}

func setString(v *viper.Viper, key string, out *string) {
	if v.IsSet(key) {
		*out = v.GetString(key)
	}
}

func setInt(v *viper.Viper, key string, out *int) {
	if v.IsSet(key) {
		*out = v.GetInt(key)
	}
}
