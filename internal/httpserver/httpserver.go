// Package httpserver is alacarte's HTTP front end (spec.md §4.1/§6): it
// parses the tile URL grammar, submits requests to internal/reqmgr,
// serves from internal/tilecache on a hit, and maps every failure mode to
// the status codes spec.md §6 names. Grounded on the teacher's own
// net/http + spf13/cobra serving style (no separate router dependency;
// original_source's server is a bare http.Server too).
package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/alacarte/internal/metrics"
	"github.com/MeKo-Tech/alacarte/internal/reqmgr"
	"github.com/MeKo-Tech/alacarte/internal/stylemgr"
	"github.com/MeKo-Tech/alacarte/internal/tilecache"
	"github.com/MeKo-Tech/alacarte/internal/tileid"
)

// Server serves tile requests over HTTP (spec.md §4.1 URL grammar:
// /<style-path>/<z>/<x>/<y>.<ext>).
type Server struct {
	Cache       *tilecache.Cache
	Styles      *stylemgr.Manager
	Requests    *reqmgr.Manager
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	DefaultTile []byte
	// StrictStyle, when true, serves 404 for an unknown style instead of
	// substituting the fallback stylesheet (spec.md §6: "404 Not Found
	// (unknown style under strict mode; default mode substitutes
	// fallback)").
	StrictStyle bool
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status, length := s.serve(w, r)
	s.logAccess(r, status, length)
	if s.Metrics != nil {
		s.Metrics.RequestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
	}
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) (status int, length int) {
	tid, styleKnown, parseErr := parseRequest(r.URL.Path, s.Styles)
	if parseErr != nil {
		return s.writeError(w, parseErr)
	}
	if !styleKnown && s.StrictStyle {
		return s.writeError(w, errNotFound)
	}

	resolvedStyle, ss := s.Styles.Resolve(tid.Stylesheet)
	tid.Stylesheet = resolvedStyle

	if data, ok := s.Cache.Get(tid); ok {
		if s.Metrics != nil {
			s.Metrics.CacheHits.Inc()
		}
		return s.writeTile(w, tid.Format, data)
	}
	if s.Metrics != nil {
		s.Metrics.CacheMisses.Inc()
	}

	j, err := s.Requests.SubmitUser(tid, ss)
	if errors.Is(err, reqmgr.ErrQueueFull) {
		return s.writeError(w, errQueueFull)
	}
	if err != nil {
		s.Logger.Error("submit failed", "error", err)
		return s.writeError(w, errInternal)
	}

	renderStart := time.Now()
	res := <-j.Wait()
	if s.Metrics != nil {
		s.Metrics.RenderDuration.WithLabelValues(tid.Format.String()).Observe(time.Since(renderStart).Seconds())
	}
	if res.Err != nil {
		s.Logger.Error("render failed", "tile", tid.String(), "error", res.Err)
		return s.writeError(w, errInternal)
	}

	data, ok := res.Tiles[tid]
	if !ok {
		return s.writeError(w, errInternal)
	}
	return s.writeTile(w, tid.Format, data)
}

func (s *Server) writeTile(w http.ResponseWriter, format tileid.Format, data []byte) (int, int) {
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	n, _ := w.Write(data)
	return http.StatusOK, n
}

func (s *Server) writeError(w http.ResponseWriter, e *statusError) (int, int) {
	if (e.status == http.StatusInternalServerError || e.status == http.StatusBadRequest) && len(s.DefaultTile) > 0 {
		w.Header().Set("Content-Type", tileid.PNG.ContentType())
		w.Header().Set("Content-Length", strconv.Itoa(len(s.DefaultTile)))
		w.WriteHeader(e.status)
		n, _ := w.Write(s.DefaultTile)
		return e.status, n
	}
	body := e.Error()
	http.Error(w, body, e.status)
	return e.status, len(body) + 1
}

func (s *Server) logAccess(r *http.Request, status, length int) {
	remote := r.RemoteAddr
	if host, _, err := splitHostPort(remote); err == nil {
		remote = host
	}
	s.Logger.Info("access",
		"remote_addr", remote,
		"time", time.Now().Format("02/Jan/2006:15:04:05"),
		"request", fmt.Sprintf("%s %s %s", r.Method, r.URL.RequestURI(), r.Proto),
		"status", status,
		"content_length", length,
	)
}

func splitHostPort(addr string) (string, string, error) {
	idx := strings.LastIndex(addr, ":")
	if idx < 0 {
		return addr, "", nil
	}
	return addr[:idx], addr[idx+1:], nil
}
