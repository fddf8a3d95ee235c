package httpserver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/alacarte/internal/stylemgr"
	"github.com/MeKo-Tech/alacarte/internal/tileid"
)

func newTestManager(t *testing.T, names ...string) *stylemgr.Manager {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		err := os.WriteFile(filepath.Join(dir, n+".mapcss"), []byte("node{}"), 0o644)
		require.NoError(t, err)
	}
	m := stylemgr.New(dir, "/"+firstOr(names, "default"), nil)
	require.NoError(t, m.Load())
	return m
}

func firstOr(names []string, fallback string) string {
	if len(names) == 0 {
		return fallback
	}
	return names[0]
}

func TestParseRequestBasic(t *testing.T) {
	m := newTestManager(t, "standard")
	tid, known, err := parseRequest("/standard/3/4/5.png", m)
	require.Nil(t, err)
	require.True(t, known)
	require.Equal(t, tileid.TileIdentifier{X: 4, Y: 5, Z: 3, Stylesheet: "/standard", Format: tileid.PNG}, tid)
}

func TestParseRequestNestedStylePath(t *testing.T) {
	m := newTestManager(t)
	_, known, err := parseRequest("/a/b/c/3/4/5.png", m)
	require.Nil(t, err)
	require.False(t, known)
}

func TestParseRequestUnknownStyleNotAnError(t *testing.T) {
	m := newTestManager(t, "standard")
	tid, known, err := parseRequest("/missing/3/4/5.png", m)
	require.Nil(t, err)
	require.False(t, known)
	require.Equal(t, "/missing", tid.Stylesheet)
}

func TestParseRequestTooFewSegments(t *testing.T) {
	m := newTestManager(t)
	_, _, err := parseRequest("/3/5.png", m)
	require.Equal(t, errBadRequest, err)
}

func TestParseRequestMissingExtension(t *testing.T) {
	m := newTestManager(t)
	_, _, err := parseRequest("/standard/3/4/5", m)
	require.Equal(t, errBadRequest, err)
}

func TestParseRequestUnsupportedFormat(t *testing.T) {
	m := newTestManager(t)
	_, _, err := parseRequest("/standard/3/4/5.jpg", m)
	require.Equal(t, errNotImplemented, err)
}

func TestParseRequestNonNumericCoordinate(t *testing.T) {
	m := newTestManager(t)
	_, _, err := parseRequest("/standard/z/4/5.png", m)
	require.Equal(t, errBadRequest, err)
}

func TestParseRequestOutOfRangeCoordinate(t *testing.T) {
	m := newTestManager(t)
	_, _, err := parseRequest("/standard/1/9/9.png", m)
	require.Equal(t, errBadRequest, err)
}

func TestSplitExt(t *testing.T) {
	base, ext, ok := splitExt("5.png")
	require.True(t, ok)
	require.Equal(t, "5", base)
	require.Equal(t, "png", ext)

	_, _, ok = splitExt("noext")
	require.False(t, ok)

	_, _, ok = splitExt("trailing.")
	require.False(t, ok)
}
