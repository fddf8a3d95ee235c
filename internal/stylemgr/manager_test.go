package stylemgr

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MeKo-Tech/alacarte/internal/tileid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeStyle(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoadSkipsHiddenAndNonMapCSS(t *testing.T) {
	dir := t.TempDir()
	writeStyle(t, dir, "default.mapcss", `way[highway] { width: 1; }`)
	writeStyle(t, dir, ".hidden.mapcss", `way[highway] { width: 99; }`)
	writeStyle(t, dir, "readme.txt", `not a stylesheet`)

	m := New(dir, "/default", nil)
	require.NoError(t, m.Load())

	names := m.Names()
	assert.ElementsMatch(t, []string{"/default"}, names)
}

func TestResolveFallbackChain(t *testing.T) {
	dir := t.TempDir()
	writeStyle(t, dir, "default.mapcss", `way[highway] { width: 1; }`)

	m := New(dir, "/default", nil)
	require.NoError(t, m.Load())

	name, _ := m.Resolve("/default")
	assert.Equal(t, "/default", name)

	name, _ = m.Resolve("/missing")
	assert.Equal(t, "/default", name, "unknown style falls back to defaultStyle")

	m2 := New(t.TempDir(), "/default", nil)
	require.NoError(t, m2.Load())
	name, ss := m2.Resolve("/anything")
	assert.Equal(t, tileid.FallbackStyle, name)
	assert.NotNil(t, ss)
}

func TestWatchPicksUpNewFile(t *testing.T) {
	dir := t.TempDir()
	m := New(dir, "/default", nil)
	require.NoError(t, m.Load())

	changed := make(chan string, 4)
	m.SetOnChange(func(style string, kind ChangeKind) {
		if kind == ChangeUpserted {
			changed <- style
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, m.Watch(ctx))
	defer m.Close()

	writeStyle(t, dir, "default.mapcss", `way[highway] { width: 1; }`)

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload notification")
	}

	name, _ := m.Resolve("/default")
	assert.Equal(t, "/default", name)
}

// TestWatchScopesEventsToAffectedStyle locks in spec.md §4.7: editing one
// stylesheet must not notify unrelated, unchanged styles, and deleting a
// stylesheet must notify its own name with ChangeRemoved even though it is
// absent from Names() after the reload.
func TestWatchScopesEventsToAffectedStyle(t *testing.T) {
	dir := t.TempDir()
	writeStyle(t, dir, "untouched.mapcss", `way[highway] { width: 1; }`)
	writeStyle(t, dir, "doomed.mapcss", `way[highway] { width: 2; }`)

	m := New(dir, "/default", nil)
	require.NoError(t, m.Load())

	type event struct {
		style string
		kind  ChangeKind
	}
	events := make(chan event, 8)
	m.SetOnChange(func(style string, kind ChangeKind) { events <- event{style, kind} })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, m.Watch(ctx))
	defer m.Close()

	require.NoError(t, os.Remove(filepath.Join(dir, "doomed.mapcss")))

	select {
	case ev := <-events:
		assert.Equal(t, "/doomed", ev.style)
		assert.Equal(t, ChangeRemoved, ev.kind)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for removal notification")
	}

	select {
	case ev := <-events:
		t.Fatalf("unexpected extra notification for unrelated style: %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}

	assert.ElementsMatch(t, []string{"/untouched"}, m.Names())
}
