package tileid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesRange(t *testing.T) {
	_, err := New(1, 1, 0, "default", PNG)
	require.Error(t, err)

	ti, err := New(0, 0, 0, "default", PNG)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), ti.Z)
}

func TestMetaForClampsAtEdge(t *testing.T) {
	// zoom 1 has 2x2 tiles; a meta-tile starting at (0,0) can only be 2 wide.
	ti, err := New(1, 1, 1, "default", PNG)
	require.NoError(t, err)

	m := MetaFor(ti)
	assert.Equal(t, uint32(0), m.X)
	assert.Equal(t, uint32(0), m.Y)
	assert.Equal(t, uint32(2), m.Width)
	assert.Equal(t, uint32(2), m.Height)
}

func TestMetaIdentifierContains(t *testing.T) {
	ti, err := New(4286, 2812, 13, "default", PNG)
	require.NoError(t, err)
	m := MetaFor(ti)

	for _, tc := range m.Tiles() {
		assert.True(t, m.Contains(tc))
	}

	other, err := New(4286, 2812, 13, "other-style", PNG)
	require.NoError(t, err)
	assert.False(t, m.Contains(other))

	farAway, err := New(0, 0, 13, "default", PNG)
	require.NoError(t, err)
	assert.False(t, m.Contains(farAway))
}

func TestParseURL(t *testing.T) {
	ti, err := ParseURL("/default/13/4286/2812.png")
	require.NoError(t, err)
	assert.Equal(t, "default", ti.Stylesheet)
	assert.Equal(t, uint8(13), ti.Z)
	assert.Equal(t, uint32(4286), ti.X)
	assert.Equal(t, uint32(2812), ti.Y)
	assert.Equal(t, PNG, ti.Format)

	_, err = ParseURL("/nested/style/path/12/2048/1360.svg")
	require.NoError(t, err)

	_, err = ParseURL("/default/12/2048/1360.jpg")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = ParseURL("/default/99/0/0.png")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = ParseURL("garbage")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestSubMetasCoverChildZoom(t *testing.T) {
	// zoom 0 has exactly one tile, so its meta-tile is 1x1 and its
	// child area at zoom 1 (2x2 tiles) fits inside a single sub-meta.
	ti, err := New(0, 0, 0, "default", PNG)
	require.NoError(t, err)
	m := MetaFor(ti)

	subs := m.SubMetas()
	require.Len(t, subs, 1)
	assert.Equal(t, uint8(1), subs[0].Z)

	// A full 4x4 meta-tile's child area is 8x8 tiles, split into 4
	// sub-metas of 4x4 each.
	ti2, err := New(4284, 2812, 13, "default", PNG)
	require.NoError(t, err)
	m2 := MetaFor(ti2)
	require.Equal(t, uint32(4), m2.Width)
	require.Equal(t, uint32(4), m2.Height)

	subs2 := m2.SubMetas()
	require.Len(t, subs2, 4)
	for _, s := range subs2 {
		assert.Equal(t, uint8(14), s.Z)
	}
}
