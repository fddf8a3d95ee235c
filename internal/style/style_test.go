package style

import (
	"testing"

	"github.com/MeKo-Tech/alacarte/internal/mapcss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTags map[string]string

func (f fakeTags) Tag(key string) (string, bool) {
	v, ok := f[key]
	return v, ok
}

func TestParseColorHex(t *testing.T) {
	c, ok := ParseColor("#ff0000")
	require.True(t, ok)
	assert.Equal(t, Color{255, 0, 0, 255}, c)

	c, ok = ParseColor("#ff000080")
	require.True(t, ok)
	assert.Equal(t, uint8(0x80), c.A)
}

func TestParseColorNamed(t *testing.T) {
	c, ok := ParseColor("white")
	require.True(t, ok)
	assert.Equal(t, Color{255, 255, 255, 255}, c)
}

func TestParseColorInvalid(t *testing.T) {
	_, ok := ParseColor("not-a-color")
	assert.False(t, ok)
}

func TestTemplateApplyToOverwritesOnlySetFields(t *testing.T) {
	out := Default()
	out.Width = 9

	tmpl := &Template{
		Color: mapcss.Literal(Color{0, 255, 0, 255}),
	}
	tmpl.ApplyTo(fakeTags{}, &out, nil)

	assert.Equal(t, Color{0, 255, 0, 255}, out.Color)
	assert.Equal(t, 9.0, out.Width, "unset fields must not be touched")
}

func TestTemplateApplyToLaterRuleWins(t *testing.T) {
	out := Default()
	first := &Template{Width: mapcss.Literal(2.0)}
	second := &Template{Width: mapcss.Literal(5.0)}

	first.ApplyTo(fakeTags{}, &out, nil)
	second.ApplyTo(fakeTags{}, &out, nil)

	assert.Equal(t, 5.0, out.Width)
}

func TestTemplateApplyToFailureCallsOnFailAndKeepsValue(t *testing.T) {
	out := Default()
	out.Width = 3
	badExpr := mapcss.Expr[float64](mapcss.Leaf(""), mapcss.CoerceFloat)
	tmpl := &Template{Width: badExpr}

	var failedField string
	tmpl.ApplyTo(fakeTags{}, &out, func(field string) { failedField = field })

	assert.Equal(t, 3.0, out.Width)
	assert.Equal(t, "width", failedField)
}

func TestRenderAttributesArena(t *testing.T) {
	ra := NewRenderAttributes()
	h1 := ra.Alloc()
	h2 := ra.Alloc()

	ra.Style(h1).Width = 1
	ra.Style(h2).Width = 2

	assert.Equal(t, 1.0, ra.Style(h1).Width)
	assert.Equal(t, 2.0, ra.Style(h2).Width)
	assert.Equal(t, 2, ra.Len())

	ra.Canvas().FillColor = Color{1, 2, 3, 255}
	assert.Equal(t, Color{1, 2, 3, 255}, ra.Canvas().FillColor)
}
