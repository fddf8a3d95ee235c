package stylesheet

import (
	"testing"

	"github.com/MeKo-Tech/alacarte/internal/geodata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tagsOf(in *geodata.Interner, kv ...string) geodata.Tags {
	t := make(geodata.Tags)
	for i := 0; i+1 < len(kv); i += 2 {
		t[in.Intern(kv[i])] = in.Intern(kv[i+1])
	}
	return t
}

func TestParseSimpleRule(t *testing.T) {
	src := `
way[highway=primary] {
  width: 4;
  color: #ff0000;
}
`
	ss, err := Parse(src, "test.mapcss")
	require.NoError(t, err)
	require.Len(t, ss.Rules, 1)
	assert.Equal(t, geodata.KindWay, ss.Rules[0].AcceptKind)
}

func TestParseZoomRange(t *testing.T) {
	src := `way|z10-14[highway] { width: 2; }`
	ss, err := Parse(src, "test.mapcss")
	require.NoError(t, err)
	require.Len(t, ss.Rules, 1)
	assert.EqualValues(t, 10, ss.Rules[0].ZoomLow)
	assert.EqualValues(t, 14, ss.Rules[0].ZoomHigh)
}

func TestParseEvalExpression(t *testing.T) {
	src := `node[place] { text: eval(tag(name)); }`
	ss, err := Parse(src, "test.mapcss")
	require.NoError(t, err)
	require.Len(t, ss.Rules, 1)
}

func TestParseCanvas(t *testing.T) {
	src := `canvas { fill-color: #ffffff; }`
	ss, err := Parse(src, "test.mapcss")
	require.NoError(t, err)
	require.NotNil(t, ss.CanvasTmpl)
}

func TestMatchAppliesLiteralAndEvalFields(t *testing.T) {
	in := geodata.NewInterner()
	src := `
way[highway=primary] {
  width: 4;
  text: eval(tag(name));
}
`
	ss, err := Parse(src, "test.mapcss")
	require.NoError(t, err)

	obj := Object{
		Kind:    geodata.KindWay,
		Tags:    tagsOf(in, "highway", "primary", "name", "Main Street"),
		Strings: in,
	}
	canvas := Object{Strings: in, Tags: geodata.Tags{}}

	ra := ss.Match([]Object{obj}, canvas, 14, nil)
	require.Equal(t, 1, ra.Len())
	got := ra.Style(0)
	assert.Equal(t, 4.0, got.Width)
	assert.Equal(t, "Main Street", got.Text)
}

func TestMatchLaterRuleWins(t *testing.T) {
	in := geodata.NewInterner()
	src := `
way[highway] { width: 1; }
way[highway=primary] { width: 5; }
`
	ss, err := Parse(src, "test.mapcss")
	require.NoError(t, err)

	obj := Object{Kind: geodata.KindWay, Tags: tagsOf(in, "highway", "primary"), Strings: in}
	canvas := Object{Strings: in, Tags: geodata.Tags{}}
	ra := ss.Match([]Object{obj}, canvas, 10, nil)
	assert.Equal(t, 5.0, ra.Style(0).Width)
}

func TestMatchZoomFilterExcludesRule(t *testing.T) {
	in := geodata.NewInterner()
	src := `way|z0-5[highway] { width: 9; }`
	ss, err := Parse(src, "test.mapcss")
	require.NoError(t, err)

	obj := Object{Kind: geodata.KindWay, Tags: tagsOf(in, "highway", "x"), Strings: in}
	canvas := Object{Strings: in, Tags: geodata.Tags{}}
	ra := ss.Match([]Object{obj}, canvas, 14, nil)
	assert.Equal(t, 0.0, ra.Style(0).Width, "rule outside zoom range must not apply")
}

func TestFallbackStylesheetMatchesHighway(t *testing.T) {
	in := geodata.NewInterner()
	fb := Fallback()

	obj := Object{Kind: geodata.KindWay, Tags: tagsOf(in, "highway", "residential"), Strings: in}
	canvas := Object{Strings: in, Tags: geodata.Tags{}}
	ra := fb.Match([]Object{obj}, canvas, 14, nil)
	assert.Greater(t, ra.Style(0).Width, 0.0)
}

func TestEvalDivisionByZeroLeavesFieldUnset(t *testing.T) {
	in := geodata.NewInterner()
	src := `way[highway] { width: eval(1/0); }`
	ss, err := Parse(src, "test.mapcss")
	require.NoError(t, err)

	obj := Object{Kind: geodata.KindWay, Tags: tagsOf(in, "highway", "x"), Strings: in}
	canvas := Object{Strings: in, Tags: geodata.Tags{}}

	var failedField string
	ra := ss.Match([]Object{obj}, canvas, 10, func(ruleIdx int, field string) { failedField = field })
	assert.Equal(t, 0.0, ra.Style(0).Width)
	assert.Equal(t, "width", failedField)
}
