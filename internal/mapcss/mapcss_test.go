package mapcss

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeTags map[string]string

func (f fakeTags) Tag(key string) (string, bool) {
	v, ok := f[key]
	return v, ok
}

func TestBinaryArithmetic(t *testing.T) {
	expr := Binary{LHS: Leaf("4"), RHS: Leaf("2"), Op: OpDiv}
	assert.Equal(t, "2", expr.Eval(fakeTags{}))
}

func TestDivisionByZeroYieldsEmptyString(t *testing.T) {
	expr := Binary{LHS: Leaf("4"), RHS: Leaf("0"), Op: OpDiv}
	assert.Equal(t, "", expr.Eval(fakeTags{}))
}

func TestTagLookup(t *testing.T) {
	expr := Call{Fn: "tag", Args: []Node{Leaf("highway")}}
	assert.Equal(t, "primary", expr.Eval(fakeTags{"highway": "primary"}))
	assert.Equal(t, "", expr.Eval(fakeTags{}))
}

func TestCondShortCircuits(t *testing.T) {
	expr := Call{Fn: "cond", Args: []Node{Leaf("true"), Leaf("a"), Leaf("b")}}
	assert.Equal(t, "a", expr.Eval(fakeTags{}))

	expr2 := Call{Fn: "cond", Args: []Node{Leaf("false"), Leaf("a"), Leaf("b")}}
	assert.Equal(t, "b", expr2.Eval(fakeTags{}))
}

func TestTruthyRules(t *testing.T) {
	assert.False(t, Truthy(""))
	assert.False(t, Truthy("false"))
	assert.False(t, Truthy("no"))
	assert.False(t, Truthy("0"))
	assert.True(t, Truthy("1"))
	assert.True(t, Truthy("anything"))
}

func TestFormatNumberIntegerHasNoDecimal(t *testing.T) {
	assert.Equal(t, "3", formatNumber(3.0))
	assert.Equal(t, "3.5", formatNumber(3.5))
}

func TestEvalOverwriteLeavesFieldOnFailure(t *testing.T) {
	out := 7.0
	e := Expr[float64](Binary{LHS: Leaf("1"), RHS: Leaf("0"), Op: OpDiv}, CoerceFloat)
	warned := false
	e.Overwrite(fakeTags{}, &out, func() { warned = true })
	assert.Equal(t, 7.0, out, "field must keep its previous value on failed coercion")
	assert.True(t, warned)
}

func TestEvalOverwriteLiteral(t *testing.T) {
	out := ""
	e := Literal("butt")
	e.Overwrite(fakeTags{}, &out, nil)
	assert.Equal(t, "butt", out)
	assert.True(t, e.IsLiteral())
}

func TestWarnLimiterDedupsAndResets(t *testing.T) {
	w := NewWarnLimiter()
	key := WarnKey{Rule: 1, Field: "width"}

	assert.True(t, w.ShouldWarn(key))
	assert.False(t, w.ShouldWarn(key))

	w.Reset()
	assert.True(t, w.ShouldWarn(key))
}

func TestCoerceDashes(t *testing.T) {
	v, ok := CoerceDashes("4 2 1")
	assert.True(t, ok)
	assert.Equal(t, []float64{4, 2, 1}, v)

	_, ok = CoerceDashes("")
	assert.False(t, ok)
}

func TestColgenDeterministic(t *testing.T) {
	expr := Call{Fn: "colgen", Args: []Node{Leaf("landuse=forest")}}
	a := expr.Eval(fakeTags{})
	b := expr.Eval(fakeTags{})
	assert.Equal(t, a, b)
	assert.Len(t, a, 7) // "#rrggbb"
}
