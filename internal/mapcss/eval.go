package mapcss

import "strconv"

// Coercer converts an expression's raw string result into a concrete style
// field type T. It reports false on failure (spec.md §4.4: a failed
// coercion leaves the target field unmodified).
type Coercer[T any] func(s string) (T, bool)

// Eval[T] mirrors the original's templated Eval<T>: a style-template field
// is either a compile-time literal or a MapCSS expression, evaluated lazily
// against each matched object.
type Eval[T any] struct {
	node    Node
	literal T
	isExpr  bool
	coerce  Coercer[T]
}

// Literal builds an Eval[T] that always yields v without ever evaluating an
// expression.
func Literal[T any](v T) *Eval[T] {
	return &Eval[T]{literal: v}
}

// Expr builds an Eval[T] backed by a MapCSS expression, coerced with fn.
func Expr[T any](node Node, fn Coercer[T]) *Eval[T] {
	return &Eval[T]{node: node, isExpr: true, coerce: fn}
}

// Overwrite evaluates e against obj and, on success, writes the result into
// *out. On failure *out is left untouched and onFail (if non-nil) is
// invoked — the caller typically wires onFail to a rate-limited warning
// (spec.md §4.4, "Evaluation failures ... must not panic; the field
// retains its previous value").
func (e *Eval[T]) Overwrite(obj TagSource, out *T, onFail func()) {
	if e == nil {
		return
	}
	if !e.isExpr {
		*out = e.literal
		return
	}
	s := e.node.Eval(obj)
	v, ok := e.coerce(s)
	if !ok {
		if onFail != nil {
			onFail()
		}
		return
	}
	*out = v
}

// IsLiteral reports whether e never needs per-object evaluation, letting
// callers precompute it once (spec.md §4.4 performance note).
func (e *Eval[T]) IsLiteral() bool {
	return e == nil || !e.isExpr
}

// CoerceFloat parses s as a float64. Empty string always fails.
func CoerceFloat(s string) (float64, bool) {
	return parseNumber(s)
}

// CoerceInt parses s as an integer by truncating its float value.
func CoerceInt(s string) (int, bool) {
	f, ok := parseNumber(s)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// CoerceString passes s through unchanged; it only fails on the empty
// string, matching the original's "empty means absent" convention.
func CoerceString(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	return s, true
}

// CoerceBool maps s through Truthy; it never fails.
func CoerceBool(s string) (bool, bool) {
	return Truthy(s), true
}

// CoerceDashes parses a space-separated list of dash lengths, e.g. "4 2 1".
func CoerceDashes(s string) ([]float64, bool) {
	if s == "" {
		return nil, false
	}
	var out []float64
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ' ' {
			if i > start {
				f, err := strconv.ParseFloat(s[start:i], 64)
				if err != nil {
					return nil, false
				}
				out = append(out, f)
			}
			start = i + 1
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}
