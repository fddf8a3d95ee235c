package style

// Handle is an arena index into a RenderAttributes, standing in for the
// back-pointers the original used (SPEC_FULL.md §A / spec.md §9 redesign
// flags: "identifiers are indices, never owning pointers").
type Handle int

// RenderAttributes is the per-render-pass arena of accumulated Styles, one
// per matched object, plus the finalized canvas style (spec.md §3
// "RenderAttributes"). Its lifetime is exactly one meta-tile render; the
// renderer discards it once the tile is sliced and returned.
type RenderAttributes struct {
	canvas Style
	styles []Style
}

// NewRenderAttributes creates an empty arena with the canvas style already
// seeded to its default (matching rules against the canvas pseudo-object
// then overwrite fields in place).
func NewRenderAttributes() *RenderAttributes {
	return &RenderAttributes{canvas: Default()}
}

// Alloc reserves a new Style slot, defaulted, and returns its handle.
func (r *RenderAttributes) Alloc() Handle {
	r.styles = append(r.styles, Default())
	return Handle(len(r.styles) - 1)
}

// Style returns a pointer to the accumulating Style for h, valid until the
// next Alloc (append may reallocate the backing slice).
func (r *RenderAttributes) Style(h Handle) *Style {
	return &r.styles[h]
}

// Canvas returns a pointer to the canvas's accumulating style.
func (r *RenderAttributes) Canvas() *Style {
	return &r.canvas
}

// Len reports how many object styles have been allocated.
func (r *RenderAttributes) Len() int {
	return len(r.styles)
}
