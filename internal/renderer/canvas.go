package renderer

import "github.com/MeKo-Tech/alacarte/internal/tileid"

// newCanvas builds the reference Draw backend for format: rasterCanvas
// (golang.org/x/image-backed PNG) or svgCanvas (generated SVG markup).
// Both satisfy TileSlicer, so RenderMeta can always crop per-tile images
// out of the shared meta-canvas.
func newCanvas(format tileid.Format, widthPx, heightPx int) Draw {
	if format == tileid.SVG {
		return newSVGCanvas(widthPx, heightPx)
	}
	return newRasterCanvas(widthPx, heightPx)
}
