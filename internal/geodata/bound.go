package geodata

import "github.com/paulmach/orb"

// webMercatorExtent is the half-width/height, in meters, of the full Web
// Mercator projection square (2*pi*6378137/2).
const webMercatorExtent = 20037508.342789244

// WorldBound returns the full Web Mercator extent, the bound passed to
// NewInMemoryView when a caller has no tighter extent of its own.
func WorldBound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{-webMercatorExtent, -webMercatorExtent},
		Max: orb.Point{webMercatorExtent, webMercatorExtent},
	}
}
