package stylesheet

import (
	"github.com/MeKo-Tech/alacarte/internal/geodata"
	"github.com/MeKo-Tech/alacarte/internal/mapcss"
	"github.com/MeKo-Tech/alacarte/internal/style"
	"github.com/MeKo-Tech/alacarte/internal/tileid"
)

// Fallback builds the built-in fallback stylesheet (spec.md §3: "renders
// highway=* as grey lines with zoom-dependent width, landuse=forest as
// green fill, boundary=administrative relations as red outlines. Its
// purpose is to guarantee the server never has zero stylesheets"). Like
// original_source's makeFallbackStylesheet, it is built directly as rule
// literals rather than parsed from MapCSS text.
func Fallback() *Stylesheet {
	grey := style.Color{R: 100, G: 100, B: 100, A: 255}
	green := style.Color{R: 34, G: 139, B: 34, A: 255}
	red := style.Color{R: 178, G: 34, B: 34, A: 255}

	highwayThin := Rule{
		ZoomLow: 0, ZoomHigh: 12,
		AcceptKind: geodata.KindWay,
		Chain: []Selector{
			{Kind: SelHasTag, Key: "highway"},
			{Kind: SelApply, Template: &style.Template{
				Color: mapcss.Literal(grey),
				Width: mapcss.Literal(1.0),
			}},
		},
	}
	highwayThick := Rule{
		ZoomLow: 13, ZoomHigh: tileid.MaxZoom,
		AcceptKind: geodata.KindWay,
		Chain: []Selector{
			{Kind: SelHasTag, Key: "highway"},
			{Kind: SelApply, Template: &style.Template{
				Color: mapcss.Literal(grey),
				Width: mapcss.Literal(2.5),
			}},
		},
	}
	forest := Rule{
		ZoomLow: 0, ZoomHigh: tileid.MaxZoom,
		AcceptKind: geodata.KindWay,
		Chain: []Selector{
			{Kind: SelArea},
			{Kind: SelTagEquals, Key: "landuse", Value: "forest"},
			{Kind: SelApply, Template: &style.Template{
				FillColor: mapcss.Literal(green),
			}},
		},
	}
	adminBoundary := Rule{
		ZoomLow: 0, ZoomHigh: tileid.MaxZoom,
		AcceptKind: geodata.KindRelation,
		Chain: []Selector{
			{Kind: SelTagEquals, Key: "boundary", Value: "administrative"},
			{Kind: SelApply, Template: &style.Template{
				Color: mapcss.Literal(red),
				Width: mapcss.Literal(1.5),
			}},
		},
	}

	return &Stylesheet{
		Path:  tileid.FallbackStyle,
		Rules: []Rule{highwayThin, highwayThick, forest, adminBoundary},
		CanvasTmpl: &style.Template{
			FillColor: mapcss.Literal(style.Color{R: 242, G: 239, B: 233, A: 255}),
		},
	}
}
