package httpserver

import (
	"strconv"
	"strings"

	"github.com/MeKo-Tech/alacarte/internal/stylemgr"
	"github.com/MeKo-Tech/alacarte/internal/tileid"
)

// parseRequest implements the URL grammar spec.md §4.1 defines:
// /<style-path>/<z>/<x>/<y>.<ext>. style-path may itself contain slashes,
// so the last three path segments are always z, x, and y.<ext>; everything
// before them is the style path.
func parseRequest(path string, styles *stylemgr.Manager) (tid tileid.TileIdentifier, styleKnown bool, err *statusError) {
	segs := splitPath(path)
	if len(segs) < 4 {
		return tileid.TileIdentifier{}, false, errBadRequest
	}

	yExt := segs[len(segs)-1]
	xSeg := segs[len(segs)-2]
	zSeg := segs[len(segs)-3]
	stylePath := "/" + strings.Join(segs[:len(segs)-3], "/")

	ySeg, ext, ok := splitExt(yExt)
	if !ok {
		return tileid.TileIdentifier{}, false, errBadRequest
	}

	format, ok := tileid.ParseFormat(ext)
	if !ok {
		return tileid.TileIdentifier{}, false, errNotImplemented
	}

	z, zErr := strconv.ParseUint(zSeg, 10, 8)
	x, xErr := strconv.ParseUint(xSeg, 10, 32)
	y, yErr := strconv.ParseUint(ySeg, 10, 32)
	if zErr != nil || xErr != nil || yErr != nil {
		return tileid.TileIdentifier{}, false, errBadRequest
	}

	tid, err2 := tileid.New(uint32(x), uint32(y), uint8(z), stylePath, format)
	if err2 != nil {
		return tileid.TileIdentifier{}, false, errBadRequest
	}

	known := isKnownStyle(stylePath, styles)
	return tid, known, nil
}

func isKnownStyle(style string, styles *stylemgr.Manager) bool {
	for _, name := range styles.Names() {
		if name == style {
			return true
		}
	}
	return false
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func splitExt(seg string) (base, ext string, ok bool) {
	idx := strings.LastIndexByte(seg, '.')
	if idx < 0 || idx == len(seg)-1 {
		return "", "", false
	}
	return seg[:idx], seg[idx+1:], true
}
