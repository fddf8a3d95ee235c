package tileid

import (
	"errors"
	"strconv"
	"strings"
)

// Errors returned by ParseURL, distinguished so the HTTP layer can map them
// onto the status codes spec.md §4.1 and §6 name.
var (
	// ErrMalformed covers any URL that doesn't fit the grammar at all, or
	// whose coordinates are out of range for their zoom.
	ErrMalformed = errors.New("tileid: malformed tile URL")
	// ErrUnsupportedFormat covers a recognized-but-unsupported extension
	// (jpg, gif, svgz, ...).
	ErrUnsupportedFormat = errors.New("tileid: unsupported tile format")
)

// ParseURL parses "/<style-path>/<z>/<x>/<y>.<ext>" (spec.md §4.1). The
// style-path may itself contain slashes and is kept without its leading
// slash. A path with no style segment (e.g. a bare "/0/0/0.png") is
// rejected with ErrMalformed; no default style is substituted here.
func ParseURL(path string) (TileIdentifier, error) {
	path = strings.TrimPrefix(path, "/")
	parts := strings.Split(path, "/")
	if len(parts) < 4 {
		return TileIdentifier{}, ErrMalformed
	}
	yExt := parts[len(parts)-1]
	xStr := parts[len(parts)-2]
	zStr := parts[len(parts)-3]
	stylePath := strings.Join(parts[:len(parts)-3], "/")

	dot := strings.LastIndex(yExt, ".")
	if dot < 0 {
		return TileIdentifier{}, ErrMalformed
	}
	yStr := yExt[:dot]
	ext := strings.ToLower(yExt[dot+1:])

	z, err1 := strconv.ParseUint(zStr, 10, 8)
	x, err2 := strconv.ParseUint(xStr, 10, 32)
	y, err3 := strconv.ParseUint(yStr, 10, 32)
	if err1 != nil || err2 != nil || err3 != nil {
		return TileIdentifier{}, ErrMalformed
	}

	format, ok := ParseFormat(ext)
	if !ok {
		return TileIdentifier{}, ErrUnsupportedFormat
	}

	ti := TileIdentifier{
		X:          uint32(x),
		Y:          uint32(y),
		Z:          uint8(z),
		Stylesheet: stylePath,
		Format:     format,
	}
	if err := ti.Validate(); err != nil {
		return TileIdentifier{}, ErrMalformed
	}
	return ti, nil
}
