package convert

import (
	"bytes"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/h2non/filetype"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DimensionOracle reports pixel dimensions of encoded image data.
// Unrecognized data yields ok=false and the caller degrades - a broken image
// never fails a conversion.
type DimensionOracle interface {
	Dimensions(data []byte) (width, height int, ok bool)
}

// HeaderDimensionOracle sniffs the container type and decodes only the
// header, never the pixels.
type HeaderDimensionOracle struct{}

func (HeaderDimensionOracle) Dimensions(data []byte) (int, int, bool) {
	if !filetype.IsImage(data) {
		return 0, 0, false
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}

// MimeType returns the sniffed mime type of image data, empty when unknown.
func MimeType(data []byte) string {
	t, err := filetype.Image(data)
	if err != nil {
		return ""
	}
	return t.MIME.Value
}

// 914400 EMU per inch over 96px per inch.
const (
	emusPerPixel = 9525
)

// EMUToPixels converts the drawing extent unit to CSS pixels.
func EMUToPixels(emu int64) int {
	if emu <= 0 {
		return 0
	}
	return int(emu / emusPerPixel)
}
