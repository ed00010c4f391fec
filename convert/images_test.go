package convert

import (
	"bytes"
	"image"
	"image/png"
	"testing"
)

func pngData(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestHeaderDimensionOracle(t *testing.T) {
	data := pngData(t, 47, 31)

	w, h, ok := HeaderDimensionOracle{}.Dimensions(data)
	if !ok {
		t.Fatal("image not recognized")
	}
	if w != 47 || h != 31 {
		t.Errorf("dimensions = %dx%d, want 47x31", w, h)
	}
}

func TestHeaderDimensionOracleRejectsGarbage(t *testing.T) {
	if _, _, ok := (HeaderDimensionOracle{}).Dimensions([]byte("definitely not an image")); ok {
		t.Error("garbage accepted as image")
	}
}

func TestMimeType(t *testing.T) {
	if got := MimeType(pngData(t, 2, 2)); got != "image/png" {
		t.Errorf("mime = %q, want image/png", got)
	}
	if got := MimeType([]byte("nope")); got != "" {
		t.Errorf("mime for garbage = %q, want empty", got)
	}
}

func TestEMUToPixels(t *testing.T) {
	if got := EMUToPixels(914400); got != 96 {
		t.Errorf("one inch = %dpx, want 96", got)
	}
	if got := EMUToPixels(-5); got != 0 {
		t.Errorf("negative extent = %d, want 0", got)
	}
}
