package imageutil

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"image/png"
)

// EncodePNG serializes the grid as a PNG.
func EncodePNG(grid *PixelGrid) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, grid.ToImage()); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeJPEG serializes the grid as a JPEG with the given quality (1-100).
func EncodeJPEG(grid *PixelGrid, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, grid.ToImage(), &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
