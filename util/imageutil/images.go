// Package imageutil turns encoded image bytes into tightly packed RGBA pixel
// grids and scales them onto fixed-size canvases for model input.
package imageutil

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"math"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/knights-analytics/tensorimage/tensor"
)

// DecodeError is returned for malformed bytes or an unsupported image format.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// SurfaceError is returned when a drawing surface cannot be produced. With
// cover-fit scaling this cannot happen under normal operation and exists as a
// safety net around the compositing step.
type SurfaceError struct {
	Op string
}

func (e *SurfaceError) Error() string {
	return fmt.Sprintf("drawing surface unavailable during %s", e.Op)
}

// InvalidDimensionsError is returned for non-positive target dimensions.
type InvalidDimensionsError struct {
	Width  int
	Height int
}

func (e *InvalidDimensionsError) Error() string {
	return fmt.Sprintf("invalid target dimensions %dx%d: width and height must be positive", e.Width, e.Height)
}

// PixelGrid is a tightly packed interleaved RGBA buffer. Pix holds exactly
// Width*Height*4 bytes with no row padding.
type PixelGrid struct {
	Width  int
	Height int
	Pix    []byte
}

// NewPixelGrid wraps pix after checking it matches the declared dimensions.
func NewPixelGrid(width, height int, pix []byte) (*PixelGrid, error) {
	if width <= 0 || height <= 0 {
		return nil, &InvalidDimensionsError{Width: width, Height: height}
	}
	if len(pix) != width*height*4 {
		return nil, &tensor.ShapeMismatchError{Want: width * height * 4, Got: len(pix), What: fmt.Sprintf("%dx%d pixel grid", width, height)}
	}
	return &PixelGrid{Width: width, Height: height, Pix: pix}, nil
}

// FromImage flattens any image.Image into a PixelGrid, stripping row padding.
func FromImage(img image.Image) *PixelGrid {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	nrgba, ok := img.(*image.NRGBA)
	if !ok {
		nrgba = imaging.Clone(img)
	}
	pix := make([]byte, width*height*4)
	for y := 0; y < height; y++ {
		row := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+width*4]
		copy(pix[y*width*4:], row)
	}
	return &PixelGrid{Width: width, Height: height, Pix: pix}
}

// ToImage reconstructs an image.NRGBA view of the grid. The pixel buffer is
// copied so the grid stays immutable from the caller's perspective.
func (g *PixelGrid) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, g.Width, g.Height))
	for y := 0; y < g.Height; y++ {
		copy(img.Pix[y*img.Stride:], g.Pix[y*g.Width*4:(y+1)*g.Width*4])
	}
	return img
}

// DecodeImage decodes encoded raster bytes (jpeg, png, gif, webp, bmp, tiff)
// into a PixelGrid. The context is consulted before decoding begins; decoding
// itself runs to completion once started.
func DecodeImage(ctx context.Context, encoded []byte) (*PixelGrid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(encoded))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return FromImage(img), nil
}

// CoverResize scales the source grid by the larger of the two axis ratios so
// it fully covers a width×height canvas, then center-crops the overflow. The
// canvas starts opaque white, so the output has no undefined pixels even if
// the scaled source were ever to fall short of covering it.
func CoverResize(grid *PixelGrid, width, height int) (*PixelGrid, error) {
	if width <= 0 || height <= 0 {
		return nil, &InvalidDimensionsError{Width: width, Height: height}
	}

	scale := math.Max(float64(width)/float64(grid.Width), float64(height)/float64(grid.Height))
	scaledW := int(math.Round(float64(grid.Width) * scale))
	scaledH := int(math.Round(float64(grid.Height) * scale))
	if scaledW < 1 {
		scaledW = 1
	}
	if scaledH < 1 {
		scaledH = 1
	}

	// The offsets are <= 0 on the overflowing axis, producing the implicit
	// center crop: out-of-canvas rows and columns are discarded by Paste.
	offsetX := (width - scaledW) / 2
	offsetY := (height - scaledH) / 2

	resized := imaging.Resize(grid.ToImage(), scaledW, scaledH, imaging.Lanczos)
	canvas := imaging.New(width, height, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	canvas = imaging.Paste(canvas, resized, image.Pt(offsetX, offsetY))
	if canvas == nil || canvas.Bounds().Dx() != width || canvas.Bounds().Dy() != height {
		return nil, &SurfaceError{Op: "cover-fit compositing"}
	}
	return FromImage(canvas), nil
}
