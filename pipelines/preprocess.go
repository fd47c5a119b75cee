// Package pipelines implements the numeric transcoding between pixel grids
// and the planar float tensors an inference engine consumes and produces.
package pipelines

import (
	"fmt"

	"github.com/knights-analytics/tensorimage/profiles"
	"github.com/knights-analytics/tensorimage/tensor"
	"github.com/knights-analytics/tensorimage/util/imageutil"
)

// Normalize converts a canvas grid into a [1,3,H,W] planar tensor under the
// given profile. Each channel occupies one contiguous width*height block in
// R,G,B order; the alpha byte is ignored. The grid must already be on the
// profile's canvas.
func Normalize(grid *imageutil.PixelGrid, profile *profiles.Profile) (*tensor.Tensor, error) {
	if grid.Width != profile.Width || grid.Height != profile.Height {
		return nil, &tensor.ShapeMismatchError{
			Want: profile.Width * profile.Height * 4,
			Got:  len(grid.Pix),
			What: fmt.Sprintf("canvas %dx%d for profile %s (%dx%d)", grid.Width, grid.Height, profile.Name, profile.Width, profile.Height),
		}
	}

	plane := grid.Width * grid.Height
	data := make([]float32, 3*plane)
	for i := 0; i < plane; i++ {
		p := i * 4
		r := float64(grid.Pix[p]) / 255
		g := float64(grid.Pix[p+1]) / 255
		b := float64(grid.Pix[p+2]) / 255
		data[i] = float32((r - profile.Mean[0]) / profile.Std[0])
		data[plane+i] = float32((g - profile.Mean[1]) / profile.Std[1])
		data[2*plane+i] = float32((b - profile.Mean[2]) / profile.Std[2])
	}
	return tensor.New([]int{1, 3, grid.Height, grid.Width}, data)
}
