package pipelines

import (
	"fmt"

	"github.com/knights-analytics/tensorimage/profiles"
	"github.com/knights-analytics/tensorimage/tensor"
	"github.com/knights-analytics/tensorimage/util/imageutil"
	"github.com/knights-analytics/tensorimage/util/safeconv"
	util "github.com/knights-analytics/tensorimage/utils"
)

// Tolerance absorbed around the nominal output bands. Models routinely
// overshoot their training range by a few percent; 0.1 is the empirically
// chosen slack and is deliberately not configurable.
const rangeTolerance = 0.1

// Denormalize reconstructs a pixel grid from a model output tensor using the
// profile that describes the output space (which may differ from the input
// profile). Values are mapped back with v*std+mean, clamped to [0,1], scaled
// to bytes, and the alpha channel is fixed at 255.
func Denormalize(t *tensor.Tensor, width, height int, profile *profiles.Profile) (*imageutil.PixelGrid, error) {
	plane, err := outputPlane(t, width, height)
	if err != nil {
		return nil, err
	}

	pix := make([]byte, width*height*4)
	for i := 0; i < plane; i++ {
		r := float64(t.Data[i])*profile.Std[0] + profile.Mean[0]
		g := float64(t.Data[plane+i])*profile.Std[1] + profile.Mean[1]
		b := float64(t.Data[2*plane+i])*profile.Std[2] + profile.Mean[2]
		p := i * 4
		pix[p] = safeconv.UnitToByte(r)
		pix[p+1] = safeconv.UnitToByte(g)
		pix[p+2] = safeconv.UnitToByte(b)
		pix[p+3] = 255
	}
	return imageutil.NewPixelGrid(width, height, pix)
}

// DenormalizeAuto reconstructs a pixel grid from an output tensor whose
// normalization scheme is not known a priori. A single accumulating pass
// establishes the observed value range, which selects one of three mappings:
// a symmetric [-1,1] output is shifted into [0,1], an output already in [0,1]
// passes through unchanged, and anything else is stretched linearly so that
// min lands on 0 and max on 1. The bands carry a fixed tolerance for model
// overshoot; this is a heuristic, not a guaranteed range detector.
func DenormalizeAuto(t *tensor.Tensor, width, height int) (*imageutil.PixelGrid, error) {
	plane, err := outputPlane(t, width, height)
	if err != nil {
		return nil, err
	}

	minValue, maxValue, err := util.MinMax(t.Data)
	if err != nil {
		return nil, err
	}
	lo, hi := float64(minValue), float64(maxValue)

	var mapValue func(float64) float64
	switch {
	case lo >= -rangeTolerance && hi <= 1+rangeTolerance:
		mapValue = func(v float64) float64 { return v }
	case lo >= -1-rangeTolerance && hi <= 1+rangeTolerance:
		mapValue = func(v float64) float64 { return (v + 1) / 2 }
	default:
		if hi == lo {
			// A constant buffer outside both bands carries no range
			// information; map it to uniform black rather than divide by zero.
			mapValue = func(float64) float64 { return 0 }
		} else {
			span := hi - lo
			mapValue = func(v float64) float64 { return (v - lo) / span }
		}
	}

	pix := make([]byte, width*height*4)
	for i := 0; i < plane; i++ {
		p := i * 4
		pix[p] = safeconv.UnitToByte(mapValue(float64(t.Data[i])))
		pix[p+1] = safeconv.UnitToByte(mapValue(float64(t.Data[plane+i])))
		pix[p+2] = safeconv.UnitToByte(mapValue(float64(t.Data[2*plane+i])))
		pix[p+3] = 255
	}
	return imageutil.NewPixelGrid(width, height, pix)
}

// outputPlane validates the tensor against the requested output dimensions
// and returns the per-channel plane size.
func outputPlane(t *tensor.Tensor, width, height int) (int, error) {
	if width <= 0 || height <= 0 {
		return 0, &imageutil.InvalidDimensionsError{Width: width, Height: height}
	}
	channels, h, w, err := t.PlanarDims()
	if err != nil {
		return 0, err
	}
	if channels != 3 || h != height || w != width {
		return 0, &tensor.ShapeMismatchError{
			Want: 3 * height * width,
			Got:  channels * h * w,
			What: fmt.Sprintf("output tensor %v for %dx%d reconstruction", t.Shape, width, height),
		}
	}
	return height * width, nil
}
