package pipelines

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knights-analytics/tensorimage/profiles"
	"github.com/knights-analytics/tensorimage/tensor"
	"github.com/knights-analytics/tensorimage/util/imageutil"
)

func identityProfile(width, height int) *profiles.Profile {
	return &profiles.Profile{
		Name:     "test-identity",
		Width:    width,
		Height:   height,
		Channels: 3,
		Mean:     [3]float64{0, 0, 0},
		Std:      [3]float64{1, 1, 1},
	}
}

func gridFromBytes(t *testing.T, width, height int, pix []byte) *imageutil.PixelGrid {
	t.Helper()
	grid, err := imageutil.NewPixelGrid(width, height, pix)
	require.NoError(t, err)
	return grid
}

func uniformGrid(t *testing.T, width, height int, r, g, b byte) *imageutil.PixelGrid {
	t.Helper()
	pix := make([]byte, width*height*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = r, g, b, 255
	}
	return gridFromBytes(t, width, height, pix)
}

func TestNormalizeAllWhite(t *testing.T) {
	grid := uniformGrid(t, 2, 2, 255, 255, 255)

	out, err := Normalize(grid, identityProfile(2, 2))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 2, 2}, out.Shape)
	require.Len(t, out.Data, 12)
	for i, v := range out.Data {
		assert.InDelta(t, 1.0, v, 1e-6, "element %d", i)
	}
}

func TestNormalizePlanarLayout(t *testing.T) {
	// Distinct per-channel bytes so each plane is identifiable.
	grid := uniformGrid(t, 3, 2, 255, 0, 51)

	out, err := Normalize(grid, identityProfile(3, 2))
	require.NoError(t, err)

	plane := 3 * 2
	require.Len(t, out.Data, 3*plane)
	for i := 0; i < plane; i++ {
		assert.InDelta(t, 1.0, out.Data[i], 1e-6, "red plane")
		assert.InDelta(t, 0.0, out.Data[plane+i], 1e-6, "green plane")
		assert.InDelta(t, 0.2, out.Data[2*plane+i], 1e-6, "blue plane")
	}
}

func TestNormalizeIgnoresAlpha(t *testing.T) {
	pix := make([]byte, 4)
	pix[0], pix[1], pix[2], pix[3] = 255, 255, 255, 0
	grid := gridFromBytes(t, 1, 1, pix)

	out, err := Normalize(grid, identityProfile(1, 1))
	require.NoError(t, err)
	for _, v := range out.Data {
		assert.InDelta(t, 1.0, v, 1e-6)
	}
}

func TestNormalizeAppliesMeanAndStd(t *testing.T) {
	profile, err := profiles.Get("imagenet-224")
	require.NoError(t, err)
	custom := *profile
	custom.Width, custom.Height = 1, 1

	grid := uniformGrid(t, 1, 1, 255, 255, 255)
	out, err := Normalize(grid, &custom)
	require.NoError(t, err)
	assert.InDelta(t, (1.0-0.485)/0.229, out.Data[0], 1e-6)
	assert.InDelta(t, (1.0-0.456)/0.224, out.Data[1], 1e-6)
	assert.InDelta(t, (1.0-0.406)/0.225, out.Data[2], 1e-6)
}

func TestNormalizeRejectsWrongCanvas(t *testing.T) {
	grid := uniformGrid(t, 2, 2, 0, 0, 0)
	_, err := Normalize(grid, identityProfile(4, 4))
	var shapeErr *tensor.ShapeMismatchError
	assert.ErrorAs(t, err, &shapeErr)
}

func TestDenormalizeExplicitAllWhite(t *testing.T) {
	profile := identityProfile(2, 2)
	grid := uniformGrid(t, 2, 2, 255, 255, 255)
	normalized, err := Normalize(grid, profile)
	require.NoError(t, err)

	out, err := Denormalize(normalized, 2, 2, profile)
	require.NoError(t, err)
	require.Len(t, out.Pix, 16)
	for i := 0; i < len(out.Pix); i++ {
		assert.Equal(t, byte(255), out.Pix[i])
	}
}

func TestRoundTripWithinOneByte(t *testing.T) {
	profile, err := profiles.Get("imagenet-224")
	require.NoError(t, err)
	custom := *profile
	custom.Width, custom.Height = 4, 4

	pix := make([]byte, 4*4*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i] = byte(i * 3)
		pix[i+1] = byte(255 - i*2)
		pix[i+2] = byte(i * 5)
		pix[i+3] = 255
	}
	grid := gridFromBytes(t, 4, 4, pix)

	normalized, err := Normalize(grid, &custom)
	require.NoError(t, err)
	back, err := Denormalize(normalized, 4, 4, &custom)
	require.NoError(t, err)

	for i := 0; i < len(pix); i++ {
		assert.InDelta(t, float64(pix[i]), float64(back.Pix[i]), 1, "byte %d", i)
	}
}

func TestDenormalizeWithDifferentOutputProfile(t *testing.T) {
	// A model can consume imagenet-normalized input but produce symmetric
	// [-1,1] output; the output profile maps it back.
	symmetric := &profiles.Profile{
		Name:     "sym",
		Width:    1,
		Height:   1,
		Channels: 3,
		Mean:     [3]float64{0.5, 0.5, 0.5},
		Std:      [3]float64{0.5, 0.5, 0.5},
	}
	output, err := tensor.New([]int{1, 3, 1, 1}, []float32{1, -1, 0})
	require.NoError(t, err)

	grid, err := Denormalize(output, 1, 1, symmetric)
	require.NoError(t, err)
	assert.Equal(t, byte(255), grid.Pix[0])
	assert.Equal(t, byte(0), grid.Pix[1])
	assert.Equal(t, byte(128), grid.Pix[2])
	assert.Equal(t, byte(255), grid.Pix[3])
}

func TestDenormalizeClampsOvershoot(t *testing.T) {
	output, err := tensor.New([]int{3, 1, 1}, []float32{1.7, -0.4, 0.5})
	require.NoError(t, err)

	grid, err := Denormalize(output, 1, 1, identityProfile(1, 1))
	require.NoError(t, err)
	assert.Equal(t, byte(255), grid.Pix[0])
	assert.Equal(t, byte(0), grid.Pix[1])
	assert.Equal(t, byte(128), grid.Pix[2])
}

func TestDenormalizeRejectsUnsupportedRanks(t *testing.T) {
	for _, shape := range [][]int{
		{12},
		{3, 4},
		{1, 1, 3, 2, 2},
	} {
		elements := 1
		for _, d := range shape {
			elements *= d
		}
		out, err := tensor.New(shape, make([]float32, elements))
		require.NoError(t, err)
		_, err = Denormalize(out, 2, 2, identityProfile(2, 2))
		var rankErr *tensor.UnsupportedRankError
		assert.ErrorAs(t, err, &rankErr, "shape %v", shape)
	}
}

func TestDenormalizeRejectsBatchedOutput(t *testing.T) {
	out, err := tensor.New([]int{2, 3, 2, 2}, make([]float32, 24))
	require.NoError(t, err)
	_, err = Denormalize(out, 2, 2, identityProfile(2, 2))
	var rankErr *tensor.UnsupportedRankError
	assert.ErrorAs(t, err, &rankErr)
}

func TestDenormalizeRejectsDimensionMismatch(t *testing.T) {
	out, err := tensor.New([]int{1, 3, 2, 2}, make([]float32, 12))
	require.NoError(t, err)
	_, err = Denormalize(out, 4, 4, identityProfile(4, 4))
	var shapeErr *tensor.ShapeMismatchError
	assert.ErrorAs(t, err, &shapeErr)
}

func TestDenormalizeAutoIdentityBand(t *testing.T) {
	data := make([]float32, 12)
	for i := range data {
		data[i] = 0.5
	}
	out, err := tensor.New([]int{3, 2, 2}, data)
	require.NoError(t, err)

	grid, err := DenormalizeAuto(out, 2, 2)
	require.NoError(t, err)
	for i := 0; i < len(grid.Pix); i += 4 {
		assert.Equal(t, byte(128), grid.Pix[i])
		assert.Equal(t, byte(128), grid.Pix[i+1])
		assert.Equal(t, byte(128), grid.Pix[i+2])
		assert.Equal(t, byte(255), grid.Pix[i+3])
	}
}

func TestDenormalizeAutoSymmetricBand(t *testing.T) {
	// min < -0.1 pushes classification to the symmetric rule.
	data := []float32{-1, 1, 0, -0.5, 0.5, -1, 1, 0, -0.5, 0.5, -1, 1}
	out, err := tensor.New([]int{1, 3, 2, 2}, data)
	require.NoError(t, err)

	grid, err := DenormalizeAuto(out, 2, 2)
	require.NoError(t, err)
	// (v+1)/2: -1 -> 0, 1 -> 255, 0 -> 128.
	assert.Equal(t, byte(0), grid.Pix[0])
	assert.Equal(t, byte(255), grid.Pix[4])
	assert.Equal(t, byte(128), grid.Pix[8])
}

func TestDenormalizeAutoToleratesOvershoot(t *testing.T) {
	// 1.05 stays inside the identity band's +0.1 slack and is clamped.
	data := []float32{1.05, 0, 0.5, 1, 1.05, 0, 0.5, 1, 1.05, 0, 0.5, 1}
	out, err := tensor.New([]int{3, 2, 2}, data)
	require.NoError(t, err)

	grid, err := DenormalizeAuto(out, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, byte(255), grid.Pix[0], "overshoot clamps to white")
	assert.Equal(t, byte(0), grid.Pix[4])
	assert.Equal(t, byte(128), grid.Pix[8])
}

func TestDenormalizeAutoMinMaxStretch(t *testing.T) {
	// Values outside both bands stretch linearly onto [0,1]: min -> 0, max -> 255.
	data := []float32{0, 10, 5, 2.5, 0, 10, 5, 2.5, 0, 10, 5, 2.5}
	out, err := tensor.New([]int{3, 2, 2}, data)
	require.NoError(t, err)

	grid, err := DenormalizeAuto(out, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, byte(0), grid.Pix[0])
	assert.Equal(t, byte(255), grid.Pix[4])
	assert.Equal(t, byte(128), grid.Pix[8])
	assert.Equal(t, byte(64), grid.Pix[12])
}

func TestDenormalizeAutoDegenerateRange(t *testing.T) {
	data := make([]float32, 12)
	for i := range data {
		data[i] = 42
	}
	out, err := tensor.New([]int{3, 2, 2}, data)
	require.NoError(t, err)

	grid, err := DenormalizeAuto(out, 2, 2)
	require.NoError(t, err)
	for i := 0; i < len(grid.Pix); i += 4 {
		assert.Equal(t, byte(0), grid.Pix[i], "uniform out-of-band input maps to black")
		assert.Equal(t, byte(255), grid.Pix[i+3])
	}
}

func TestDenormalizeAutoRankValidation(t *testing.T) {
	out, err := tensor.New([]int{12}, make([]float32, 12))
	require.NoError(t, err)
	_, err = DenormalizeAuto(out, 2, 2)
	var rankErr *tensor.UnsupportedRankError
	assert.ErrorAs(t, err, &rankErr)
}

func TestDenormalizeAutoLargeBufferScan(t *testing.T) {
	// The min/max scan is a bounded loop; a large buffer must not blow the
	// stack the way a variadic reduction would.
	width, height := 512, 512
	data := make([]float32, 3*width*height)
	for i := range data {
		data[i] = float32(math.Sin(float64(i)))
	}
	out, err := tensor.New([]int{3, height, width}, data)
	require.NoError(t, err)

	grid, err := DenormalizeAuto(out, width, height)
	require.NoError(t, err)
	assert.Equal(t, width, grid.Width)
	assert.Equal(t, height, grid.Height)
}
