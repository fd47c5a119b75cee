// Package tensor wraps flat float32 buffers with shape metadata for the
// inference boundary. A Tensor never copies the buffer it is given.
package tensor

import (
	"fmt"
)

// ShapeMismatchError is returned when a buffer's element count does not match
// the declared shape, or when grid dimensions disagree with a profile.
type ShapeMismatchError struct {
	Want int
	Got  int
	What string
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch for %s: expected %d elements, got %d", e.What, e.Want, e.Got)
}

// UnsupportedRankError is returned for tensors whose rank is not 3 or 4, or
// whose leading batch dimension is not 1.
type UnsupportedRankError struct {
	Shape []int
}

func (e *UnsupportedRankError) Error() string {
	return fmt.Sprintf("unsupported tensor shape %v: rank must be 3 (CHW) or 4 with batch size 1 (1CHW)", e.Shape)
}

// Tensor is a shape descriptor over a flat float32 buffer. Data is row-major;
// image tensors use the planar NCHW layout.
type Tensor struct {
	Shape []int
	Data  []float32
}

// New validates that the shape accounts for every element of data and wraps
// the buffer without copying it.
func New(shape []int, data []float32) (*Tensor, error) {
	elements := 1
	for _, dim := range shape {
		if dim < 0 {
			return nil, &ShapeMismatchError{Want: 0, Got: len(data), What: fmt.Sprintf("tensor with negative dimension %v", shape)}
		}
		elements *= dim
	}
	if elements != len(data) {
		return nil, &ShapeMismatchError{Want: elements, Got: len(data), What: fmt.Sprintf("tensor %v", shape)}
	}
	return &Tensor{Shape: shape, Data: data}, nil
}

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int {
	return len(t.Shape)
}

// Dims returns a copy of the shape so callers cannot alias the descriptor.
func (t *Tensor) Dims() []int {
	out := make([]int, len(t.Shape))
	copy(out, t.Shape)
	return out
}

// PlanarDims interprets the tensor as a planar image and returns its
// (channels, height, width). Rank 4 tensors must carry a leading batch
// dimension of exactly 1; rank 3 tensors are taken as CHW directly.
func (t *Tensor) PlanarDims() (int, int, int, error) {
	switch t.Rank() {
	case 3:
		return t.Shape[0], t.Shape[1], t.Shape[2], nil
	case 4:
		if t.Shape[0] != 1 {
			return 0, 0, 0, &UnsupportedRankError{Shape: t.Dims()}
		}
		return t.Shape[1], t.Shape[2], t.Shape[3], nil
	default:
		return 0, 0, 0, &UnsupportedRankError{Shape: t.Dims()}
	}
}
