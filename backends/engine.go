// Package backends holds the inference engine boundary. The engine is an
// external collaborator: it loads a model and executes forward passes, while
// this module only produces request tensors and consumes response tensors.
package backends

import (
	"context"

	"github.com/knights-analytics/tensorimage/tensor"
)

// Engine executes a forward pass on a named input tensor and returns the
// named output tensor. An Engine handle is the initialized state: once
// construction succeeds no separate setup step exists. Implementations are
// exclusive-use per active call; serializing concurrent requests over one
// handle is the host's responsibility.
type Engine interface {
	Run(ctx context.Context, inputName string, input *tensor.Tensor) (string, *tensor.Tensor, error)
	InputName() string
	OutputName() string
	Destroy() error
}
