//go:build cgo && (ORT || ALL)

package backends

import (
	"context"
	"errors"
	"fmt"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/knights-analytics/tensorimage/options"
	"github.com/knights-analytics/tensorimage/tensor"
	"github.com/knights-analytics/tensorimage/util/fileutil"
	"github.com/knights-analytics/tensorimage/util/safeconv"
)

// ORTEngine runs a single-input single-output ONNX model through the
// onnxruntime shared library.
type ORTEngine struct {
	session        *ort.DynamicAdvancedSession
	sessionOptions *ort.SessionOptions
	inputName      string
	outputName     string
}

// NewORTEngine initializes the onnxruntime environment if needed, reads the
// model's IO metadata, and opens a session. Models with more than one input
// or output are rejected: the transcoding boundary is one tensor each way.
func NewORTEngine(modelPath string, opts *options.Options) (Engine, error) {
	o := opts.ORTOptions

	if !ort.IsInitialized() {
		if o.LibraryPath != nil {
			exists, err := fileutil.FileExists(context.Background(), *o.LibraryPath)
			if err != nil {
				return nil, err
			}
			if !exists {
				return nil, fmt.Errorf("cannot find the ort library at: %s", *o.LibraryPath)
			}
			ort.SetSharedLibraryPath(*o.LibraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, err
		}
	}

	if o.Telemetry != nil && *o.Telemetry {
		if err := ort.EnableTelemetry(); err != nil {
			return nil, err
		}
	} else {
		if err := ort.DisableTelemetry(); err != nil {
			return nil, err
		}
	}

	sessionOptions, err := ort.NewSessionOptions()
	if err != nil {
		return nil, err
	}
	if err := applySessionOptions(sessionOptions, o); err != nil {
		return nil, errors.Join(err, sessionOptions.Destroy())
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, errors.Join(err, sessionOptions.Destroy())
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, errors.Join(
			fmt.Errorf("model %s has %d inputs and %d outputs, expected exactly one of each", modelPath, len(inputs), len(outputs)),
			sessionOptions.Destroy(),
		)
	}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		sessionOptions,
	)
	if err != nil {
		return nil, errors.Join(err, sessionOptions.Destroy())
	}

	return &ORTEngine{
		session:        session,
		sessionOptions: sessionOptions,
		inputName:      inputs[0].Name,
		outputName:     outputs[0].Name,
	}, nil
}

func applySessionOptions(sessionOptions *ort.SessionOptions, o *options.OrtOptions) error {
	if o.IntraOpNumThreads != nil {
		if err := sessionOptions.SetIntraOpNumThreads(*o.IntraOpNumThreads); err != nil {
			return err
		}
	}
	if o.InterOpNumThreads != nil {
		if err := sessionOptions.SetInterOpNumThreads(*o.InterOpNumThreads); err != nil {
			return err
		}
	}
	if o.CPUMemArena != nil {
		if err := sessionOptions.SetCpuMemArena(*o.CPUMemArena); err != nil {
			return err
		}
	}
	if o.MemPattern != nil {
		if err := sessionOptions.SetMemPattern(*o.MemPattern); err != nil {
			return err
		}
	}
	if o.CudaOptions != nil {
		cudaOptions, optErr := ort.NewCUDAProviderOptions()
		if optErr != nil {
			return optErr
		}
		if len(o.CudaOptions) > 0 {
			if err := cudaOptions.Update(o.CudaOptions); err != nil {
				return err
			}
		}
		if err := sessionOptions.AppendExecutionProviderCUDA(cudaOptions); err != nil {
			return err
		}
	}
	if o.CoreMLOptions != nil {
		if err := sessionOptions.AppendExecutionProviderCoreMLV2(o.CoreMLOptions); err != nil {
			return err
		}
	}
	return nil
}

func (e *ORTEngine) InputName() string {
	return e.inputName
}

func (e *ORTEngine) OutputName() string {
	return e.outputName
}

// Run executes one forward pass. The response buffer is copied out of the
// onnxruntime-owned value before it is destroyed, so the returned tensor is
// owned by the caller.
func (e *ORTEngine) Run(ctx context.Context, inputName string, input *tensor.Tensor) (string, *tensor.Tensor, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	if inputName != "" && inputName != e.inputName {
		return "", nil, fmt.Errorf("model has no input named %q (expected %q)", inputName, e.inputName)
	}

	shape := safeconv.IntSliceToInt64Slice(input.Shape)
	inputValue, err := ort.NewTensor(ort.NewShape(shape...), input.Data)
	if err != nil {
		return "", nil, err
	}
	defer func() { _ = inputValue.Destroy() }()

	outputValues := make([]ort.Value, 1)
	if err := e.session.Run([]ort.Value{inputValue}, outputValues); err != nil {
		return "", nil, err
	}
	defer func() { _ = outputValues[0].Destroy() }()

	outputValue, ok := outputValues[0].(*ort.Tensor[float32])
	if !ok {
		return "", nil, fmt.Errorf("model output %q is not a float32 tensor", e.outputName)
	}

	data := make([]float32, len(outputValue.GetData()))
	copy(data, outputValue.GetData())
	out, err := tensor.New(safeconv.Int64SliceToIntSlice(outputValue.GetShape()), data)
	if err != nil {
		return "", nil, err
	}
	return e.outputName, out, nil
}

func (e *ORTEngine) Destroy() error {
	return errors.Join(e.session.Destroy(), e.sessionOptions.Destroy())
}
