// Package tensorimage transcodes encoded images into the fixed-shape planar
// float tensors an external inference engine consumes, and reconstructs
// displayable pixel grids from the tensors it produces.
package tensorimage

import (
	"context"
	"errors"
	"fmt"

	"github.com/knights-analytics/tensorimage/backends"
	"github.com/knights-analytics/tensorimage/options"
	"github.com/knights-analytics/tensorimage/pipelines"
	"github.com/knights-analytics/tensorimage/profiles"
	"github.com/knights-analytics/tensorimage/tensor"
	"github.com/knights-analytics/tensorimage/util/imageutil"
)

// StageError names the pipeline stage a failure came from. Stages validate
// their own preconditions and fail immediately with no partial results; no
// stage retries, so a StageError is terminal for the request.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func wrapStage(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

// ErrNoEngine is returned by Forward when the session carries no inference
// engine handle.
var ErrNoEngine = errors.New("no inference engine attached to the session")

// Session holds the parsed options and, optionally, the inference engine
// handle. The handle's existence is the initialized state: there is no
// separate setup flag. Pipelines created from one session may run
// concurrently as long as each request owns its own buffers; the engine
// handle itself is exclusive-use per active call.
type Session struct {
	options *options.Options
	engine  backends.Engine
}

// NewSession parses the given options. No engine is attached yet; attach one
// with LoadONNXModel or AttachEngine before calling Forward.
func NewSession(opts ...options.WithOption) (*Session, error) {
	parsedOptions := options.Defaults()
	for _, option := range opts {
		if err := option(parsedOptions); err != nil {
			return nil, err
		}
	}
	return &Session{options: parsedOptions}, nil
}

// LoadONNXModel opens the model through the ONNX Runtime backend and attaches
// the resulting engine handle to the session.
func (s *Session) LoadONNXModel(modelPath string) error {
	if s.engine != nil {
		return fmt.Errorf("session already has an engine attached")
	}
	engine, err := backends.NewORTEngine(modelPath, s.options)
	if err != nil {
		return err
	}
	s.engine = engine
	return nil
}

// AttachEngine attaches an externally constructed engine, replacing none.
func (s *Session) AttachEngine(engine backends.Engine) error {
	if s.engine != nil {
		return fmt.Errorf("session already has an engine attached")
	}
	s.engine = engine
	return nil
}

// NewPipeline builds a transcoding pipeline for the named profile. Unknown
// names fail with a profiles.ConfigError; there is no silent default.
func (s *Session) NewPipeline(profileName string) (*Pipeline, error) {
	profile, err := profiles.Get(profileName)
	if err != nil {
		return nil, wrapStage("profile", err)
	}
	return &Pipeline{profile: profile, engine: s.engine}, nil
}

// Destroy releases the engine handle and any backend resources.
func (s *Session) Destroy() error {
	var destroyErr error
	if s.engine != nil {
		destroyErr = s.engine.Destroy()
		s.engine = nil
	}
	return errors.Join(destroyErr, s.options.Destroy())
}

// Pipeline binds a normalization profile to the session's engine handle.
// Every method is a pure function of its inputs; a Pipeline carries no state
// across calls and is safe for concurrent use.
type Pipeline struct {
	profile *profiles.Profile
	engine  backends.Engine
}

func (p *Pipeline) Profile() *profiles.Profile {
	return p.profile
}

// Preprocess decodes encoded image bytes, scales them onto the profile's
// canvas with cover-fit center cropping, and normalizes the result into a
// [1,3,H,W] planar tensor.
func (p *Pipeline) Preprocess(ctx context.Context, encoded []byte) (*tensor.Tensor, error) {
	grid, err := imageutil.DecodeImage(ctx, encoded)
	if err != nil {
		return nil, wrapStage("decode", err)
	}
	canvas, err := imageutil.CoverResize(grid, p.profile.Width, p.profile.Height)
	if err != nil {
		return nil, wrapStage("resize", err)
	}
	input, err := pipelines.Normalize(canvas, p.profile)
	if err != nil {
		return nil, wrapStage("normalize", err)
	}
	return input, nil
}

// Forward hands the input tensor to the inference engine and returns the
// model's output tensor. The engine owns this suspension point; the pipeline
// neither retries nor inspects the output beyond its shape contract.
func (p *Pipeline) Forward(ctx context.Context, input *tensor.Tensor) (*tensor.Tensor, error) {
	if p.engine == nil {
		return nil, wrapStage("forward", ErrNoEngine)
	}
	_, output, err := p.engine.Run(ctx, p.engine.InputName(), input)
	if err != nil {
		return nil, wrapStage("forward", err)
	}
	return output, nil
}

// Postprocess reconstructs a pixel grid from an output tensor, assuming the
// output space is described by the pipeline's profile. The output dimensions
// are taken from the tensor itself, so models that change resolution (e.g.
// upscalers) reconstruct at their native output size.
func (p *Pipeline) Postprocess(output *tensor.Tensor) (*imageutil.PixelGrid, error) {
	_, height, width, err := output.PlanarDims()
	if err != nil {
		return nil, wrapStage("denormalize", err)
	}
	grid, err := pipelines.Denormalize(output, width, height, p.profile)
	if err != nil {
		return nil, wrapStage("denormalize", err)
	}
	return grid, nil
}

// PostprocessAuto reconstructs a pixel grid from an output tensor whose
// normalization scheme is unknown, inferring the mapping from the observed
// value range.
func (p *Pipeline) PostprocessAuto(output *tensor.Tensor) (*imageutil.PixelGrid, error) {
	_, height, width, err := output.PlanarDims()
	if err != nil {
		return nil, wrapStage("denormalize", err)
	}
	grid, err := pipelines.DenormalizeAuto(output, width, height)
	if err != nil {
		return nil, wrapStage("denormalize", err)
	}
	return grid, nil
}

// Run executes the full request: decode, resize, normalize, forward,
// denormalize. With autoDetect the output range heuristic picks the inverse
// mapping; otherwise the pipeline's profile describes the output space.
func (p *Pipeline) Run(ctx context.Context, encoded []byte, autoDetect bool) (*imageutil.PixelGrid, error) {
	input, err := p.Preprocess(ctx, encoded)
	if err != nil {
		return nil, err
	}
	output, err := p.Forward(ctx, input)
	if err != nil {
		return nil, err
	}
	if autoDetect {
		return p.PostprocessAuto(output)
	}
	return p.Postprocess(output)
}
