package options

import (
	"runtime"
)

// Options collects session configuration. The only backend this module drives
// is ONNX Runtime; the transcoding pipeline itself has no options beyond the
// profile it runs under.
type Options struct {
	ORTOptions *OrtOptions
	Destroy    func() error
}

func Defaults() *Options {
	libraryPathDefault := defaultLibraryPath()
	return &Options{
		ORTOptions: &OrtOptions{
			LibraryPath: &libraryPathDefault,
		},
		Destroy: func() error {
			return nil
		},
	}
}

func defaultLibraryPath() string {
	switch runtime.GOOS {
	case "windows":
		return `.\onnxruntime.dll`
	case "darwin":
		return "/usr/local/lib/libonnxruntime.dylib"
	default:
		return "/usr/lib/libonnxruntime.so"
	}
}

type OrtOptions struct {
	LibraryPath       *string
	Telemetry         *bool
	IntraOpNumThreads *int
	InterOpNumThreads *int
	CPUMemArena       *bool
	MemPattern        *bool
	CudaOptions       map[string]string
	CoreMLOptions     map[string]string
}

// WithOption is the interface for all option functions.
type WithOption func(o *Options) error

// WithOnnxLibraryPath sets the path to the onnxruntime shared library file.
func WithOnnxLibraryPath(ortLibraryPath string) WithOption {
	return func(o *Options) error {
		o.ORTOptions.LibraryPath = &ortLibraryPath
		return nil
	}
}

// WithTelemetry enables telemetry events for the onnxruntime environment. Default is off.
func WithTelemetry() WithOption {
	return func(o *Options) error {
		enabled := true
		o.ORTOptions.Telemetry = &enabled
		return nil
	}
}

// WithIntraOpNumThreads sets the number of threads used to parallelize execution
// within onnxruntime graph nodes. If unspecified, onnxruntime uses the number of physical CPU cores.
func WithIntraOpNumThreads(numThreads int) WithOption {
	return func(o *Options) error {
		o.ORTOptions.IntraOpNumThreads = &numThreads
		return nil
	}
}

// WithInterOpNumThreads sets the number of threads used to parallelize execution
// across separate onnxruntime graph nodes.
func WithInterOpNumThreads(numThreads int) WithOption {
	return func(o *Options) error {
		o.ORTOptions.InterOpNumThreads = &numThreads
		return nil
	}
}

// WithCPUMemArena enables or disables the memory arena on CPU.
func WithCPUMemArena(enable bool) WithOption {
	return func(o *Options) error {
		o.ORTOptions.CPUMemArena = &enable
		return nil
	}
}

// WithMemPattern enables or disables the memory pattern optimization.
func WithMemPattern(enable bool) WithOption {
	return func(o *Options) error {
		o.ORTOptions.MemPattern = &enable
		return nil
	}
}

// WithCuda enables the CUDA execution provider with the given provider options.
func WithCuda(options map[string]string) WithOption {
	return func(o *Options) error {
		o.ORTOptions.CudaOptions = options
		return nil
	}
}

// WithCoreML enables the CoreML execution provider with the given flags.
func WithCoreML(flags map[string]string) WithOption {
	return func(o *Options) error {
		o.ORTOptions.CoreMLOptions = flags
		return nil
	}
}
