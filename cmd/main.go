package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/knights-analytics/tensorimage"
	"github.com/knights-analytics/tensorimage/options"
	"github.com/knights-analytics/tensorimage/profiles"
	"github.com/knights-analytics/tensorimage/tensor"
	"github.com/knights-analytics/tensorimage/util/fileutil"
	"github.com/knights-analytics/tensorimage/util/imageutil"
	util "github.com/knights-analytics/tensorimage/utils"
)

var inputPath string
var outputPath string
var profileName string
var modelPath string
var sharedLibraryPath string
var autoDetect bool

type runSummary struct {
	Input        string  `json:"input"`
	Profile      string  `json:"profile"`
	InputShape   []int   `json:"inputShape"`
	OutputShape  []int   `json:"outputShape,omitempty"`
	OutputWidth  int     `json:"outputWidth"`
	OutputHeight int     `json:"outputHeight"`
	TensorMin    float32 `json:"tensorMin"`
	TensorMax    float32 `json:"tensorMax"`
	TensorMean   float32 `json:"tensorMean"`
	Output       string  `json:"output,omitempty"`
}

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "Transcode an image through a normalization profile and back",
	Description: `Run decodes an image, scales it onto the profile canvas with cover-fit
center cropping, and normalizes it into a planar float tensor. With --model the
tensor is sent through the ONNX model and the output tensor is reconstructed
into an image; without it the input tensor is reconstructed directly, which
round-trips the preprocessing. The reconstructed image is written as PNG when
--output is given. If --input is omitted the image bytes are read from stdin.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "input",
			Usage:       "Path or URL of the image to process",
			Aliases:     []string{"i"},
			Destination: &inputPath,
		},
		&cli.StringFlag{
			Name:        "output",
			Usage:       "Path to write the reconstructed PNG to",
			Aliases:     []string{"o"},
			Destination: &outputPath,
		},
		&cli.StringFlag{
			Name:        "profile",
			Usage:       fmt.Sprintf("Normalization profile, one of: %v", profiles.Names()),
			Aliases:     []string{"p"},
			Destination: &profileName,
			Value:       "imagenet-224",
		},
		&cli.StringFlag{
			Name:        "model",
			Usage:       "Path to a .onnx model to run the tensor through (requires a build with -tags ORT)",
			Aliases:     []string{"m"},
			Destination: &modelPath,
		},
		&cli.StringFlag{
			Name:        "onnxruntimeSharedLibrary",
			Usage:       "Path to the onnxruntime shared library",
			Aliases:     []string{"s"},
			Destination: &sharedLibraryPath,
		},
		&cli.BoolFlag{
			Name:        "auto",
			Usage:       "Infer the output normalization scheme from the observed value range",
			Aliases:     []string{"a"},
			Destination: &autoDetect,
		},
	},
	Action: runAction,
}

func runAction(ctx *cli.Context) (err error) {
	var sessionOpts []options.WithOption
	if sharedLibraryPath != "" {
		sessionOpts = append(sessionOpts, options.WithOnnxLibraryPath(sharedLibraryPath))
	}

	session, err := tensorimage.NewSession(sessionOpts...)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, session.Destroy())
	}()

	if modelPath != "" {
		if err := session.LoadONNXModel(modelPath); err != nil {
			return err
		}
	}

	pipeline, err := session.NewPipeline(profileName)
	if err != nil {
		return err
	}

	encoded, inputName, err := readInput(ctx)
	if err != nil {
		return err
	}

	input, err := pipeline.Preprocess(ctx.Context, encoded)
	if err != nil {
		return err
	}

	output := input
	summary := runSummary{
		Input:      inputName,
		Profile:    profileName,
		InputShape: input.Dims(),
	}
	if modelPath != "" {
		output, err = pipeline.Forward(ctx.Context, input)
		if err != nil {
			return err
		}
		summary.OutputShape = output.Dims()
	}

	grid, err := reconstruct(pipeline, output)
	if err != nil {
		return err
	}

	minValue, maxValue, err := util.MinMax(output.Data)
	if err != nil {
		return err
	}
	summary.TensorMin = minValue
	summary.TensorMax = maxValue
	summary.TensorMean = util.Mean(output.Data)
	summary.OutputWidth = grid.Width
	summary.OutputHeight = grid.Height

	if outputPath != "" {
		encodedPNG, encodeErr := imageutil.EncodePNG(grid)
		if encodeErr != nil {
			return encodeErr
		}
		if err := fileutil.WriteFileBytes(ctx.Context, outputPath, encodedPNG, "image/png"); err != nil {
			return err
		}
		summary.Output = outputPath
	}

	line, err := jsoniter.Marshal(summary)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(line))
	return err
}

func reconstruct(pipeline *tensorimage.Pipeline, output *tensor.Tensor) (*imageutil.PixelGrid, error) {
	if autoDetect {
		return pipeline.PostprocessAuto(output)
	}
	return pipeline.Postprocess(output)
}

func readInput(ctx *cli.Context) ([]byte, string, error) {
	if inputPath != "" {
		encoded, err := fileutil.ReadFileBytes(ctx.Context, inputPath)
		return encoded, inputPath, err
	}
	if isatty.IsTerminal(os.Stdin.Fd()) {
		return nil, "", fmt.Errorf("no --input provided and stdin is a terminal")
	}
	encoded, err := io.ReadAll(os.Stdin)
	return encoded, "stdin", err
}

func main() {
	app := &cli.App{
		Name:     "tensorimage",
		Usage:    "transcode images to inference tensors and back",
		Commands: []*cli.Command{runCommand},
	}
	if err := app.Run(os.Args); err != nil {
		_, writeErr := os.Stderr.WriteString(err.Error() + "\n")
		if writeErr != nil {
			panic(writeErr)
		}
		os.Exit(1)
	}
}
