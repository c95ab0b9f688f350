package frcnn

import (
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// Device is the hardware a Model is run on
type Device int

const (
	DeviceCPU Device = iota
	DeviceCUDA
)

// String returns a readable name of the device
func (d Device) String() string {
	switch d {
	case DeviceCPU:
		return "cpu"
	case DeviceCUDA:
		return "cuda"
	default:
		return fmt.Sprintf("unknown device %d", int(d))
	}
}

// SharedLibraryEnv is the environment variable holding the path of the ONNX
// Runtime shared library
const SharedLibraryEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

// Model input and output tensor names of an exported Faster R-CNN with the
// RoI head post processing removed
const (
	inputImages          = "images"
	inputImageSizes      = "image_sizes"
	outputClassLogits    = "class_logits"
	outputBoxRegression  = "box_regression"
	outputProposals      = "proposals"
	outputProposalCounts = "proposal_counts"
)

var (
	inputNames  = []string{inputImages, inputImageSizes}
	outputNames = []string{outputClassLogits, outputBoxRegression,
		outputProposals, outputProposalCounts}
)

var (
	envOnce sync.Once
	envErr  error
)

// InitEnvironment loads the ONNX Runtime shared library and initializes its
// environment.  It is safe to call multiple times, the result of the first
// call is returned on every call
func InitEnvironment() error {

	envOnce.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				envErr = fmt.Errorf("error loading onnxruntime: %v", r)
			}
		}()

		if path := os.Getenv(SharedLibraryEnv); path != "" {
			ort.SetSharedLibraryPath(path)
		}

		if err := ort.InitializeEnvironment(); err != nil {
			envErr = fmt.Errorf("error initializing onnxruntime environment: %w", err)
		}
	})

	return envErr
}

// Runtime defines the ONNX Runtime instance running the Faster R-CNN backbone,
// region proposal network and box head
type Runtime struct {
	// session is the ONNX Runtime session of the loaded Model
	session *ort.DynamicAdvancedSession
	// device the session runs on
	device Device
	// inputAttrs caches the input tensor information of the Model
	inputAttrs []ort.InputOutputInfo
	// outputAttrs caches the output tensor information of the Model
	outputAttrs []ort.InputOutputInfo
	// inputFloat16 indicates the Model takes half precision images
	inputFloat16 bool
	log          *zap.Logger
}

// NewRuntime returns an ONNX Runtime instance.  Provide the full path and
// filename of the ONNX model file to run.  When useCUDA is set the CUDA
// execution provider is requested, if it is not available the Model is run
// on the CPU instead
func NewRuntime(modelFile string, useCUDA bool, log *zap.Logger) (*Runtime, error) {

	if log == nil {
		log = zap.NewNop()
	}

	r := &Runtime{
		log: log,
	}

	err := r.init(modelFile, useCUDA)

	if err != nil {
		return nil, err
	}

	return r, nil
}

// init checks the model file, queries its tensors and creates the session
func (r *Runtime) init(modelFile string, useCUDA bool) error {

	// check file exists before handing to onnxruntime
	info, err := os.Stat(modelFile)

	if err != nil {
		return fmt.Errorf("model file does not exist at %s, error: %w",
			modelFile, err)
	}

	if info.IsDir() {
		return fmt.Errorf("model file is a directory")
	}

	if err := InitEnvironment(); err != nil {
		return err
	}

	r.inputAttrs, r.outputAttrs, err = ort.GetInputOutputInfo(modelFile)

	if err != nil {
		return fmt.Errorf("error querying model tensors: %w", err)
	}

	if err := r.checkTensors(); err != nil {
		return err
	}

	options, err := ort.NewSessionOptions()

	if err != nil {
		return fmt.Errorf("error creating session options: %w", err)
	}

	defer options.Destroy()

	r.device = DeviceCPU

	if useCUDA {
		if err := appendCUDA(options); err != nil {
			r.log.Warn("CUDA execution provider unavailable, running on CPU",
				zap.String("model", modelFile), zap.Error(err))
		} else {
			r.device = DeviceCUDA
		}
	}

	r.session, err = ort.NewDynamicAdvancedSession(modelFile, inputNames,
		outputNames, options)

	if err != nil {
		return fmt.Errorf("error creating onnxruntime session: %w", err)
	}

	r.log.Debug("loaded model", zap.String("model", modelFile),
		zap.Stringer("device", r.device),
		zap.Bool("float16", r.inputFloat16))

	return nil
}

// appendCUDA adds the CUDA execution provider to the session options
func appendCUDA(options *ort.SessionOptions) error {

	cudaOpts, err := ort.NewCUDAProviderOptions()

	if err != nil {
		return err
	}

	defer cudaOpts.Destroy()

	if err := cudaOpts.Update(map[string]string{"device_id": "0"}); err != nil {
		return err
	}

	return options.AppendExecutionProviderCUDA(cudaOpts)
}

// checkTensors confirms the Model has the inputs and outputs needed and
// detects if it was exported with half precision images
func (r *Runtime) checkTensors() error {

	for _, name := range inputNames {
		attr, ok := findTensor(r.inputAttrs, name)

		if !ok {
			return fmt.Errorf("model is missing input tensor %q", name)
		}

		if name == inputImages {
			r.inputFloat16 = attr.DataType == ort.TensorElementDataTypeFloat16
		}
	}

	for _, name := range outputNames {
		if _, ok := findTensor(r.outputAttrs, name); !ok {
			return fmt.Errorf("model is missing output tensor %q", name)
		}
	}

	return nil
}

// findTensor returns the tensor information with the given name
func findTensor(attrs []ort.InputOutputInfo, name string) (ort.InputOutputInfo, bool) {

	for _, a := range attrs {
		if a.Name == name {
			return a, true
		}
	}

	return ort.InputOutputInfo{}, false
}

// Device returns the hardware the Model runs on
func (r *Runtime) Device() Device {
	return r.device
}

// Close the runtime and free the session
func (r *Runtime) Close() error {

	if r.session == nil {
		return nil
	}

	err := r.session.Destroy()
	r.session = nil

	return err
}
