package frcnn

import (
	"context"

	"github.com/swdee/go-frcnn/postprocess"
	"go.uber.org/zap"
)

// Backbone runs the Faster R-CNN network up to and including the RoI box
// head, returning the raw predictions for a batch of images
type Backbone interface {
	Forward(ctx context.Context, batch *Batch) (*postprocess.RoIHeadsOutput, error)
	// Device returns the hardware the network runs on
	Device() Device
	Close() error
}

// Loader loads a Backbone from a model file
type Loader interface {
	Load(modelFile string, useCUDA bool, log *zap.Logger) (Backbone, error)
}

// LoaderFunc adapts a function to the Loader interface
type LoaderFunc func(modelFile string, useCUDA bool, log *zap.Logger) (Backbone, error)

// Load calls f
func (f LoaderFunc) Load(modelFile string, useCUDA bool, log *zap.Logger) (Backbone, error) {
	return f(modelFile, useCUDA, log)
}

// ONNXLoader loads the Backbone through ONNX Runtime
var ONNXLoader Loader = LoaderFunc(func(modelFile string, useCUDA bool,
	log *zap.Logger) (Backbone, error) {

	rt, err := NewRuntime(modelFile, useCUDA, log)

	if err != nil {
		return nil, err
	}

	return rt, nil
})
