package frcnn

import (
	"errors"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// ErrInvalidConfig is returned when the detector configuration is out of
// range
var ErrInvalidConfig = errors.New("invalid detector config")

// Config defines the parameters of the ResNet-FRCNN detector
type Config struct {
	// BoxThresh is the class probability a detection must exceed to be
	// returned
	BoxThresh float64 `mapstructure:"box_thresh"`
	// NumDets is the maximum number of detections returned per image
	NumDets int `mapstructure:"num_dets"`
	// ImgBatchSize is the number of images run through the Model at once
	ImgBatchSize int `mapstructure:"img_batch_size"`
	// UseCUDA requests the Model be run on a CUDA device when one is
	// available
	UseCUDA bool `mapstructure:"use_cuda"`
	// ModelFile is the path of the exported ONNX Model
	ModelFile string `mapstructure:"model_file"`
	// LabelsFile is an optional label vocabulary, one label per line.  The
	// COCO vocabulary is used when empty
	LabelsFile string `mapstructure:"labels_file"`
}

// DefaultConfig returns a Config with the default values of the detector:
// - Box Threshold: 0.05
// - Number of Detections: 100
// - Image Batch Size: 1
// - Use CUDA: false
func DefaultConfig() Config {
	return Config{
		BoxThresh:    0.05,
		NumDets:      100,
		ImgBatchSize: 1,
		ModelFile:    "fasterrcnn_resnet50_fpn.onnx",
	}
}

// Validate checks the Config values are within range
func (c Config) Validate() error {

	if c.BoxThresh < 0 || c.BoxThresh > 1 {
		return fmt.Errorf("%w: box_thresh %f must be within [0, 1]",
			ErrInvalidConfig, c.BoxThresh)
	}

	if c.NumDets <= 0 {
		return fmt.Errorf("%w: num_dets %d must be positive", ErrInvalidConfig, c.NumDets)
	}

	if c.ImgBatchSize <= 0 {
		return fmt.Errorf("%w: img_batch_size %d must be positive",
			ErrInvalidConfig, c.ImgBatchSize)
	}

	return nil
}

// Map returns the Config in map form, the inverse of DecodeConfig
func (c Config) Map() map[string]any {
	return map[string]any{
		"box_thresh":     c.BoxThresh,
		"num_dets":       c.NumDets,
		"img_batch_size": c.ImgBatchSize,
		"use_cuda":       c.UseCUDA,
		"model_file":     c.ModelFile,
		"labels_file":    c.LabelsFile,
	}
}

// DecodeConfig decodes a configuration map on top of DefaultConfig.  Keys
// not present keep their default values and unknown keys are an error
func DecodeConfig(m map[string]any) (Config, error) {

	c := DefaultConfig()

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &c,
	})

	if err != nil {
		return Config{}, err
	}

	if err := dec.Decode(m); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}

	return c, nil
}
