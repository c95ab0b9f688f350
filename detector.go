package frcnn

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/swdee/go-frcnn/bbox"
	"github.com/swdee/go-frcnn/classification"
	"github.com/swdee/go-frcnn/detection"
	"github.com/swdee/go-frcnn/postprocess"
	"github.com/swdee/go-frcnn/preprocess"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// PluginName is the name the detector is registered under
const PluginName = "ResNetFRCNN"

// image resize limits of the torchvision ResNet-50-FPN Faster R-CNN
const (
	resizeMinSize = 800
	resizeMaxSize = 1333
)

// ErrLabelMismatch is returned when the Model predicts more classes than
// the label vocabulary holds
var ErrLabelMismatch = errors.New("label vocabulary does not cover model classes")

func init() {
	detection.RegisterDetector(PluginName, detection.Plugin{
		IsUsable: IsUsable,
		New: func(config map[string]any) (detection.DetectImageObjects, error) {
			return FromConfig(config)
		},
	})
}

// IsUsable reports if the ONNX Runtime shared library can be loaded on
// this host
func IsUsable() bool {
	return InitEnvironment() == nil
}

// ResNetFRCNN detects objects in images with a ResNet-50-FPN Faster R-CNN,
// returning the full foreground class probability distribution of every
// detection
type ResNetFRCNN struct {
	cfg          Config
	nmsThreshold float64
	loader       Loader
	log          *zap.Logger

	// mu guards the lazily loaded Model, labels and post processor
	mu       sync.Mutex
	backbone Backbone
	labels   []string
	proc     *postprocess.FasterRCNN
}

// Option configures a ResNetFRCNN
type Option func(*ResNetFRCNN)

// WithLoader sets the Loader used to load the Model
func WithLoader(l Loader) Option {
	return func(d *ResNetFRCNN) {
		d.loader = l
	}
}

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(d *ResNetFRCNN) {
		d.log = log
	}
}

// WithNMSThreshold sets the IoU above which overlapping detections of the
// same class are suppressed
func WithNMSThreshold(thresh float64) Option {
	return func(d *ResNetFRCNN) {
		d.nmsThreshold = thresh
	}
}

// NewResNetFRCNN returns a detector for the given Config.  The Model is not
// loaded until first needed
func NewResNetFRCNN(cfg Config, opts ...Option) (*ResNetFRCNN, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &ResNetFRCNN{
		cfg:          cfg,
		nmsThreshold: postprocess.FasterRCNNCOCOParams().NMSThreshold,
		loader:       ONNXLoader,
		log:          zap.NewNop(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// FromConfig returns a detector from a configuration map, see Config for the
// keys used
func FromConfig(m map[string]any, opts ...Option) (*ResNetFRCNN, error) {

	cfg, err := DecodeConfig(m)

	if err != nil {
		return nil, err
	}

	return NewResNetFRCNN(cfg, opts...)
}

// Config returns the parameters the detector was constructed with
func (d *ResNetFRCNN) Config() map[string]any {
	return d.cfg.Map()
}

// GetModel loads the Model on first call and returns it.  Subsequent calls
// return the same Model, a failed load is attempted again on the next call
func (d *ResNetFRCNN) GetModel() (Backbone, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.backbone != nil {
		return d.backbone, nil
	}

	labels := COCOInstanceCategoryNames

	if d.cfg.LabelsFile != "" {
		var err error
		labels, err = LoadLabels(d.cfg.LabelsFile)

		if err != nil {
			return nil, fmt.Errorf("error loading labels: %w", err)
		}
	}

	backbone, err := d.loader.Load(d.cfg.ModelFile, d.cfg.UseCUDA, d.log)

	if err != nil {
		return nil, fmt.Errorf("error loading model: %w", err)
	}

	if d.cfg.UseCUDA && backbone.Device() != DeviceCUDA {
		d.log.Warn("CUDA requested but model is running on CPU",
			zap.String("model", d.cfg.ModelFile),
			zap.Stringer("device", backbone.Device()))
	}

	params := postprocess.FasterRCNNCOCOParams()
	params.ScoreThreshold = d.cfg.BoxThresh
	params.DetectionsPerImage = d.cfg.NumDets
	params.NMSThreshold = d.nmsThreshold

	d.labels = labels
	d.proc = postprocess.NewFasterRCNN(params)
	d.backbone = backbone

	d.log.Info("model loaded", zap.String("model", d.cfg.ModelFile),
		zap.Stringer("device", backbone.Device()),
		zap.Int("labels", len(labels)))

	return backbone, nil
}

// Close frees the Model if it was loaded
func (d *ResNetFRCNN) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.backbone == nil {
		return nil
	}

	err := d.backbone.Close()
	d.backbone = nil

	return err
}

// prepared is an image resized and converted for the Model
type prepared struct {
	tensor  *preprocess.Tensor
	resizer *preprocess.Resizer
}

// DetectObjects locates objects in each of the BGR images given.  Images are
// run through the Model in batches of ImgBatchSize, one slice of detections is
// returned per image in the order given
func (d *ResNetFRCNN) DetectObjects(ctx context.Context, imgs []gocv.Mat) ([][]detection.Detection, error) {

	backbone, err := d.GetModel()

	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	proc, labels := d.proc, d.labels
	d.mu.Unlock()

	dets := make([][]detection.Detection, 0, len(imgs))

	for start := 0; start < len(imgs); start += d.cfg.ImgBatchSize {

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := min(start+d.cfg.ImgBatchSize, len(imgs))

		batchDets, err := d.detectBatch(ctx, backbone, proc, labels, imgs[start:end])

		if err != nil {
			return nil, fmt.Errorf("error detecting images %d to %d: %w", start, end-1, err)
		}

		d.log.Debug("batch processed", zap.Int("start", start),
			zap.Int("images", end-start))

		dets = append(dets, batchDets...)
	}

	return dets, nil
}

// detectBatch runs a single batch of images through the Model and post
// processor
func (d *ResNetFRCNN) detectBatch(ctx context.Context, backbone Backbone,
	proc *postprocess.FasterRCNN, labels []string,
	imgs []gocv.Mat) ([][]detection.Detection, error) {

	preps := make([]prepared, len(imgs))
	tensors := make([]*preprocess.Tensor, len(imgs))

	for i, img := range imgs {
		p, err := prepare(img)

		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}

		preps[i] = p
		tensors[i] = p.tensor
	}

	batch, err := NewBatchFor(tensors)

	if err != nil {
		return nil, err
	}

	defer batch.Close()

	out, err := backbone.Forward(ctx, batch)

	if err != nil {
		return nil, fmt.Errorf("error running model: %w", err)
	}

	results, err := proc.DetectObjects(out)

	if err != nil {
		return nil, fmt.Errorf("error post processing: %w", err)
	}

	if len(results) != len(imgs) {
		return nil, fmt.Errorf("%w: %d results for %d images",
			postprocess.ErrShapeMismatch, len(results), len(imgs))
	}

	dets := make([][]detection.Detection, len(imgs))

	for i, res := range results {
		dets[i], err = toDetections(res, preps[i].resizer, labels)

		if err != nil {
			return nil, err
		}
	}

	return dets, nil
}

// prepare resizes an image to the Model input scale and converts it to a
// tensor
func prepare(img gocv.Mat) (prepared, error) {

	if img.Empty() {
		return prepared{}, fmt.Errorf("%w: empty Mat", preprocess.ErrInvalidImage)
	}

	resizer := preprocess.NewResizer(img.Cols(), img.Rows(), resizeMinSize, resizeMaxSize)

	resized := gocv.NewMat()
	defer resized.Close()

	resizer.Resize(img, &resized)

	tensor, err := preprocess.ToTensor(resized)

	if err != nil {
		return prepared{}, err
	}

	return prepared{tensor: tensor, resizer: resizer}, nil
}

// toDetections converts the post processor results of an image into
// detections in source image coordinates.  Probability row entry i belongs
// to label i+1 as label 0 is the background class
func toDetections(res postprocess.FasterRCNNResult, resizer *preprocess.Resizer,
	labels []string) ([]detection.Detection, error) {

	dets := make([]detection.Detection, 0, len(res.DetectResults))

	for _, r := range res.DetectResults {

		if len(r.Scores) >= len(labels) {
			return nil, fmt.Errorf("%w: %d foreground classes, %d labels",
				ErrLabelMismatch, len(r.Scores), len(labels))
		}

		b := resizer.ScaleBox(r.Box.Array())

		box, err := bbox.New([]float64{b[0], b[1]}, []float64{b[2], b[3]})

		if err != nil {
			return nil, fmt.Errorf("error creating bounding box: %w", err)
		}

		scores := make(classification.ClassScores, len(r.Scores))

		for i, s := range r.Scores {
			scores[classification.Category{ID: i + 1, Name: labels[i+1]}] = s
		}

		dets = append(dets, detection.Detection{
			Box:    box,
			Scores: scores,
		})
	}

	return dets, nil
}
