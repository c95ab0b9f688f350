package postprocess

import (
	"errors"
	"fmt"
	"math"

	"github.com/swdee/go-frcnn/postprocess/result"
	"gonum.org/v1/gonum/mat"
)

// ErrShapeMismatch is returned when the RoI head outputs given to the post
// processor have inconsistent dimensions
var ErrShapeMismatch = errors.New("roi heads output shape mismatch")

// ErrInvalidParams is returned when the post processor is configured with
// parameters it can not run with
var ErrInvalidParams = errors.New("invalid faster r-cnn parameters")

// ImageShape is the size in pixels of an image as seen by the network
type ImageShape struct {
	Height int
	Width  int
}

// RoIHeadsOutput holds the raw outputs of the Faster R-CNN box predictor for
// a batch of images before any post processing
type RoIHeadsOutput struct {
	// ClassLogits is a N x C matrix of raw class scores for the N proposals
	// of all images in the batch, column 0 being the background class
	ClassLogits *mat.Dense
	// BoxRegression is a N x 4C matrix of encoded box deltas, one set of
	// (dx, dy, dw, dh) per class
	BoxRegression *mat.Dense
	// Proposals holds a Ni x 4 matrix of [x1, y1, x2, y2] proposal boxes
	// per image.  The sum of Ni must equal N, a nil entry means the image
	// has no proposals
	Proposals []*mat.Dense
	// ImageShapes is the size of each image the proposals are relative to
	ImageShapes []ImageShape
}

// validate checks the dimensions of the outputs agree with each other and
// returns the number of classes
func (o *RoIHeadsOutput) validate() (int, error) {

	if len(o.Proposals) != len(o.ImageShapes) {
		return 0, fmt.Errorf("%w: %d proposal sets for %d image shapes",
			ErrShapeMismatch, len(o.Proposals), len(o.ImageShapes))
	}

	total := 0

	for i, p := range o.Proposals {

		shape := o.ImageShapes[i]

		if shape.Height <= 0 || shape.Width <= 0 {
			return 0, fmt.Errorf("%w: image %d has invalid shape %dx%d",
				ErrShapeMismatch, i, shape.Height, shape.Width)
		}

		if p == nil {
			continue
		}

		rows, cols := p.Dims()

		if cols != 4 {
			return 0, fmt.Errorf("%w: image %d proposals have %d columns, expected 4",
				ErrShapeMismatch, i, cols)
		}

		total += rows
	}

	if total == 0 {
		return 0, nil
	}

	if o.ClassLogits == nil || o.BoxRegression == nil {
		return 0, fmt.Errorf("%w: missing class logits or box regression for %d proposals",
			ErrShapeMismatch, total)
	}

	n, numClasses := o.ClassLogits.Dims()

	if n != total {
		return 0, fmt.Errorf("%w: %d class logit rows for %d proposals",
			ErrShapeMismatch, n, total)
	}

	if numClasses < 2 {
		return 0, fmt.Errorf("%w: %d classes, need background and at least one foreground class",
			ErrShapeMismatch, numClasses)
	}

	rn, rc := o.BoxRegression.Dims()

	if rn != n || rc != numClasses*4 {
		return 0, fmt.Errorf("%w: box regression is %dx%d, expected %dx%d",
			ErrShapeMismatch, rn, rc, n, numClasses*4)
	}

	return numClasses, nil
}

// FasterRCNN defines the struct for Faster R-CNN RoI head post processing
type FasterRCNN struct {
	// Params are the post processing configuration parameters
	Params FasterRCNNParams
	// idGen provides the next number for each detection result ID
	idGen *result.IDGenerator
}

// FasterRCNNParams defines the struct containing the Faster R-CNN
// parameters to use for post processing operations
type FasterRCNNParams struct {
	// ScoreThreshold is the class probability a detection must exceed to be
	// kept
	ScoreThreshold float64
	// NMSThreshold is the Non-Maximum Suppression threshold used for defining
	// the maximum allowed Intersection Over Union (IoU) between two
	// bounding boxes of the same class for both to be kept
	NMSThreshold float64
	// DetectionsPerImage is the maximum number of detections returned per
	// image, zero returns none
	DetectionsPerImage int
	// MinSize is the minimum width and height of a box to be kept
	MinSize float64
	// Weights scale the (dx, dy, dw, dh) box regression deltas
	Weights [4]float64
	// BBoxXformClip is the maximum value of dw and dh before exponentiation
	BBoxXformClip float64
}

// FasterRCNNCOCOParams returns an instance of FasterRCNNParams configured
// with the default values of the ResNet-50-FPN Model trained on the COCO
// dataset featuring:
// - Score Threshold: 0.05
// - NMS Threshold: 0.5
// - Detections Per Image: 100
// - Minimum Box Size: 0.01
func FasterRCNNCOCOParams() FasterRCNNParams {
	return FasterRCNNParams{
		ScoreThreshold:     0.05,
		NMSThreshold:       0.5,
		DetectionsPerImage: 100,
		MinSize:            1e-2,
		Weights:            [4]float64{10, 10, 5, 5},
		BBoxXformClip:      math.Log(1000.0 / 16),
	}
}

// NewFasterRCNN returns an instance of the Faster R-CNN post processor
func NewFasterRCNN(p FasterRCNNParams) *FasterRCNN {
	return &FasterRCNN{
		Params: p,
		idGen:  result.NewIDGenerator(),
	}
}

// FasterRCNNResult defines a struct used for the object detection results
// of a single image
type FasterRCNNResult struct {
	DetectResults []result.DetectResult
}

// GetDetectResults returns the object detection results containing bounding
// boxes
func (r FasterRCNNResult) GetDetectResults() []result.DetectResult {
	return r.DetectResults
}

// Boxes returns the [x1, y1, x2, y2] box of each detection
func (r FasterRCNNResult) Boxes() [][4]float64 {

	boxes := make([][4]float64, len(r.DetectResults))

	for i, d := range r.DetectResults {
		boxes[i] = d.Box.Array()
	}

	return boxes
}

// Scores returns the foreground class probability row of each detection
func (r FasterRCNNResult) Scores() [][]float64 {

	scores := make([][]float64, len(r.DetectResults))

	for i, d := range r.DetectResults {
		scores[i] = d.Scores
	}

	return scores
}

// Labels returns the class of each detection
func (r FasterRCNNResult) Labels() []int {

	labels := make([]int, len(r.DetectResults))

	for i, d := range r.DetectResults {
		labels[i] = d.Class
	}

	return labels
}

// candidates holds the flattened per (proposal, class) predictions of an
// image
type candidates struct {
	boxes  [][4]float64
	scores []float64
	labels []int
	// inds is the index into the flattened (proposal x foreground class)
	// predictions
	inds []int
}

// subset returns the candidates at the given positions
func (c *candidates) subset(keep []int) *candidates {

	out := &candidates{
		boxes:  make([][4]float64, len(keep)),
		scores: make([]float64, len(keep)),
		labels: make([]int, len(keep)),
		inds:   make([]int, len(keep)),
	}

	for i, k := range keep {
		out.boxes[i] = c.boxes[k]
		out.scores[i] = c.scores[k]
		out.labels[i] = c.labels[k]
		out.inds[i] = c.inds[k]
	}

	return out
}

// DetectObjects takes the RoI head outputs of a batch of images and runs the
// object detection post processing, returning one result per image in the
// order of the images in the batch.  Each detection keeps the full
// foreground probability row of the proposal it originated from
func (f *FasterRCNN) DetectObjects(out *RoIHeadsOutput) ([]FasterRCNNResult, error) {

	if f.Params.DetectionsPerImage < 0 {
		return nil, fmt.Errorf("%w: detections per image is %d, must not be negative",
			ErrInvalidParams, f.Params.DetectionsPerImage)
	}

	numClasses, err := out.validate()

	if err != nil {
		return nil, err
	}

	results := make([]FasterRCNNResult, len(out.Proposals))

	var probs *mat.Dense

	if numClasses > 0 {
		probs = Softmax(out.ClassLogits)
	}

	offset := 0

	for i, proposals := range out.Proposals {

		n := 0

		if proposals != nil {
			n, _ = proposals.Dims()
		}

		if n == 0 {
			results[i] = FasterRCNNResult{DetectResults: []result.DetectResult{}}
			continue
		}

		deltas := out.BoxRegression.Slice(offset, offset+n, 0, numClasses*4).(*mat.Dense)
		scores := probs.Slice(offset, offset+n, 0, numClasses).(*mat.Dense)

		boxes := DecodeBoxes(deltas, proposals, f.Params.Weights, f.Params.BBoxXformClip)
		ClipBoxes(boxes, out.ImageShapes[i])

		results[i] = f.detectImage(boxes, scores, numClasses)
		offset += n
	}

	return results, nil
}

// detectImage filters, suppresses and ranks the decoded boxes of a single
// image
func (f *FasterRCNN) detectImage(boxes, scores *mat.Dense, numClasses int) FasterRCNNResult {

	n, _ := scores.Dims()
	numFG := numClasses - 1

	// batch everything, making every foreground class prediction of every
	// proposal a separate instance.  the background column is skipped
	all := &candidates{
		boxes:  make([][4]float64, 0, n*numFG),
		scores: make([]float64, 0, n*numFG),
		labels: make([]int, 0, n*numFG),
		inds:   make([]int, 0, n*numFG),
	}

	for r := 0; r < n; r++ {
		boxRow := boxes.RawRowView(r)
		scoreRow := scores.RawRowView(r)

		for c := 1; c < numClasses; c++ {
			all.boxes = append(all.boxes, [4]float64{
				boxRow[c*4], boxRow[c*4+1], boxRow[c*4+2], boxRow[c*4+3],
			})
			all.scores = append(all.scores, scoreRow[c])
			all.labels = append(all.labels, c)
			all.inds = append(all.inds, r*numFG+(c-1))
		}
	}

	// remove low scoring boxes
	keep := make([]int, 0, len(all.scores))

	for i, s := range all.scores {
		if s > f.Params.ScoreThreshold {
			keep = append(keep, i)
		}
	}

	cands := all.subset(keep)

	// remove empty boxes
	cands = cands.subset(RemoveSmallBoxes(cands.boxes, f.Params.MinSize))

	// non-maximum suppression, independently done per class
	keep = BatchedNMS(cands.boxes, cands.scores, cands.labels, f.Params.NMSThreshold)

	// keep only the top scoring predictions
	if len(keep) > f.Params.DetectionsPerImage {
		keep = keep[:f.Params.DetectionsPerImage]
	}

	cands = cands.subset(keep)

	group := make([]result.DetectResult, 0, len(keep))

	for i := range cands.inds {

		// find the proposal the prediction came from
		proposal := cands.inds[i] / numFG

		// copy the foreground probabilities so results do not alias the
		// softmax matrix
		row := make([]float64, numFG)
		copy(row, scores.RawRowView(proposal)[1:])

		box := cands.boxes[i]

		group = append(group, result.DetectResult{
			ID:    f.idGen.GetNext(),
			Class: cands.labels[i],
			Box: result.BoxRect{
				Left:   box[0],
				Top:    box[1],
				Right:  box[2],
				Bottom: box[3],
			},
			Probability: cands.scores[i],
			Scores:      row,
		})
	}

	return FasterRCNNResult{
		DetectResults: group,
	}
}
