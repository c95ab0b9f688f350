package frcnn

import (
	"fmt"

	"github.com/swdee/go-frcnn/postprocess"
	"github.com/swdee/go-frcnn/preprocess"
	"gocv.io/x/gocv"
)

// sizeDivisible is the multiple the padded batch height and width are
// rounded up to so feature maps of every FPN level align
const sizeDivisible = 32

// Batch defines a struct used for concatenating a batch of image tensors of
// differing sizes together into a single zero padded NCHW float32 gocv.Mat
// for use with image batching on a Model
type Batch struct {
	mat gocv.Mat
	// size of the batch
	size int
	// width is the padded input tensor width
	width int
	// height is the padded input tensor height
	height int
	// channels is the input tensor number of channels
	channels int
	// shapes stores the unpadded size of each image added
	shapes []postprocess.ImageShape
}

// NewBatch creates a batch able to hold batchSize tensors no larger than
// height x width.  The padded dimensions are rounded up to a multiple of 32
func NewBatch(batchSize, height, width, channels int) *Batch {

	height = roundUp(height, sizeDivisible)
	width = roundUp(width, sizeDivisible)

	b := &Batch{
		size:     batchSize,
		height:   height,
		width:    width,
		channels: channels,
		mat:      gocv.NewMatWithSizes([]int{batchSize, channels, height, width}, gocv.MatTypeCV32F),
		shapes:   make([]postprocess.ImageShape, 0, batchSize),
	}

	b.zero()

	return b
}

// NewBatchFor creates a batch sized to hold the given tensors and adds them
func NewBatchFor(tensors []*preprocess.Tensor) (*Batch, error) {

	if len(tensors) == 0 {
		return nil, fmt.Errorf("no tensors to batch")
	}

	height, width := 0, 0

	for _, t := range tensors {
		height = max(height, t.Height)
		width = max(width, t.Width)
	}

	b := NewBatch(len(tensors), height, width, tensors[0].Channels)

	for i, t := range tensors {
		if err := b.Add(t); err != nil {
			b.Close()
			return nil, fmt.Errorf("error adding tensor %d to batch: %w", i, err)
		}
	}

	return b, nil
}

// roundUp returns v rounded up to the nearest multiple of m
func roundUp(v, m int) int {
	return (v + m - 1) / m * m
}

// zero clears the padding of the underlying mat
func (b *Batch) zero() {

	if data, err := b.mat.DataPtrFloat32(); err == nil {
		clear(data)
	}
}

// Add a tensor to the batch, placing it in the top left corner of its padded
// slot
func (b *Batch) Add(t *preprocess.Tensor) error {

	// check if batch is full
	if len(b.shapes) >= b.size {
		return fmt.Errorf("batch full")
	}

	if t.Channels != b.channels || t.Height > b.height || t.Width > b.width {
		return fmt.Errorf("tensor %dx%dx%d does not fit batch shape %dx%dx%d",
			t.Channels, t.Height, t.Width, b.channels, b.height, b.width)
	}

	dstAll, err := b.mat.DataPtrFloat32()

	if err != nil {
		return fmt.Errorf("error accessing float32 batch memory: %w", err)
	}

	offset := len(b.shapes) * b.imgSize()

	for c := 0; c < t.Channels; c++ {
		for y := 0; y < t.Height; y++ {
			src := t.Data[(c*t.Height+y)*t.Width : (c*t.Height+y+1)*t.Width]
			dst := offset + (c*b.height+y)*b.width
			copy(dstAll[dst:dst+t.Width], src)
		}
	}

	b.shapes = append(b.shapes, postprocess.ImageShape{Height: t.Height, Width: t.Width})

	return nil
}

// imgSize returns the number of elements of a single padded image
func (b *Batch) imgSize() int {
	return b.channels * b.height * b.width
}

// Data returns the padded NCHW data of the images added so far
func (b *Batch) Data() ([]float32, error) {

	data, err := b.mat.DataPtrFloat32()

	if err != nil {
		return nil, fmt.Errorf("error accessing float32 batch memory: %w", err)
	}

	return data[:len(b.shapes)*b.imgSize()], nil
}

// Shape returns the NCHW dimensions of the images added so far
func (b *Batch) Shape() []int64 {
	return []int64{int64(len(b.shapes)), int64(b.channels), int64(b.height), int64(b.width)}
}

// ImageShapes returns the unpadded size of each image in the batch
func (b *Batch) ImageShapes() []postprocess.ImageShape {
	return append([]postprocess.ImageShape(nil), b.shapes...)
}

// Len returns the number of images added to the batch
func (b *Batch) Len() int {
	return len(b.shapes)
}

// Mat returns the concatenated mat
func (b *Batch) Mat() gocv.Mat {
	return b.mat
}

// Clear the batch so it can be reused again
func (b *Batch) Clear() {
	b.shapes = b.shapes[:0]
	b.zero()
}

// Close the batch and free allocated memory
func (b *Batch) Close() error {
	return b.mat.Close()
}
