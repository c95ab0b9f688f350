package preprocess

import (
	"image"
	"math"

	"gocv.io/x/gocv"
)

// Resizer defines the struct used for scaling an image so its shortest side
// matches the minimum size the detection network was trained on, without the
// longest side exceeding the maximum size.  It also maps boxes found on the
// resized image back to the source image
type Resizer struct {
	// srcWidth is the width of the source image
	srcWidth int
	// srcHeight is the height of the source image
	srcHeight int
	// minSize is the size the shortest image side is scaled to
	minSize int
	// maxSize is the limit of the longest image side
	maxSize int
	// scale is the factor applied to both image sides
	scale float64
	// resize dimensions
	resizeW int
	resizeH int
}

// NewResizer returns a resizer for source images of the given dimensions
func NewResizer(srcWidth, srcHeight, minSize, maxSize int) *Resizer {
	r := &Resizer{
		srcWidth:  srcWidth,
		srcHeight: srcHeight,
		minSize:   minSize,
		maxSize:   maxSize,
	}

	// precalculate scaling dimensions
	r.preCalc()

	return r
}

// preCalc the scaling factor and resized dimensions
func (r *Resizer) preCalc() {

	shortSide := float64(min(r.srcWidth, r.srcHeight))
	longSide := float64(max(r.srcWidth, r.srcHeight))

	r.scale = float64(r.minSize) / shortSide

	if longSide*r.scale > float64(r.maxSize) {
		r.scale = float64(r.maxSize) / longSide
	}

	r.resizeW = int(math.Floor(float64(r.srcWidth) * r.scale))
	r.resizeH = int(math.Floor(float64(r.srcHeight) * r.scale))
}

// Resize scales the src image into dest using bilinear interpolation
func (r *Resizer) Resize(src gocv.Mat, dest *gocv.Mat) {
	gocv.Resize(src, dest, image.Pt(r.resizeW, r.resizeH), 0, 0,
		gocv.InterpolationLinear)
}

// ScaleBox maps an [x1, y1, x2, y2] box on the resized image back to the
// coordinates of the source image
func (r *Resizer) ScaleBox(box [4]float64) [4]float64 {

	ratioW := float64(r.srcWidth) / float64(r.resizeW)
	ratioH := float64(r.srcHeight) / float64(r.resizeH)

	return [4]float64{
		box[0] * ratioW,
		box[1] * ratioH,
		box[2] * ratioW,
		box[3] * ratioH,
	}
}

// ScaleFactor returns the scale factor used in resize
func (r *Resizer) ScaleFactor() float64 {
	return r.scale
}

// ResizedWidth returns the width of the resized image
func (r *Resizer) ResizedWidth() int {
	return r.resizeW
}

// ResizedHeight returns the height of the resized image
func (r *Resizer) ResizedHeight() int {
	return r.resizeH
}
