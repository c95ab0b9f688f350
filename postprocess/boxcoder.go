package postprocess

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Softmax converts each row of raw class logits into a probability
// distribution across all columns
func Softmax(logits *mat.Dense) *mat.Dense {

	rows, cols := logits.Dims()
	probs := mat.NewDense(rows, cols, nil)

	for r := 0; r < rows; r++ {
		src := logits.RawRowView(r)
		dst := probs.RawRowView(r)

		// subtract the row maximum for numerical stability
		max := floats.Max(src)

		for c, v := range src {
			dst[c] = math.Exp(v - max)
		}

		floats.Scale(1/floats.Sum(dst), dst)
	}

	return probs
}

// DecodeBoxes applies the per class box regression deltas to the proposal
// boxes they were predicted for.  Deltas is a N x 4C matrix of encoded
// (dx, dy, dw, dh) values for each of the C classes and proposals is a N x 4
// matrix in [x1, y1, x2, y2] format.  The returned N x 4C matrix holds the
// decoded [x1, y1, x2, y2] box per class.  Weights scale down the deltas and
// xformClip caps dw and dh before exponentiation
func DecodeBoxes(deltas, proposals *mat.Dense, weights [4]float64,
	xformClip float64) *mat.Dense {

	rows, cols := deltas.Dims()
	boxes := mat.NewDense(rows, cols, nil)

	wx, wy, ww, wh := weights[0], weights[1], weights[2], weights[3]

	for r := 0; r < rows; r++ {
		p := proposals.RawRowView(r)

		width := p[2] - p[0]
		height := p[3] - p[1]
		ctrX := p[0] + 0.5*width
		ctrY := p[1] + 0.5*height

		src := deltas.RawRowView(r)
		dst := boxes.RawRowView(r)

		for c := 0; c+3 < cols; c += 4 {
			dx := src[c] / wx
			dy := src[c+1] / wy
			dw := math.Min(src[c+2]/ww, xformClip)
			dh := math.Min(src[c+3]/wh, xformClip)

			predCtrX := dx*width + ctrX
			predCtrY := dy*height + ctrY
			predW := math.Exp(dw) * width
			predH := math.Exp(dh) * height

			dst[c] = predCtrX - 0.5*predW
			dst[c+1] = predCtrY - 0.5*predH
			dst[c+2] = predCtrX + 0.5*predW
			dst[c+3] = predCtrY + 0.5*predH
		}
	}

	return boxes
}

// ClipBoxes clips every [x1, y1, x2, y2] box held in the rows of boxes to
// the image extent [0, width] x [0, height]
func ClipBoxes(boxes *mat.Dense, shape ImageShape) {

	rows, cols := boxes.Dims()
	w := float64(shape.Width)
	h := float64(shape.Height)

	for r := 0; r < rows; r++ {
		row := boxes.RawRowView(r)

		for c := 0; c+3 < cols; c += 4 {
			row[c] = clamp(row[c], 0, w)
			row[c+1] = clamp(row[c+1], 0, h)
			row[c+2] = clamp(row[c+2], 0, w)
			row[c+3] = clamp(row[c+3], 0, h)
		}
	}
}

// RemoveSmallBoxes returns the indices of boxes whose width and height are
// both at least minSize
func RemoveSmallBoxes(boxes [][4]float64, minSize float64) []int {

	keep := make([]int, 0, len(boxes))

	for i, b := range boxes {
		if b[2]-b[0] >= minSize && b[3]-b[1] >= minSize {
			keep = append(keep, i)
		}
	}

	return keep
}
