package frcnn

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/swdee/go-frcnn/postprocess"
	"gonum.org/v1/gonum/mat"
)

// roiOutputs returns model outputs for 3 proposals split between images
func roiOutputs(counts []int64) *Outputs {
	return &Outputs{
		Output: []Output{
			{Name: outputClassLogits, Shape: []int64{3, 2}, BufFloat: []float32{0, 1, 0, 2, 0, 3}},
			{Name: outputBoxRegression, Shape: []int64{3, 8}, BufFloat: make([]float32, 24)},
			{Name: outputProposals, Shape: []int64{3, 4}, BufFloat: []float32{
				0, 0, 10, 10,
				1, 1, 11, 11,
				2, 2, 12, 12,
			}},
			{Name: outputProposalCounts, Shape: []int64{int64(len(counts))}, BufInt: counts},
		},
	}
}

func TestOutputsRoIHeads(t *testing.T) {

	shapes := []postprocess.ImageShape{
		{Height: 100, Width: 100},
		{Height: 50, Width: 80},
		{Height: 60, Width: 60},
	}

	res, err := roiOutputs([]int64{2, 0, 1}).RoIHeads(shapes)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Proposals[1] != nil {
		t.Error("expected no proposals for image 1")
	}

	want := mat.NewDense(1, 4, []float64{2, 2, 12, 12})

	if !mat.Equal(want, res.Proposals[2]) {
		t.Errorf("expected image 2 proposals %v, got %v", mat.Formatted(want), mat.Formatted(res.Proposals[2]))
	}

	if r, _ := res.Proposals[0].Dims(); r != 2 {
		t.Errorf("expected 2 proposals for image 0, got %d", r)
	}

	if diff := cmp.Diff(shapes, res.ImageShapes); diff != "" {
		t.Errorf("image shapes mismatch (-want +got):\n%s", diff)
	}
}

func TestOutputsRoIHeadsMismatch(t *testing.T) {

	tests := []struct {
		name   string
		counts []int64
		shapes int
	}{
		{"counts exceed proposals", []int64{2, 2}, 2},
		{"counts below proposals", []int64{1, 1}, 2},
		{"image count differs", []int64{3}, 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			shapes := make([]postprocess.ImageShape, tc.shapes)

			_, err := roiOutputs(tc.counts).RoIHeads(shapes)

			if !errors.Is(err, postprocess.ErrShapeMismatch) {
				t.Errorf("expected ErrShapeMismatch, got %v", err)
			}
		})
	}

	if _, err := (&Outputs{}).RoIHeads(nil); err == nil {
		t.Error("expected error for missing outputs")
	}
}

func TestFloat16Conversion(t *testing.T) {

	in := []float32{0, 1, -2.5, 0.125, 65504}

	got := float16BytesToFloat32(float32ToFloat16Bytes(in))

	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("float16 conversion mismatch (-want +got):\n%s", diff)
	}
}
