package frcnn

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/swdee/go-frcnn/postprocess"
	"github.com/swdee/go-frcnn/preprocess"
)

// seqTensor returns a tensor whose values count up from start
func seqTensor(channels, height, width int, start float32) *preprocess.Tensor {

	t := &preprocess.Tensor{
		Data:     make([]float32, channels*height*width),
		Channels: channels,
		Height:   height,
		Width:    width,
	}

	for i := range t.Data {
		t.Data[i] = start + float32(i)
	}

	return t
}

func TestBatchPadding(t *testing.T) {

	batch := NewBatch(2, 2, 3, 1)
	defer batch.Close()

	if diff := cmp.Diff([]int64{0, 1, 32, 32}, batch.Shape()); diff != "" {
		t.Errorf("shape mismatch (-want +got):\n%s", diff)
	}

	if err := batch.Add(seqTensor(1, 2, 3, 1)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := batch.Add(seqTensor(1, 1, 2, 10)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	data, err := batch.Data()

	if err != nil {
		t.Fatalf("Data failed: %v", err)
	}

	if len(data) != 2*32*32 {
		t.Fatalf("expected %d elements, got %d", 2*32*32, len(data))
	}

	// first image rows sit at the start of each padded row
	if diff := cmp.Diff([]float32{1, 2, 3, 0}, data[0:4]); diff != "" {
		t.Errorf("image 0 row 0 mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]float32{4, 5, 6, 0}, data[32:36]); diff != "" {
		t.Errorf("image 0 row 1 mismatch (-want +got):\n%s", diff)
	}

	second := data[32*32:]

	if diff := cmp.Diff([]float32{10, 11, 0}, second[0:3]); diff != "" {
		t.Errorf("image 1 row 0 mismatch (-want +got):\n%s", diff)
	}

	if second[32] != 0 {
		t.Errorf("expected padding below image 1, got %f", second[32])
	}

	want := []postprocess.ImageShape{{Height: 2, Width: 3}, {Height: 1, Width: 2}}

	if diff := cmp.Diff(want, batch.ImageShapes()); diff != "" {
		t.Errorf("image shapes mismatch (-want +got):\n%s", diff)
	}
}

func TestBatchAddAndOverflow(t *testing.T) {

	batch := NewBatch(1, 4, 4, 3)
	defer batch.Close()

	// too many channels
	if err := batch.Add(seqTensor(1, 4, 4, 0)); err == nil {
		t.Error("expected error for channel mismatch, got nil")
	}

	// too large
	if err := batch.Add(seqTensor(3, 40, 4, 0)); err == nil {
		t.Error("expected error for oversized tensor, got nil")
	}

	if err := batch.Add(seqTensor(3, 4, 4, 0)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := batch.Add(seqTensor(3, 4, 4, 0)); err == nil {
		t.Error("expected error when batch full, got nil")
	}

	batch.Clear()

	if batch.Len() != 0 {
		t.Errorf("Len = %d; want 0 after Clear", batch.Len())
	}

	data, _ := batch.Mat().DataPtrFloat32()

	for i, v := range data {
		if v != 0 {
			t.Fatalf("expected cleared batch, element %d is %f", i, v)
		}
	}
}

func TestNewBatchFor(t *testing.T) {

	batch, err := NewBatchFor([]*preprocess.Tensor{
		seqTensor(3, 40, 20, 0),
		seqTensor(3, 10, 70, 0),
	})

	if err != nil {
		t.Fatalf("NewBatchFor failed: %v", err)
	}

	defer batch.Close()

	if diff := cmp.Diff([]int64{2, 3, 64, 96}, batch.Shape()); diff != "" {
		t.Errorf("shape mismatch (-want +got):\n%s", diff)
	}

	if _, err := NewBatchFor(nil); err == nil {
		t.Error("expected error for empty tensors, got nil")
	}
}
