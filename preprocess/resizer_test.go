package preprocess

import (
	"math"
	"testing"

	"gocv.io/x/gocv"
)

func TestResize(t *testing.T) {

	tests := []struct {
		srcWidth       int
		srcHeight      int
		expectedWidth  int
		expectedHeight int
		expectedScale  float64
	}{
		{640, 480, 1066, 800, 800.0 / 480},
		{480, 640, 800, 1066, 800.0 / 480},
		{400, 400, 800, 800, 2},
		// long side limited by max size
		{2000, 500, 1333, 333, 1333.0 / 2000},
	}

	for _, tc := range tests {
		img := gocv.NewMatWithSize(tc.srcHeight, tc.srcWidth, gocv.MatTypeCV8UC3)
		resizedImg := gocv.NewMat()

		resizer := NewResizer(tc.srcWidth, tc.srcHeight, 800, 1333)
		resizer.Resize(img, &resizedImg)

		if resizedImg.Cols() != tc.expectedWidth || resizedImg.Rows() != tc.expectedHeight {
			t.Errorf("src (%d, %d): expected resized %dx%d, got %dx%d",
				tc.srcWidth, tc.srcHeight, tc.expectedWidth, tc.expectedHeight,
				resizedImg.Cols(), resizedImg.Rows())
		}

		if math.Abs(resizer.ScaleFactor()-tc.expectedScale) > 1e-12 {
			t.Errorf("src (%d, %d): expected scale %f, got %f",
				tc.srcWidth, tc.srcHeight, tc.expectedScale, resizer.ScaleFactor())
		}

		img.Close()
		resizedImg.Close()
	}
}

func TestScaleBox(t *testing.T) {

	resizer := NewResizer(400, 200, 800, 1333)

	if resizer.ResizedWidth() != 1333 || resizer.ResizedHeight() != 666 {
		t.Fatalf("expected resized 1333x666, got %dx%d",
			resizer.ResizedWidth(), resizer.ResizedHeight())
	}

	got := resizer.ScaleBox([4]float64{0, 0, 1333, 666})
	want := [4]float64{0, 0, 400, 200}

	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("expected %v, got %v", want, got)
			break
		}
	}
}
