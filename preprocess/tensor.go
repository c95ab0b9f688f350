package preprocess

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ErrInvalidImage is returned when an image can not be converted for use
// as network input
var ErrInvalidImage = errors.New("invalid image")

// Tensor holds an image as float32 pixel values in [0, 1] laid out in
// channel, height, width (CHW) order with RGB channels
type Tensor struct {
	Data     []float32
	Channels int
	Height   int
	Width    int
}

// ToTensor converts a BGR CV8UC3 Mat into an RGB CHW Tensor scaled to [0, 1]
func ToTensor(img gocv.Mat) (*Tensor, error) {

	if img.Empty() {
		return nil, fmt.Errorf("%w: empty Mat", ErrInvalidImage)
	}

	if img.Type() != gocv.MatTypeCV8UC3 {
		return nil, fmt.Errorf("%w: expected Mat type CV8UC3, got %v",
			ErrInvalidImage, img.Type())
	}

	rgb := gocv.NewMat()
	defer rgb.Close()

	gocv.CvtColor(img, &rgb, gocv.ColorBGRToRGB)

	scaled := gocv.NewMat()
	defer scaled.Close()

	rgb.ConvertToWithParams(&scaled, gocv.MatTypeCV32FC3, 1.0/255.0, 0)

	planes := gocv.Split(scaled)

	defer func() {
		for _, p := range planes {
			p.Close()
		}
	}()

	t := &Tensor{
		Channels: len(planes),
		Height:   img.Rows(),
		Width:    img.Cols(),
	}

	size := t.Height * t.Width
	t.Data = make([]float32, t.Channels*size)

	for c, p := range planes {

		if !p.IsContinuous() {
			p = p.Clone()
			defer p.Close()
		}

		src, err := p.DataPtrFloat32()

		if err != nil {
			return nil, fmt.Errorf("error reading channel %d data: %w", c, err)
		}

		copy(t.Data[c*size:(c+1)*size], src)
	}

	return t, nil
}

// FromImage converts a Go image into a BGR CV8UC3 Mat
func FromImage(img image.Image) (gocv.Mat, error) {

	mat, err := gocv.ImageToMatRGB(img)

	if err != nil {
		return gocv.NewMat(), fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	return mat, nil
}
