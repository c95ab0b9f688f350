package preprocess

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// LoadImage reads the image file at path and returns it as a BGR CV8UC3 Mat.
// JPEG, PNG, BMP, TIFF and WebP formats are supported
func LoadImage(path string) (gocv.Mat, error) {

	f, err := os.Open(path)

	if err != nil {
		return gocv.NewMat(), fmt.Errorf("error opening image: %w", err)
	}

	defer f.Close()

	img, format, err := image.Decode(f)

	if err != nil {
		return gocv.NewMat(), fmt.Errorf("%w: error decoding %s: %v",
			ErrInvalidImage, path, err)
	}

	mat, err := FromImage(img)

	if err != nil {
		return mat, fmt.Errorf("error converting %s image: %w", format, err)
	}

	return mat, nil
}
