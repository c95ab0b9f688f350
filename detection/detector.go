package detection

import (
	"context"

	"github.com/swdee/go-frcnn/bbox"
	"github.com/swdee/go-frcnn/classification"
	"gocv.io/x/gocv"
)

// Detection is a single object found in an image
type Detection struct {
	// Box is the location of the object
	Box bbox.AxisAlignedBoundingBox
	// Scores holds the confidence of the object belonging to each category
	Scores classification.ClassScores
}

// DetectImageObjects is implemented by object detectors
type DetectImageObjects interface {
	// DetectObjects locates objects in each of the given images.  Images
	// are HxWxC pixel arrays.  One slice of detections is returned per
	// image in the order the images were given
	DetectObjects(ctx context.Context, imgs []gocv.Mat) ([][]Detection, error)
	// Config returns the parameters the detector was constructed with
	Config() map[string]any
}
