package result

// BoxRect are the dimensions of the bounding box of a detected object in
// [x1, y1, x2, y2] pixel coordinates
type BoxRect struct {
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
}

// Array returns the box in [x1, y1, x2, y2] format
func (b BoxRect) Array() [4]float64 {
	return [4]float64{b.Left, b.Top, b.Right, b.Bottom}
}

// DetectResult defines the attributes of a single object detected
type DetectResult struct {
	// ID is a unique ID assigned to the detection result
	ID int64
	// Class is the index in the label vocabulary the Model was trained on
	// defining the Class of the detected object
	Class int
	// Box are the bounding box dimensions of the object location
	Box BoxRect
	// Probability is the confidence score of the object being of Class
	Probability float64
	// Scores is the probability of the object belonging to each foreground
	// class, index 0 being class 1 of the label vocabulary.  Values are the
	// softmax over all classes including background so do not necessarily
	// sum to 1
	Scores []float64
}
