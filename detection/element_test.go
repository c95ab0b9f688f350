package detection

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/swdee/go-frcnn/bbox"
	"github.com/swdee/go-frcnn/classification"
)

func newBox(t *testing.T, min, max []float64) bbox.AxisAlignedBoundingBox {
	t.Helper()

	b, err := bbox.New(min, max)

	if err != nil {
		t.Fatalf("error creating bounding box: %v", err)
	}

	return b
}

func newClassification(t *testing.T, scores classification.ClassScores) *classification.MemoryElement {
	t.Helper()

	c, err := classification.NewMemoryElement(uuid.New()).SetClassification(scores)

	if err != nil {
		t.Fatalf("error creating classification: %v", err)
	}

	return c
}

func TestMemoryElementEmptyQueries(t *testing.T) {

	e := NewMemoryElement(uuid.New())

	if e.HasDetection() {
		t.Error("expected new element to have no detection")
	}

	if _, err := e.BBox(); !errors.Is(err, ErrNoDetection) {
		t.Errorf("expected ErrNoDetection from BBox, got %v", err)
	}

	if _, err := e.Classification(); !errors.Is(err, ErrNoDetection) {
		t.Errorf("expected ErrNoDetection from Classification, got %v", err)
	}

	_, _, err := e.Detection()

	var noDet *NoDetectionError

	if !errors.As(err, &noDet) {
		t.Fatalf("expected NoDetectionError from Detection, got %v", err)
	}

	if noDet.UUID != e.UUID() {
		t.Errorf("expected error to carry UUID %s, got %s", e.UUID(), noDet.UUID)
	}
}

func TestMemoryElementSetAndGet(t *testing.T) {

	e := NewMemoryElement(uuid.New())
	box := newBox(t, []float64{1, 2}, []float64{3, 4})
	c := newClassification(t, classification.ClassScores{{ID: 1, Name: "person"}: 0.9})

	ret, err := e.SetDetection(box, c)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ret != Element(e) {
		t.Error("expected SetDetection to return the element for chaining")
	}

	if !e.HasDetection() {
		t.Error("expected element to have a detection")
	}

	gotBox, gotC, err := e.Detection()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !gotBox.Equal(box) {
		t.Errorf("expected box %s, got %s", box, gotBox)
	}

	if gotC != classification.Element(c) {
		t.Error("expected the same classification element to be returned")
	}

	if b, err := e.BBox(); err != nil || !b.Equal(box) {
		t.Errorf("expected BBox %s, got %s (err %v)", box, b, err)
	}

	if cl, err := e.Classification(); err != nil || cl != classification.Element(c) {
		t.Errorf("expected Classification to return the element set, got err %v", err)
	}

	// replacing the detection swaps both fields
	box2 := newBox(t, []float64{0, 0}, []float64{1, 1})
	c2 := newClassification(t, classification.ClassScores{{ID: 3, Name: "car"}: 0.5})

	if _, err := e.SetDetection(box2, c2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	gotBox, gotC, _ = e.Detection()

	if !gotBox.Equal(box2) || gotC != classification.Element(c2) {
		t.Error("expected detection to be replaced")
	}
}

func TestMemoryElementSetRejectsInvalid(t *testing.T) {

	box := newBox(t, []float64{1, 2}, []float64{3, 4})
	full := newClassification(t, classification.ClassScores{{ID: 1, Name: "person"}: 0.9})
	empty := classification.NewMemoryElement(uuid.New())

	tests := []struct {
		name string
		box  bbox.AxisAlignedBoundingBox
		c    classification.Element
	}{
		{"zero value box", bbox.AxisAlignedBoundingBox{}, full},
		{"nil classification", box, nil},
		{"nil pointer classification", box, (*classification.MemoryElement)(nil)},
		{"empty classification", box, empty},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := NewMemoryElement(uuid.New())

			_, err := e.SetDetection(tc.box, tc.c)

			if !errors.Is(err, ErrInvalidDetection) {
				t.Fatalf("expected ErrInvalidDetection, got %v", err)
			}

			var verr *ValidationError

			if !errors.As(err, &verr) {
				t.Errorf("expected ValidationError, got %T", err)
			}

			if e.HasDetection() {
				t.Error("expected element to remain without detection")
			}

			if _, err := e.BBox(); !errors.Is(err, ErrNoDetection) {
				t.Errorf("expected ErrNoDetection after rejected set, got %v", err)
			}
		})
	}
}

func TestMemoryElementRejectKeepsPriorState(t *testing.T) {

	e := NewMemoryElement(uuid.New())
	box := newBox(t, []float64{1, 2}, []float64{3, 4})
	c := newClassification(t, classification.ClassScores{{ID: 1, Name: "person"}: 0.9})

	if _, err := e.SetDetection(box, c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	other := newBox(t, []float64{0, 0}, []float64{9, 9})

	if _, err := e.SetDetection(other, classification.NewMemoryElement(uuid.New())); err == nil {
		t.Fatal("expected empty classification to be rejected")
	}

	gotBox, gotC, err := e.Detection()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !gotBox.Equal(box) || gotC != classification.Element(c) {
		t.Error("expected prior detection to be kept after rejected set")
	}
}

func TestMemoryElementClassificationEmptiedLater(t *testing.T) {

	e := NewMemoryElement(uuid.New())
	box := newBox(t, []float64{1, 2}, []float64{3, 4})
	c := newClassification(t, classification.ClassScores{{ID: 1, Name: "person"}: 0.9})

	if _, err := e.SetDetection(box, c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// the classification element is shared, emptying it invalidates the
	// detection
	if _, err := c.SetClassification(classification.ClassScores{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if e.HasDetection() {
		t.Error("expected emptied classification to invalidate detection")
	}

	if _, err := e.Classification(); !errors.Is(err, ErrNoDetection) {
		t.Errorf("expected ErrNoDetection, got %v", err)
	}

	if _, err := e.BBox(); err != nil {
		t.Errorf("expected bounding box to still be returned, got %v", err)
	}
}
