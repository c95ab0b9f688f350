package detection

import (
	"reflect"
	"sync"

	"github.com/google/uuid"
	"github.com/swdee/go-frcnn/bbox"
	"github.com/swdee/go-frcnn/classification"
)

// Element associates the bounding box and classification of a single
// detection.  Implementations differ by their backing store
type Element interface {
	// UUID returns the identity of the element
	UUID() uuid.UUID
	// HasDetection reports if a bounding box and a non-empty classification
	// are set
	HasDetection() bool
	// BBox returns the bounding box or a NoDetectionError
	BBox() (bbox.AxisAlignedBoundingBox, error)
	// Classification returns the non-empty classification or a
	// NoDetectionError
	Classification() (classification.Element, error)
	// Detection returns both the bounding box and classification or a
	// NoDetectionError
	Detection() (bbox.AxisAlignedBoundingBox, classification.Element, error)
	// SetDetection validates and replaces both the bounding box and
	// classification, returning the element for chaining
	SetDetection(box bbox.AxisAlignedBoundingBox, c classification.Element) (Element, error)
}

// MemoryElement is the in-memory Element, it has no persistence
type MemoryElement struct {
	uuid           uuid.UUID
	box            *bbox.AxisAlignedBoundingBox
	classification classification.Element
	mu             sync.RWMutex
}

// NewMemoryElement returns an element with no detection set
func NewMemoryElement(id uuid.UUID) *MemoryElement {
	return &MemoryElement{
		uuid: id,
	}
}

// IsUsable reports the in-memory implementation needs no additional
// dependencies
func (e *MemoryElement) IsUsable() bool {
	return true
}

// Config returns the construction parameters, the in-memory implementation
// has none
func (e *MemoryElement) Config() map[string]any {
	return map[string]any{}
}

// UUID returns the identity of the element
func (e *MemoryElement) UUID() uuid.UUID {
	return e.uuid
}

// HasDetection reports if a bounding box and a non-empty classification are
// set
func (e *MemoryElement) HasDetection() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.hasDetection()
}

func (e *MemoryElement) hasDetection() bool {
	if e.box == nil || e.classification == nil {
		return false
	}

	return e.classification.HasClassifications()
}

// BBox returns the bounding box
func (e *MemoryElement) BBox() (bbox.AxisAlignedBoundingBox, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.box == nil {
		return bbox.AxisAlignedBoundingBox{}, &NoDetectionError{
			UUID:   e.uuid,
			Reason: "missing detection bounding box",
		}
	}

	return *e.box, nil
}

// Classification returns the classification if it is set and not empty
func (e *MemoryElement) Classification() (classification.Element, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.classification == nil || !e.classification.HasClassifications() {
		return nil, &NoDetectionError{
			UUID:   e.uuid,
			Reason: "missing or empty classification",
		}
	}

	return e.classification, nil
}

// Detection returns the bounding box and classification
func (e *MemoryElement) Detection() (bbox.AxisAlignedBoundingBox, classification.Element, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.hasDetection() {
		return bbox.AxisAlignedBoundingBox{}, nil, &NoDetectionError{
			UUID:   e.uuid,
			Reason: "missing detection bounding box or missing/invalid classification",
		}
	}

	return *e.box, e.classification, nil
}

// SetDetection replaces the bounding box and classification.  Nothing is
// stored unless both are valid
func (e *MemoryElement) SetDetection(box bbox.AxisAlignedBoundingBox,
	c classification.Element) (Element, error) {

	if !box.Valid() {
		return e, &ValidationError{
			Reason: "provided an invalid AxisAlignedBoundingBox instance",
			Err:    bbox.ErrInvalidBoundingBox,
		}
	}

	if isNil(c) {
		return e, &ValidationError{
			Reason: "provided an invalid ClassificationElement instance",
		}
	}

	if !c.HasClassifications() {
		return e, &ValidationError{
			Reason: "given an empty ClassificationElement instance",
			Err:    classification.ErrNoClassification,
		}
	}

	e.mu.Lock()
	e.box = &box
	e.classification = c
	e.mu.Unlock()

	return e, nil
}

// isNil reports if the classification is nil, including a nil pointer held
// in a non-nil interface
func isNil(c classification.Element) bool {

	if c == nil {
		return true
	}

	v := reflect.ValueOf(c)

	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface,
		reflect.Func, reflect.Chan:
		return v.IsNil()
	}

	return false
}
