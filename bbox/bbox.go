package bbox

import (
	"errors"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"gonum.org/v1/gonum/floats"
)

// ErrInvalidBoundingBox is returned when the vertices given do not describe
// a valid axis aligned bounding box
var ErrInvalidBoundingBox = errors.New("invalid bounding box")

// AxisAlignedBoundingBox represents a box in N-dimensional space whose edges
// are aligned to the coordinate axes.  It is defined by its minimum and
// maximum vertices and is immutable once created
type AxisAlignedBoundingBox struct {
	minVertex []float64
	maxVertex []float64
}

// config is the serialisable form of a bounding box
type config struct {
	MinVertex []float64 `mapstructure:"min_vertex"`
	MaxVertex []float64 `mapstructure:"max_vertex"`
}

// New creates a bounding box from the given minimum and maximum vertices.
// Both vertices must have the same non-zero dimensionality and each
// coordinate of min must not be greater than the matching coordinate of max.
// The vertices are stored as given, no reordering is performed.
func New(min, max []float64) (AxisAlignedBoundingBox, error) {

	if len(min) == 0 || len(min) != len(max) {
		return AxisAlignedBoundingBox{}, fmt.Errorf("%w: vertex dimensions %d and %d",
			ErrInvalidBoundingBox, len(min), len(max))
	}

	for i := range min {
		if min[i] > max[i] {
			return AxisAlignedBoundingBox{}, fmt.Errorf("%w: min vertex %v exceeds max vertex %v on axis %d",
				ErrInvalidBoundingBox, min, max, i)
		}
	}

	b := AxisAlignedBoundingBox{
		minVertex: make([]float64, len(min)),
		maxVertex: make([]float64, len(max)),
	}

	copy(b.minVertex, min)
	copy(b.maxVertex, max)

	return b, nil
}

// FromConfig creates a bounding box from the map produced by Config()
func FromConfig(m map[string]any) (AxisAlignedBoundingBox, error) {

	var c config

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &c,
	})

	if err != nil {
		return AxisAlignedBoundingBox{}, err
	}

	if err := dec.Decode(m); err != nil {
		return AxisAlignedBoundingBox{}, fmt.Errorf("%w: %v", ErrInvalidBoundingBox, err)
	}

	return New(c.MinVertex, c.MaxVertex)
}

// Config returns the vertices of the box in map form
func (b AxisAlignedBoundingBox) Config() map[string]any {
	return map[string]any{
		"min_vertex": b.MinVertex(),
		"max_vertex": b.MaxVertex(),
	}
}

// MinVertex returns a copy of the minimum vertex
func (b AxisAlignedBoundingBox) MinVertex() []float64 {
	return append([]float64(nil), b.minVertex...)
}

// MaxVertex returns a copy of the maximum vertex
func (b AxisAlignedBoundingBox) MaxVertex() []float64 {
	return append([]float64(nil), b.maxVertex...)
}

// NDim returns the number of dimensions of the box
func (b AxisAlignedBoundingBox) NDim() int {
	return len(b.minVertex)
}

// Valid reports if the box was created through New, the zero value is
// not a valid box
func (b AxisAlignedBoundingBox) Valid() bool {
	return len(b.minVertex) > 0 && len(b.minVertex) == len(b.maxVertex)
}

// Deltas returns the length of the box along each axis
func (b AxisAlignedBoundingBox) Deltas() []float64 {

	d := make([]float64, len(b.maxVertex))
	floats.SubTo(d, b.maxVertex, b.minVertex)

	return d
}

// Area returns the hyper-volume of the box, for a 2D box this is its area
func (b AxisAlignedBoundingBox) Area() float64 {

	if !b.Valid() {
		return 0
	}

	return floats.Prod(b.Deltas())
}

// Intersection returns the box covering the region shared by both boxes.
// False is returned if the boxes do not overlap or differ in dimension.
func (b AxisAlignedBoundingBox) Intersection(other AxisAlignedBoundingBox) (AxisAlignedBoundingBox, bool) {

	if !b.Valid() || b.NDim() != other.NDim() {
		return AxisAlignedBoundingBox{}, false
	}

	min := make([]float64, b.NDim())
	max := make([]float64, b.NDim())

	for i := range min {
		min[i] = floats.Max([]float64{b.minVertex[i], other.minVertex[i]})
		max[i] = floats.Min([]float64{b.maxVertex[i], other.maxVertex[i]})

		if min[i] > max[i] {
			return AxisAlignedBoundingBox{}, false
		}
	}

	return AxisAlignedBoundingBox{minVertex: min, maxVertex: max}, true
}

// IoU calculates the Intersection over Union of two boxes
func (b AxisAlignedBoundingBox) IoU(other AxisAlignedBoundingBox) float64 {

	inter, ok := b.Intersection(other)

	if !ok {
		return 0
	}

	interArea := inter.Area()
	union := b.Area() + other.Area() - interArea

	if union <= 0 {
		return 0
	}

	return interArea / union
}

// Equal reports if both boxes have identical vertices
func (b AxisAlignedBoundingBox) Equal(other AxisAlignedBoundingBox) bool {
	return floats.Equal(b.minVertex, other.minVertex) &&
		floats.Equal(b.maxVertex, other.maxVertex)
}

// String returns the box formatted as a string
func (b AxisAlignedBoundingBox) String() string {

	return fmt.Sprintf("AxisAlignedBoundingBox{min_vertex: %v, max_vertex: %v}",
		b.minVertex, b.maxVertex)
}
