package classification

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrNoClassification is returned when querying an element that has no
	// classification scores set
	ErrNoClassification = errors.New("no classification")
	// ErrInvalidScore is returned when setting a negative confidence score
	ErrInvalidScore = errors.New("invalid classification score")
)

// Category identifies a class in a Model's label vocabulary.  The ID is the
// class index the Model was trained with, Name its human readable label.
// Vocabularies may repeat names (eg: reserved "N/A" slots in COCO) so both
// fields are needed to keep categories distinct
type Category struct {
	ID   int
	Name string
}

// String returns the category formatted as a string
func (c Category) String() string {
	return fmt.Sprintf("%s(%d)", c.Name, c.ID)
}

// ClassScores maps each category to its non-negative confidence score
type ClassScores map[Category]float64

// Top returns the highest scoring category.  Ties are broken by the lowest
// category ID.  False is returned if there are no scores
func (s ClassScores) Top() (Category, float64, bool) {

	var (
		best      Category
		bestScore float64
		found     bool
	)

	for cat, score := range s {
		if !found || score > bestScore || (score == bestScore && cat.ID < best.ID) {
			best, bestScore, found = cat, score, true
		}
	}

	return best, bestScore, found
}

// ByName returns the score for the first category, ordered by ID, with the
// given name
func (s ClassScores) ByName(name string) (float64, bool) {

	for _, cat := range s.Categories() {
		if cat.Name == name {
			return s[cat], true
		}
	}

	return 0, false
}

// Categories returns the categories ordered by ID
func (s ClassScores) Categories() []Category {

	cats := make([]Category, 0, len(s))

	for cat := range s {
		cats = append(cats, cat)
	}

	sort.Slice(cats, func(i, j int) bool {
		if cats[i].ID == cats[j].ID {
			return cats[i].Name < cats[j].Name
		}
		return cats[i].ID < cats[j].ID
	})

	return cats
}

// Element is the capability of an entity that carries class confidence
// scores
type Element interface {
	// UUID returns the identity of the element
	UUID() uuid.UUID
	// HasClassifications reports if the element holds at least one score
	HasClassifications() bool
	// Classification returns the scores held or ErrNoClassification
	Classification() (ClassScores, error)
}

// MemoryElement is an in-memory Element with no persistence
type MemoryElement struct {
	uuid   uuid.UUID
	scores ClassScores
	mu     sync.RWMutex
}

// NewMemoryElement returns an empty in-memory classification element
func NewMemoryElement(id uuid.UUID) *MemoryElement {
	return &MemoryElement{
		uuid: id,
	}
}

// UUID returns the identity of the element
func (e *MemoryElement) UUID() uuid.UUID {
	return e.uuid
}

// HasClassifications reports if any scores have been set
func (e *MemoryElement) HasClassifications() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.scores) > 0
}

// Classification returns a copy of the scores held
func (e *MemoryElement) Classification() (ClassScores, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.scores) == 0 {
		return nil, fmt.Errorf("%w for element %s", ErrNoClassification, e.uuid)
	}

	out := make(ClassScores, len(e.scores))

	for k, v := range e.scores {
		out[k] = v
	}

	return out, nil
}

// SetClassification replaces the scores held by the element.  Scores must
// not be negative
func (e *MemoryElement) SetClassification(scores ClassScores) (*MemoryElement, error) {

	cp := make(ClassScores, len(scores))

	for k, v := range scores {
		if v < 0 {
			return e, fmt.Errorf("%w: %s has score %f", ErrInvalidScore, k, v)
		}
		cp[k] = v
	}

	e.mu.Lock()
	e.scores = cp
	e.mu.Unlock()

	return e, nil
}
