package classification

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

var (
	person = Category{ID: 1, Name: "person"}
	car    = Category{ID: 3, Name: "car"}
	na12   = Category{ID: 12, Name: "N/A"}
	na26   = Category{ID: 26, Name: "N/A"}
)

func TestMemoryElementEmpty(t *testing.T) {

	e := NewMemoryElement(uuid.New())

	if e.HasClassifications() {
		t.Error("expected new element to have no classifications")
	}

	if _, err := e.Classification(); !errors.Is(err, ErrNoClassification) {
		t.Errorf("expected ErrNoClassification, got %v", err)
	}
}

func TestMemoryElementSetClassification(t *testing.T) {

	e := NewMemoryElement(uuid.New())

	scores := ClassScores{person: 0.7, car: 0.2, na12: 0.01, na26: 0.02}

	if _, err := e.SetClassification(scores); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !e.HasClassifications() {
		t.Error("expected element to have classifications")
	}

	got, err := e.Classification()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff(scores, got); diff != "" {
		t.Errorf("scores mismatch (-want +got):\n%s", diff)
	}

	// mutating the input after setting must not alter the element
	scores[person] = 0

	got, _ = e.Classification()

	if got[person] != 0.7 {
		t.Errorf("expected element to hold a copy of scores, got %v", got[person])
	}
}

func TestMemoryElementRejectsNegative(t *testing.T) {

	e := NewMemoryElement(uuid.New())

	if _, err := e.SetClassification(ClassScores{person: -0.1}); !errors.Is(err, ErrInvalidScore) {
		t.Errorf("expected ErrInvalidScore, got %v", err)
	}

	if e.HasClassifications() {
		t.Error("expected rejected scores to not be stored")
	}
}

func TestClassScoresHelpers(t *testing.T) {

	scores := ClassScores{person: 0.1, car: 0.6, na12: 0.6, na26: 0.05}

	top, score, ok := scores.Top()

	if !ok || top != car || score != 0.6 {
		t.Errorf("expected top %s 0.6, got %s %f", car, top, score)
	}

	if diff := cmp.Diff([]Category{person, car, na12, na26}, scores.Categories()); diff != "" {
		t.Errorf("category order mismatch (-want +got):\n%s", diff)
	}

	if v, ok := scores.ByName("N/A"); !ok || v != 0.6 {
		t.Errorf("expected first N/A score 0.6, got %f", v)
	}

	if _, _, ok := (ClassScores{}).Top(); ok {
		t.Error("expected no top category for empty scores")
	}
}
