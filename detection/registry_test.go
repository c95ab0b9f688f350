package detection

import (
	"context"
	"errors"
	"testing"

	"gocv.io/x/gocv"
)

type stubDetector struct {
	config map[string]any
}

func (s *stubDetector) DetectObjects(ctx context.Context, imgs []gocv.Mat) ([][]Detection, error) {
	return make([][]Detection, len(imgs)), nil
}

func (s *stubDetector) Config() map[string]any {
	return s.config
}

func unregisterDetector(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()

	delete(registry, name)
}

func TestRegistrySkipsUnusable(t *testing.T) {

	newStub := func(config map[string]any) (DetectImageObjects, error) {
		return &stubDetector{config: config}, nil
	}

	RegisterDetector("test-usable", Plugin{IsUsable: func() bool { return true }, New: newStub})
	RegisterDetector("test-unusable", Plugin{IsUsable: func() bool { return false }, New: newStub})

	defer unregisterDetector("test-usable")
	defer unregisterDetector("test-unusable")

	found := map[string]bool{}

	for _, p := range Detectors() {
		found[p.Name] = true
	}

	if !found["test-usable"] {
		t.Error("expected usable detector to be listed")
	}

	if found["test-unusable"] {
		t.Error("expected unusable detector to be skipped")
	}

	det, err := NewDetector("test-usable", map[string]any{"a": 1})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if det.Config()["a"] != 1 {
		t.Errorf("expected config to be passed to factory, got %v", det.Config())
	}

	if _, err := NewDetector("test-unusable", nil); !errors.Is(err, ErrUnknownDetector) {
		t.Errorf("expected ErrUnknownDetector for unusable detector, got %v", err)
	}

	if _, err := NewDetector("does-not-exist", nil); !errors.Is(err, ErrUnknownDetector) {
		t.Errorf("expected ErrUnknownDetector, got %v", err)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {

	newStub := func(config map[string]any) (DetectImageObjects, error) {
		return &stubDetector{}, nil
	}

	RegisterDetector("test-dup", Plugin{New: newStub})
	defer unregisterDetector("test-dup")

	defer func() {
		if recover() == nil {
			t.Error("expected duplicate registration to panic")
		}
	}()

	RegisterDetector("test-dup", Plugin{New: newStub})
}
