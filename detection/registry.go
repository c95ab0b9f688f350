package detection

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownDetector is returned when creating a detector that has not been
// registered or is not usable on this host
var ErrUnknownDetector = errors.New("unknown detector")

// Factory creates a detector from its configuration map
type Factory func(config map[string]any) (DetectImageObjects, error)

// Plugin describes a registered detector implementation
type Plugin struct {
	// Name the implementation is registered under
	Name string
	// IsUsable reports if the runtime dependencies of the implementation are
	// present.  A nil function means it is always usable
	IsUsable func() bool
	// New creates an instance of the implementation
	New Factory
}

func (p Plugin) usable() bool {
	return p.IsUsable == nil || p.IsUsable()
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Plugin{}
)

// RegisterDetector registers a detector implementation under the given name.
// It panics if the name is already registered or the factory is nil
func RegisterDetector(name string, p Plugin) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if p.New == nil {
		panic(fmt.Sprintf("detector %q registered with nil factory", name))
	}

	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("trying to register two detectors with same name %q", name))
	}

	p.Name = name
	registry[name] = p
}

// Detectors returns the registered implementations usable on this host,
// ordered by name.  Unusable implementations are skipped
func Detectors() []Plugin {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]Plugin, 0, len(registry))

	for _, p := range registry {
		if p.usable() {
			out = append(out, p)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})

	return out
}

// NewDetector creates the named detector from the given configuration
func NewDetector(name string, config map[string]any) (DetectImageObjects, error) {
	registryMu.RLock()
	p, ok := registry[name]
	registryMu.RUnlock()

	if !ok || !p.usable() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDetector, name)
	}

	return p.New(config)
}
