package backend

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/camfx"
	"github.com/gogpu/camfx/gpucore"
)

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	// Priority order for OpenDefault: GPU first, CPU fallback.
	priority = []string{BackendWGPU, BackendSoftware}
)

// Register registers a backend factory under name, replacing any previous
// registration. Typically called from init functions.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = f
}

// Unregister removes a backend. Useful in tests.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the registered backend names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered reports whether a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// Open opens the named backend.
func Open(name string) (gpucore.Device, error) {
	registryMu.RLock()
	f, ok := factories[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrBackendNotAvailable, name, Available())
	}
	dev, err := f()
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", name, err)
	}
	return dev, nil
}

// OpenDefault opens the first backend in priority order that succeeds,
// then any other registered backend. It returns the device and the name of
// the backend that opened it.
func OpenDefault() (gpucore.Device, string, error) {
	tried := make(map[string]bool)
	order := append([]string(nil), priority...)
	order = append(order, Available()...)

	for _, name := range order {
		if tried[name] || !IsRegistered(name) {
			continue
		}
		tried[name] = true

		dev, err := Open(name)
		if err != nil {
			camfx.Logger().Warn("backend unavailable, trying next", "backend", name, "err", err)
			continue
		}
		return dev, name, nil
	}
	return nil, "", ErrBackendNotAvailable
}
