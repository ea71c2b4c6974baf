package decoders

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"stream-processor/src/interfaces"
)

var ErrUnknownProvider = errors.New("unknown provider")

// The global registry map. Key is the provider name (e.g., "polygon"), value is the constructor function.
var (
	registry = make(map[string]interfaces.IDecoderConstructor)
	mu       sync.RWMutex // Use a mutex for concurrent map access
)

// Register is called by each decoder's init() function to add itself to the map.
func Register(name string, constructor interfaces.IDecoderConstructor) error {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[name]; exists {
		return fmt.Errorf("decoder constructor already registered for provider: %s", name)
	}
	registry[name] = constructor
	return nil
}

// GetConstructor is used by the StreamFactory to retrieve the constructor.
func GetConstructor(name string) (interfaces.IDecoderConstructor, error) {
	mu.RLock()
	defer mu.RUnlock()
	constructor, exists := registry[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return constructor, nil
}

// Providers lists the registered provider names, sorted.
func Providers() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
