package host

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/thinkcrm/plugincore/internal/plugin"
)

var (
	ErrHandlerNotFound     = errors.New("handler not found")
	ErrDuplicateHandler    = errors.New("handler already registered")
	ErrInvalidRegistration = errors.New("invalid registration")
)

// Registration is one catalog entry: how to build the handler and the
// configuration it is registered with.
type Registration struct {
	Factory  func() plugin.Handler
	Unsecure string
	Secure   string
	// Validators run ahead of the handler's own validators.
	Validators []plugin.Validator
}

// Catalog maps registration names to handlers.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]Registration
}

func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]Registration)}
}

func (c *Catalog) Register(name string, reg Registration) error {
	if name == "" || reg.Factory == nil {
		return fmt.Errorf("%w: name and factory are required", ErrInvalidRegistration)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, name)
	}
	c.entries[name] = reg
	return nil
}

func (c *Catalog) Lookup(name string) (Registration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	reg, ok := c.entries[name]
	return reg, ok
}

// Names returns the registered names in sorted order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.entries))
}
