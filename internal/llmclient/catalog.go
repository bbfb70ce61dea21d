package llmclient

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrUnknownModel = errors.New("unknown model identifier")

// Catalog maps caller-supplied model identifiers to provider capabilities.
// It is a pure lookup table; no dispatch logic lives here.
type Catalog struct {
	mu   sync.RWMutex
	caps map[string]Capability
}

func NewCatalog() *Catalog {
	return &Catalog{caps: map[string]Capability{}}
}

// Register binds a model identifier to a capability. Re-registering an
// identifier replaces the previous binding.
func (c *Catalog) Register(modelID string, cap Capability) {
	if modelID == "" || cap == nil {
		return
	}
	c.mu.Lock()
	c.caps[modelID] = cap
	c.mu.Unlock()
}

// Resolve returns the capability for modelID. An unknown identifier is a hard
// error that names the identifier, reported before any stream is opened.
func (c *Catalog) Resolve(modelID string) (Capability, error) {
	c.mu.RLock()
	cap, ok := c.caps[modelID]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, modelID)
	}
	return cap, nil
}

// Models lists registered identifiers in sorted order.
func (c *Catalog) Models() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.caps))
	for id := range c.caps {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Close closes every distinct registered capability.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := map[Capability]bool{}
	var firstErr error
	for _, cap := range c.caps {
		if seen[cap] {
			continue
		}
		seen[cap] = true
		if err := cap.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
