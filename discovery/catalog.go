package discovery

import (
	"sync"

	"github.com/samber/lo"

	"github.com/mosim-go/mmuadapter/mmi"
)

// Catalog holds the descriptors of the loadable MMUs keyed by id, in the order they were
// accepted. It is safe for concurrent use.
type Catalog struct {
	mu    sync.RWMutex
	byID  map[string]mmi.MMUDescription
	order []string
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{byID: map[string]mmi.MMUDescription{}}
}

// Add records a descriptor. It returns false and leaves the catalog unchanged if the id is
// already known.
func (c *Catalog) Add(description mmi.MMUDescription) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byID[description.ID]; ok {
		return false
	}
	c.byID[description.ID] = description
	c.order = append(c.order, description.ID)
	return true
}

// Has returns whether the id is known.
func (c *Catalog) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.byID[id]
	return ok
}

// Get returns the descriptor with the given id.
func (c *Catalog) Get(id string) (mmi.MMUDescription, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	description, ok := c.byID[id]
	return description, ok
}

// FindByName returns the first accepted descriptor with the given display name.
func (c *Catalog) FindByName(name string) (mmi.MMUDescription, bool) {
	return lo.Find(c.List(), func(description mmi.MMUDescription) bool {
		return description.Name == name
	})
}

// List returns a snapshot of all descriptors in acceptance order.
func (c *Catalog) List() []mmi.MMUDescription {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return lo.Map(c.order, func(id string, _ int) mmi.MMUDescription {
		return c.byID[id]
	})
}

// Filter returns the descriptors accepted by keep in acceptance order.
func (c *Catalog) Filter(keep func(mmi.MMUDescription) bool) []mmi.MMUDescription {
	return lo.Filter(c.List(), func(description mmi.MMUDescription, _ int) bool {
		return keep(description)
	})
}

// Len returns the number of descriptors.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}
