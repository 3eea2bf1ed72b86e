// Package registry operates the build-time table of MMU constructors. MMUs compiled into the
// adapter binary register themselves from an init function and are instantiated by id.
package registry

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/mosim-go/mmuadapter/mmu"
)

var (
	registryMu  sync.RWMutex
	mmuRegistry = map[string]mmu.Constructor{}
)

// RegisterMMU registers an MMU id to a constructor. Registering the same id twice panics.
func RegisterMMU(id string, constructor mmu.Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if id == "" {
		panic(errors.New("cannot register an MMU with an empty id"))
	}
	if constructor == nil {
		panic(errors.Errorf("cannot register a nil constructor for MMU %s", id))
	}
	if _, old := mmuRegistry[id]; old {
		panic(errors.Errorf("trying to register two MMUs with same id %s", id))
	}
	mmuRegistry[id] = constructor
}

// DeregisterMMU removes a previously registered MMU. Used by tests.
func DeregisterMMU(id string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(mmuRegistry, id)
}

// MMULookup returns the constructor registered for the given id, if any.
func MMULookup(id string) (mmu.Constructor, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	constructor, ok := mmuRegistry[id]
	return constructor, ok
}

// RegisteredMMUs returns the sorted ids of all registered MMUs.
func RegisteredMMUs() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ids := make([]string, 0, len(mmuRegistry))
	for id := range mmuRegistry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
