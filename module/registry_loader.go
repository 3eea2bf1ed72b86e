package module

import (
	"context"

	"github.com/mosim-go/mmuadapter/logging"
	"github.com/mosim-go/mmuadapter/mmi"
	"github.com/mosim-go/mmuadapter/mmu"
	"github.com/mosim-go/mmuadapter/registry"
	"github.com/mosim-go/mmuadapter/utils"
)

// RegistryLoader instantiates MMUs compiled into the adapter from the constructors registered
// with registry.RegisterMMU. When a staging directory is set, the package of the MMU must have
// staged an artifact too.
type RegistryLoader struct {
	stagingDir string
	logger     logging.Logger
}

// NewRegistryLoader returns a loader backed by the MMU registry. An empty stagingDir skips the
// artifact check.
func NewRegistryLoader(stagingDir string, logger logging.Logger) *RegistryLoader {
	return &RegistryLoader{stagingDir: stagingDir, logger: logger}
}

// Instantiate calls the constructor registered for the descriptor id.
func (l *RegistryLoader) Instantiate(ctx context.Context, description mmi.MMUDescription) (mmu.MMU, error) {
	if l.stagingDir != "" {
		if _, err := stagedArtifact(l.stagingDir, description.ID); err != nil {
			return nil, err
		}
	}
	constructor, ok := registry.MMULookup(description.ID)
	if !ok {
		return nil, utils.NewNotFoundError("registered MMU", description.ID)
	}
	return construct(description.ID, constructor)
}
