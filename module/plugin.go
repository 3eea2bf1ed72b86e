package module

import (
	"context"
	"os"
	"plugin"

	"github.com/pkg/errors"

	"github.com/mosim-go/mmuadapter/logging"
	"github.com/mosim-go/mmuadapter/mmi"
	"github.com/mosim-go/mmuadapter/mmu"
	"github.com/mosim-go/mmuadapter/utils"
)

// ConstructorSymbol is the symbol an MMU plugin exports. It must be a function with the
// signature func() mmu.MMU.
const ConstructorSymbol = "NewMMU"

// PluginExtension is the extension of staged Go plugins.
const PluginExtension = ".so"

// PluginLoader instantiates MMUs from Go plugins staged as "<id>.so".
type PluginLoader struct {
	stagingDir string
	logger     logging.Logger
}

// NewPluginLoader returns a loader opening plugins from the staging directory.
func NewPluginLoader(stagingDir string, logger logging.Logger) *PluginLoader {
	return &PluginLoader{stagingDir: stagingDir, logger: logger}
}

// Instantiate opens the plugin staged for the descriptor and calls its constructor. A plugin
// stays loaded for the lifetime of the process; further instances reuse it.
func (l *PluginLoader) Instantiate(ctx context.Context, description mmi.MMUDescription) (mmu.MMU, error) {
	path, err := utils.SafeJoinDir(l.stagingDir, description.ID+PluginExtension)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, utils.NewNotFoundError("artifact", description.ID)
		}
		return nil, err
	}

	p, err := plugin.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open plugin of MMU %s", description.ID)
	}
	symbol, err := p.Lookup(ConstructorSymbol)
	if err != nil {
		return nil, errors.Wrapf(err, "plugin of MMU %s exports no %s", description.ID, ConstructorSymbol)
	}

	var constructor func() mmu.MMU
	switch typed := symbol.(type) {
	case func() mmu.MMU:
		constructor = typed
	case *mmu.Constructor:
		constructor = *typed
	default:
		return nil, errors.Wrapf(utils.NewUnexpectedTypeError(constructor, symbol),
			"symbol %s of MMU %s", ConstructorSymbol, description.ID)
	}
	l.logger.Debugw("opened MMU plugin", "id", description.ID, "path", path)
	return construct(description.ID, constructor)
}
