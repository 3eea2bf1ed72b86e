// Package module instantiates MMUs from the artifacts staged by discovery. Every dynamic
// loading strategy lives behind the Loader interface.
package module

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/mosim-go/mmuadapter/logging"
	"github.com/mosim-go/mmuadapter/mmi"
	"github.com/mosim-go/mmuadapter/mmu"
	"github.com/mosim-go/mmuadapter/utils"
)

// Loader creates a new MMU instance for a descriptor from the catalog.
type Loader interface {
	Instantiate(ctx context.Context, description mmi.MMUDescription) (mmu.MMU, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, description mmi.MMUDescription) (mmu.MMU, error)

// Instantiate calls f.
func (f LoaderFunc) Instantiate(ctx context.Context, description mmi.MMUDescription) (mmu.MMU, error) {
	return f(ctx, description)
}

// LanguageLoader dispatches to a loader per declared implementation language.
type LanguageLoader struct {
	loaders map[string]Loader
	logger  logging.Logger
}

// NewLanguageLoader returns a loader dispatching on MMUDescription.Language. Languages are
// compared case insensitively.
func NewLanguageLoader(loaders map[string]Loader, logger logging.Logger) *LanguageLoader {
	normalized := make(map[string]Loader, len(loaders))
	for language, loader := range loaders {
		normalized[strings.ToUpper(language)] = loader
	}
	return &LanguageLoader{loaders: normalized, logger: logger}
}

// Instantiate forwards to the loader registered for the descriptor language.
func (l *LanguageLoader) Instantiate(ctx context.Context, description mmi.MMUDescription) (mmu.MMU, error) {
	loader, ok := l.loaders[strings.ToUpper(description.Language)]
	if !ok {
		return nil, errors.Errorf("no loader for language %q of MMU %s", description.Language, description.ID)
	}
	instance, err := loader.Instantiate(ctx, description)
	if err != nil {
		return nil, err
	}
	l.logger.Debugw("instantiated MMU", "id", description.ID, "language", description.Language)
	return instance, nil
}

// ChainLoader tries its loaders in order and returns the first instance created.
type ChainLoader []Loader

// Instantiate returns the instance of the first loader that succeeds, or the combined errors of
// all of them.
func (c ChainLoader) Instantiate(ctx context.Context, description mmi.MMUDescription) (mmu.MMU, error) {
	var errs error
	for _, loader := range c {
		instance, err := loader.Instantiate(ctx, description)
		if err == nil {
			return instance, nil
		}
		errs = multierr.Append(errs, err)
	}
	if errs == nil {
		return nil, errors.Errorf("no loader configured for MMU %s", description.ID)
	}
	return nil, errs
}

// construct calls the constructor and turns a panic or a nil instance into an error.
func construct(id string, constructor func() mmu.MMU) (instance mmu.MMU, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("constructor of MMU %s panicked: %v", id, r)
		}
	}()
	instance = constructor()
	if instance == nil {
		return nil, errors.Errorf("constructor of MMU %s returned nil", id)
	}
	return instance, nil
}

// stagedArtifact returns the path of the artifact staged for the MMU id, i.e. the staging
// directory entry named "<id>" or "<id>.<ext>".
func stagedArtifact(stagingDir, id string) (string, error) {
	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", utils.NewNotFoundError("artifact", id)
		}
		return "", errors.Wrapf(err, "failed to read staging directory %s", stagingDir)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (name != id && !strings.HasPrefix(name, id+".")) {
			continue
		}
		return utils.SafeJoinDir(stagingDir, name)
	}
	return "", utils.NewNotFoundError("artifact", id)
}
