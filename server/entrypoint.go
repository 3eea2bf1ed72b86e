// Package server implements the entry point for running an MMU adapter.
package server

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"github.com/mosim-go/mmuadapter/adapter"
	"github.com/mosim-go/mmuadapter/config"
	"github.com/mosim-go/mmuadapter/logging"
)

// Flags.
const (
	flagAddress  = "address"
	flagRegister = "register"
	flagMMUPath  = "mmu-path"
	flagLogLevel = "log-level"
	flagConfig   = "config"
	flagLanguage = "language"
	flagLogFile  = "log-file"
)

// NewApp returns the command line application of the adapter.
func NewApp() *cli.App {
	return newApp(RunServer)
}

func newApp(run func(ctx context.Context, cfg *config.Config, logger logging.Logger) error) *cli.App {
	return &cli.App{
		Name:    "mmu-adapter",
		Usage:   "serve loadable motion model units to a co-simulation",
		Version: adapter.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagAddress,
				Aliases: []string{"a"},
				Usage:   "host:port the adapter serves on",
			},
			&cli.StringFlag{
				Name:    flagRegister,
				Aliases: []string{"r"},
				Usage:   "host:port of the register",
			},
			&cli.StringFlag{
				Name:    flagMMUPath,
				Aliases: []string{"m"},
				Usage:   "directory scanned for MMU packages",
			},
			&cli.StringFlag{
				Name:    flagLogLevel,
				Aliases: []string{"l"},
				Usage:   "DEBUG, INFO, WARN or ERROR, or the verbosity 0-3",
			},
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "JSON config file; flags override its values",
			},
			&cli.StringSliceFlag{
				Name:  flagLanguage,
				Usage: "implementation language of loadable MMUs, repeatable",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also write logs to this rotating file",
			},
		},
		Commands: []*cli.Command{packagesCommand()},
		Action: func(c *cli.Context) error {
			cfg, err := configFromCLI(c)
			if err != nil {
				return err
			}
			logger := logging.NewLogger("adapter")
			return run(c.Context, cfg, logger)
		},
	}
}

// configFromCLI reads the config file, if any, and applies the flags on top of it.
func configFromCLI(c *cli.Context) (*config.Config, error) {
	cfg := &config.Config{}
	if path := c.String(flagConfig); path != "" {
		read, err := config.Read(path)
		if err != nil {
			return nil, err
		}
		cfg = read
	}

	if c.IsSet(flagAddress) {
		cfg.AdapterAddress = c.String(flagAddress)
	}
	if c.IsSet(flagRegister) {
		cfg.RegisterAddress = c.String(flagRegister)
	}
	if c.IsSet(flagMMUPath) {
		cfg.MMUPath = c.String(flagMMUPath)
	}
	if c.IsSet(flagLogLevel) {
		cfg.LogLevel = c.String(flagLogLevel)
	}
	if c.IsSet(flagLanguage) {
		cfg.Languages = c.StringSlice(flagLanguage)
	}
	if c.IsSet(flagLogFile) {
		cfg.LogFile = c.String(flagLogFile)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// RunServer runs an adapter for cfg until ctx is done. cfg must be validated.
func RunServer(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	level, err := logging.LevelFromString(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	if cfg.LogFile != "" {
		appender, closer := logging.NewFileAppender(cfg.LogFile)
		logger.AddAppender(appender)
		defer goutils.UncheckedErrorFunc(closer.Close)
	}
	defer goutils.UncheckedErrorFunc(logger.Sync)

	maxArtifactSize, err := cfg.MaxArtifactBytes()
	if err != nil {
		return err
	}

	logger.Infow("MMU adapter", "version", adapter.Version, "name", cfg.Name, "id", cfg.ID,
		"address", cfg.AdapterAddress, "register", cfg.RegisterAddress, "mmu_path", cfg.MMUPath,
		"languages", cfg.Languages)

	controller, err := adapter.New(adapter.Options{
		Name:            cfg.Name,
		ID:              cfg.ID,
		Address:         cfg.AdapterAddress,
		RegisterAddress: cfg.RegisterAddress,
		MMUPath:         cfg.MMUPath,
		StagingDir:      cfg.StagingDir,
		Languages:       cfg.Languages,
		SettleDelay:     time.Duration(cfg.SettleDelay),
		MaxArtifactSize: maxArtifactSize,
		RetryInitial:    time.Duration(cfg.RegisterRetryInitial),
		RetryMax:        time.Duration(cfg.RegisterRetryMax),
	}, logger)
	if err != nil {
		return err
	}
	return controller.Run(ctx)
}
