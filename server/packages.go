package server

import (
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/mosim-go/mmuadapter/config"
	"github.com/mosim-go/mmuadapter/discovery"
	"github.com/mosim-go/mmuadapter/logging"
	"github.com/mosim-go/mmuadapter/mmi"
)

// packagesCommand lists the MMUs a directory offers without serving them. Artifacts are staged
// into a temporary directory that is removed afterwards.
func packagesCommand() *cli.Command {
	return &cli.Command{
		Name:      "packages",
		Usage:     "list the loadable MMUs found in a directory",
		ArgsUsage: "<mmu-path>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  flagLanguage,
				Usage: "implementation language of loadable MMUs, repeatable",
				Value: cli.NewStringSlice(config.DefaultLanguage),
			},
		},
		Action: func(c *cli.Context) error {
			root := c.Args().First()
			if root == "" {
				return errors.New("packages requires the MMU directory as argument")
			}
			staging, err := os.MkdirTemp("", "mmu-packages-")
			if err != nil {
				return err
			}
			defer func() {
				//nolint:errcheck
				os.RemoveAll(staging)
			}()

			logger := logging.NewLogger("packages")
			logger.SetLevel(logging.WARN)
			disc, err := discovery.New(discovery.Options{
				Root:       root,
				StagingDir: staging,
				Languages:  c.StringSlice(flagLanguage),
			}, discovery.NewCatalog(), logger)
			if err != nil {
				return err
			}
			disc.Scan(c.Context)
			writePackageTable(c.App.Writer, disc.Catalog().List())
			return nil
		},
	}
}

func writePackageTable(w io.Writer, descriptions []mmi.MMUDescription) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"ID", "Name", "Language", "Motion Type", "Version", "Artifact"})
	for _, description := range descriptions {
		t.AppendRow(table.Row{
			description.ID,
			description.Name,
			description.Language,
			description.MotionType,
			description.Version,
			discovery.ArtifactName(description),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "Total", len(descriptions)})
	t.Render()
}
