package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meigma/car"
	"github.com/meigma/car/catalog"
)

func (a *app) newIndexCmd() *cobra.Command {
	var outPath, catalogDir string

	cmd := &cobra.Command{
		Use:   "index <file>",
		Short: "Print the offset and length of every block",
		Long: `Index scans an archive and prints, for every row, the byte range of its
block. The ranges can be passed to seek, saved to an index file with
--out, or recorded in a catalog with --catalog.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runIndex(args[0], outPath, a.catalogDir(catalogDir))
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "write the index to this file")
	cmd.Flags().StringVar(&catalogDir, "catalog", "", "record the index in the catalog at this directory (default: catalog_dir from config)")
	return cmd
}

func (a *app) runIndex(path, outPath, catalogDir string) error {
	s, err := car.InspectFile(path, a.readOptions()...)
	if err != nil {
		return err
	}
	for _, e := range s.Index {
		fmt.Fprintf(a.out, "%s -> (offset=%d, length=%d)\n", e.Key, e.Offset, e.Length)
	}

	if outPath != "" {
		if err := car.SaveIndexFile(outPath, car.IndexFile{Archive: s.Digest, Entries: s.Index}); err != nil {
			return err
		}
		a.logger.Info("index written", "path", outPath, "entries", len(s.Index))
	}

	if catalogDir != "" {
		c, err := catalog.Open(catalogDir, catalog.WithLogger(a.logger))
		if err != nil {
			return err
		}
		defer c.Close()
		if err := c.Put(s.Digest, s.Index); err != nil {
			return err
		}
		a.logger.Info("index cataloged", "catalog", catalogDir, "digest", s.Digest)
	}
	return nil
}
