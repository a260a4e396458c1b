package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/meigma/car"
)

func (a *app) newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Summarize an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := car.InspectFile(args[0], a.readOptions()...)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "version:\t%d\n", s.Version)
			fmt.Fprintf(tw, "roots:\t%d\n", s.Roots)
			fmt.Fprintf(tw, "header size:\t%d\n", s.HeaderSize)
			fmt.Fprintf(tw, "size:\t%d\n", s.Size)
			fmt.Fprintf(tw, "trailing:\t%d\n", s.Trailing)
			fmt.Fprintf(tw, "digest:\t%s\n", s.Digest)
			return tw.Flush()
		},
	}
}
