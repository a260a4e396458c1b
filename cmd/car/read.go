package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/meigma/car"
)

func (a *app) newReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <file>",
		Short: "Print every row of an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			return car.Scan(f, func(r car.Row) error {
				printRow(a.out, r)
				return nil
			}, a.readOptions()...)
		},
	}
}
