package main

import (
	"fmt"

	"github.com/odvcencio/hull/pkg/porcelain"
	"github.com/spf13/cobra"
)

func newLsFilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls-files",
		Short: "Show files staged in the index and present on disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := porcelain.Existing(".")
			if err != nil {
				return err
			}

			entries, err := f.LsFiles()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(out, "%s %s\n", e.Status, e.Path)
			}
			return nil
		},
	}
}
