package main

import (
	"fmt"

	"github.com/odvcencio/hull/pkg/porcelain"
	"github.com/odvcencio/hull/pkg/repo"
	"github.com/spf13/cobra"
)

func newRevListCmd() *cobra.Command {
	var fromRev, toRev string
	var maxLines int

	cmd := &cobra.Command{
		Use:   "rev-list",
		Short: "List commit hashes reachable from a revision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := porcelain.Existing(".")
			if err != nil {
				return err
			}

			entries, err := f.RevList(repo.RevListOptions{
				FromRev:  fromRev,
				ToRev:    toRev,
				MaxLines: maxLines,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintln(out, e.Hash)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&fromRev, "from", "", "exclusive lower bound revision")
	cmd.Flags().StringVar(&toRev, "to", "", "start revision (default HEAD)")
	cmd.Flags().IntVar(&maxLines, "max-count", -1, "maximum number of commits (-1 for unbounded)")
	return cmd
}

func newWhatchangedCmd() *cobra.Command {
	var fromRev, toRev string
	var maxLines int

	cmd := &cobra.Command{
		Use:   "whatchanged",
		Short: "Show commit metadata for each reachable commit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := porcelain.Existing(".")
			if err != nil {
				return err
			}

			entries, err := f.Whatchanged(repo.RevListOptions{
				FromRev:  fromRev,
				ToRev:    toRev,
				MaxLines: maxLines,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(out, "commit %s\n", e.CommitHash)
				fmt.Fprintf(out, "Author: %s <%s>\n", e.Author.Name, e.Author.Email)
				fmt.Fprintln(out)
				fmt.Fprintf(out, "    %s\n", e.Subject)
				if e.Body != "" {
					fmt.Fprintln(out)
					fmt.Fprintf(out, "    %s\n", e.Body)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&fromRev, "from", "", "exclusive lower bound revision")
	cmd.Flags().StringVar(&toRev, "to", "", "start revision (default HEAD)")
	cmd.Flags().IntVar(&maxLines, "max-count", -1, "maximum number of commits (-1 for unbounded)")
	return cmd
}
