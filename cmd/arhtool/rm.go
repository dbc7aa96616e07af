package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jchantrell/goarh/internal/archive"
)

var rmCmd = &cobra.Command{
	Use:   "rm <archive.arh> <archive-path>",
	Short: "Remove a file from an archive",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		arhPath, ardPath := archivePaths(args[0])
		a, err := archive.Open(arhPath, ardPath)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Unlink(args[1]); err != nil {
			return fmt.Errorf("removing %s: %w", args[1], err)
		}
		if err := a.Commit(); err != nil {
			return fmt.Errorf("committing archive: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
