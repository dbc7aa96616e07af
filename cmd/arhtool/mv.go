package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jchantrell/goarh/internal/archive"
)

var mvCmd = &cobra.Command{
	Use:   "mv <archive.arh> <old-path> <new-path>",
	Short: "Rename a file inside an archive",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		arhPath, ardPath := archivePaths(args[0])
		a, err := archive.Open(arhPath, ardPath)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Rename(args[1], args[2]); err != nil {
			return fmt.Errorf("renaming %s to %s: %w", args[1], args[2], err)
		}
		if err := a.Commit(); err != nil {
			return fmt.Errorf("committing archive: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mvCmd)
}
