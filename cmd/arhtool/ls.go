package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jchantrell/goarh/internal/archive"
	"github.com/jchantrell/goarh/internal/utils"
)

var lsRecursive bool
var lsLong bool

var lsCmd = &cobra.Command{
	Use:   "ls <archive.arh> [dir]",
	Short: "List files and directories in an archive",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "/"
		if len(args) > 1 {
			dir = args[1]
		}

		arhPath, ardPath := archivePaths(args[0])
		a, err := archive.Open(arhPath, ardPath)
		if err != nil {
			return err
		}
		defer a.Close()

		return listDir(a, dir, lsRecursive, lsLong)
	},
}

func listDir(a *archive.Archive, dir string, recursive, long bool) error {
	entries, err := a.List(dir)
	if err != nil {
		return fmt.Errorf("listing %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	prefix := strings.TrimSuffix(dir, "/")
	for _, e := range entries {
		full := prefix + "/" + e.Name
		switch e.Kind {
		case archive.EntryDir:
			fmt.Printf("%s/\n", full)
			if recursive {
				if err := listDir(a, full, true, long); err != nil {
					return err
				}
			}
		default:
			if long {
				meta, err := a.Stat(full)
				if err != nil {
					return fmt.Errorf("stat %s: %w", full, err)
				}
				fmt.Printf("%12s  %s\n", utils.Number(int64(meta.UncompressedSize)), full)
			} else {
				fmt.Println(full)
			}
		}
	}
	return nil
}

func init() {
	lsCmd.Flags().BoolVarP(&lsRecursive, "recursive", "r", false, "recurse into subdirectories")
	lsCmd.Flags().BoolVarP(&lsLong, "long", "l", false, "show file sizes")
	rootCmd.AddCommand(lsCmd)
}
