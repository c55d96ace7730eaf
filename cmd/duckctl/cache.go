package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/duckclient/duck-cli/pkg/downloader"
)

// cacheCmd inspects and prunes the versioned bundle cache under
// cacheDuckData/download (spec.md §6), supplementing the original
// implementation's cache.rs command (SPEC_FULL.md's Supplemented
// Features): not part of docker-service, since it concerns the
// download cache rather than the live stack.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clean the versioned bundle download cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached bundles, complete and partial",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFromCmd(cmd)
		defer a.Close()

		entries, err := downloader.InspectCacheDir(a.cacheDir)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("Cache is empty.")
			return nil
		}
		for _, e := range entries {
			if e.Sidecar != nil {
				fmt.Printf("%-12s %-6s %-10d bytes  partial (%d/%d bytes downloaded)  %s\n",
					e.Version, e.Kind, e.SizeBytes, e.Sidecar.DownloadedBytes, e.Sidecar.ExpectedSize, e.Path)
			} else {
				fmt.Printf("%-12s %-6s %-10d bytes  complete  %s\n", e.Version, e.Kind, e.SizeBytes, e.Path)
			}
		}
		return nil
	},
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove every cached bundle and sidecar",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFromCmd(cmd)
		defer a.Close()

		entries, err := downloader.InspectCacheDir(a.cacheDir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := downloader.RemoveCacheEntry(e.Path); err != nil {
				return err
			}
		}
		fmt.Printf("Removed %d cached bundle(s).\n", len(entries))
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheListCmd, cacheCleanCmd)
}
