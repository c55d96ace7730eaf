package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/duckclient/duck-cli/pkg/downloader"
	"github.com/duckclient/duck-cli/pkg/metrics"
)

// upgradeCmd downloads the latest (or, with --full, always the full
// rather than patch) docker-service bundle into the version cache
// without touching the running stack — spec.md §6 calls this out
// explicitly as "download only", distinct from `docker-service deploy`
// and `check-update install`, which both run the full orchestrator
// cycle that includes this same download step.
var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Download the latest docker-service bundle (download only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFromCmd(cmd)
		defer a.Close()
		ctx := cmd.Context()

		full, _ := cmd.Flags().GetBool("full")
		force, _ := cmd.Flags().GetBool("force")

		api, err := a.APIClient()
		if err != nil {
			return err
		}
		manifest, err := api.CheckVersion(ctx)
		if err != nil {
			return err
		}

		current, ok, err := a.currentServiceVersion(ctx)
		if err != nil {
			return err
		}
		if !force && ok && current == manifest.Version {
			fmt.Printf("Already have version %s; nothing to download (use --force to re-download).\n", manifest.Version)
			return nil
		}

		pkg := manifest.Full
		bundleKind := "full"
		if !full && manifest.Patch != nil {
			pkg = *manifest.Patch
			bundleKind = "patch"
		}

		targetPath := filepath.Join(a.cacheDir, manifest.Version, bundleKind, "docker.zip")

		timer := metrics.NewTimer()
		err = a.Downloader().Download(ctx, downloader.Request{
			URL:          pkg.URL,
			TargetPath:   targetPath,
			Version:      manifest.Version,
			ExpectedSize: pkg.Size,
			ExpectedHash: pkg.Hash,
		}, nil)
		timer.ObserveDuration(metrics.DownloadDuration)
		if err != nil {
			metrics.DownloadsTotal.WithLabelValues("failed").Inc()
			return err
		}
		metrics.DownloadsTotal.WithLabelValues("completed").Inc()
		metrics.DownloadBytesTotal.Add(float64(pkg.Size))

		fmt.Printf("Downloaded %s bundle for version %s to %s\n", bundleKind, manifest.Version, targetPath)
		return nil
	},
}

func init() {
	upgradeCmd.Flags().Bool("full", false, "Always download the full bundle rather than a patch")
	upgradeCmd.Flags().Bool("force", false, "Re-download even if already current")
}
