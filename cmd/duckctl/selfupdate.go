package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/duckclient/duck-cli/pkg/metrics"
)

// selfUpdateCmd drives the self-update channel (C8, spec.md §4.8):
// independent of check-update/upgrade, which manage the docker-service
// bundle version, not the duckctl binary itself.
var selfUpdateCmd = &cobra.Command{
	Use:   "self-update",
	Short: "Check for, or install, a newer duckctl release",
}

var selfUpdateCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Query the release index for a newer duckctl version",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFromCmd(cmd)
		defer a.Close()

		updater, err := a.SelfUpdater()
		if err != nil {
			return err
		}
		exePath, err := os.Executable()
		if err != nil {
			return err
		}
		result, err := updater.CheckAndApply(cmd.Context(), Version, exePath, false)
		if err != nil {
			metrics.SelfUpdateChecksTotal.WithLabelValues("failed").Inc()
			return err
		}
		if result.Applied {
			metrics.SelfUpdateChecksTotal.WithLabelValues("applied").Inc()
			fmt.Printf("Updated duckctl %s -> %s\n", result.FromVersion, result.ToVersion)
		} else {
			metrics.SelfUpdateChecksTotal.WithLabelValues("up_to_date").Inc()
			fmt.Printf("Already up to date (%s); latest is %s.\n", result.FromVersion, result.ToVersion)
		}
		return nil
	},
}

var selfUpdateInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Download and swap in the latest duckctl release",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		a := appFromCmd(cmd)
		defer a.Close()

		updater, err := a.SelfUpdater()
		if err != nil {
			return err
		}
		exePath, err := os.Executable()
		if err != nil {
			return err
		}
		result, err := updater.CheckAndApply(cmd.Context(), Version, exePath, force)
		if err != nil {
			metrics.SelfUpdateChecksTotal.WithLabelValues("failed").Inc()
			return err
		}
		if !result.Applied {
			metrics.SelfUpdateChecksTotal.WithLabelValues("up_to_date").Inc()
			fmt.Printf("Already up to date (%s).\n", result.FromVersion)
			return nil
		}
		metrics.SelfUpdateChecksTotal.WithLabelValues("applied").Inc()
		fmt.Printf("Installed duckctl %s (was %s). Restart to use it.\n", result.ToVersion, result.FromVersion)
		return nil
	},
}

func init() {
	selfUpdateInstallCmd.Flags().Bool("force", false, "Install even if already current")
	selfUpdateCmd.AddCommand(selfUpdateCheckCmd, selfUpdateInstallCmd)
}
