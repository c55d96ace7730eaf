package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/duckclient/duck-cli/pkg/metrics"
	"github.com/duckclient/duck-cli/pkg/orchestrator"
)

// checkUpdateCmd reports on or installs an available docker-service
// update. `check` only queries the manifest server (spec.md §4.2's
// checkVersion); `install` runs a full deployment cycle, the same one
// `docker-service deploy` runs, addressable by name for scripted callers.
var checkUpdateCmd = &cobra.Command{
	Use:   "check-update",
	Short: "Check for, or install, a docker-service update",
}

var checkUpdateCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Query whether a newer docker-service version is available",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFromCmd(cmd)
		defer a.Close()
		ctx := cmd.Context()

		api, err := a.APIClient()
		if err != nil {
			return err
		}
		manifest, err := api.CheckVersion(ctx)
		if err != nil {
			metrics.APIRequestsTotal.WithLabelValues("check_version", "error").Inc()
			return err
		}
		metrics.APIRequestsTotal.WithLabelValues("check_version", "ok").Inc()

		current, ok, err := a.currentServiceVersion(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Latest version: %s (released %s)\n", manifest.Version, manifest.ReleaseDate)
		if ok {
			fmt.Printf("Installed version: %s\n", current)
		} else {
			fmt.Println("Installed version: (none)")
		}
		if !ok || current != manifest.Version {
			fmt.Println("An update is available.")
		} else {
			fmt.Println("Already up to date.")
		}
		return nil
	},
}

var checkUpdateInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Download and apply a docker-service update",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFromCmd(cmd)
		defer a.Close()

		force, _ := cmd.Flags().GetBool("force")
		version, _ := cmd.Flags().GetString("version")

		return runDeployment(a, cmd, orchestrator.UpgradeRequest{CurrentVersion: version, Force: force})
	},
}

func init() {
	checkUpdateInstallCmd.Flags().String("version", "", "Treat this as the currently-installed version instead of reading persisted config")
	checkUpdateInstallCmd.Flags().Bool("force", false, "Install even if already current")
	checkUpdateCmd.AddCommand(checkUpdateCheckCmd)
	checkUpdateCmd.AddCommand(checkUpdateInstallCmd)
}

// runDeployment acquires the advisory lock, runs the orchestrator, and
// translates the result into the process's exit behavior. Shared by
// check-update install, docker-service deploy, and auto-upgrade-deploy
// run, which all drive a full deployment cycle (spec.md §4.6).
func runDeployment(a *app, cmd *cobra.Command, req orchestrator.UpgradeRequest) error {
	acquired, err := a.Lock()
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("another duckctl deployment is already running against %s", a.workDir)
	}
	defer a.Unlock()

	orch, err := a.Orchestrator()
	if err != nil {
		return err
	}

	if _, err := orch.Preflight(cmd.Context()); err != nil {
		return err
	}

	timer := metrics.NewTimer()
	result := orch.Run(cmd.Context(), req)
	timer.ObserveDuration(metrics.DeploymentDuration)
	metrics.DeploymentsTotal.WithLabelValues(string(result.FinalState)).Inc()
	if result.RolledBackTo != 0 {
		metrics.DeploymentRollbacksTotal.Inc()
	}

	if !result.Success {
		return fmt.Errorf("deployment failed: %s", result.Error)
	}
	fmt.Println("Deployment complete.")
	return nil
}
