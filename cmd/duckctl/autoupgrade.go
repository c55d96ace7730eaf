package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/duckclient/duck-cli/pkg/orchestrator"
)

// autoUpgradeDeployCmd exposes the delayed-upgrade scheduler (spec.md
// §4.7): an immediate run, a "deploy in N minutes/hours/days" request,
// and a status view of the current pending task.
var autoUpgradeDeployCmd = &cobra.Command{
	Use:   "auto-upgrade-deploy",
	Short: "Run, schedule, or inspect a delayed docker-service upgrade",
}

var autoUpgradeDeployRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a deployment cycle immediately, bypassing any pending schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFromCmd(cmd)
		defer a.Close()
		return runDeployment(a, cmd, orchestrator.UpgradeRequest{Force: true})
	},
}

var autoUpgradeDeployDelayCmd = &cobra.Command{
	Use:   "delay-time-deploy <N> <unit>",
	Short: "Schedule a deployment N minutes|hours|days from now",
	Long: `Schedules exactly one pending upgrade task. Calling this again
before the first fires cancels it and replaces it with the new
schedule (spec.md §3's scheduled-task invariant: at most one Pending
task per task_type).`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.Atoi(args[0])
		if err != nil {
			return usagef("invalid amount %q: %v", args[0], err)
		}
		unit := args[1]
		version, _ := cmd.Flags().GetString("version")

		a := appFromCmd(cmd)
		defer a.Close()

		sched, err := a.DelayedUpgradeScheduler()
		if err != nil {
			return err
		}
		task, err := sched.ScheduleDelayedDeploy(cmd.Context(), amount, unit, version)
		if err != nil {
			return usagef("%v", err)
		}
		fmt.Printf("Scheduled task #%d for %s (%s)\n", task.ID, task.ScheduledAt.Format("2006-01-02 15:04:05"), task.TaskType)
		return nil
	},
}

var autoUpgradeDeployStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the pending scheduled upgrade task, if any",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFromCmd(cmd)
		defer a.Close()

		store, err := a.Storage()
		if err != nil {
			return err
		}
		tasks, err := store.GetPendingTasks(cmd.Context())
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			fmt.Println("No pending scheduled upgrade.")
			return nil
		}
		for _, t := range tasks {
			fmt.Printf("#%d %s -> %s scheduled for %s (%s)\n",
				t.ID, t.TaskType, t.TargetVersion, t.ScheduledAt.Format("2006-01-02 15:04:05"), t.Status)
		}
		return nil
	},
}

func init() {
	autoUpgradeDeployDelayCmd.Flags().String("version", "", "Version recorded on the scheduled task; the deployment itself installs the latest version available when the task fires")
	autoUpgradeDeployCmd.AddCommand(autoUpgradeDeployRunCmd, autoUpgradeDeployDelayCmd, autoUpgradeDeployStatusCmd)
}
