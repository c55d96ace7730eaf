package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/duckclient/duck-cli/pkg/backup"
	"github.com/duckclient/duck-cli/pkg/metrics"
	"github.com/duckclient/duck-cli/pkg/types"
)

// backupCmd takes a Manual cold backup of the stack's data directories
// (spec.md §4.4). Creation refuses to proceed unless the stack is
// fully stopped; the engine itself enforces that precondition, so this
// command just surfaces whatever error it returns.
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create a manual cold backup of the stack's data directories",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFromCmd(cmd)
		defer a.Close()
		ctx := cmd.Context()

		engine, err := a.BackupEngine()
		if err != nil {
			return err
		}
		dataDirs, err := a.DataDirs()
		if err != nil {
			return err
		}
		if len(dataDirs) == 0 {
			return usagef("no bind-mounted data directories found under %s; nothing to back up", a.composeFile)
		}

		version, _, err := a.currentServiceVersion(ctx)
		if err != nil {
			return err
		}

		timer := metrics.NewTimer()
		rec, err := engine.Create(ctx, backup.CreateRequest{
			BackupType:     types.BackupTypeManual,
			ServiceVersion: version,
			SourceDirs:     dataDirs,
		})
		timer.ObserveDuration(metrics.BackupDuration)
		if err != nil {
			metrics.BackupsTotal.WithLabelValues(string(types.BackupTypeManual), "failed").Inc()
			return err
		}
		metrics.BackupsTotal.WithLabelValues(string(types.BackupTypeManual), "completed").Inc()

		fmt.Printf("Backup #%d created: %s\n", rec.ID, rec.FilePath)
		return nil
	},
}

// listBackupsCmd prints every backup record, newest first.
var listBackupsCmd = &cobra.Command{
	Use:   "list-backups",
	Short: "List recorded backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFromCmd(cmd)
		defer a.Close()

		store, err := a.Storage()
		if err != nil {
			return err
		}
		backups, err := store.ListBackups(cmd.Context())
		if err != nil {
			return err
		}
		if len(backups) == 0 {
			fmt.Println("No backups recorded.")
			return nil
		}
		fmt.Printf("%-5s %-12s %-10s %-10s %-20s %s\n", "ID", "VERSION", "TYPE", "STATUS", "CREATED", "FILE")
		for _, b := range backups {
			fmt.Printf("%-5d %-12s %-10s %-10s %-20s %s\n",
				b.ID, b.ServiceVersion, b.BackupType, b.Status, b.CreatedAt.Format("2006-01-02 15:04:05"), b.FilePath)
		}
		return nil
	},
}

// rollbackCmd restores a previously recorded backup into the working
// docker/ directory and restarts the stack (spec.md §4.4's Restore,
// driven directly rather than through the orchestrator's failure
// handler, for an operator-initiated rollback).
var rollbackCmd = &cobra.Command{
	Use:   "rollback <id>",
	Short: "Restore a recorded backup and restart the stack",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseBackupID(args[0])
		if err != nil {
			return usagef("%v", err)
		}
		force, _ := cmd.Flags().GetBool("force")

		a := appFromCmd(cmd)
		defer a.Close()
		ctx := cmd.Context()

		acquired, err := a.Lock()
		if err != nil {
			return err
		}
		if !acquired {
			return fmt.Errorf("another duckctl deployment is already running against %s", a.workDir)
		}
		defer a.Unlock()

		engine, err := a.BackupEngine()
		if err != nil {
			return err
		}

		timer := metrics.NewTimer()
		err = engine.Restore(ctx, backup.RestoreRequest{
			BackupID:       id,
			TargetDir:      a.dockerRoot,
			ForceOverwrite: force,
		})
		timer.ObserveDuration(metrics.RestoreDuration)
		if err != nil {
			metrics.RestoresTotal.WithLabelValues("failed").Inc()
			return err
		}
		metrics.RestoresTotal.WithLabelValues("completed").Inc()

		fmt.Printf("Rolled back to backup #%d.\n", id)
		return nil
	},
}

func init() {
	rollbackCmd.Flags().Bool("force", false, "Overwrite the existing docker/ directory if present")
}

func parseBackupID(s string) (int64, error) {
	var id int64
	if _, err := fmt.Sscanf(s, "%d", &id); err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid backup id %q", s)
	}
	return id, nil
}
