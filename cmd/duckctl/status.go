package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// statusCmd aggregates client identity, compose file presence, and
// docker engine reachability in one view, grounded in the original
// implementation's run_status (original_source/duck-cli/src/commands/
// status.rs): one command a first-time user runs to see what state
// they're in and what to do next.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show client identity, file, and docker-service status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFromCmd(cmd)
		defer a.Close()
		ctx := cmd.Context()

		id, err := a.Identity()
		if err != nil {
			return err
		}
		identity, err := id.Bootstrap(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Client UUID: %s\n", identity.LocalUUID)
		if identity.Registered() {
			fmt.Printf("Server client ID: %s\n", identity.ServerClientID)
		} else {
			fmt.Println("Server client ID: (not registered)")
		}

		composeExists := fileExists(a.composeFile)
		if composeExists {
			fmt.Printf("Docker Compose file: %s (present)\n", a.composeFile)
		} else {
			fmt.Printf("Docker Compose file: %s (missing)\n", a.composeFile)
		}

		driver, err := a.ContainerDriver()
		if err != nil {
			return err
		}
		if err := driver.CheckDockerStatus(ctx); err != nil {
			fmt.Println("Docker engine: unreachable")
		} else {
			fmt.Println("Docker engine: reachable")
			if composeExists {
				statuses, err := driver.GetServicesStatus(ctx)
				if err != nil {
					fmt.Printf("  service status check failed: %v\n", err)
				} else {
					for _, s := range statuses {
						fmt.Printf("  %-20s %s\n", s.Name, s.Status)
					}
				}
			}
		}

		store, err := a.Storage()
		if err != nil {
			return err
		}
		tasks, err := store.GetPendingTasks(ctx)
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			fmt.Println("Pending scheduled tasks: none")
		} else {
			fmt.Println("Pending scheduled tasks:")
			for _, t := range tasks {
				fmt.Printf("  #%d %s -> %s at %s\n", t.ID, t.TaskType, t.TargetVersion, t.ScheduledAt.Format("2006-01-02 15:04:05"))
			}
		}

		if !composeExists {
			fmt.Println()
			fmt.Println("This looks like a first run. Suggested next steps:")
			fmt.Println("  1. duckctl upgrade             (download the docker-service bundle)")
			fmt.Println("  2. duckctl docker-service deploy  (extract, load images, start)")
		}

		return nil
	},
}

// apiInfoCmd reports the configured manifest server and registration
// state, supplementing status with the API-facing half of the same
// picture (SPEC_FULL.md's Supplemented Features).
var apiInfoCmd = &cobra.Command{
	Use:   "api-info",
	Short: "Show the configured manifest server and registration state",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFromCmd(cmd)
		defer a.Close()
		ctx := cmd.Context()

		id, err := a.Identity()
		if err != nil {
			return err
		}
		identity, err := id.Load(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Manifest server: %s\n", a.apiBaseURL)
		fmt.Printf("Registered: %t\n", identity.Registered())
		if identity.Registered() {
			fmt.Printf("Server client ID: %s\n", identity.ServerClientID)
		}
		return nil
	},
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
