package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/duckclient/duck-cli/pkg/orchestrator"
)

// dockerServiceCmd groups every command that talks directly to the
// container driver or deployment orchestrator for the managed stack,
// as opposed to check-update/upgrade, which talk to the manifest
// server first (spec.md §6).
var dockerServiceCmd = &cobra.Command{
	Use:   "docker-service",
	Short: "Manage the docker-compose service stack",
}

var dockerServiceDeployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Run preflight and a full deployment cycle against the currently cached bundle",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		version, _ := cmd.Flags().GetString("version")
		a := appFromCmd(cmd)
		defer a.Close()
		return runDeployment(a, cmd, orchestrator.UpgradeRequest{CurrentVersion: version, Force: force})
	},
}

var dockerServiceStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the service stack",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFromCmd(cmd)
		defer a.Close()
		driver, err := a.ContainerDriver()
		if err != nil {
			return err
		}
		if err := driver.StartServices(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Services started.")
		return nil
	},
}

var dockerServiceStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the service stack",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFromCmd(cmd)
		defer a.Close()
		driver, err := a.ContainerDriver()
		if err != nil {
			return err
		}
		if err := driver.StopServices(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Services stopped.")
		return nil
	},
}

var dockerServiceRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the entire service stack",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFromCmd(cmd)
		defer a.Close()
		driver, err := a.ContainerDriver()
		if err != nil {
			return err
		}
		if err := driver.RestartServices(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Services restarted.")
		return nil
	},
}

var dockerServiceRestartContainerCmd = &cobra.Command{
	Use:   "restart-container <name>",
	Short: "Restart a single declared service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFromCmd(cmd)
		defer a.Close()
		driver, err := a.ContainerDriver()
		if err != nil {
			return err
		}
		if err := driver.RestartService(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Service %s restarted.\n", args[0])
		return nil
	},
}

var dockerServiceStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the runtime status of every declared service",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFromCmd(cmd)
		defer a.Close()
		driver, err := a.ContainerDriver()
		if err != nil {
			return err
		}
		statuses, err := driver.GetServicesStatus(cmd.Context())
		if err != nil {
			return err
		}
		if len(statuses) == 0 {
			fmt.Println("No services declared.")
			return nil
		}
		for _, s := range statuses {
			fmt.Printf("%-20s %-10s %s\n", s.Name, s.Status, s.Image)
		}
		return nil
	},
}

var dockerServiceLoadImagesCmd = &cobra.Command{
	Use:   "load-images",
	Short: "Load and retag every *-<arch>.tar image for this host's architecture",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFromCmd(cmd)
		defer a.Close()
		driver, err := a.ContainerDriver()
		if err != nil {
			return err
		}
		loaded, err := orchestrator.LoadAndRetagImages(cmd.Context(), driver, a.imagesDir, orchestrator.HostArch())
		if err != nil {
			return err
		}
		for _, li := range loaded {
			if li.Retagged {
				fmt.Printf("%s -> %s (retagged to %s)\n", li.File, li.LoadedRef, li.RetaggedRef)
			} else {
				fmt.Printf("%s -> %s\n", li.File, li.LoadedRef)
			}
		}
		return nil
	},
}

// dockerServiceSetupTagsCmd runs the same load-and-retag pass as
// load-images (every *-<arch>.tar for this host is loaded again) but
// reports only the retags. It does not retag images that were loaded
// by other means without their tarball.
var dockerServiceSetupTagsCmd = &cobra.Command{
	Use:   "setup-tags",
	Short: "Reload this host's image tarballs and report their retags to the architecture-free canonical reference",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFromCmd(cmd)
		defer a.Close()
		driver, err := a.ContainerDriver()
		if err != nil {
			return err
		}
		loaded, err := orchestrator.LoadAndRetagImages(cmd.Context(), driver, a.imagesDir, orchestrator.HostArch())
		if err != nil {
			return err
		}
		retagged := 0
		for _, li := range loaded {
			if li.Retagged {
				retagged++
				fmt.Printf("%s -> %s\n", li.LoadedRef, li.RetaggedRef)
			}
		}
		fmt.Printf("%d image(s) retagged.\n", retagged)
		return nil
	},
}

var dockerServiceArchInfoCmd = &cobra.Command{
	Use:   "arch-info",
	Short: "Print the host architecture suffix used to select image tarballs",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(orchestrator.HostArch())
		return nil
	},
}

func init() {
	dockerServiceDeployCmd.Flags().Bool("force", false, "Deploy even if already current")
	dockerServiceDeployCmd.Flags().String("version", "", "Treat this as the currently-installed version instead of reading persisted config")

	dockerServiceCmd.AddCommand(
		dockerServiceDeployCmd,
		dockerServiceStartCmd,
		dockerServiceStopCmd,
		dockerServiceRestartCmd,
		dockerServiceRestartContainerCmd,
		dockerServiceStatusCmd,
		dockerServiceLoadImagesCmd,
		dockerServiceSetupTagsCmd,
		dockerServiceArchInfoCmd,
	)
}
