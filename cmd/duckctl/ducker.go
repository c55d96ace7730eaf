package main

import (
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

// duckerCmd is an opaque pass-through to the third-party container
// TUI browser (spec.md §1's deliberate third-party dependency, §6's
// `ducker [args…]`): duckctl never parses these arguments itself, it
// just execs the `ducker` binary on PATH with them and inherits its
// exit code and stdio.
var duckerCmd = &cobra.Command{
	Use:                "ducker -- [args...]",
	Short:              "Launch the third-party container TUI browser",
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		bin, err := exec.LookPath("ducker")
		if err != nil {
			return usagef("ducker is not installed or not on PATH: %v", err)
		}
		c := exec.Command(bin, args...)
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				os.Exit(exitErr.ExitCode())
			}
			return err
		}
		return nil
	},
}
