package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/duckclient/duck-cli/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// exitCode lets RunE report the spec's three-way exit status (0/1/2)
// instead of cobra's blanket "any error means 1".
type exitCode int

const (
	exitOK      exitCode = 0
	exitFailure exitCode = 1
	exitUsage   exitCode = 2
)

// usageError marks an error that should exit 2 (invalid arguments)
// rather than 1 (generic failure), per spec.md §6.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if _, ok := err.(usageError); ok {
			os.Exit(int(exitUsage))
		}
		os.Exit(int(exitFailure))
	}
}

var rootCmd = &cobra.Command{
	Use:   "duckctl",
	Short: "duckctl manages a client-side docker-service deployment",
	Long: `duckctl manages the lifecycle of a single docker-compose-based
service deployment on this machine: checking for updates, downloading
and applying them, taking and restoring backups, and running both on a
schedule.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"duckctl version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("work-dir", ".", "Working directory containing docker/, data/, and cacheDuckData/")
	rootCmd.PersistentFlags().String("db-path", "", "Path to the embedded database file (default <work-dir>/data/history.db)")
	rootCmd.PersistentFlags().String("api-base-url", "https://api.example.com", "Manifest server base URL")
	rootCmd.PersistentFlags().String("self-update-base-url", "https://releases.example.com", "Self-update release index base URL")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(apiInfoCmd)
	rootCmd.AddCommand(checkUpdateCmd)
	rootCmd.AddCommand(upgradeCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(listBackupsCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(dockerServiceCmd)
	rootCmd.AddCommand(autoBackupCmd)
	rootCmd.AddCommand(autoUpgradeDeployCmd)
	rootCmd.AddCommand(duckerCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(selfUpdateCmd)
	rootCmd.AddCommand(daemonCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

// appFromCmd builds an *app from the resolved persistent flags of cmd.
func appFromCmd(cmd *cobra.Command) *app {
	workDir, _ := cmd.Flags().GetString("work-dir")
	dbPath, _ := cmd.Flags().GetString("db-path")
	apiBaseURL, _ := cmd.Flags().GetString("api-base-url")
	selfUpdateBaseURL, _ := cmd.Flags().GetString("self-update-base-url")

	if dbPath == "" {
		dbPath = filepath.Join(workDir, "data", "history.db")
	}
	return newApp(workDir, dbPath, apiBaseURL, selfUpdateBaseURL)
}
