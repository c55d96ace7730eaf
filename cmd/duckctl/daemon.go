package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/duckclient/duck-cli/pkg/log"
	"github.com/duckclient/duck-cli/pkg/metrics"
)

// daemonCmd runs duckctl as a resident process (spec.md §4.7's Open
// Question 3, resolved in DESIGN.md in favor of supporting both
// delivery modes): it starts the two background schedulers and serves
// /metrics, /health, /ready and /healthz over HTTP, for deployments
// that prefer a long-lived process over an external cron invoking the
// one-shot `auto-backup run` / `auto-upgrade-deploy run` commands.
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the auto-backup and delayed-upgrade schedulers as a resident process",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFromCmd(cmd)
		defer a.Close()

		addr, _ := cmd.Flags().GetString("listen-addr")

		metrics.SetVersion(Version)

		if _, err := a.Storage(); err != nil {
			return err
		}
		metrics.RegisterComponent("storage", true, "")

		if _, err := a.ContainerDriver(); err != nil {
			return err
		}
		metrics.RegisterComponent("docker", true, "")

		if _, err := a.APIClient(); err != nil {
			return err
		}
		metrics.RegisterComponent("apiclient", true, "")

		autoBackup, err := a.AutoBackupScheduler(func() string {
			v, _, _ := a.currentServiceVersion(cmd.Context())
			return v
		})
		if err != nil {
			return err
		}

		delayedUpgrade, err := a.DelayedUpgradeScheduler()
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		autoBackup.Start(ctx)
		defer autoBackup.Stop()

		if err := delayedUpgrade.Resume(ctx); err != nil {
			log.WithComponent("daemon").Warn().Err(err).Msg("failed to resume pending delayed upgrade task")
		}
		defer delayedUpgrade.Stop()

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.HandleFunc("/health", metrics.HealthHandler())
		mux.HandleFunc("/ready", metrics.ReadyHandler())
		mux.HandleFunc("/healthz", metrics.LivenessHandler())

		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		serveErr := make(chan error, 1)
		go func() {
			log.Info("duckctl daemon listening on " + addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				serveErr <- err
				return
			}
			serveErr <- nil
		}()

		select {
		case <-ctx.Done():
			log.Info("duckctl daemon shutting down")
		case err := <-serveErr:
			if err != nil {
				return err
			}
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	daemonCmd.Flags().String("listen-addr", ":9090", "Address to serve /metrics, /health, /ready and /healthz on")
}
