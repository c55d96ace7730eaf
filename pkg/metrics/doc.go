/*
Package metrics defines the Prometheus counters/gauges/histograms
exposed by duckctl: downloads (C3), deployments (C6), backups/restores
(C4), scheduler runs (C7), self-update checks (C8), and API client
requests (C2). Metrics are registered against the default registry at
package init and exposed via Handler() for scraping, and via
pkg/metrics.HealthHandler/ReadyHandler/LivenessHandler for a resident
`duckctl daemon` process running the background schedulers.
*/
package metrics
