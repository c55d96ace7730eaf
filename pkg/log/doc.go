/*
Package log provides structured logging for duckctl using zerolog.

It wraps zerolog to give every component a JSON-structured (or console,
for an interactive terminal) logger with component-specific context
fields, a configurable level, and a handful of helper functions for the
common logging calls. It is initialized once via Init or InitFromEnv and
read from everywhere else as a package-level global, the same shape as
the logging package this CLI's command tree was modeled on.

# Environment

InitFromEnv honors two environment variables for compatibility with the
deployment scripts and desktop-shell wrapper this CLI runs under:

  - RUST_LOG: trace/debug, info, warn, error -> log level.
  - DUCK_LOG_FILE: path to redirect output to instead of stdout.

# Usage

	log.InitFromEnv()
	log.Info("duckctl starting")

	dl := log.WithComponent("downloader")
	dl.Info().Str("url", url).Msg("starting download")
*/
package log
