/*
Package config provides typed accessors over the app_config key/value
store (C1) for settings that live outside any single component's own
tables — today, the auto-backup scheduler's enabled flag, cron
expression, and failure-streak bookkeeping (spec §4.7). Every mutation
optionally regenerates a human-readable config.toml mirror so an
operator can inspect current settings without a database client.
*/
package config
