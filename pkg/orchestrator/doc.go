/*
Package orchestrator implements the deployment state machine (C6):
preflight checks, bundle extraction, image load/retag, compose parsing,
script permission normalization, port-conflict detection, data
directory materialization, and the pre-upgrade-backup rollback handler
of spec.md §4.6.
*/
package orchestrator
