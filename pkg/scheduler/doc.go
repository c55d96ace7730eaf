/*
Package scheduler runs the two background loops of spec.md §4.7:
AutoBackupScheduler, a cron-gated periodic backup of the stack's data
directories, and DelayedUpgradeScheduler, a sleep-then-deploy task for
"upgrade in N minutes/hours/days" requests. Both follow the ticker +
stopCh shape of a continuous background loop, but each also exposes an
explicit on-demand entry point (RunNow, ScheduleDelayedDeploy) since
actual wall-clock delivery may instead be driven by an external system
cron invoking the CLI directly.
*/
package scheduler
