/*
Package apiclient implements the authenticated HTTP client to the
remote manifest server (C2): registration, announcements, version
checks, the latest-package manifest, and best-effort telemetry /
upgrade-history reporting.

Every non-registration request carries X-Client-ID. A 401 triggers
exactly one registration + retry cycle (doAuthed); a second 401, or a
failed registration, surfaces a storage.KindAuth error. Telemetry and
upgrade-history calls never propagate a transport or server error to
the caller: they log and return nil so they cannot break a primary
flow.
*/
package apiclient
