/*
Package selfupdate implements the self-update channel (C8): querying a
release index for the duck-cli binary itself, selecting the asset that
matches the running platform/arch, downloading it, and swapping the
running executable in place (spec §4.8). This is independent of
pkg/apiclient's managed-service version channel (C2) — the two never
share an endpoint or a manifest shape.
*/
package selfupdate
