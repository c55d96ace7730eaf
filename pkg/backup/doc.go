/*
Package backup implements the cold-backup/restore engine (C4) on top of
archive/tar and github.com/klauspost/compress/gzip (a drop-in, faster
gzip implementation; no third-party tar library appears anywhere in the
retrieved pack, so the format itself stays on the standard library).

Create enforces the "stack fully stopped" precondition through a
StackController capability narrow enough that tests can supply an
in-memory fake instead of a real container engine (spec §9). Restore
stops the stack, unpacks the archive, and restarts it; Verify walks an
archive's entries without writing anything to disk.
*/
package backup
