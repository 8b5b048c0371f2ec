/*
Package store persists cluster snapshots across control-plane restarts.

The StateStore interface is deliberately tiny: Save replaces the stored
snapshot, Load returns it (or nil when nothing has ever been saved). The
bbolt implementation keeps one bucket per entity kind with JSON values,
and rewrites all of them inside a single write transaction so a partial
save can never be observed.

Secrets never appear in a snapshot and therefore never touch disk.
*/
package store
