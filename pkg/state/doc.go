/*
Package state holds the authoritative in-memory cluster state behind a
single reader/writer lock.

Every manager in Croft operates on the same State instance. Access goes
through two closure-based entry points modeled on transactional stores:

	st.View(func(d *state.Data) error { ... })    // shared read lock
	st.Update(func(d *state.Data) error { ... })  // exclusive write lock

The closure style makes lock scope explicit and lets multi-entity
operations (admission check plus pod insert, preemption plus placement)
commit atomically: no reader can observe the state between the individual
mutations of one Update.

# Ownership Rules

Three rules keep the single-lock design safe:

 1. Pointers obtained inside a closure never escape it. Managers Clone
    objects before returning them to callers.
 2. Managers never call each other's locking methods from inside a
    closure. Cross-manager logic is expressed as plain functions taking
    *state.Data, composed by the caller inside one Update.
 3. Timers and event handlers take the lock themselves; nothing holds it
    across channel sends or I/O.

# Snapshots

Snapshot deep-copies everything except secrets into a ClusterSnapshot for
persistence or inspection. Restore replaces the live state with a
snapshot's contents, leaving in-memory secret ciphertext untouched since
secrets never leave the process.
*/
package state
