// Package guard protects a single mutable record so that many goroutines can
// read and update it concurrently.
//
// # Reads
//
// Read is optimistic. It samples the version stamp, runs the caller's function
// against the last committed snapshot and validates the stamp afterwards. The
// stamp is odd while a writer is publishing a new snapshot; an odd sample or a
// changed stamp sends the read to the fallback path, which repeats the
// function under the shared lock. Snapshots are published as whole values, so
// a reader never observes a partially applied update on either path. Read
// functions may run twice and must not have side effects.
//
// # Writes
//
// Write takes the writer slot (FIFO among writers, bounded by the context
// deadline or the guard's timeout), loads the record from the Repository,
// applies the mutation to a working copy, persists it and publishes the new
// snapshot. An error from the mutation leaves the stored record untouched.
//
// The writer slot is not reentrant. A Write started with a context that came
// from an in-progress Write on the same guard fails with
// apperr.ErrReentrantWrite instead of deadlocking.
//
// # Registry
//
// Registry owns the guards of one record type. A guard is bound to a record
// when the record is created or first loaded and dropped when it is deleted;
// concurrent first loads of the same id are collapsed into one Repository call.
package guard
