// Package repository is the record CRUD contract the rest of the program uses.
//
// A Repository owns the one engine and the one durability adapter of the
// process. Nothing else holds a handle to the table.
//
// # Lifecycle
//
//	Uninitialized -> Initializing -> Ready
//	                              \-> Failed (terminal until Reset)
//
// Initialization is lazy: the first call of any method starts it, and every
// caller that arrives while it runs waits on the same in-flight call. A
// failure is memoized; later calls return the same RepositoryUnavailableError
// without retrying the load.
//
// # Mutation ordering
//
// Upsert, Remove, Rename and Flush are queued in FIFO order and applied by a
// single writer goroutine. Each mutation runs its engine write and the full
// snapshot save before the next one starts, so two saves never race and no
// snapshot can miss an earlier change. Once queued, a mutation always runs
// to completion even if its caller stops waiting.
//
// # Persist failures
//
// If the engine write succeeds and the snapshot save fails, the in-memory
// change is kept and the caller receives the *durability.AdapterIOError.
// The repository is then pending: reads show the unpersisted change, and
// the next successful save (from any mutation or Flush) clears it.
package repository
