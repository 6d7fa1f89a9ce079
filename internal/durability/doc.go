// Package durability moves engine snapshots to and from a persistent medium.
//
// The embedded engine keeps everything in memory, so durability is whole-state
// snapshot overwrite: after every mutation the complete database image is
// written to the medium, and on startup the last image is read back.
//
// Media (all behind the Medium interface):
//   - FileMedium: one file on local disk, replaced atomically
//   - KVMedium: a badger key/value store, image kept as base64 text under
//     a fixed key
//   - RemoteMedium: an HTTP upload endpoint plus a fetchable static path
//   - MemoryMedium: an in-process slot, for tests and throwaway sessions
//
// Adapter wraps a Medium with the snapshot codec and the error contract:
// "nothing stored yet" is never an error, genuine I/O failures are always
// *AdapterIOError.
package durability
