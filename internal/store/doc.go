// Package store provides the embedded relational engine for vendor records.
//
// The engine is an in-memory SQLite database (mattn/go-sqlite3) pinned to a
// single connection. It has no durability of its own: callers export the
// whole database as a snapshot after each write and rebuild an engine from
// that snapshot on startup.
//
// # Critical Patterns
//
// Single source of columns
//   - Every statement is built from record.Columns()
//   - The DDL, bind order and scan order can never drift apart
//
// Deterministic listing
//   - SelectAll orders by the key with COLLATE BINARY (case-sensitive)
//
// Snapshot verification
//   - LoadFromSnapshot checks the SQLite header, runs quick_check and
//     compares the vendors table columns against the schema
//   - Any mismatch is a SnapshotCorruptError and no engine is returned
//
// # Connection Model
//
//   - One *sql.Conn is pinned for the engine's lifetime; an in-memory
//     database lives and dies with its connection
//   - An internal mutex serializes every call on that connection
//   - Query results are fully materialized before the lock is released
package store
