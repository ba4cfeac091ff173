// Package store provides SQLite-backed history of generation runs.
//
// Each run records the IOC, its architecture and the manifest hash of the
// generated artifacts, plus one row per artifact with its content hash.
// The history lets the check command report drift between a fresh
// generation and the last recorded one.
//
// # Ordering
//
// Runs are ordered by seq INTEGER, a logical clock assigned on insert.
// Wall time is never stored, so identical inputs give identical histories.
// Queries include ORDER BY seq ASC (or DESC for latest-first) and artifacts
// are ordered by name COLLATE BINARY.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Content hashes are computed by internal/manifest using RFC 8785
// canonical JSON and SHA-256 with domain separation.
package store
