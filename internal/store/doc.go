// Package store keeps a SQLite history of test runs.
//
// Each run records its design, every scenario outcome in run order and
// every output comparison. Runs are identified by UUIDv7 strings, so they
// sort by creation time.
//
// The database runs in WAL mode with foreign keys enforced. Its schema version
// lives in PRAGMA user_version; Open refuses databases from a newer version.
//
// Signal values are unsigned 64-bit integers; SQLite integers are signed, so
// values are stored as their two's complement int64 bit pattern and
// converted back on read.
package store
