// Package repository defines the data access interfaces for opnsense-mcp.
//
// The only persisted data is the OUI vendor registry, which is imported from
// the IEEE CSV export and read back into the in-memory lookup table at
// startup. The implementation lives in the sqlite subpackage.
//
// # Schema Migration
//
// The sqlite repository migrates its schema on open and keeps import
// metadata (source URL, import time, row count) in a key/value table.
package repository
