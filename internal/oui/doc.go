// Package oui maps MAC address prefixes to manufacturer names.
//
// The Table is read on every host enrichment and replaced wholesale when the
// vendor source changes, so lookups never take a lock: a reload builds a new
// map and swaps it in atomically.
//
// Vendor data comes from the IEEE oui.csv registry export, either parsed
// directly or imported into the SQLite vendor store first.
package oui
