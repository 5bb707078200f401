package oui

import (
	"strings"
	"sync/atomic"
)

// PrivateVendor is reported for locally administered (randomized) MACs that
// have no registry entry.
const PrivateVendor = "Local/Privacy MAC"

// Table is a concurrency-safe OUI lookup table
type Table struct {
	entries atomic.Pointer[map[string]string]
}

// NewTable creates a table from prefix -> organization entries. Prefixes
// may be in any common notation; they are normalized on insert.
func NewTable(entries map[string]string) *Table {
	t := &Table{}
	t.Replace(entries)
	return t
}

// Replace swaps in a new set of entries
func (t *Table) Replace(entries map[string]string) {
	m := make(map[string]string, len(entries))
	for prefix, org := range entries {
		if p := NormalizePrefix(prefix); p != "" && org != "" {
			m[p] = org
		}
	}
	t.entries.Store(&m)
}

// Len returns the number of known prefixes
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	m := t.entries.Load()
	if m == nil {
		return 0
	}
	return len(*m)
}

// Lookup returns the manufacturer for mac, or "" when unknown. Locally
// administered addresses without an entry report PrivateVendor.
func (t *Table) Lookup(mac string) string {
	prefix := NormalizePrefix(mac)
	if prefix == "" {
		return ""
	}
	if t != nil {
		if m := t.entries.Load(); m != nil {
			if org, ok := (*m)[prefix]; ok {
				return org
			}
		}
	}
	if IsLocallyAdministered(mac) {
		return PrivateVendor
	}
	return ""
}

// NormalizePrefix reduces a MAC address or OUI assignment to its first six
// upper-case hex digits. It returns "" if fewer than six hex digits exist.
func NormalizePrefix(mac string) string {
	var b strings.Builder
	for _, r := range mac {
		if b.Len() == 6 {
			break
		}
		switch {
		case r >= '0' && r <= '9', r >= 'A' && r <= 'F':
			b.WriteRune(r)
		case r >= 'a' && r <= 'f':
			b.WriteRune(r - 'a' + 'A')
		case r == ':' || r == '-' || r == '.' || r == ' ':
			continue
		default:
			return ""
		}
	}
	if b.Len() != 6 {
		return ""
	}
	return b.String()
}

// IsLocallyAdministered reports whether the U/L bit of the first octet is set
func IsLocallyAdministered(mac string) bool {
	prefix := NormalizePrefix(mac)
	if prefix == "" {
		return false
	}
	switch prefix[1] {
	case '2', '3', '6', '7', 'A', 'B', 'E', 'F':
		return true
	}
	return false
}
