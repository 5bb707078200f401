// Package domain defines the core types shared by the reconciliation engine,
// the search resolver, the event broker and the tool dispatcher.
//
// # Core Types
//
// Row is a loosely-typed record exactly as the appliance API returned it.
// Every source (ARP, NDP, DHCPv4, DHCPv6) is normalized from Row into one of
// the canonical records before any reconciliation logic runs.
//
// HostRecord is a neighbor-table entry (ARP for IPv4, NDP for IPv6) enriched
// with vendor and DHCP naming information.
//
// LeaseRecord is a DHCP lease with a derived ActualStatus that cross-references
// the same-family neighbor table.
//
// SearchTokenSet holds the identifiers a free-form query expanded into.
//
// Event is a server-to-client push notification routed through the hub.
//
// # Errors
//
// Expected failure kinds are sentinel errors (ErrToolNotFound,
// ErrClientNotConnected, ...) wrapped with fmt.Errorf and tested with
// errors.Is at transport boundaries.
//
// # Design Principles
//
// - No database or network dependencies
// - Normalization never fails; absent fields stay empty
package domain
