// Package service implements the host reconciliation and search logic
// behind the read tools.
//
// # Reconciliation
//
// The appliance reports four tables with source-specific field names: ARP
// (IPv4 neighbors), NDP (IPv6 neighbors), DHCPv4 leases and DHCPv6 leases.
// Each row is normalized once into a domain.HostRecord or domain.LeaseRecord.
// A lease's actual status is Online whenever its ip or mac is present in the
// neighbor table of the same family; otherwise the lease's own flag decides.
// Neighbor entries are enriched with the manufacturer, the hostname of the
// matching lease and that lease's raw online flag.
//
// # Search
//
// A free-form query expands into a token set (ips, macs, hostnames and the
// raw query) using the optional domain.HostResolver capability and the
// fetched lease tables. A record matches when any token is a substring of
// its ip, mac or hostname. Exact filters (mac, ip, ipv6, interface) are a
// separate equality check and combine with the search by conjunction.
package service
