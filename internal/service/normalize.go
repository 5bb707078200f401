package service

import (
	"strings"

	"opnsense-mcp/internal/domain"
)

// NormalizeNeighbor maps an ARP or NDP row to a HostRecord. Missing fields
// stay empty.
func NormalizeNeighbor(row domain.Row, family domain.Family) domain.HostRecord {
	return domain.HostRecord{
		IP:           row.String("ip", "address"),
		MAC:          strings.ToLower(row.String("mac")),
		Interface:    row.String("intf", "interface", "if"),
		Manufacturer: row.String("manufacturer"),
		Hostname:     row.String("hostname"),
		Expires:      row.Int("expires"),
		Permanent:    row.Bool("permanent"),
		Type:         row.String("type"),
		Description:  row.String("intf_description", "description"),
		Family:       family,
	}
}

// NormalizeLease maps a DHCP lease row to a LeaseRecord. ActualStatus is
// left empty for ReconcileLeaseStatus to fill.
func NormalizeLease(row domain.Row, family domain.Family) domain.LeaseRecord {
	lease := domain.LeaseRecord{
		IP:          row.String("ip", "address"),
		MAC:         strings.ToLower(row.String("mac")),
		Hostname:    row.String("hostname", "client-hostname"),
		Start:       row.String("start", "starts"),
		End:         row.String("end", "ends"),
		LeaseType:   row.String("lease_type", "type"),
		Description: row.String("description", "descr"),
		Interface:   row.String("interface", "if"),
		Family:      family,
	}

	// the appliance reports liveness as status=online; fixtures use online
	if row.Has("online") {
		lease.Online = row.Bool("online")
	} else {
		lease.Online = strings.EqualFold(row.String("status"), "online")
	}
	return lease
}

// NormalizeNeighbors normalizes a whole neighbor table
func NormalizeNeighbors(rows []domain.Row, family domain.Family) []domain.HostRecord {
	hosts := make([]domain.HostRecord, 0, len(rows))
	for _, row := range rows {
		hosts = append(hosts, NormalizeNeighbor(row, family))
	}
	return hosts
}

// NormalizeLeases normalizes a whole lease table
func NormalizeLeases(rows []domain.Row, family domain.Family) []domain.LeaseRecord {
	leases := make([]domain.LeaseRecord, 0, len(rows))
	for _, row := range rows {
		leases = append(leases, NormalizeLease(row, family))
	}
	return leases
}
