package tools

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"opnsense-mcp/internal/domain"
	"opnsense-mcp/internal/service"
)

// dhcp_status diagnostics
const (
	DHCPStatusOK      = "OK"
	DHCPStatusNothing = "API returned nothing (possible misconfiguration or permissions issue)"
	DHCPStatusEmpty   = "No DHCP leases found. Check DHCP server status, configuration, and API permissions."
)

// ARP returns the enriched ARP and NDP tables. An upstream failure is
// logged and served as the fixture.
func (t *Toolset) ARP(ctx context.Context, args domain.Row) (any, error) {
	if t.upstream() == nil {
		t.logger.Warn("no appliance configured, returning fixture", zap.String("tool", NameARP))
		return arpFixture(), nil
	}

	view, err := t.hosts.Neighbors(ctx, service.NeighborQuery{
		Search: args.String("search"),
		Filter: service.ExactFilter{
			MAC:       args.String("mac"),
			IP:        args.String("ip"),
			IPv6:      args.String("ipv6"),
			Interface: args.String("interface"),
		},
	})
	if err != nil {
		t.logger.Error("failed to get ARP/NDP tables, returning fixture", zap.Error(err))
		return arpFixture(), nil
	}

	return map[string]any{
		"arp":    view.ARP,
		"ndp":    view.NDP,
		"status": "success",
	}, nil
}

// DHCP returns both lease tables with reconciled status and a dhcp_status
// diagnostic
func (t *Toolset) DHCP(ctx context.Context, args domain.Row) (any, error) {
	if t.upstream() == nil {
		t.logger.Warn("no appliance configured, returning fixture", zap.String("tool", NameDHCP))
		return dhcpFixture(), nil
	}

	view, err := t.hosts.Leases(ctx, args.String("search"))
	if err != nil {
		t.logger.Error("failed to get DHCP lease tables", zap.Error(err))
		return map[string]any{
			"dhcpv4":      []domain.LeaseRecord{},
			"dhcpv6":      []domain.LeaseRecord{},
			"status":      "error",
			"dhcp_status": fmt.Sprintf("Error retrieving DHCP leases: %v", err),
		}, nil
	}

	status := DHCPStatusOK
	switch {
	case view.Nil:
		status = DHCPStatusNothing
	case view.Total == 0:
		status = DHCPStatusEmpty
	}
	return map[string]any{
		"dhcpv4":      view.DHCPv4,
		"dhcpv6":      view.DHCPv6,
		"status":      "success",
		"dhcp_status": status,
	}, nil
}

// InterfaceList returns the interfaces seen in the neighbor tables
func (t *Toolset) InterfaceList(ctx context.Context, _ domain.Row) (any, error) {
	if t.upstream() == nil {
		return map[string]any{
			"interfaces": []service.InterfaceSummary{
				{Name: "em0", Status: "active", IPv4Neighbors: 1, IPv6Neighbors: 1},
			},
			"status": "success",
		}, nil
	}

	summaries, err := t.hosts.Interfaces(ctx)
	if err != nil {
		t.logger.Error("failed to list interfaces", zap.Error(err))
		return errorPayload(fmt.Sprintf("Failed to list interfaces: %v", err)), nil
	}
	if summaries == nil {
		summaries = []service.InterfaceSummary{}
	}
	return map[string]any{
		"interfaces": summaries,
		"status":     "success",
	}, nil
}
