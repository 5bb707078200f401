package domain

import "context"

// Upstream is the appliance the tools read from. Rows are returned as the
// appliance reports them; normalization happens in the service layer.
type Upstream interface {
	ARPTable(ctx context.Context) ([]Row, error)
	NDPTable(ctx context.Context) ([]Row, error)
	DHCPv4Leases(ctx context.Context) ([]Row, error)
	DHCPv6Leases(ctx context.Context) ([]Row, error)
	SystemStatus(ctx context.Context) (Row, error)
}

// HostResolver is an optional Upstream capability that expands a free-form
// query into identifiers. The result may carry "ip", "mac" and "hostname"
// plus nested "dhcpv4"/"dhcpv6" lease rows.
type HostResolver interface {
	ResolveHostInfo(ctx context.Context, query string) (Row, error)
}

// LLDPSource is an optional Upstream capability listing LLDP neighbors
type LLDPSource interface {
	LLDPNeighbors(ctx context.Context) ([]Row, error)
}

// FirewallAPI is an optional Upstream capability for filter rule management
type FirewallAPI interface {
	SearchRules(ctx context.Context) ([]Row, error)
	AddRule(ctx context.Context, rule map[string]any) (string, error)
	DeleteRule(ctx context.Context, uuid string) error
	Savepoint(ctx context.Context) (string, error)
	Apply(ctx context.Context, revision string) error
}

// LogSource is an optional Upstream capability returning firewall log lines
type LogSource interface {
	FirewallLog(ctx context.Context, limit int) ([]Row, error)
}
