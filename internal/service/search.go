package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"opnsense-mcp/internal/domain"
)

// Wildcard selects every record
const Wildcard = "*"

// SearchResolver expands free-form queries into token sets
type SearchResolver struct {
	resolvers []domain.HostResolver
	logger    *zap.Logger
}

// NewSearchResolver creates a resolver consulting each non-nil resolver in
// order. With none, expansion uses only the lease tables.
func NewSearchResolver(logger *zap.Logger, resolvers ...domain.HostResolver) *SearchResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &SearchResolver{logger: logger.Named("search")}
	for _, r := range resolvers {
		if r != nil {
			s.resolvers = append(s.resolvers, r)
		}
	}
	return s
}

// Resolve classifies query and expands it. Resolver failures are logged and
// skipped; the raw query is always part of the result.
func (s *SearchResolver) Resolve(ctx context.Context, query string, leases ...[]domain.LeaseRecord) (domain.SearchMode, *domain.SearchTokenSet) {
	trimmed := strings.TrimSpace(query)
	tokens := domain.NewSearchTokenSet(trimmed)
	if IsSelectAll(trimmed) {
		return domain.SearchSelectAll, tokens
	}

	for _, r := range s.resolvers {
		info, err := r.ResolveHostInfo(ctx, trimmed)
		if err != nil {
			s.logger.Debug("host resolver failed", zap.String("query", trimmed), zap.Error(err))
			continue
		}
		addResolved(tokens, info)
	}

	needle := tokens.RawQuery
	for _, table := range leases {
		for _, l := range table {
			if containsFold(l.IP, needle) || containsFold(l.MAC, needle) || containsFold(l.Hostname, needle) {
				tokens.AddIP(l.IP)
				tokens.AddMAC(l.MAC)
				tokens.AddHostname(l.Hostname)
			}
		}
	}

	s.logger.Debug("resolved search",
		zap.String("query", trimmed), zap.Strings("tokens", tokens.Tokens()))
	return domain.SearchFiltered, tokens
}

func addResolved(tokens *domain.SearchTokenSet, info domain.Row) {
	if info == nil {
		return
	}
	tokens.AddIP(info.String("ip"))
	tokens.AddMAC(info.String("mac"))
	tokens.AddHostname(info.String("hostname"))
	for _, key := range []string{"dhcpv4", "dhcpv6"} {
		lease := info.Nested(key)
		if lease == nil {
			continue
		}
		tokens.AddIP(lease.String("ip", "address"))
		tokens.AddMAC(lease.String("mac"))
		tokens.AddHostname(lease.String("hostname", "client-hostname"))
	}
}

// Match reports whether any token is a case-insensitive substring of the
// host's ip, mac or hostname
func Match(host domain.HostRecord, tokens []string) bool {
	ip := strings.ToLower(host.IP)
	mac := strings.ToLower(host.MAC)
	hostname := strings.ToLower(host.Hostname)
	for _, t := range tokens {
		if t == "" {
			continue
		}
		if strings.Contains(ip, t) || strings.Contains(mac, t) || strings.Contains(hostname, t) {
			return true
		}
	}
	return false
}

// FilterHosts keeps the hosts matching tokens
func FilterHosts(hosts []domain.HostRecord, tokens []string) []domain.HostRecord {
	out := make([]domain.HostRecord, 0, len(hosts))
	for _, h := range hosts {
		if Match(h, tokens) {
			out = append(out, h)
		}
	}
	return out
}

// IsSelectAll reports whether query is empty or the wildcard
func IsSelectAll(query string) bool {
	q := strings.TrimSpace(query)
	return q == "" || q == Wildcard
}

// FilterLeases keeps the leases whose ip, mac or hostname contains a token
func FilterLeases(leases []domain.LeaseRecord, tokens []string) []domain.LeaseRecord {
	out := make([]domain.LeaseRecord, 0, len(leases))
	for _, l := range leases {
		for _, t := range tokens {
			if containsFold(l.IP, t) || containsFold(l.MAC, t) || containsFold(l.Hostname, t) {
				out = append(out, l)
				break
			}
		}
	}
	return out
}

// ExactFilter is the equality filter set of the arp tool. IP applies to the
// ARP table only and IPv6 to the NDP table only.
type ExactFilter struct {
	MAC       string
	IP        string
	IPv6      string
	Interface string
}

// Empty reports whether no filter is set
func (f ExactFilter) Empty() bool {
	return f.MAC == "" && f.IP == "" && f.IPv6 == "" && f.Interface == ""
}

// Apply filters hosts of the given family
func (f ExactFilter) Apply(hosts []domain.HostRecord, family domain.Family) []domain.HostRecord {
	if f.Empty() {
		return hosts
	}
	ip := f.IP
	if family == domain.FamilyV6 {
		ip = f.IPv6
	}
	out := make([]domain.HostRecord, 0, len(hosts))
	for _, h := range hosts {
		if f.MAC != "" && !strings.EqualFold(h.MAC, f.MAC) {
			continue
		}
		if ip != "" && h.IP != ip {
			continue
		}
		if f.Interface != "" && h.Interface != f.Interface {
			continue
		}
		out = append(out, h)
	}
	return out
}

func containsFold(s, substr string) bool {
	return s != "" && strings.Contains(strings.ToLower(s), substr)
}
