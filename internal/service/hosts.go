package service

import (
	"context"

	"go.uber.org/zap"

	"opnsense-mcp/internal/domain"
)

// NeighborQuery selects neighbor entries
type NeighborQuery struct {
	Search string
	Filter ExactFilter
}

// NeighborView is the enriched, filtered ARP and NDP tables
type NeighborView struct {
	ARP  []domain.HostRecord
	NDP  []domain.HostRecord
	Mode domain.SearchMode
}

// LeaseView is the reconciled DHCP lease tables
type LeaseView struct {
	DHCPv4 []domain.LeaseRecord
	DHCPv6 []domain.LeaseRecord
	// Nil is set when the appliance answered both lease queries with nothing
	Nil bool
	// Total counts the leases the appliance returned before any search
	Total int
}

// HostService combines reconciliation and search over one upstream
type HostService struct {
	upstream   domain.Upstream
	reconciler *Reconciler
	search     *SearchResolver
	logger     *zap.Logger
}

// NewHostService creates a host service. If upstream implements
// domain.HostResolver it is consulted before any extra resolvers.
func NewHostService(upstream domain.Upstream, vendors VendorLookup, logger *zap.Logger, extra ...domain.HostResolver) *HostService {
	if logger == nil {
		logger = zap.NewNop()
	}
	var resolvers []domain.HostResolver
	if r, ok := upstream.(domain.HostResolver); ok {
		resolvers = append(resolvers, r)
	}
	resolvers = append(resolvers, extra...)

	return &HostService{
		upstream:   upstream,
		reconciler: NewReconciler(vendors, logger),
		search:     NewSearchResolver(logger, resolvers...),
		logger:     logger,
	}
}

// Upstream returns the appliance client, which may be nil
func (s *HostService) Upstream() domain.Upstream {
	return s.upstream
}

// Neighbors returns the enriched neighbor tables. A neighbor table failure
// is returned as an error; lease failures only lose enrichment.
func (s *HostService) Neighbors(ctx context.Context, q NeighborQuery) (*NeighborView, error) {
	if s.upstream == nil {
		return nil, domain.ErrUpstreamUnavailable
	}

	tables := s.reconciler.Fetch(ctx, s.upstream)
	if err := tables.NeighborErr(); err != nil {
		return nil, err
	}

	leases := NewLeaseIndex(tables.DHCPv4, tables.DHCPv6)
	view := &NeighborView{
		ARP: s.reconciler.EnrichHosts(tables.ARP, leases),
		NDP: s.reconciler.EnrichHosts(tables.NDP, leases),
	}

	mode, tokens := s.search.Resolve(ctx, q.Search, tables.DHCPv4, tables.DHCPv6)
	view.Mode = mode
	if mode == domain.SearchFiltered {
		all := tokens.Tokens()
		view.ARP = FilterHosts(view.ARP, all)
		view.NDP = FilterHosts(view.NDP, all)
	}

	view.ARP = q.Filter.Apply(view.ARP, domain.FamilyV4)
	view.NDP = q.Filter.Apply(view.NDP, domain.FamilyV6)
	return view, nil
}

// Leases returns both lease tables with actual status reconciled against
// the neighbor tables. Neighbor failures degrade to the lease flag alone.
// A non-wildcard search keeps leases whose ip, mac or hostname contains it.
func (s *HostService) Leases(ctx context.Context, search string) (*LeaseView, error) {
	if s.upstream == nil {
		return nil, domain.ErrUpstreamUnavailable
	}

	tables := s.reconciler.Fetch(ctx, s.upstream)
	if err := tables.LeaseErr(); err != nil {
		return nil, err
	}
	view := &LeaseView{
		DHCPv4: tables.DHCPv4,
		DHCPv6: tables.DHCPv6,
		Nil:    tables.LeasesNil,
		Total:  len(tables.DHCPv4) + len(tables.DHCPv6),
	}
	if IsSelectAll(search) {
		return view, nil
	}
	tokens := domain.NewSearchTokenSet(search).Tokens()
	view.DHCPv4 = FilterLeases(view.DHCPv4, tokens)
	view.DHCPv6 = FilterLeases(view.DHCPv6, tokens)
	return view, nil
}

// InterfaceSummary is one interface seen in the neighbor tables
type InterfaceSummary struct {
	Name          string `json:"name"`
	Status        string `json:"status"`
	IPv4Neighbors int    `json:"ipv4_neighbors"`
	IPv6Neighbors int    `json:"ipv6_neighbors"`
}

// Interfaces summarizes the interfaces seen in the neighbor tables, in
// first-seen order
func (s *HostService) Interfaces(ctx context.Context) ([]InterfaceSummary, error) {
	if s.upstream == nil {
		return nil, domain.ErrUpstreamUnavailable
	}
	tables := s.reconciler.Fetch(ctx, s.upstream)
	if err := tables.NeighborErr(); err != nil {
		return nil, err
	}
	return SummarizeInterfaces(tables.ARP, tables.NDP), nil
}

// SummarizeInterfaces counts neighbors per interface
func SummarizeInterfaces(arp, ndp []domain.HostRecord) []InterfaceSummary {
	names := InterfaceNames(arp, ndp)
	index := make(map[string]int, len(names))
	out := make([]InterfaceSummary, len(names))
	for i, name := range names {
		index[name] = i
		out[i] = InterfaceSummary{Name: name, Status: "active"}
	}
	for _, h := range arp {
		if i, ok := index[h.Interface]; ok {
			out[i].IPv4Neighbors++
		}
	}
	for _, h := range ndp {
		if i, ok := index[h.Interface]; ok {
			out[i].IPv6Neighbors++
		}
	}
	return out
}

// InterfaceNames collects distinct non-empty interface names
func InterfaceNames(tables ...[]domain.HostRecord) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, hosts := range tables {
		for _, h := range hosts {
			if h.Interface == "" {
				continue
			}
			if _, ok := seen[h.Interface]; ok {
				continue
			}
			seen[h.Interface] = struct{}{}
			names = append(names, h.Interface)
		}
	}
	return names
}
