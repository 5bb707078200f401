package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"opnsense-mcp/internal/domain"
)

// VendorLookup resolves a MAC address to a manufacturer name
type VendorLookup interface {
	Lookup(mac string) string
}

// NeighborSet holds the ips and macs seen in one neighbor table
type NeighborSet struct {
	IPs  map[string]struct{}
	MACs map[string]struct{}
}

// NewNeighborSet indexes hosts by ip and lower-cased mac
func NewNeighborSet(hosts []domain.HostRecord) NeighborSet {
	set := NeighborSet{
		IPs:  make(map[string]struct{}, len(hosts)),
		MACs: make(map[string]struct{}, len(hosts)),
	}
	for _, h := range hosts {
		if h.IP != "" {
			set.IPs[h.IP] = struct{}{}
		}
		if h.MAC != "" {
			set.MACs[strings.ToLower(h.MAC)] = struct{}{}
		}
	}
	return set
}

// ReconcileLeaseStatus derives a lease's actual status. Presence in the
// neighbor table takes precedence over the lease's own flag.
func ReconcileLeaseStatus(lease domain.LeaseRecord, neighbors NeighborSet) domain.Status {
	if lease.IP != "" {
		if _, ok := neighbors.IPs[lease.IP]; ok {
			return domain.StatusOnline
		}
	}
	if lease.MAC != "" {
		if _, ok := neighbors.MACs[strings.ToLower(lease.MAC)]; ok {
			return domain.StatusOnline
		}
	}
	return domain.StatusFromBool(lease.Online)
}

// LeaseIndex looks leases up by ip and lower-cased mac. Later leases win,
// so DHCPv6 entries shadow DHCPv4 entries with the same mac.
type LeaseIndex struct {
	ByIP  map[string]domain.LeaseRecord
	ByMAC map[string]domain.LeaseRecord
}

// NewLeaseIndex builds an index over one or more lease tables
func NewLeaseIndex(tables ...[]domain.LeaseRecord) LeaseIndex {
	idx := LeaseIndex{
		ByIP:  make(map[string]domain.LeaseRecord),
		ByMAC: make(map[string]domain.LeaseRecord),
	}
	for _, leases := range tables {
		for _, l := range leases {
			if l.IP != "" {
				idx.ByIP[l.IP] = l
			}
			if l.MAC != "" {
				idx.ByMAC[strings.ToLower(l.MAC)] = l
			}
		}
	}
	return idx
}

// Reconciler merges the four appliance tables into enriched records
type Reconciler struct {
	vendors VendorLookup
	logger  *zap.Logger
}

// NewReconciler creates a reconciler. vendors may be nil.
func NewReconciler(vendors VendorLookup, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{vendors: vendors, logger: logger.Named("reconcile")}
}

// EnrichHost fills manufacturer, hostname and dhcp_status from the vendor
// table and the lease matched by ip, then by mac. Existing values are kept.
func (r *Reconciler) EnrichHost(host domain.HostRecord, leases LeaseIndex) domain.HostRecord {
	if host.Manufacturer == "" && r.vendors != nil && host.MAC != "" {
		host.Manufacturer = r.vendors.Lookup(host.MAC)
	}

	lease, ok := leases.ByIP[host.IP]
	if !ok || host.IP == "" {
		lease, ok = leases.ByMAC[strings.ToLower(host.MAC)]
		ok = ok && host.MAC != ""
	}
	if ok {
		if host.Hostname == "" {
			host.Hostname = lease.Hostname
		}
		host.DHCPStatus = domain.StatusFromBool(lease.Online)
	}
	return host
}

// Tables is one fetch of the four appliance tables. A failed table is left
// empty and its error recorded.
type Tables struct {
	ARP    []domain.HostRecord
	NDP    []domain.HostRecord
	DHCPv4 []domain.LeaseRecord
	DHCPv6 []domain.LeaseRecord

	ARPErr    error
	NDPErr    error
	DHCPv4Err error
	DHCPv6Err error

	// LeasesNil is set when both lease endpoints answered with nothing
	LeasesNil bool
}

// NeighborErr returns the first neighbor table error
func (t *Tables) NeighborErr() error {
	if t.ARPErr != nil {
		return fmt.Errorf("arp table: %w", t.ARPErr)
	}
	if t.NDPErr != nil {
		return fmt.Errorf("ndp table: %w", t.NDPErr)
	}
	return nil
}

// LeaseErr returns the first lease table error
func (t *Tables) LeaseErr() error {
	if t.DHCPv4Err != nil {
		return fmt.Errorf("dhcpv4 leases: %w", t.DHCPv4Err)
	}
	if t.DHCPv6Err != nil {
		return fmt.Errorf("dhcpv6 leases: %w", t.DHCPv6Err)
	}
	return nil
}

// Fetch reads the four tables concurrently, normalizes them and reconciles
// lease status. Per-table failures are recorded on the result rather than
// cancelling the other fetches.
func (r *Reconciler) Fetch(ctx context.Context, up domain.Upstream) *Tables {
	var (
		g                        errgroup.Group
		arpRows, ndpRows, v4, v6 []domain.Row
		t                        Tables
	)

	g.Go(func() error {
		arpRows, t.ARPErr = up.ARPTable(ctx)
		return nil
	})
	g.Go(func() error {
		ndpRows, t.NDPErr = up.NDPTable(ctx)
		return nil
	})
	g.Go(func() error {
		v4, t.DHCPv4Err = up.DHCPv4Leases(ctx)
		return nil
	})
	g.Go(func() error {
		v6, t.DHCPv6Err = up.DHCPv6Leases(ctx)
		return nil
	})
	_ = g.Wait()

	for name, err := range map[string]error{
		"arp": t.ARPErr, "ndp": t.NDPErr, "dhcpv4": t.DHCPv4Err, "dhcpv6": t.DHCPv6Err,
	} {
		if err != nil {
			r.logger.Warn("table fetch failed", zap.String("table", name), zap.Error(err))
		}
	}

	t.LeasesNil = v4 == nil && v6 == nil && t.DHCPv4Err == nil && t.DHCPv6Err == nil
	t.ARP = NormalizeNeighbors(arpRows, domain.FamilyV4)
	t.NDP = NormalizeNeighbors(ndpRows, domain.FamilyV6)
	t.DHCPv4 = r.ReconcileLeases(NormalizeLeases(v4, domain.FamilyV4), NewNeighborSet(t.ARP))
	t.DHCPv6 = r.ReconcileLeases(NormalizeLeases(v6, domain.FamilyV6), NewNeighborSet(t.NDP))
	return &t
}

// ReconcileLeases sets ActualStatus on every lease against one family's
// neighbor set
func (r *Reconciler) ReconcileLeases(leases []domain.LeaseRecord, neighbors NeighborSet) []domain.LeaseRecord {
	for i := range leases {
		leases[i].ActualStatus = ReconcileLeaseStatus(leases[i], neighbors)
	}
	return leases
}

// EnrichHosts enriches every host against the lease index
func (r *Reconciler) EnrichHosts(hosts []domain.HostRecord, leases LeaseIndex) []domain.HostRecord {
	out := make([]domain.HostRecord, len(hosts))
	for i, h := range hosts {
		out[i] = r.EnrichHost(h, leases)
	}
	return out
}
