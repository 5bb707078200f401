package loader

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"opnsense-mcp/internal/domain"
)

// SnapshotUpstream serves a snapshot as the appliance. Firewall rule writes
// are applied to an in-memory copy and never reach the file.
type SnapshotUpstream struct {
	path   string
	logger *zap.Logger

	mu        sync.RWMutex
	snap      *Snapshot
	rules     []domain.Row
	savepoint int
	pending   bool
}

// NewSnapshotUpstream loads path and serves it
func NewSnapshotUpstream(path string, logger *zap.Logger) (*SnapshotUpstream, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	u := &SnapshotUpstream{path: path, logger: logger.Named("snapshot")}
	if err := u.Reload(); err != nil {
		return nil, err
	}
	return u, nil
}

// Reload re-reads the snapshot file. Rule edits made since the last load
// are discarded. On error the previous snapshot stays in service.
func (u *SnapshotUpstream) Reload() error {
	s, err := LoadSnapshot(u.path)
	if err != nil {
		return fmt.Errorf("load snapshot %s: %w", u.path, err)
	}
	u.mu.Lock()
	u.snap = s
	u.rules = cloneRows(s.Rules)
	u.pending = false
	u.mu.Unlock()

	u.logger.Info("snapshot loaded",
		zap.String("path", u.path),
		zap.Int("arp", len(s.ARP)),
		zap.Int("dhcpv4", len(s.DHCPv4)),
		zap.Int("rules", len(s.Rules)))
	return nil
}

// Path returns the snapshot file path
func (u *SnapshotUpstream) Path() string {
	return u.path
}

func (u *SnapshotUpstream) current() *Snapshot {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.snap
}

func cloneRows(rows []domain.Row) []domain.Row {
	if rows == nil {
		return nil
	}
	out := make([]domain.Row, len(rows))
	for i, r := range rows {
		out[i] = maps.Clone(r)
	}
	return out
}

// ARPTable implements domain.Upstream
func (u *SnapshotUpstream) ARPTable(context.Context) ([]domain.Row, error) {
	return cloneRows(u.current().ARP), nil
}

// NDPTable implements domain.Upstream
func (u *SnapshotUpstream) NDPTable(context.Context) ([]domain.Row, error) {
	return cloneRows(u.current().NDP), nil
}

// DHCPv4Leases implements domain.Upstream
func (u *SnapshotUpstream) DHCPv4Leases(context.Context) ([]domain.Row, error) {
	return cloneRows(u.current().DHCPv4), nil
}

// DHCPv6Leases implements domain.Upstream
func (u *SnapshotUpstream) DHCPv6Leases(context.Context) ([]domain.Row, error) {
	return cloneRows(u.current().DHCPv6), nil
}

// SystemStatus implements domain.Upstream
func (u *SnapshotUpstream) SystemStatus(context.Context) (domain.Row, error) {
	s := u.current()
	if s.System == nil {
		return nil, fmt.Errorf("%w: snapshot has no system status", domain.ErrUpstreamUnavailable)
	}
	return maps.Clone(s.System), nil
}

// LLDPNeighbors implements domain.LLDPSource
func (u *SnapshotUpstream) LLDPNeighbors(context.Context) ([]domain.Row, error) {
	return cloneRows(u.current().LLDP), nil
}

// FirewallLog implements domain.LogSource. The newest limit rows are
// returned.
func (u *SnapshotUpstream) FirewallLog(_ context.Context, limit int) ([]domain.Row, error) {
	logs := u.current().Logs
	if limit > 0 && len(logs) > limit {
		logs = logs[len(logs)-limit:]
	}
	return cloneRows(logs), nil
}

// SearchRules implements domain.FirewallAPI
func (u *SnapshotUpstream) SearchRules(context.Context) ([]domain.Row, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return cloneRows(u.rules), nil
}

// AddRule implements domain.FirewallAPI
func (u *SnapshotUpstream) AddRule(_ context.Context, rule map[string]any) (string, error) {
	id := uuid.NewString()
	row := domain.Row(maps.Clone(rule))
	row["uuid"] = id

	u.mu.Lock()
	defer u.mu.Unlock()
	var seq int64
	for _, r := range u.rules {
		seq = max(seq, r.Int("sequence"))
	}
	row["sequence"] = seq + 1
	u.rules = append(u.rules, row)
	u.pending = true
	return id, nil
}

// DeleteRule implements domain.FirewallAPI
func (u *SnapshotUpstream) DeleteRule(_ context.Context, id string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	i := slices.IndexFunc(u.rules, func(r domain.Row) bool { return r.String("uuid") == id })
	if i < 0 {
		return fmt.Errorf("failed to delete firewall rule: rule %s not found", id)
	}
	u.rules = slices.Delete(u.rules, i, i+1)
	u.pending = true
	return nil
}

// Savepoint implements domain.FirewallAPI
func (u *SnapshotUpstream) Savepoint(context.Context) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.savepoint++
	return fmt.Sprintf("snapshot.%d", u.savepoint), nil
}

// Apply implements domain.FirewallAPI. Only the latest savepoint applies.
func (u *SnapshotUpstream) Apply(_ context.Context, revision string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if revision != fmt.Sprintf("snapshot.%d", u.savepoint) {
		return fmt.Errorf("unknown revision %q", revision)
	}
	u.pending = false
	return nil
}

// Pending reports whether rule edits await Apply
func (u *SnapshotUpstream) Pending() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.pending
}
