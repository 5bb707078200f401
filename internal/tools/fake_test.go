package tools

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"opnsense-mcp/internal/domain"
	"opnsense-mcp/internal/service"
)

// fakeAppliance serves canned tables and records firewall writes
type fakeAppliance struct {
	mu sync.Mutex

	arp, ndp, v4, v6 []domain.Row
	arpErr, v4Err    error
	status           domain.Row
	statusErr        error
}

func (f *fakeAppliance) ARPTable(context.Context) ([]domain.Row, error)     { return f.arp, f.arpErr }
func (f *fakeAppliance) NDPTable(context.Context) ([]domain.Row, error)     { return f.ndp, nil }
func (f *fakeAppliance) DHCPv4Leases(context.Context) ([]domain.Row, error) { return f.v4, f.v4Err }
func (f *fakeAppliance) DHCPv6Leases(context.Context) ([]domain.Row, error) { return f.v6, nil }
func (f *fakeAppliance) SystemStatus(context.Context) (domain.Row, error) {
	return f.status, f.statusErr
}

// fullAppliance adds every optional capability
type fullAppliance struct {
	fakeAppliance

	rules    []domain.Row
	rulesErr error
	added    []map[string]any
	deleted  []string
	addErr   error
	applyErr error
	applied  []string

	lldp    []domain.Row
	lldpErr error

	logs    []domain.Row
	logsErr error
	limit   int
}

func (f *fullAppliance) SearchRules(context.Context) ([]domain.Row, error) {
	return f.rules, f.rulesErr
}

func (f *fullAppliance) AddRule(_ context.Context, rule map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return "", f.addErr
	}
	f.added = append(f.added, rule)
	return "new-rule-uuid", nil
}

func (f *fullAppliance) DeleteRule(_ context.Context, uuid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if uuid == "missing" {
		return errors.New("failed to delete firewall rule: rule not deleted")
	}
	f.deleted = append(f.deleted, uuid)
	return nil
}

func (f *fullAppliance) Savepoint(context.Context) (string, error) { return "1700000000.1", nil }

func (f *fullAppliance) Apply(_ context.Context, revision string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = append(f.applied, revision)
	return nil
}

func (f *fullAppliance) LLDPNeighbors(context.Context) ([]domain.Row, error) {
	return f.lldp, f.lldpErr
}

func (f *fullAppliance) FirewallLog(_ context.Context, limit int) ([]domain.Row, error) {
	f.limit = limit
	return f.logs, f.logsErr
}

func newTestToolset(t *testing.T, up domain.Upstream) *Toolset {
	t.Helper()
	logger := zap.NewNop()
	return NewToolset(service.NewHostService(up, nil, logger), logger)
}

func neighborRows() *fakeAppliance {
	return &fakeAppliance{
		arp: []domain.Row{
			{"ip": "192.168.1.10", "mac": "aa:bb:cc:00:00:01", "intf": "lan"},
			{"ip": "192.168.1.20", "mac": "aa:bb:cc:00:00:02", "intf": "lan"},
		},
		ndp: []domain.Row{
			{"ip": "fe80::10", "mac": "aa:bb:cc:00:00:01", "intf": "lan"},
		},
		v4: []domain.Row{
			{"address": "192.168.1.10", "mac": "aa:bb:cc:00:00:01", "hostname": "trogdor", "status": "offline"},
			{"address": "192.168.1.99", "mac": "aa:bb:cc:00:00:99", "hostname": "ghost", "status": "offline"},
		},
		v6: []domain.Row{},
	}
}
