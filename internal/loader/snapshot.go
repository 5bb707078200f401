// Package loader reads and writes appliance snapshots: YAML captures of the
// appliance tables that can stand in for a live appliance.
package loader

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"opnsense-mcp/internal/domain"
)

// SnapshotVersion is the current snapshot file format
const SnapshotVersion = "1"

// Snapshot is the file structure of a captured appliance
type Snapshot struct {
	Version    string       `yaml:"version"`
	CapturedAt time.Time    `yaml:"captured_at,omitempty"`
	Source     string       `yaml:"source,omitempty"`
	ARP        []domain.Row `yaml:"arp"`
	NDP        []domain.Row `yaml:"ndp"`
	DHCPv4     []domain.Row `yaml:"dhcpv4"`
	DHCPv6     []domain.Row `yaml:"dhcpv6"`
	System     domain.Row   `yaml:"system,omitempty"`
	LLDP       []domain.Row `yaml:"lldp,omitempty"`
	Rules      []domain.Row `yaml:"rules,omitempty"`
	Logs       []domain.Row `yaml:"logs,omitempty"`
}

// LoadSnapshot reads a snapshot file
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseSnapshot(data)
}

// ParseSnapshot parses snapshot YAML
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if s.Version == "" {
		s.Version = SnapshotVersion
	}
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %q", s.Version)
	}
	return &s, nil
}

// Write encodes the snapshot as YAML
func (s *Snapshot) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return enc.Close()
}

// Capture reads every table up offers. The neighbor and lease tables are
// required; optional capabilities that fail are logged and left empty.
func Capture(ctx context.Context, up domain.Upstream, logger *zap.Logger) (*Snapshot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Snapshot{Version: SnapshotVersion, CapturedAt: time.Now().UTC()}
	if b, ok := up.(interface{ BaseURL() string }); ok {
		s.Source = b.BaseURL()
	}

	var err error
	if s.ARP, err = up.ARPTable(ctx); err != nil {
		return nil, fmt.Errorf("arp table: %w", err)
	}
	if s.NDP, err = up.NDPTable(ctx); err != nil {
		return nil, fmt.Errorf("ndp table: %w", err)
	}
	if s.DHCPv4, err = up.DHCPv4Leases(ctx); err != nil {
		return nil, fmt.Errorf("dhcpv4 leases: %w", err)
	}
	if s.DHCPv6, err = up.DHCPv6Leases(ctx); err != nil {
		return nil, fmt.Errorf("dhcpv6 leases: %w", err)
	}

	if s.System, err = up.SystemStatus(ctx); err != nil {
		logger.Warn("skipping system status", zap.Error(err))
	}
	if src, ok := up.(domain.LLDPSource); ok {
		if s.LLDP, err = src.LLDPNeighbors(ctx); err != nil {
			logger.Warn("skipping lldp table", zap.Error(err))
		}
	}
	if fw, ok := up.(domain.FirewallAPI); ok {
		if s.Rules, err = fw.SearchRules(ctx); err != nil {
			logger.Warn("skipping firewall rules", zap.Error(err))
		}
	}
	if src, ok := up.(domain.LogSource); ok {
		if s.Logs, err = src.FirewallLog(ctx, 500); err != nil {
			logger.Warn("skipping firewall log", zap.Error(err))
		}
	}
	return s, nil
}
