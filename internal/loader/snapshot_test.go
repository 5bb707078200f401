package loader

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opnsense-mcp/internal/domain"
)

const sampleSnapshot = `version: "1"
source: https://fw.example
arp:
  - ip: 192.168.1.10
    mac: aa:bb:cc:00:00:01
    intf: lan
ndp: []
dhcpv4:
  - address: 192.168.1.10
    mac: aa:bb:cc:00:00:01
    hostname: trogdor
    status: offline
dhcpv6: []
system:
  cpu_usage: 4.5
  versions:
    opnsense: "24.7"
rules:
  - uuid: r1
    sequence: 10
    interface: lan
    action: pass
logs:
  - {timestamp: "2025-01-01T10:00:00", action: block, src_ip: 1.1.1.1, dst_ip: 2.2.2.2}
  - {timestamp: "2025-01-01T10:00:01", action: pass, src_ip: 1.1.1.1, dst_ip: 3.3.3.3}
`

func writeSnapshot(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseSnapshot(t *testing.T) {
	s, err := ParseSnapshot([]byte(sampleSnapshot))
	require.NoError(t, err)
	assert.Equal(t, "https://fw.example", s.Source)
	require.Len(t, s.ARP, 1)
	assert.Equal(t, "lan", s.ARP[0].String("intf"))
	assert.Equal(t, "24.7", s.System.Nested("versions").String("opnsense"))
	assert.EqualValues(t, 10, s.Rules[0].Int("sequence"))

	_, err = ParseSnapshot([]byte(`version: "9"`))
	assert.ErrorContains(t, err, "unsupported snapshot version")

	_, err = ParseSnapshot([]byte("arp: [unterminated"))
	assert.ErrorContains(t, err, "failed to parse YAML")
}

func TestSnapshot_WriteRoundTrip(t *testing.T) {
	s, err := ParseSnapshot([]byte(sampleSnapshot))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.Write(&buf))
	again, err := ParseSnapshot(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, s.ARP, again.ARP)
	assert.Equal(t, s.Logs, again.Logs)
}

func TestSnapshotUpstream_Tables(t *testing.T) {
	u, err := NewSnapshotUpstream(writeSnapshot(t, sampleSnapshot), nil)
	require.NoError(t, err)
	ctx := context.Background()

	arp, err := u.ARPTable(ctx)
	require.NoError(t, err)
	require.Len(t, arp, 1)

	// callers get copies
	arp[0]["ip"] = "mutated"
	again, _ := u.ARPTable(ctx)
	assert.Equal(t, "192.168.1.10", again[0].String("ip"))

	status, err := u.SystemStatus(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 4.5, status["cpu_usage"], 0.001)

	logs, err := u.FirewallLog(ctx, 1)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "pass", logs[0].String("action"), "the newest rows are kept")

	lldp, err := u.LLDPNeighbors(ctx)
	require.NoError(t, err)
	assert.Empty(t, lldp)
}

func TestSnapshotUpstream_NoSystem(t *testing.T) {
	u, err := NewSnapshotUpstream(writeSnapshot(t, "arp: []\n"), nil)
	require.NoError(t, err)
	_, err = u.SystemStatus(context.Background())
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestSnapshotUpstream_RuleEdits(t *testing.T) {
	path := writeSnapshot(t, sampleSnapshot)
	u, err := NewSnapshotUpstream(path, nil)
	require.NoError(t, err)
	ctx := context.Background()

	id, err := u.AddRule(ctx, map[string]any{"description": "allow dns", "interface": "lan"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.True(t, u.Pending())

	rules, err := u.SearchRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.EqualValues(t, 11, rules[1].Int("sequence"))

	rev, err := u.Savepoint(ctx)
	require.NoError(t, err)
	assert.Error(t, u.Apply(ctx, "bogus"))
	require.NoError(t, u.Apply(ctx, rev))
	assert.False(t, u.Pending())

	require.NoError(t, u.DeleteRule(ctx, "r1"))
	assert.ErrorContains(t, u.DeleteRule(ctx, "r1"), "not found")

	// reload discards edits
	require.NoError(t, u.Reload())
	rules, _ = u.SearchRules(ctx)
	require.Len(t, rules, 1)
	assert.Equal(t, "r1", rules[0].String("uuid"))
}

func TestSnapshotUpstream_ReloadKeepsPreviousOnError(t *testing.T) {
	path := writeSnapshot(t, sampleSnapshot)
	u, err := NewSnapshotUpstream(path, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("arp: ["), 0o600))
	assert.Error(t, u.Reload())

	arp, err := u.ARPTable(context.Background())
	require.NoError(t, err)
	assert.Len(t, arp, 1)
}

func TestNewSnapshotUpstream_Missing(t *testing.T) {
	_, err := NewSnapshotUpstream(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.ErrorContains(t, err, "failed to read file")
}

// failingUpstream fails its optional tables
type failingUpstream struct {
	SnapshotUpstream
}

func (f *failingUpstream) SystemStatus(context.Context) (domain.Row, error) {
	return nil, errors.New("forbidden")
}

func TestCapture(t *testing.T) {
	src, err := NewSnapshotUpstream(writeSnapshot(t, sampleSnapshot), nil)
	require.NoError(t, err)

	s, err := Capture(context.Background(), src, nil)
	require.NoError(t, err)
	assert.Equal(t, SnapshotVersion, s.Version)
	assert.False(t, s.CapturedAt.IsZero())
	assert.Len(t, s.ARP, 1)
	assert.Len(t, s.DHCPv4, 1)
	assert.Len(t, s.Rules, 1)
	assert.Len(t, s.Logs, 2)
	assert.NotNil(t, s.System)

	failing := &failingUpstream{}
	failing.snap = src.current()
	failing.logger = src.logger
	s, err = Capture(context.Background(), failing, nil)
	require.NoError(t, err)
	assert.Nil(t, s.System)
	assert.Len(t, s.ARP, 1)
}
