package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"opnsense-mcp/internal/config"
)

const snapshot = `version: "1"
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
`

const ouiCSV = "Registry,Assignment,Organization Name,Organization Address\n" +
	"MA-L,AABBCC,Acme Networks,Somewhere\n"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.OUI.Database.Path = filepath.Join(dir, "oui.db")
	cfg.Server.Metrics = true
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	a, err := New(context.Background(), cfg, zap.NewNop(), "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func callTool(t *testing.T, url, name string) map[string]any {
	t.Helper()
	resp, err := http.Post(url+"/tool/"+name, "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Content, 1)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out.Content[0].Text), &result))
	return result
}

func TestApp_SnapshotUpstream(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	cfg.Fixture.Path = filepath.Join(dir, "snapshot.yaml")
	cfg.OUI.CSVPath = filepath.Join(dir, "oui.csv")
	require.NoError(t, os.WriteFile(cfg.Fixture.Path, []byte(snapshot), 0o600))
	require.NoError(t, os.WriteFile(cfg.OUI.CSVPath, []byte(ouiCSV), 0o600))

	srv := newTestApp(t, cfg)

	result := callTool(t, srv.URL, "arp")
	arp := result["arp"].([]any)
	require.Len(t, arp, 1)
	host := arp[0].(map[string]any)
	assert.Equal(t, "trogdor", host["hostname"])
	assert.Equal(t, "Acme Networks", host["manufacturer"])
	assert.Equal(t, "Offline", host["dhcp_status"], "dhcp_status follows the raw lease flag")

	result = callTool(t, srv.URL, "dhcp")
	lease := result["dhcpv4"].([]any)[0].(map[string]any)
	assert.Equal(t, "Online", lease["actual_status"], "neighbor presence wins over the lease flag")

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `opnsense_mcp_tool_calls_total{status="success",tool="arp"} 1`)
}

func TestApp_NoApplianceServesFixtures(t *testing.T) {
	srv := newTestApp(t, testConfig(t))

	assert.Equal(t, "dummy", callTool(t, srv.URL, "dhcp")["status"])
	assert.Equal(t, "success", callTool(t, srv.URL, "arp")["status"])
}

func TestApp_MetricsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Metrics = false
	srv := newTestApp(t, cfg)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNew_BadSnapshot(t *testing.T) {
	cfg := testConfig(t)
	cfg.Fixture.Path = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := New(context.Background(), cfg, nil, "test")
	assert.Error(t, err)
}
