package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, body string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("OPNSENSE_API_HOST", "")
	t.Setenv("OPNSENSE_API_KEY", "")
	t.Setenv("OPNSENSE_API_SECRET", "")
	t.Setenv("PORT", "")
	t.Setenv("LOG_LEVEL", "")
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return dir, path
}

func TestVersionSkipsConfig(t *testing.T) {
	out, err := execute(t, "version", "--config", "/nonexistent/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "opnsense-mcp dev\n", out)
}

func TestConfigShowMasksSecrets(t *testing.T) {
	_, path := writeConfig(t, `
opnsense:
  host: fw.lan
  api_key: abcdefgh
  api_secret: secret-value
server:
  port: 9090
`)

	out, err := execute(t, "config", "show", "--yaml", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "host: fw.lan")
	assert.Contains(t, out, "api_key: abcd****")
	assert.NotContains(t, out, "secret-value")
	assert.Contains(t, out, "port: 9090")

	out, err = execute(t, "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Config: "+path)
	assert.Contains(t, out, "Upstream: fw.lan")
}

func TestConfigShowRejectsBadFile(t *testing.T) {
	_, path := writeConfig(t, "logging:\n  format: xml\n")
	_, err := execute(t, "config", "show", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.format")
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	out, err := execute(t, "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)
	assert.FileExists(t, path)

	_, err = execute(t, "config", "init", "-o", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "config", "init", "-o", path, "--force")
	require.NoError(t, err)
}

func TestOUIImportAndLookup(t *testing.T) {
	dir, _ := writeConfig(t, "")
	csvPath := filepath.Join(dir, "oui.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(
		"Registry,Assignment,Organization Name,Organization Address\n"+
			"MA-L,AABBCC,Acme Networks,Somewhere\n"), 0o600))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"oui:\n  database:\n    path: "+filepath.Join(dir, "oui.db")+"\n"), 0o600))

	out, err := execute(t, "oui", "import", csvPath, "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 1 vendors")

	out, err = execute(t, "oui", "lookup", "aa:bb:cc:00:11:22", "00:00:00:00:00:01", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "aa:bb:cc:00:11:22\tAcme Networks\n")
	assert.Contains(t, out, "00:00:00:00:00:01\tUnknown\n")
}

func TestSnapshotRequiresAppliance(t *testing.T) {
	_, path := writeConfig(t, "")
	_, err := execute(t, "snapshot", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no OPNsense appliance configured")
}
