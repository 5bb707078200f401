package oui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opnsense-mcp/internal/repository/sqlite"
)

const sampleCSV = `Registry,Assignment,Organization Name,Organization Address
MA-L,286FB9,"Nokia Shanghai Bell Co., Ltd.","No.388 Ning Qiao Road,Jin Qiao Pudong Shanghai Shanghai   CN 201206 "
MA-L,08EA44,Extreme Networks Headquarters,"2121 RDU Center Drive  Morrisville NC US 27560 "
MA-L,F4F5D8,"Google, Inc.",1600 Amphitheatre Parkway Mountain View CA US 94043
MA-L,ZZZZZZ,Broken Row,nowhere
`

func TestNormalizePrefix(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"28:6f:b9:00:11:22", "286FB9"},
		{"28-6F-B9-00-11-22", "286FB9"},
		{"286f.b900.1122", "286FB9"},
		{"286FB9", "286FB9"},
		{"28:6f", ""},
		{"", ""},
		{"zz:zz:zz:00:00:00", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePrefix(tt.in))
		})
	}
}

func TestTable_Lookup(t *testing.T) {
	table := NewTable(map[string]string{
		"28:6f:b9": "Nokia",
		"f4f5d8":   "Google, Inc.",
	})
	assert.Equal(t, 2, table.Len())

	assert.Equal(t, "Nokia", table.Lookup("28:6F:B9:01:02:03"))
	assert.Equal(t, "Google, Inc.", table.Lookup("f4-f5-d8-aa-bb-cc"))
	assert.Equal(t, "", table.Lookup("00:00:01:02:03:04"))
	assert.Equal(t, "", table.Lookup("not-a-mac"))

	// locally administered bit set, no registry entry
	assert.Equal(t, PrivateVendor, table.Lookup("da:a1:19:00:00:01"))

	table.Replace(map[string]string{"000001": "Xerox"})
	assert.Equal(t, 1, table.Len())
	assert.Equal(t, "Xerox", table.Lookup("00:00:01:02:03:04"))
	assert.Equal(t, "", table.Lookup("28:6F:B9:01:02:03"))
}

func TestTable_NilSafe(t *testing.T) {
	var table *Table
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, "", table.Lookup("00:11:22:33:44:55"))
	assert.Equal(t, PrivateVendor, table.Lookup("02:11:22:33:44:55"))
}

func TestTable_ConcurrentReplace(t *testing.T) {
	table := NewTable(map[string]string{"286FB9": "Nokia"})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = table.Lookup("28:6f:b9:00:00:00")
			}
		}()
		go func() {
			defer wg.Done()
			table.Replace(map[string]string{"286FB9": "Nokia"})
		}()
	}
	wg.Wait()
	assert.Equal(t, "Nokia", table.Lookup("28:6f:b9:00:00:00"))
}

func TestIsLocallyAdministered(t *testing.T) {
	assert.True(t, IsLocallyAdministered("02:00:00:00:00:00"))
	assert.True(t, IsLocallyAdministered("aa:bb:cc:dd:ee:ff"))
	assert.False(t, IsLocallyAdministered("00:11:22:33:44:55"))
	assert.False(t, IsLocallyAdministered("bogus"))
}

func TestParseCSV(t *testing.T) {
	vendors, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, vendors, 3)

	assert.Equal(t, "286FB9", vendors[0].Prefix)
	assert.Equal(t, "Nokia Shanghai Bell Co., Ltd.", vendors[0].Organization)
	assert.Equal(t, "MA-L", vendors[0].Registry)
	assert.Equal(t, "Google, Inc.", vendors[2].Organization)
}

func TestParseCSV_Errors(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	assert.Error(t, err)

	_, err = ParseCSV(strings.NewReader("Registry,Organization Name\nMA-L,Acme\n"))
	assert.ErrorContains(t, err, "Assignment")
}

func TestLoader_PrefersFile(t *testing.T) {
	repo, err := sqlite.New(":memory:")
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	n, err := Import(ctx, repo, strings.NewReader(sampleCSV), "sample")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// missing file falls back to the database
	table := NewTable(nil)
	loader := NewLoader(table, repo, filepath.Join(t.TempDir(), "missing.csv"), nil)
	require.NoError(t, loader.Load(ctx))
	assert.Equal(t, 3, table.Len())

	path := filepath.Join(t.TempDir(), "oui.csv")
	require.NoError(t, os.WriteFile(path, []byte("Registry,Assignment,Organization Name\nMA-L,000001,Xerox\n"), 0o644))
	loader = NewLoader(table, repo, path, nil)
	require.NoError(t, loader.Load(ctx))
	assert.Equal(t, 1, table.Len())
	assert.Equal(t, "Xerox", table.Lookup("00:00:01:aa:bb:cc"))
}

func TestLoader_WatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oui.csv")
	require.NoError(t, os.WriteFile(path, []byte("Registry,Assignment,Organization Name\nMA-L,000001,Xerox\n"), 0o644))

	table := NewTable(nil)
	loader := NewLoader(table, nil, path, nil)
	require.NoError(t, loader.Load(context.Background()))
	require.Equal(t, "Xerox", table.Lookup("00:00:01:00:00:00"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loader.Watch(ctx) }()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("Registry,Assignment,Organization Name\nMA-L,000001,Xerox Corporation\n"), 0o644))
	require.Eventually(t, func() bool {
		return table.Lookup("00:00:01:00:00:00") == "Xerox Corporation"
	}, 3*time.Second, 25*time.Millisecond)
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oui.csv" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	body, err := Download(context.Background(), srv.Client(), srv.URL+"/oui.csv")
	require.NoError(t, err)
	vendors, err := ParseCSV(body)
	body.Close()
	require.NoError(t, err)
	assert.Len(t, vendors, 3)

	_, err = Download(context.Background(), srv.Client(), srv.URL+"/missing")
	assert.ErrorContains(t, err, "404")
}
