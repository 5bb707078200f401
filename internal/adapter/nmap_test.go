package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockRun() *nmap.Run {
	return &nmap.Run{
		Hosts: []nmap.Host{
			{
				Addresses: []nmap.Address{{Addr: "192.168.1.9", AddrType: "ipv4"}},
				Status:    nmap.Status{State: "down"},
			},
			{
				Addresses: []nmap.Address{
					{Addr: "192.168.1.10", AddrType: "ipv4"},
					{Addr: "AA:BB:CC:DD:EE:10", AddrType: "mac", Vendor: "Raspberry Pi Foundation"},
				},
				Hostnames: []nmap.Hostname{{Name: "pihole.lan"}},
				Status:    nmap.Status{State: "up"},
			},
			{
				Addresses: []nmap.Address{{Addr: "192.168.1.20", AddrType: "ipv4"}},
				Hostnames: []nmap.Hostname{{Name: "nas.lan"}},
				Status:    nmap.Status{State: "up"},
			},
		},
	}
}

func TestNmapResolver_Creation(t *testing.T) {
	tests := []struct {
		name        string
		subnets     []string
		wantSubnets []string
	}{
		{"single cidr", []string{"192.168.1.0/24"}, []string{"192.168.1.0/24"}},
		{"cidr normalized", []string{"10.0.0.7/24"}, []string{"10.0.0.0/24"}},
		{"invalid dropped", []string{"10.0.0.0/99", "192.168.1.1", " "}, []string{"192.168.1.1"}},
		{"none", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewNmapResolver(tt.subnets, nil)
			assert.Equal(t, tt.wantSubnets, r.subnets)
		})
	}
}

func TestNmapResolver_Options(t *testing.T) {
	r := NewNmapResolver(nil, nil, WithTimeout(5*time.Second), WithSkipHostDiscovery(true))
	assert.Equal(t, 5*time.Second, r.timeout)
	assert.True(t, r.skipHostDiscovery)

	r = NewNmapResolver(nil, nil, WithTimeout(0))
	assert.Equal(t, 30*time.Second, r.timeout)
}

func TestIsScanTarget(t *testing.T) {
	assert.True(t, isScanTarget("192.168.1.10"))
	assert.True(t, isScanTarget("fe80::1"))
	assert.True(t, isScanTarget("pihole.lan"))
	assert.False(t, isScanTarget("printer"))
	assert.False(t, isScanTarget("aa:bb:cc"))
	assert.False(t, isScanTarget("bad host.lan"))
}

func TestNmapResolver_DirectTarget(t *testing.T) {
	var gotOpts int
	r := NewNmapResolver([]string{"192.168.1.0/24"}, nil, withScanFunc(
		func(ctx context.Context, opts ...nmap.Option) (*nmap.Run, error) {
			gotOpts = len(opts)
			return mockRun(), nil
		}))

	info, err := r.ResolveHostInfo(context.Background(), "192.168.1.10")
	require.NoError(t, err)
	assert.Equal(t, 2, gotOpts)
	assert.Equal(t, "192.168.1.10", info.String("ip"))
	assert.Equal(t, "aa:bb:cc:dd:ee:10", info.String("mac"))
	assert.Equal(t, "pihole.lan", info.String("hostname"))
	assert.Equal(t, "Raspberry Pi Foundation", info.String("manufacturer"))
}

func TestNmapResolver_SubnetMatch(t *testing.T) {
	r := NewNmapResolver([]string{"192.168.1.0/24"}, nil, withScanFunc(
		func(ctx context.Context, opts ...nmap.Option) (*nmap.Run, error) {
			return mockRun(), nil
		}))

	info, err := r.ResolveHostInfo(context.Background(), "NAS")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.20", info.String("ip"))

	info, err = r.ResolveHostInfo(context.Background(), "toaster")
	require.NoError(t, err)
	assert.Empty(t, info)
}

func TestNmapResolver_NoTargets(t *testing.T) {
	called := false
	r := NewNmapResolver(nil, nil, withScanFunc(
		func(ctx context.Context, opts ...nmap.Option) (*nmap.Run, error) {
			called = true
			return nil, nil
		}))

	info, err := r.ResolveHostInfo(context.Background(), "printer")
	require.NoError(t, err)
	assert.Empty(t, info)
	assert.False(t, called)
}

func TestNmapResolver_ScanError(t *testing.T) {
	r := NewNmapResolver(nil, nil, withScanFunc(
		func(ctx context.Context, opts ...nmap.Option) (*nmap.Run, error) {
			return nil, errors.New("nmap not found")
		}))

	_, err := r.ResolveHostInfo(context.Background(), "10.0.0.1")
	assert.ErrorContains(t, err, "nmap not found")
	assert.False(t, r.Available(context.Background()))
}

func TestNmapResolver_SweepReused(t *testing.T) {
	scans := 0
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	r := NewNmapResolver([]string{"192.168.1.0/24"}, nil, WithSweepTTL(time.Minute), withScanFunc(
		func(ctx context.Context, opts ...nmap.Option) (*nmap.Run, error) {
			scans++
			return mockRun(), nil
		}))
	r.now = func() time.Time { return now }

	info, err := r.ResolveHostInfo(context.Background(), "nas")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.20", info.String("ip"))
	info, err = r.ResolveHostInfo(context.Background(), "pihole")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.10", info.String("ip"))
	assert.Equal(t, 1, scans)

	// direct targets always scan
	_, err = r.ResolveHostInfo(context.Background(), "192.168.1.10")
	require.NoError(t, err)
	assert.Equal(t, 2, scans)

	now = now.Add(2 * time.Minute)
	_, err = r.ResolveHostInfo(context.Background(), "nas")
	require.NoError(t, err)
	assert.Equal(t, 3, scans)
}

func TestNmapResolver_SweepDisabled(t *testing.T) {
	scans := 0
	r := NewNmapResolver([]string{"192.168.1.0/24"}, nil, WithSweepTTL(0), withScanFunc(
		func(ctx context.Context, opts ...nmap.Option) (*nmap.Run, error) {
			scans++
			return mockRun(), nil
		}))

	for range 2 {
		_, err := r.ResolveHostInfo(context.Background(), "nas")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, scans)
}

func TestNmapResolver_SweepErrorNotCached(t *testing.T) {
	fail := true
	r := NewNmapResolver([]string{"192.168.1.0/24"}, nil, withScanFunc(
		func(ctx context.Context, opts ...nmap.Option) (*nmap.Run, error) {
			if fail {
				return nil, errors.New("timeout")
			}
			return mockRun(), nil
		}))

	_, err := r.ResolveHostInfo(context.Background(), "nas")
	assert.ErrorContains(t, err, "timeout")

	fail = false
	info, err := r.ResolveHostInfo(context.Background(), "nas")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.20", info.String("ip"))
}

func TestNmapResolver_SweepCallerCancelled(t *testing.T) {
	release := make(chan struct{})
	r := NewNmapResolver([]string{"192.168.1.0/24"}, nil, withScanFunc(
		func(ctx context.Context, opts ...nmap.Option) (*nmap.Run, error) {
			<-release
			return mockRun(), nil
		}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.ResolveHostInfo(ctx, "nas")
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	info, err := r.ResolveHostInfo(context.Background(), "nas")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.20", info.String("ip"))
}

func TestFirstMatchingHost_Nil(t *testing.T) {
	assert.Empty(t, firstMatchingHost(nil, ""))
}
