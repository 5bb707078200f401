package service

import (
	"context"
	"errors"

	"opnsense-mcp/internal/domain"
)

// fakeUpstream serves canned tables
type fakeUpstream struct {
	arp, ndp, v4, v6 []domain.Row
	arpErr, v4Err    error
}

func (f *fakeUpstream) ARPTable(context.Context) ([]domain.Row, error)     { return f.arp, f.arpErr }
func (f *fakeUpstream) NDPTable(context.Context) ([]domain.Row, error)     { return f.ndp, nil }
func (f *fakeUpstream) DHCPv4Leases(context.Context) ([]domain.Row, error) { return f.v4, f.v4Err }
func (f *fakeUpstream) DHCPv6Leases(context.Context) ([]domain.Row, error) { return f.v6, nil }
func (f *fakeUpstream) SystemStatus(context.Context) (domain.Row, error) {
	return nil, errors.New("not implemented")
}

// resolvingUpstream adds the HostResolver capability
type resolvingUpstream struct {
	fakeUpstream
	info domain.Row
	err  error
}

func (r *resolvingUpstream) ResolveHostInfo(context.Context, string) (domain.Row, error) {
	return r.info, r.err
}

type staticVendors map[string]string

func (s staticVendors) Lookup(mac string) string {
	if len(mac) < 8 {
		return ""
	}
	return s[mac[:8]]
}
