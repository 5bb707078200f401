package adapter

import (
	"context"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"
)

// NmapOption is a functional option for configuring NmapResolver
type NmapOption func(*NmapResolver)

// WithTimeout bounds each resolution scan
func WithTimeout(d time.Duration) NmapOption {
	return func(r *NmapResolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithSkipHostDiscovery treats every target as online (-Pn)
// Useful for networks that block ICMP
func WithSkipHostDiscovery(skip bool) NmapOption {
	return func(r *NmapResolver) {
		r.skipHostDiscovery = skip
	}
}

// WithSweepTTL sets how long a subnet discovery scan is reused; zero or
// less scans on every query
func WithSweepTTL(d time.Duration) NmapOption {
	return func(r *NmapResolver) {
		r.sweepTTL = d
	}
}

// withScanFunc replaces the scanner
func withScanFunc(fn func(ctx context.Context, opts ...nmap.Option) (*nmap.Run, error)) NmapOption {
	return func(r *NmapResolver) {
		r.scan = fn
	}
}
