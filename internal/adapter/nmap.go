package adapter

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"opnsense-mcp/internal/domain"
)

// hostnamePattern accepts DNS names nmap can resolve as a scan target
var hostnamePattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?)*$`)

// scanFunc runs one nmap scan; replaced in tests
type scanFunc func(ctx context.Context, opts ...nmap.Option) (*nmap.Run, error)

// DefaultSweepTTL is how long a subnet discovery scan is reused
const DefaultSweepTTL = time.Minute

// NmapResolver resolves search queries by host discovery. An IP or
// hostname query is scanned directly; any other query is matched against a
// discovery scan of the configured subnets. That scan is shared by
// concurrent queries and reused for sweepTTL.
type NmapResolver struct {
	subnets           []string
	timeout           time.Duration
	skipHostDiscovery bool
	sweepTTL          time.Duration
	scan              scanFunc
	now               func() time.Time
	logger            *zap.Logger

	sweeps  singleflight.Group
	mu      sync.Mutex
	lastRun *nmap.Run
	lastAt  time.Time
}

var _ domain.HostResolver = (*NmapResolver)(nil)

// NewNmapResolver creates a resolver. Subnets are CIDR ranges or single
// addresses; invalid entries are dropped with a warning.
func NewNmapResolver(subnets []string, logger *zap.Logger, opts ...NmapOption) *NmapResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &NmapResolver{
		timeout:  30 * time.Second,
		sweepTTL: DefaultSweepTTL,
		scan:     runNmap,
		now:      time.Now,
		logger:   logger.Named("nmap"),
	}
	valid, err := expandTargets(subnets)
	if err != nil {
		r.logger.Warn("invalid nmap subnet", zap.Error(err))
	}
	r.subnets = valid

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Available reports whether the nmap binary can run
func (r *NmapResolver) Available(ctx context.Context) bool {
	_, err := r.scan(ctx, nmap.WithTargets("localhost"), nmap.WithListScan())
	return err == nil
}

// ResolveHostInfo returns ip, mac, hostname and manufacturer of the first
// discovered host matching query. An empty row means nothing matched.
func (r *NmapResolver) ResolveHostInfo(ctx context.Context, query string) (domain.Row, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.Row{}, nil
	}

	direct := isScanTarget(query)
	targets := r.subnets
	if direct {
		targets = []string{query}
	}
	if len(targets) == 0 {
		return domain.Row{}, nil
	}

	if direct {
		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		r.logger.Debug("scanning", zap.Strings("targets", targets), zap.String("query", query))
		result, err := r.scan(ctx, r.scanOptions(targets)...)
		if err != nil {
			return nil, fmt.Errorf("nmap scan: %w", err)
		}
		return firstMatchingHost(result, ""), nil
	}

	result, err := r.sweep(ctx)
	if err != nil {
		return nil, fmt.Errorf("nmap scan: %w", err)
	}
	return firstMatchingHost(result, strings.ToLower(query)), nil
}

func (r *NmapResolver) scanOptions(targets []string) []nmap.Option {
	opts := []nmap.Option{nmap.WithTargets(targets...), nmap.WithPingScan()}
	if r.skipHostDiscovery {
		opts = append(opts, nmap.WithSkipHostDiscovery())
	}
	return opts
}

// sweep returns the discovery scan of the configured subnets, reusing a
// result younger than sweepTTL. The scan is detached from ctx; a cancelled
// caller stops waiting while the scan completes for the others.
func (r *NmapResolver) sweep(ctx context.Context) (*nmap.Run, error) {
	r.mu.Lock()
	if r.lastRun != nil && r.sweepTTL > 0 && r.now().Sub(r.lastAt) < r.sweepTTL {
		run := r.lastRun
		r.mu.Unlock()
		return run, nil
	}
	r.mu.Unlock()

	ch := r.sweeps.DoChan("sweep", func() (any, error) {
		scanCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		r.logger.Debug("sweeping subnets", zap.Strings("targets", r.subnets))
		run, err := r.scan(scanCtx, r.scanOptions(r.subnets)...)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.lastRun, r.lastAt = run, r.now()
		r.mu.Unlock()
		return run, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		run, _ := res.Val.(*nmap.Run)
		return run, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// firstMatchingHost converts the first up host whose ip, mac or hostname
// contains needle. An empty needle takes the first up host.
func firstMatchingHost(result *nmap.Run, needle string) domain.Row {
	if result == nil {
		return domain.Row{}
	}
	for _, host := range result.Hosts {
		if host.Status.State != "up" || len(host.Addresses) == 0 {
			continue
		}
		info := hostInfo(host)
		if needle == "" ||
			strings.Contains(strings.ToLower(info.String("ip")), needle) ||
			strings.Contains(info.String("mac"), needle) ||
			strings.Contains(strings.ToLower(info.String("hostname")), needle) {
			return info
		}
	}
	return domain.Row{}
}

// hostInfo extracts identifiers from one nmap host
func hostInfo(host nmap.Host) domain.Row {
	info := domain.Row{}
	for _, addr := range host.Addresses {
		switch addr.AddrType {
		case "ipv4", "ipv6":
			if !info.Has("ip") {
				info["ip"] = addr.Addr
			}
		case "mac":
			info["mac"] = strings.ToLower(addr.Addr)
			if addr.Vendor != "" {
				info["manufacturer"] = addr.Vendor
			}
		}
	}
	if len(host.Hostnames) > 0 {
		info["hostname"] = host.Hostnames[0].Name
	}
	return info
}

func runNmap(ctx context.Context, opts ...nmap.Option) (*nmap.Run, error) {
	scanner, err := nmap.NewScanner(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}
	result, _, err := scanner.Run()
	if err != nil {
		return nil, err
	}
	return result, nil
}

// isScanTarget reports whether query can be handed to nmap as a target
func isScanTarget(query string) bool {
	if net.ParseIP(query) != nil {
		return true
	}
	// bare words like "printer" are search fragments, not targets
	return strings.Contains(query, ".") && hostnamePattern.MatchString(query)
}

// expandTargets validates CIDR targets, keeping the valid ones
func expandTargets(targets []string) ([]string, error) {
	var (
		expanded []string
		firstErr error
	)
	for _, target := range targets {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if strings.Contains(target, "/") {
			_, ipNet, err := net.ParseCIDR(target)
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("invalid CIDR %s: %w", target, err)
				}
				continue
			}
			expanded = append(expanded, ipNet.String())
		} else {
			expanded = append(expanded, target)
		}
	}
	return expanded, firstErr
}
