// Package adapter implements the upstream sources the tools read from.
//
// # OPNsense
//
// OPNsenseClient talks to the appliance REST API with key/secret basic auth.
// It implements domain.Upstream plus the optional capabilities
// (HostResolver, LLDPSource, FirewallAPI, LogSource). Identical concurrent
// GETs are coalesced into one request.
//
// # Nmap
//
// NmapResolver is a secondary domain.HostResolver. IP and hostname queries
// are scanned directly; other queries are matched against a discovery scan
// of the configured subnets. It requires the nmap binary on PATH.
package adapter
