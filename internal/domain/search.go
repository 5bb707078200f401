package domain

import "strings"

// SearchMode tells callers whether a query selects everything or filters
type SearchMode int

const (
	// SearchSelectAll means the query was empty or the wildcard; callers
	// return the unfiltered tables.
	SearchSelectAll SearchMode = iota
	// SearchFiltered means records must match the token set.
	SearchFiltered
)

func (m SearchMode) String() string {
	if m == SearchSelectAll {
		return "select_all"
	}
	return "filtered"
}

// SearchTokenSet holds the identifiers a query expanded into. All tokens are
// stored lower-cased.
type SearchTokenSet struct {
	IPs       map[string]struct{}
	MACs      map[string]struct{}
	Hostnames map[string]struct{}
	RawQuery  string
}

// NewSearchTokenSet creates a token set seeded with the lower-cased raw query
func NewSearchTokenSet(query string) *SearchTokenSet {
	return &SearchTokenSet{
		IPs:       make(map[string]struct{}),
		MACs:      make(map[string]struct{}),
		Hostnames: make(map[string]struct{}),
		RawQuery:  strings.ToLower(strings.TrimSpace(query)),
	}
}

// AddIP adds a resolved IP address
func (s *SearchTokenSet) AddIP(ip string) {
	addToken(s.IPs, ip)
}

// AddMAC adds a resolved MAC address
func (s *SearchTokenSet) AddMAC(mac string) {
	addToken(s.MACs, mac)
}

// AddHostname adds a resolved hostname
func (s *SearchTokenSet) AddHostname(hostname string) {
	addToken(s.Hostnames, hostname)
}

// Tokens returns every token including the raw query, deduplicated
func (s *SearchTokenSet) Tokens() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(t string) {
		if t == "" {
			return
		}
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	add(s.RawQuery)
	for _, set := range []map[string]struct{}{s.IPs, s.MACs, s.Hostnames} {
		for t := range set {
			add(t)
		}
	}
	return out
}

func addToken(set map[string]struct{}, v string) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v != "" {
		set[v] = struct{}{}
	}
}
