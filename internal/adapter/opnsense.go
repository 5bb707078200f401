package adapter

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"opnsense-mcp/internal/domain"
)

// OPNsense REST endpoints
const (
	pathARP        = "/api/diagnostics/interface/get_arp"
	pathNDP        = "/api/diagnostics/interface/get_ndp"
	pathDHCPv4     = "/api/dhcpv4/leases/search_lease"
	pathDHCPv6     = "/api/dhcpv6/leases/search_lease"
	pathStatus     = "/api/core/system/status"
	pathSysInfo    = "/api/diagnostics/system/system_information"
	pathLLDP       = "/api/lldpd/service/neighbor"
	pathRules      = "/api/firewall/filter/search_rule"
	pathAddRule    = "/api/firewall/filter/add_rule"
	pathDelRule    = "/api/firewall/filter/del_rule/"
	pathSavepoint  = "/api/firewall/filter/savepoint"
	pathApply      = "/api/firewall/filter/apply/"
	pathFirewallLg = "/api/diagnostics/firewall/log"
)

// UpstreamMetrics observes appliance requests
type UpstreamMetrics interface {
	ObserveUpstream(endpoint string, duration time.Duration, err error)
}

// OPNsenseConfig holds appliance connection settings
type OPNsenseConfig struct {
	// Host is a hostname, host:port or full base URL. A bare host gets https.
	Host      string
	APIKey    string
	APISecret string
	VerifySSL bool
	Timeout   time.Duration
}

// OPNsenseOption is a functional option for configuring OPNsenseClient
type OPNsenseOption func(*OPNsenseClient)

// WithHTTPClient replaces the HTTP client (tests use httptest clients)
func WithHTTPClient(hc *http.Client) OPNsenseOption {
	return func(c *OPNsenseClient) {
		c.http = hc
	}
}

// WithUpstreamMetrics sets the request metrics sink
func WithUpstreamMetrics(m UpstreamMetrics) OPNsenseOption {
	return func(c *OPNsenseClient) {
		c.metrics = m
	}
}

// WithLogger sets the client logger
func WithLogger(l *zap.Logger) OPNsenseOption {
	return func(c *OPNsenseClient) {
		c.logger = l.Named("opnsense")
	}
}

// OPNsenseClient talks to the OPNsense REST API with key/secret basic auth.
// Identical concurrent GETs share one request.
type OPNsenseClient struct {
	baseURL string
	key     string
	secret  string
	http    *http.Client
	group   singleflight.Group
	metrics UpstreamMetrics
	logger  *zap.Logger
}

var (
	_ domain.Upstream     = (*OPNsenseClient)(nil)
	_ domain.HostResolver = (*OPNsenseClient)(nil)
	_ domain.LLDPSource   = (*OPNsenseClient)(nil)
	_ domain.FirewallAPI  = (*OPNsenseClient)(nil)
	_ domain.LogSource    = (*OPNsenseClient)(nil)
)

// NewOPNsenseClient creates a client. Host, key and secret are required.
func NewOPNsenseClient(cfg OPNsenseConfig, opts ...OPNsenseOption) (*OPNsenseClient, error) {
	if cfg.Host == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("opnsense host, api key and api secret are required")
	}
	base, err := normalizeBaseURL(cfg.Host)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &OPNsenseClient{
		baseURL: base,
		key:     cfg.APIKey,
		secret:  cfg.APISecret,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{InsecureSkipVerify: !cfg.VerifySSL}, //nolint:gosec
			},
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func normalizeBaseURL(host string) (string, error) {
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	u, err := url.Parse(host)
	if err != nil {
		return "", fmt.Errorf("invalid opnsense host %q: %w", host, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid opnsense host %q", host)
	}
	return strings.TrimRight(u.Scheme+"://"+u.Host+u.Path, "/"), nil
}

// BaseURL returns the normalized appliance URL
func (c *OPNsenseClient) BaseURL() string {
	return c.baseURL
}

// ARPTable returns the IPv4 neighbor table
func (c *OPNsenseClient) ARPTable(ctx context.Context) ([]domain.Row, error) {
	return c.getRows(ctx, pathARP)
}

// NDPTable returns the IPv6 neighbor table
func (c *OPNsenseClient) NDPTable(ctx context.Context) ([]domain.Row, error) {
	return c.getRows(ctx, pathNDP)
}

// DHCPv4Leases returns the DHCPv4 lease table
func (c *OPNsenseClient) DHCPv4Leases(ctx context.Context) ([]domain.Row, error) {
	return c.getRows(ctx, pathDHCPv4)
}

// DHCPv6Leases returns the DHCPv6 lease table
func (c *OPNsenseClient) DHCPv6Leases(ctx context.Context) ([]domain.Row, error) {
	return c.getRows(ctx, pathDHCPv6)
}

// SystemStatus returns a summary of resource usage and versions. The
// system information endpoint is optional; its failure is only logged.
func (c *OPNsenseClient) SystemStatus(ctx context.Context) (domain.Row, error) {
	v, err := c.get(ctx, pathStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to get system status: %w", err)
	}
	resp, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected response format from status API")
	}

	data := domain.Row(resp)
	if nested := data.Nested("data"); nested != nil {
		data = nested
	}
	status := systemStatusFrom(data)

	if info, err := c.get(ctx, pathSysInfo); err != nil {
		c.logger.Warn("could not fetch system information", zap.Error(err))
	} else if m, ok := info.(map[string]any); ok {
		mergeSystemInformation(status, domain.Row(m))
	}
	return status, nil
}

func systemStatusFrom(data domain.Row) domain.Row {
	filesystems := map[string]any{}
	if list, ok := data["filesystems"].([]any); ok {
		for _, item := range list {
			fs, ok := item.(map[string]any)
			if !ok {
				continue
			}
			row := domain.Row(fs)
			filesystems[row.String("mountpoint")] = percent(row.String("used_percent"))
		}
	}

	return domain.Row{
		"cpu_usage":        percent(data.Nested("cpu").String("used")),
		"memory_usage":     percent(data.Nested("memory").String("used")),
		"filesystem_usage": filesystems,
		"uptime":           data.String("uptime"),
		"versions": map[string]any{
			"opnsense": data.String("version"),
			"kernel":   data.String("kernel"),
		},
		"temperature": map[string]any{},
		"interfaces":  map[string]any{},
		"services":    []any{},
	}
}

func mergeSystemInformation(status, info domain.Row) {
	temps := status["temperature"].(map[string]any)
	if list, ok := info["temperature"].([]any); ok {
		for _, item := range list {
			sensor, ok := item.(map[string]any)
			if !ok {
				continue
			}
			row := domain.Row(sensor)
			if row.Has("device") && row.Has("temperature") {
				temps[row.String("device")] = sensor["temperature"]
			}
		}
	}
	if product := info.String("product"); product != "" {
		status["versions"].(map[string]any)["product"] = product
	}
}

func percent(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
	return f
}

// ResolveHostInfo looks query up in the lease tables. The first lease whose
// ip, mac or hostname contains query is returned under dhcpv4 or dhcpv6.
func (c *OPNsenseClient) ResolveHostInfo(ctx context.Context, query string) (domain.Row, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	info := domain.Row{}
	if q == "" {
		return info, nil
	}

	for _, src := range []struct {
		key  string
		path string
	}{{"dhcpv4", pathDHCPv4}, {"dhcpv6", pathDHCPv6}} {
		rows, err := c.getRows(ctx, src.path)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			ip := row.String("ip", "address")
			mac := row.String("mac")
			hostname := row.String("hostname", "client-hostname")
			if !containsLower(ip, q) && !containsLower(mac, q) && !containsLower(hostname, q) {
				continue
			}
			info[src.key] = map[string]any(row)
			if !info.Has("ip") {
				info["ip"] = ip
				info["mac"] = mac
				info["hostname"] = hostname
			}
			break
		}
	}
	return info, nil
}

func containsLower(s, q string) bool {
	return s != "" && strings.Contains(strings.ToLower(s), q)
}

// LLDPNeighbors parses the lldpd plugin's text neighbor report
func (c *OPNsenseClient) LLDPNeighbors(ctx context.Context) ([]domain.Row, error) {
	v, err := c.get(ctx, pathLLDP)
	if err != nil {
		return nil, err
	}
	resp, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected LLDP response format")
	}
	text, _ := resp["response"].(string)
	return ParseLLDP(text), nil
}

// ParseLLDP splits lldpcli output into one row per "Interface:" block
func ParseLLDP(text string) []domain.Row {
	var neighbors []domain.Row
	for _, block := range strings.Split(text, "Interface:") {
		block = strings.TrimSpace(block)
		if block == "" || strings.HasPrefix(block, "-") {
			continue
		}
		lines := strings.Split(block, "\n")
		intf := strings.TrimSpace(strings.Split(lines[0], ",")[0])
		if intf == "" {
			continue
		}

		row := domain.Row{
			"intf":               intf,
			"chassis_id":         "",
			"port_id":            "",
			"system_name":        "",
			"system_description": "",
			"port_description":   "",
			"capabilities":       "",
			"management_address": "",
		}
		var caps []string
		for _, line := range lines {
			switch {
			case strings.Contains(line, "ChassisID:"):
				row["chassis_id"] = strings.Replace(after(line, "ChassisID:"), "mac ", "", 1)
			case strings.Contains(line, "SysName:"):
				row["system_name"] = after(line, "SysName:")
			case strings.Contains(line, "SysDescr:"):
				row["system_description"] = after(line, "SysDescr:")
			case strings.Contains(line, "MgmtIP:"):
				row["management_address"] = after(line, "MgmtIP:")
			case strings.Contains(line, "PortID:"):
				row["port_id"] = strings.Replace(after(line, "PortID:"), "ifname ", "", 1)
			case strings.Contains(line, "PortDescr:"):
				row["port_description"] = after(line, "PortDescr:")
			case strings.Contains(line, "Capability:") && strings.Contains(line, ", on"):
				caps = append(caps, strings.TrimSpace(strings.Split(after(line, "Capability:"), ",")[0]))
			}
		}
		row["capabilities"] = strings.Join(caps, ", ")
		neighbors = append(neighbors, row)
	}
	return neighbors
}

func after(line, marker string) string {
	i := strings.LastIndex(line, marker)
	return strings.TrimSpace(line[i+len(marker):])
}

// SearchRules lists the filter rules
func (c *OPNsenseClient) SearchRules(ctx context.Context) ([]domain.Row, error) {
	return c.getRows(ctx, pathRules)
}

// AddRule creates a filter rule and returns its uuid
func (c *OPNsenseClient) AddRule(ctx context.Context, rule map[string]any) (string, error) {
	resp, err := c.post(ctx, pathAddRule, map[string]any{"rule": rule})
	if err != nil {
		return "", fmt.Errorf("failed to add firewall rule: %w", err)
	}
	uuid := resp.String("uuid")
	if uuid == "" {
		return "", errors.New("failed to create firewall rule, invalid response format")
	}
	return uuid, nil
}

// DeleteRule removes a filter rule
func (c *OPNsenseClient) DeleteRule(ctx context.Context, uuid string) error {
	resp, err := c.post(ctx, pathDelRule+url.PathEscape(uuid), nil)
	if err != nil {
		return fmt.Errorf("failed to delete firewall rule: %w", err)
	}
	if resp.String("result") != "deleted" {
		return fmt.Errorf("failed to delete firewall rule: %s", messageOr(resp, "rule not deleted"))
	}
	return nil
}

// Savepoint creates a rollback revision
func (c *OPNsenseClient) Savepoint(ctx context.Context) (string, error) {
	resp, err := c.post(ctx, pathSavepoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create firewall savepoint: %w", err)
	}
	revision := resp.String("revision")
	if revision == "" {
		return "", errors.New("failed to create firewall savepoint")
	}
	return revision, nil
}

// Apply activates pending filter changes under revision
func (c *OPNsenseClient) Apply(ctx context.Context, revision string) error {
	resp, err := c.post(ctx, pathApply+url.PathEscape(revision), nil)
	if err != nil {
		return fmt.Errorf("failed to apply firewall changes: %w", err)
	}
	if status := resp.String("status"); strings.TrimSpace(strings.ToLower(status)) != "ok" {
		return fmt.Errorf("failed to apply firewall changes: %s", messageOr(resp, "status "+status))
	}
	return nil
}

// FirewallLog returns up to limit recent filter log entries
func (c *OPNsenseClient) FirewallLog(ctx context.Context, limit int) ([]domain.Row, error) {
	path := pathFirewallLg
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	return c.getRows(ctx, path)
}

func messageOr(resp domain.Row, fallback string) string {
	if msg := resp.String("message"); msg != "" {
		return msg
	}
	return fallback
}

// getRows fetches path and extracts a row list. A JSON null yields a nil
// slice; a list or an object with "rows" yields a non-nil slice.
func (c *OPNsenseClient) getRows(ctx context.Context, path string) ([]domain.Row, error) {
	v, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	return rowsFrom(v), nil
}

func rowsFrom(v any) []domain.Row {
	var list []any
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		list = t
	case map[string]any:
		switch rows := t["rows"].(type) {
		case []any:
			list = rows
		case map[string]any:
			// keyed by uuid
			for id, r := range rows {
				if m, ok := r.(map[string]any); ok {
					if _, has := m["uuid"]; !has {
						m["uuid"] = id
					}
					list = append(list, m)
				}
			}
		}
	}

	out := make([]domain.Row, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, domain.Row(m))
		}
	}
	return out
}

// get performs a coalesced GET. Every caller decodes its own copy of the
// shared body.
func (c *OPNsenseClient) get(ctx context.Context, path string) (any, error) {
	ch := c.group.DoChan(path, func() (any, error) {
		return c.do(context.WithoutCancel(ctx), http.MethodGet, path, nil)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return decode(res.Val.([]byte))
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *OPNsenseClient) post(ctx context.Context, path string, body any) (domain.Row, error) {
	raw, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	v, err := decode(raw)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected response format from %s", path)
	}
	return domain.Row(m), nil
}

func (c *OPNsenseClient) do(ctx context.Context, method, path string, body any) (raw []byte, err error) {
	start := time.Now()
	endpoint := strings.SplitN(path, "?", 2)[0]
	defer func() {
		if c.metrics != nil {
			c.metrics.ObserveUpstream(endpoint, time.Since(start), err)
		}
	}()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	} else if method == http.MethodPost {
		reader = strings.NewReader("{}")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.key, c.secret)
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("request", zap.String("method", method), zap.String("path", path))
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", domain.ErrUpstreamUnavailable, method, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err = io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrUpstreamUnavailable, endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s %s: HTTP %d", domain.ErrUpstreamUnavailable, method, endpoint, resp.StatusCode)
	}

	// the API reports some failures as 200 with result=failed
	var probe struct {
		Result  string `json:"result"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &probe) == nil && probe.Result == "failed" {
		msg := probe.Message
		if msg == "" {
			msg = "Unknown API error"
		}
		return nil, fmt.Errorf("API error: %s", msg)
	}
	return raw, nil
}

func decode(raw []byte) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}
	return v, nil
}
