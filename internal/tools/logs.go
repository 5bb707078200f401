package tools

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"opnsense-mcp/internal/domain"
)

// DefaultLogLimit is the number of log lines read when limit is unset
const DefaultLogLimit = 500

// topN bounds the summary rankings
const topN = 10

// LogEntry is one parsed firewall log line
type LogEntry struct {
	Timestamp   string `json:"timestamp"`
	Interface   string `json:"interface"`
	Action      string `json:"action"`
	Protocol    string `json:"protocol"`
	SrcIP       string `json:"src_ip"`
	SrcPort     *int64 `json:"src_port"`
	DstIP       string `json:"dst_ip"`
	DstPort     *int64 `json:"dst_port"`
	RuleID      string `json:"rule_id,omitempty"`
	Description string `json:"description,omitempty"`

	at time.Time
}

// LogSummary aggregates a set of entries
type LogSummary struct {
	TotalEntries      int            `json:"total_entries"`
	ActionCounts      map[string]int `json:"action_counts"`
	TopSourceIPs      [][2]any       `json:"top_source_ips"`
	TopDestinationIPs [][2]any       `json:"top_destination_ips"`
	TopBlockedPorts   [][2]any       `json:"top_blocked_ports"`
	TimeRange         [2]string      `json:"time_range"`
}

// LogFilter selects log entries by equality
type LogFilter struct {
	Action   string
	SrcIP    string
	DstIP    string
	Protocol string
}

// Match reports whether e passes every set criterion
func (f LogFilter) Match(e LogEntry) bool {
	switch {
	case f.Action != "" && e.Action != strings.ToLower(f.Action):
		return false
	case f.SrcIP != "" && e.SrcIP != f.SrcIP:
		return false
	case f.DstIP != "" && e.DstIP != f.DstIP:
		return false
	case f.Protocol != "" && e.Protocol != strings.ToLower(f.Protocol):
		return false
	}
	return true
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func optionalPort(row domain.Row, keys ...string) *int64 {
	for _, k := range keys {
		if row.String(k) == "" {
			continue
		}
		if n := row.Int(k); n > 0 {
			return &n
		}
	}
	return nil
}

// ParseLogEntry reads a log row in either the canonical shape or the
// appliance's native field names. Rows without a parsable timestamp or
// addresses are rejected.
func ParseLogEntry(row domain.Row) (LogEntry, bool) {
	e := LogEntry{
		Timestamp:   row.String("timestamp", "__timestamp__"),
		Interface:   row.String("interface"),
		Action:      strings.ToLower(row.String("action")),
		Protocol:    strings.ToLower(row.String("protocol", "protoname")),
		SrcIP:       row.String("src_ip", "src"),
		SrcPort:     optionalPort(row, "src_port", "srcport"),
		DstIP:       row.String("dst_ip", "dst"),
		DstPort:     optionalPort(row, "dst_port", "dstport"),
		RuleID:      row.String("rule_id", "rid"),
		Description: row.String("description", "label"),
	}
	at, ok := parseTimestamp(e.Timestamp)
	if !ok || e.Action == "" || e.SrcIP == "" || e.DstIP == "" {
		return LogEntry{}, false
	}
	e.at = at
	return e, true
}

type counter struct {
	order  []any
	counts map[any]int
}

func newCounter() *counter {
	return &counter{counts: make(map[any]int)}
}

func (c *counter) add(k any) {
	if _, ok := c.counts[k]; !ok {
		c.order = append(c.order, k)
	}
	c.counts[k]++
}

// top returns up to n keys by descending count, ties in first-seen order
func (c *counter) top(n int) [][2]any {
	keys := slices.Clone(c.order)
	slices.SortStableFunc(keys, func(a, b any) int {
		return c.counts[b] - c.counts[a]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	out := make([][2]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, [2]any{k, c.counts[k]})
	}
	return out
}

// Summarize aggregates entries. now stamps the time range of an empty set.
func Summarize(entries []LogEntry, now time.Time) LogSummary {
	summary := LogSummary{
		TotalEntries:      len(entries),
		ActionCounts:      map[string]int{},
		TopSourceIPs:      [][2]any{},
		TopDestinationIPs: [][2]any{},
		TopBlockedPorts:   [][2]any{},
	}
	if len(entries) == 0 {
		ts := now.Format("2006-01-02T15:04:05")
		summary.TimeRange = [2]string{ts, ts}
		return summary
	}

	src, dst, blocked := newCounter(), newCounter(), newCounter()
	first, last := entries[0], entries[0]
	for _, e := range entries {
		summary.ActionCounts[e.Action]++
		src.add(e.SrcIP)
		dst.add(e.DstIP)
		if e.Action == "block" && e.DstPort != nil {
			blocked.add(*e.DstPort)
		}
		if e.at.Before(first.at) {
			first = e
		}
		if e.at.After(last.at) {
			last = e
		}
	}
	summary.TopSourceIPs = src.top(topN)
	summary.TopDestinationIPs = dst.top(topN)
	summary.TopBlockedPorts = blocked.top(topN)
	summary.TimeRange = [2]string{first.Timestamp, last.Timestamp}
	return summary
}

// GetLogs reads recent firewall log lines, filters them and summarizes
func (t *Toolset) GetLogs(ctx context.Context, args domain.Row) (any, error) {
	limit := int(args.Int("limit"))
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	filter := LogFilter{
		Action:   args.String("action"),
		SrcIP:    args.String("src_ip"),
		DstIP:    args.String("dst_ip"),
		Protocol: args.String("protocol"),
	}

	var rows []domain.Row
	if src, ok := t.upstream().(domain.LogSource); ok {
		var err error
		rows, err = src.FirewallLog(ctx, limit)
		if err != nil {
			t.logger.Error("failed to get firewall logs", zap.Error(err))
			return map[string]any{
				"status":      "error",
				"message":     fmt.Sprintf("Failed to get firewall logs: %v", err),
				"log_entries": []LogEntry{},
				"summary":     nil,
				"total_logs":  0,
			}, nil
		}
	} else {
		t.logger.Warn("no log source, returning fixture", zap.String("tool", NameGetLogs))
		for _, m := range logsFixture() {
			rows = append(rows, domain.Row(m))
		}
	}

	entries := make([]LogEntry, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		e, ok := ParseLogEntry(row)
		if !ok {
			skipped++
			continue
		}
		if filter.Match(e) {
			entries = append(entries, e)
		}
	}
	if skipped > 0 {
		t.logger.Debug("skipped unparsable log rows", zap.Int("count", skipped))
	}

	return map[string]any{
		"status":      "success",
		"log_entries": entries,
		"summary":     Summarize(entries, time.Now()),
		"total_logs":  len(entries),
	}, nil
}
