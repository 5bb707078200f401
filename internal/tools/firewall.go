package tools

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"opnsense-mcp/internal/domain"
)

// Endpoint is a rule source or destination
type Endpoint struct {
	Net  string `json:"net"`
	Port string `json:"port"`
}

// FirewallRule is a filter rule as reported to clients
type FirewallRule struct {
	ID          string   `json:"id"`
	Sequence    int64    `json:"sequence"`
	Description string   `json:"description"`
	Interface   string   `json:"interface"`
	Protocol    string   `json:"protocol"`
	Source      Endpoint `json:"source"`
	Destination Endpoint `json:"destination"`
	Action      string   `json:"action"`
	Enabled     bool     `json:"enabled"`
	Gateway     string   `json:"gateway"`
	Direction   string   `json:"direction"`
	IPProtocol  string   `json:"ipprotocol"`
}

// RuleFromRow converts a search_rule row, filling appliance defaults
func RuleFromRow(row domain.Row) FirewallRule {
	or := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}
	enabled := true
	if row.Has("enabled") {
		enabled = row.Bool("enabled")
	}
	return FirewallRule{
		ID:          row.String("uuid", "id"),
		Sequence:    row.Int("sequence"),
		Description: row.String("description", "descr"),
		Interface:   row.String("interface"),
		Protocol:    or(row.String("protocol"), "any"),
		Source:      Endpoint{Net: or(row.String("source_net"), "any"), Port: or(row.String("source_port"), "any")},
		Destination: Endpoint{Net: or(row.String("destination_net"), "any"), Port: or(row.String("destination_port"), "any")},
		Action:      or(row.String("action"), "pass"),
		Enabled:     enabled,
		Gateway:     row.String("gateway"),
		Direction:   or(row.String("direction"), "in"),
		IPProtocol:  or(row.String("ipprotocol"), "inet"),
	}
}

// RuleFilter selects rules. Interface matches by substring so groups and
// comma-separated interface lists match any member.
type RuleFilter struct {
	Interface string
	Action    string
	Protocol  string
	Enabled   *bool
}

func ruleFilterFrom(args domain.Row) RuleFilter {
	f := RuleFilter{
		Interface: args.String("interface"),
		Action:    args.String("action"),
		Protocol:  args.String("protocol"),
	}
	if args.Has("enabled") {
		enabled := args.Bool("enabled")
		f.Enabled = &enabled
	}
	return f
}

// Match reports whether rule passes every set criterion
func (f RuleFilter) Match(rule FirewallRule) bool {
	if f.Interface != "" && !strings.Contains(strings.ToLower(rule.Interface), strings.ToLower(f.Interface)) {
		return false
	}
	if f.Action != "" && !strings.EqualFold(rule.Action, f.Action) {
		return false
	}
	if f.Protocol != "" && !strings.EqualFold(rule.Protocol, f.Protocol) {
		return false
	}
	if f.Enabled != nil && rule.Enabled != *f.Enabled {
		return false
	}
	return true
}

// FwRules lists the filter rules ordered by sequence
func (t *Toolset) FwRules(ctx context.Context, args domain.Row) (any, error) {
	filter := ruleFilterFrom(args)

	var rules []FirewallRule
	if fw, ok := t.upstream().(domain.FirewallAPI); ok {
		rows, err := fw.SearchRules(ctx)
		if err != nil {
			t.logger.Error("failed to get firewall rules", zap.Error(err))
			return errorPayload(fmt.Sprintf("Failed to get firewall rules: %v", err)), nil
		}
		for _, row := range rows {
			rules = append(rules, RuleFromRow(row))
		}
		slices.SortStableFunc(rules, func(a, b FirewallRule) int {
			return cmp.Compare(a.Sequence, b.Sequence)
		})
	} else {
		t.logger.Warn("no firewall API, returning fixture", zap.String("tool", NameFwRules))
		rules = rulesFixture()
	}

	out := make([]FirewallRule, 0, len(rules))
	for _, r := range rules {
		if filter.Match(r) {
			out = append(out, r)
		}
	}
	return map[string]any{
		"rules":  out,
		"total":  len(out),
		"status": "success",
	}, nil
}

// ErrDescriptionRequired is returned by ParseRuleSpec for a rule without a
// description
var ErrDescriptionRequired = fmt.Errorf("%w: description is required", domain.ErrInvalidParams)

// RuleSpec is a validated mkfw_rule request
type RuleSpec struct {
	Description     string
	Interface       string
	Action          string
	Protocol        string
	SourceNet       string
	SourcePort      string
	DestinationNet  string
	DestinationPort string
	Direction       string
	IPProtocol      string
	Enabled         bool
	Gateway         string
}

// ParseRuleSpec applies defaults and validates the enumerated fields
func ParseRuleSpec(args domain.Row) (RuleSpec, error) {
	or := func(key, def string) string {
		if v := args.String(key); v != "" {
			return v
		}
		return def
	}
	spec := RuleSpec{
		Description:     args.String("description"),
		Interface:       or("interface", "lan"),
		Action:          strings.ToLower(or("action", "pass")),
		Protocol:        or("protocol", "any"),
		SourceNet:       or("source_net", "any"),
		SourcePort:      or("source_port", "any"),
		DestinationNet:  or("destination_net", "any"),
		DestinationPort: or("destination_port", "any"),
		Direction:       strings.ToLower(or("direction", "in")),
		IPProtocol:      strings.ToLower(or("ipprotocol", "inet")),
		Enabled:         !args.Has("enabled") || args.Bool("enabled"),
		Gateway:         args.String("gateway"),
	}

	if spec.Description == "" {
		return spec, ErrDescriptionRequired
	}
	for _, check := range []struct {
		field, value string
		allowed      []string
	}{
		{"action", spec.Action, []string{"pass", "block", "reject"}},
		{"direction", spec.Direction, []string{"in", "out"}},
		{"ipprotocol", spec.IPProtocol, []string{"inet", "inet6"}},
	} {
		if !slices.Contains(check.allowed, check.value) {
			return spec, fmt.Errorf("%w: %s must be one of: %s",
				domain.ErrInvalidParams, check.field, strings.Join(check.allowed, ", "))
		}
	}
	return spec, nil
}

// APIRule builds the add_rule payload. Ports and gateway are only sent when
// they differ from the defaults.
func (s RuleSpec) APIRule() map[string]any {
	enabled := "0"
	if s.Enabled {
		enabled = "1"
	}
	rule := map[string]any{
		"description":     s.Description,
		"interface":       s.Interface,
		"action":          s.Action,
		"protocol":        strings.ToUpper(s.Protocol),
		"source_net":      s.SourceNet,
		"destination_net": s.DestinationNet,
		"enabled":         enabled,
		"direction":       s.Direction,
		"ipprotocol":      s.IPProtocol,
	}
	if s.SourcePort != "any" {
		rule["source_port"] = s.SourcePort
	}
	if s.DestinationPort != "any" {
		rule["destination_port"] = s.DestinationPort
	}
	if s.Gateway != "" {
		rule["gateway"] = s.Gateway
	}
	return rule
}

// applyRequested reads the apply flag, which defaults to true
func applyRequested(args domain.Row) bool {
	return !args.Has("apply") || args.Bool("apply")
}

// applyChanges creates a savepoint and applies pending filter changes
func applyChanges(ctx context.Context, fw domain.FirewallAPI) (string, error) {
	revision, err := fw.Savepoint(ctx)
	if err != nil {
		return "", err
	}
	if err := fw.Apply(ctx, revision); err != nil {
		return revision, err
	}
	return revision, nil
}

// MkfwRule creates a filter rule and applies it unless apply is false
func (t *Toolset) MkfwRule(ctx context.Context, args domain.Row) (any, error) {
	spec, err := ParseRuleSpec(args)
	if errors.Is(err, ErrDescriptionRequired) {
		return errorPayload("Description is required for firewall rules"), nil
	}
	if err != nil {
		return errorPayload(fmt.Sprintf("Invalid rule parameters: %v", err)), nil
	}

	fw, ok := t.upstream().(domain.FirewallAPI)
	if !ok {
		return errorPayload("Failed to create firewall rule: firewall API unavailable"), nil
	}

	t.logger.Info("creating firewall rule", zap.String("description", spec.Description))
	uuid, err := fw.AddRule(ctx, spec.APIRule())
	if err != nil {
		t.logger.Error("failed to create firewall rule", zap.Error(err))
		return errorPayload(fmt.Sprintf("Failed to create firewall rule: %v", err)), nil
	}

	result := map[string]any{
		"rule_uuid":   uuid,
		"description": spec.Description,
		"interface":   spec.Interface,
		"action":      spec.Action,
	}
	if !applyRequested(args) {
		result["applied"] = false
		result["status"] = "success"
		result["note"] = "Rule created but not applied. Apply firewall changes to activate."
		return result, nil
	}

	revision, err := applyChanges(ctx, fw)
	if err != nil {
		t.logger.Error("rule created but apply failed", zap.String("uuid", uuid), zap.Error(err))
		return map[string]any{
			"error":     fmt.Sprintf("Rule created but failed to apply changes: %v", err),
			"rule_uuid": uuid,
			"status":    "partial_success",
		}, nil
	}
	result["revision"] = revision
	result["applied"] = true
	result["status"] = "success"
	return result, nil
}

// RmfwRule deletes a filter rule and applies it unless apply is false
func (t *Toolset) RmfwRule(ctx context.Context, args domain.Row) (any, error) {
	uuid := args.String("rule_uuid")
	if uuid == "" {
		return errorPayload("rule_uuid is required to delete a firewall rule"), nil
	}

	fw, ok := t.upstream().(domain.FirewallAPI)
	if !ok {
		return errorPayload("Failed to delete firewall rule: firewall API unavailable"), nil
	}

	t.logger.Info("deleting firewall rule", zap.String("uuid", uuid))
	if err := fw.DeleteRule(ctx, uuid); err != nil {
		t.logger.Error("failed to delete firewall rule", zap.Error(err))
		return errorPayload(fmt.Sprintf("Failed to delete firewall rule: %v", err)), nil
	}

	if !applyRequested(args) {
		return map[string]any{
			"rule_uuid": uuid,
			"deleted":   true,
			"applied":   false,
			"status":    "success",
			"note":      "Rule deleted but not applied. Apply firewall changes to activate.",
		}, nil
	}

	revision, err := applyChanges(ctx, fw)
	if err != nil {
		t.logger.Error("rule deleted but apply failed", zap.String("uuid", uuid), zap.Error(err))
		return map[string]any{
			"error":     fmt.Sprintf("Rule deleted but failed to apply changes: %v", err),
			"rule_uuid": uuid,
			"status":    "partial_success",
		}, nil
	}
	return map[string]any{
		"rule_uuid": uuid,
		"revision":  revision,
		"deleted":   true,
		"applied":   true,
		"status":    "success",
	}, nil
}
