package tools

import "github.com/mark3labs/mcp-go/mcp"

// Tool names
const (
	NameARP           = "arp"
	NameDHCP          = "dhcp"
	NameSystem        = "system"
	NameLLDP          = "lldp"
	NameFwRules       = "fw_rules"
	NameMkfwRule      = "mkfw_rule"
	NameRmfwRule      = "rmfw_rule"
	NameInterfaceList = "interface_list"
	NameGetLogs       = "get_logs"
)

func getLogsTool() mcp.Tool {
	return mcp.NewTool(NameGetLogs,
		mcp.WithDescription("Get firewall logs with optional filtering"),
		mcp.WithNumber("limit", mcp.Description("Maximum number of log lines to read (default: 500)")),
		mcp.WithString("action", mcp.Description("Filter by action (pass, block, reject)")),
		mcp.WithString("src_ip", mcp.Description("Filter by source IP")),
		mcp.WithString("dst_ip", mcp.Description("Filter by destination IP")),
		mcp.WithString("protocol", mcp.Description("Filter by protocol (tcp, udp, icmp)")),
	)
}

func arpTool() mcp.Tool {
	return mcp.NewTool(NameARP,
		mcp.WithDescription("Show ARP/NDP table"),
		mcp.WithString("mac", mcp.Description("Filter by MAC address")),
		mcp.WithString("ip", mcp.Description("Filter by IPv4 address")),
		mcp.WithString("ipv6", mcp.Description("Filter by IPv6 address")),
		mcp.WithString("interface", mcp.Description("Filter by interface name")),
		mcp.WithString("search", mcp.Description("Targeted search by IP/MAC/hostname")),
	)
}

func dhcpTool() mcp.Tool {
	return mcp.NewTool(NameDHCP,
		mcp.WithDescription("Show DHCP lease information"),
		mcp.WithString("search", mcp.Description("Search by hostname/IP/MAC")),
	)
}

func lldpTool() mcp.Tool {
	return mcp.NewTool(NameLLDP,
		mcp.WithDescription("Show LLDP neighbor table"),
	)
}

func systemTool() mcp.Tool {
	return mcp.NewTool(NameSystem,
		mcp.WithDescription("Show system status information"),
	)
}

func fwRulesTool() mcp.Tool {
	return mcp.NewTool(NameFwRules,
		mcp.WithDescription("Get the current firewall rule set for context and reasoning"),
		mcp.WithString("interface", mcp.Description("Filter by interface name (supports partial matching and groups)")),
		mcp.WithString("action", mcp.Description("Filter by action (pass, block, reject, etc.)")),
		mcp.WithBoolean("enabled", mcp.Description("Filter by enabled status")),
		mcp.WithString("protocol", mcp.Description("Filter by protocol (tcp, udp, icmp, etc.)")),
	)
}

func mkfwRuleTool() mcp.Tool {
	return mcp.NewTool(NameMkfwRule,
		mcp.WithDescription("Create a new firewall rule and optionally apply changes"),
		mcp.WithString("description", mcp.Description("Description of the rule (required)"), mcp.Required()),
		mcp.WithString("interface", mcp.Description("Interface name (default: 'lan')")),
		mcp.WithString("action", mcp.Description("pass, block, or reject (default: 'pass')")),
		mcp.WithString("protocol", mcp.Description("any, tcp, udp, icmp, etc. (default: 'any')")),
		mcp.WithString("source_net", mcp.Description("Source network/IP (default: 'any')")),
		mcp.WithString("source_port", mcp.Description("Source port (default: 'any')")),
		mcp.WithString("destination_net", mcp.Description("Destination network/IP (default: 'any')")),
		mcp.WithString("destination_port", mcp.Description("Destination port (default: 'any')")),
		mcp.WithString("direction", mcp.Description("in or out (default: 'in')")),
		mcp.WithString("ipprotocol", mcp.Description("inet or inet6 (default: 'inet')")),
		mcp.WithBoolean("enabled", mcp.Description("true or false (default: true)")),
		mcp.WithString("gateway", mcp.Description("Gateway to use (default: '')")),
		mcp.WithBoolean("apply", mcp.Description("Whether to apply changes immediately (default: true)")),
	)
}

func rmfwRuleTool() mcp.Tool {
	return mcp.NewTool(NameRmfwRule,
		mcp.WithDescription("Delete a firewall rule and optionally apply changes"),
		mcp.WithString("rule_uuid", mcp.Description("UUID of the rule to delete (required)"), mcp.Required()),
		mcp.WithBoolean("apply", mcp.Description("Whether to apply changes immediately (default: true)")),
	)
}

func interfaceListTool() mcp.Tool {
	return mcp.NewTool(NameInterfaceList,
		mcp.WithDescription("Get available interface names for firewall rules"),
	)
}
