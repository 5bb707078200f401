package tools

// Payloads served when no appliance is configured. Callers must not
// mutate them; every accessor builds a fresh value.

func arpFixture() map[string]any {
	return map[string]any{
		"arp": []map[string]any{{
			"ip":           "192.168.1.1",
			"mac":          "aa:bb:cc:dd:ee:ff",
			"intf":         "em0",
			"manufacturer": "TestCorp",
			"dhcp_status":  "Online",
		}},
		"ndp": []map[string]any{{
			"ip":           "fe80::1",
			"mac":          "aa:bb:cc:dd:ee:ff",
			"intf":         "em0",
			"manufacturer": "TestCorp",
			"dhcp_status":  "Online",
		}},
		"status": "success",
	}
}

func dhcpFixture() map[string]any {
	return map[string]any{
		"dhcpv4": []map[string]any{{
			"ip":            "192.168.1.100",
			"mac":           "00:11:22:33:44:55",
			"hostname":      "dummy-client",
			"start":         "2025-01-01T00:00:00",
			"end":           "2025-01-01T12:00:00",
			"online":        true,
			"actual_status": "Online",
			"lease_type":    "dynamic",
			"description":   "Dummy lease entry",
		}},
		"dhcpv6": []map[string]any{{
			"ip":            "2001:db8::100",
			"mac":           "00:11:22:33:44:66",
			"hostname":      "dummy6-client",
			"start":         "2025-01-01T00:00:00",
			"end":           "2025-01-01T12:00:00",
			"online":        true,
			"actual_status": "Online",
			"lease_type":    "dynamic",
			"description":   "Dummy DHCPv6 lease entry",
		}},
		"status": "dummy",
	}
}

func lldpFixture() map[string]any {
	return map[string]any{
		"lldp": []map[string]any{{
			"intf":               "em0",
			"chassis_id":         "00:11:22:33:44:55",
			"port_id":            "1",
			"system_name":        "Switch-1",
			"system_description": "48-port Gigabit Switch",
			"port_description":   "Uplink Port",
			"capabilities":       "Bridge, Router",
			"management_address": "192.168.1.2",
		}},
		"status": "success",
	}
}

func systemFixture() map[string]any {
	return map[string]any{
		"cpu_usage":        12.5,
		"memory_usage":     45.2,
		"filesystem_usage": map[string]any{"/": 23.4, "/var": 12.1},
		"uptime":           "3 days, 04:12:33",
		"versions": map[string]any{
			"opnsense": "24.7",
			"kernel":   "FreeBSD 14.1-RELEASE-p3",
		},
		"temperature": map[string]any{},
		"interfaces":  map[string]any{},
		"services":    []any{},
	}
}

func rulesFixture() []FirewallRule {
	return []FirewallRule{
		{
			ID:          "11111111-1111-4111-8111-111111111111",
			Sequence:    1,
			Description: "Default allow LAN to any rule",
			Interface:   "lan",
			Protocol:    "any",
			Source:      Endpoint{Net: "lan", Port: "any"},
			Destination: Endpoint{Net: "any", Port: "any"},
			Action:      "pass",
			Enabled:     true,
			Direction:   "in",
			IPProtocol:  "inet",
		},
		{
			ID:          "22222222-2222-4222-8222-222222222222",
			Sequence:    2,
			Description: "Block inbound SSH",
			Interface:   "wan",
			Protocol:    "TCP",
			Source:      Endpoint{Net: "any", Port: "any"},
			Destination: Endpoint{Net: "wanip", Port: "22"},
			Action:      "block",
			Enabled:     true,
			Direction:   "in",
			IPProtocol:  "inet",
		},
	}
}

func logsFixture() []map[string]any {
	return []map[string]any{
		{
			"timestamp": "2025-01-01T10:00:00", "interface": "wan", "action": "block",
			"protocol": "tcp", "src_ip": "203.0.113.7", "src_port": 51515,
			"dst_ip": "198.51.100.1", "dst_port": 22, "description": "Block inbound SSH",
		},
		{
			"timestamp": "2025-01-01T10:00:05", "interface": "lan", "action": "pass",
			"protocol": "udp", "src_ip": "192.168.1.100", "src_port": 40000,
			"dst_ip": "192.168.1.1", "dst_port": 53, "description": "Default allow LAN to any rule",
		},
	}
}
