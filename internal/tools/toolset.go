package tools

import (
	"go.uber.org/zap"

	"opnsense-mcp/internal/domain"
	"opnsense-mcp/internal/service"
)

// Toolset holds the collaborators the tools read from
type Toolset struct {
	hosts  *service.HostService
	logger *zap.Logger
}

// NewToolset creates the tool implementations over hosts. A HostService with
// a nil upstream makes every read tool serve its fixture.
func NewToolset(hosts *service.HostService, logger *zap.Logger) *Toolset {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Toolset{hosts: hosts, logger: logger.Named("tools")}
}

// Register adds every tool to r in catalog order
func (t *Toolset) Register(r *Registry) {
	r.Register(getLogsTool(), t.GetLogs)
	r.Register(arpTool(), t.ARP)
	r.Register(dhcpTool(), t.DHCP)
	r.Register(lldpTool(), t.LLDP)
	r.Register(systemTool(), t.System)
	r.Register(fwRulesTool(), t.FwRules)
	r.Register(mkfwRuleTool(), t.MkfwRule)
	r.Register(rmfwRuleTool(), t.RmfwRule)
	r.Register(interfaceListTool(), t.InterfaceList)
}

func (t *Toolset) upstream() domain.Upstream {
	if t.hosts == nil {
		return nil
	}
	return t.hosts.Upstream()
}

func errorPayload(msg string) map[string]any {
	return map[string]any{"error": msg, "status": "error"}
}
