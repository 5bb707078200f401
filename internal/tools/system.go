package tools

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"opnsense-mcp/internal/domain"
)

// System returns the appliance resource summary
func (t *Toolset) System(ctx context.Context, _ domain.Row) (any, error) {
	up := t.upstream()
	if up == nil {
		t.logger.Warn("no appliance configured, returning sample status", zap.String("tool", NameSystem))
		return systemFixture(), nil
	}

	status, err := up.SystemStatus(ctx)
	if err != nil {
		t.logger.Error("failed to get system status", zap.Error(err))
		return errorPayload(fmt.Sprintf("Failed to get system status: %v", err)), nil
	}
	return status, nil
}

// LLDP returns the LLDP neighbor table. Appliances without the lldpd plugin
// and upstream failures are served the fixture.
func (t *Toolset) LLDP(ctx context.Context, _ domain.Row) (any, error) {
	src, ok := t.upstream().(domain.LLDPSource)
	if !ok {
		t.logger.Warn("no LLDP source, returning fixture", zap.String("tool", NameLLDP))
		return lldpFixture(), nil
	}

	rows, err := src.LLDPNeighbors(ctx)
	if err != nil {
		t.logger.Error("failed to get LLDP table", zap.Error(err))
		return lldpFixture(), nil
	}
	if rows == nil {
		rows = []domain.Row{}
	}
	return map[string]any{"lldp": rows, "status": "success"}, nil
}
