package repository

import (
	"context"
	"time"

	"opnsense-mcp/internal/domain"
)

// Metadata keys recorded on every vendor import
const (
	MetaSource     = "oui_source"
	MetaImportedAt = "oui_imported_at"
	MetaCount      = "oui_count"
)

// VendorRepository persists the OUI vendor registry
type VendorRepository interface {
	// ReplaceVendors swaps the stored registry for vendors in one transaction
	ReplaceVendors(ctx context.Context, vendors []domain.Vendor, source string) (int, error)
	// Vendors returns every stored prefix -> organization entry
	Vendors(ctx context.Context) (map[string]string, error)
	// LookupVendor returns the organization for a normalized prefix, or ""
	LookupVendor(ctx context.Context, prefix string) (string, error)
	// ImportInfo reports when and from where the registry was last imported
	ImportInfo(ctx context.Context) (*ImportInfo, error)

	Close() error
}

// ImportInfo describes the last vendor import
type ImportInfo struct {
	Source     string     `json:"source,omitempty"`
	ImportedAt *time.Time `json:"imported_at,omitempty"`
	Count      int        `json:"count"`
}
