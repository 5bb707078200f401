package sqlite

import (
	"database/sql"
	"time"
)

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// parseTimePtr parses an RFC3339 metadata value, returning nil when empty
// or malformed
func parseTimePtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

// vendorColumns is the SELECT column list for vendor queries
const vendorColumns = `prefix, organization, registry`

// vendorRow holds the columns of one vendor row
type vendorRow struct {
	Prefix       string
	Organization string
	Registry     sql.NullString
}

// scanArgs returns pointers in vendorColumns order
func (r *vendorRow) scanArgs() []any {
	return []any{&r.Prefix, &r.Organization, &r.Registry}
}
