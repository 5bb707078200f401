package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"opnsense-mcp/internal/domain"
	"opnsense-mcp/internal/repository"

	_ "modernc.org/sqlite"
)

// Repository implements repository.VendorRepository using SQLite
type Repository struct {
	db *sql.DB
}

var _ repository.VendorRepository = (*Repository)(nil)

// New opens (creating if needed) the vendor database at dbPath
func New(dbPath string) (*Repository, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// an in-memory database exists per connection
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS oui_vendors (
		prefix TEXT PRIMARY KEY,
		organization TEXT NOT NULL,
		registry TEXT
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := r.db.Exec(schema)
	return err
}

// ReplaceVendors clears the registry and inserts vendors. Duplicate
// prefixes keep the last organization seen.
func (r *Repository) ReplaceVendors(ctx context.Context, vendors []domain.Vendor, source string) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM oui_vendors`); err != nil {
		return 0, fmt.Errorf("failed to clear vendors: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO oui_vendors (prefix, organization, registry)
		VALUES (?, ?, ?)
		ON CONFLICT(prefix) DO UPDATE SET
			organization = excluded.organization,
			registry = excluded.registry
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	seen := make(map[string]struct{}, len(vendors))
	for _, v := range vendors {
		prefix := strings.ToUpper(v.Prefix)
		if prefix == "" || v.Organization == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, prefix, v.Organization, stringToNull(v.Registry)); err != nil {
			return 0, fmt.Errorf("failed to insert vendor %s: %w", prefix, err)
		}
		seen[prefix] = struct{}{}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	meta := map[string]string{
		repository.MetaSource:     source,
		repository.MetaImportedAt: now,
		repository.MetaCount:      strconv.Itoa(len(seen)),
	}
	for key, value := range meta {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
		`, key, value); err != nil {
			return 0, fmt.Errorf("failed to record %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit vendors: %w", err)
	}
	return len(seen), nil
}

// Vendors loads the whole registry
func (r *Repository) Vendors(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+vendorColumns+` FROM oui_vendors`)
	if err != nil {
		return nil, fmt.Errorf("failed to query vendors: %w", err)
	}
	defer rows.Close()

	vendors := make(map[string]string)
	for rows.Next() {
		var row vendorRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan vendor: %w", err)
		}
		vendors[row.Prefix] = row.Organization
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vendors: %w", err)
	}
	return vendors, nil
}

// LookupVendor returns the organization registered for prefix
func (r *Repository) LookupVendor(ctx context.Context, prefix string) (string, error) {
	var org string
	err := r.db.QueryRowContext(ctx,
		`SELECT organization FROM oui_vendors WHERE prefix = ?`,
		strings.ToUpper(prefix),
	).Scan(&org)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query vendor: %w", err)
	}
	return org, nil
}

// ImportInfo reads the metadata recorded by the last ReplaceVendors
func (r *Repository) ImportInfo(ctx context.Context) (*repository.ImportInfo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, value FROM metadata WHERE key IN (?, ?, ?)`,
		repository.MetaSource, repository.MetaImportedAt, repository.MetaCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	info := &repository.ImportInfo{}
	for rows.Next() {
		var key string
		var value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		switch key {
		case repository.MetaSource:
			info.Source = nullToString(value)
		case repository.MetaImportedAt:
			info.ImportedAt = parseTimePtr(value)
		case repository.MetaCount:
			info.Count, _ = strconv.Atoi(nullToString(value))
		}
	}
	return info, rows.Err()
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
