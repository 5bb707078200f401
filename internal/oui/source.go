package oui

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"opnsense-mcp/internal/repository"
)

// DefaultSourceURL is the IEEE MA-L registry export
const DefaultSourceURL = "https://standards-oui.ieee.org/oui/oui.csv"

// Loader fills a Table from a CSV file, falling back to the vendor store
type Loader struct {
	table   *Table
	repo    repository.VendorRepository
	csvPath string
	logger  *zap.Logger
}

// NewLoader creates a loader. Either repo or csvPath may be empty; with
// neither the table stays empty and lookups fall back to the private-MAC
// check only.
func NewLoader(table *Table, repo repository.VendorRepository, csvPath string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		table:   table,
		repo:    repo,
		csvPath: csvPath,
		logger:  logger.Named("oui"),
	}
}

// Table returns the table the loader writes to
func (l *Loader) Table() *Table {
	return l.table
}

// Load replaces the table contents. The CSV file wins when it exists.
func (l *Loader) Load(ctx context.Context) error {
	if l.csvPath != "" {
		entries, err := l.loadCSV()
		if err == nil {
			l.table.Replace(entries)
			l.logger.Info("loaded OUI table from file",
				zap.String("path", l.csvPath), zap.Int("entries", l.table.Len()))
			return nil
		}
		if !os.IsNotExist(err) || l.repo == nil {
			return err
		}
	}

	if l.repo == nil {
		return nil
	}
	entries, err := l.repo.Vendors(ctx)
	if err != nil {
		return fmt.Errorf("load vendors: %w", err)
	}
	l.table.Replace(entries)
	l.logger.Info("loaded OUI table from database", zap.Int("entries", l.table.Len()))
	return nil
}

func (l *Loader) loadCSV() (map[string]string, error) {
	f, err := os.Open(l.csvPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	vendors, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", l.csvPath, err)
	}
	return EntriesFromVendors(vendors), nil
}

// Import parses an IEEE CSV stream into the vendor store
func Import(ctx context.Context, repo repository.VendorRepository, r io.Reader, source string) (int, error) {
	vendors, err := ParseCSV(r)
	if err != nil {
		return 0, err
	}
	if len(vendors) == 0 {
		return 0, fmt.Errorf("no vendor rows in %s", source)
	}
	return repo.ReplaceVendors(ctx, vendors, source)
}

// Download fetches the registry export. The caller closes the body.
func Download(ctx context.Context, client *http.Client, url string) (io.ReadCloser, error) {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download %s: status %d", url, resp.StatusCode)
	}
	return resp.Body, nil
}
