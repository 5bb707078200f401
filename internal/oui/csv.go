package oui

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"opnsense-mcp/internal/domain"
)

// IEEE oui.csv column names
const (
	columnRegistry     = "Registry"
	columnAssignment   = "Assignment"
	columnOrganization = "Organization Name"
)

// ParseCSV reads an IEEE registry export. Rows without an assignment or
// organization are skipped.
func ParseCSV(r io.Reader) ([]domain.Vendor, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty OUI file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	assignIdx, ok := cols[columnAssignment]
	if !ok {
		return nil, fmt.Errorf("missing %q column", columnAssignment)
	}
	orgIdx, ok := cols[columnOrganization]
	if !ok {
		return nil, fmt.Errorf("missing %q column", columnOrganization)
	}
	regIdx, hasRegistry := cols[columnRegistry]

	var vendors []domain.Vendor
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if assignIdx >= len(record) || orgIdx >= len(record) {
			continue
		}
		prefix := NormalizePrefix(record[assignIdx])
		org := strings.TrimSpace(record[orgIdx])
		if prefix == "" || org == "" {
			continue
		}
		v := domain.Vendor{Prefix: prefix, Organization: org}
		if hasRegistry && regIdx < len(record) {
			v.Registry = strings.TrimSpace(record[regIdx])
		}
		vendors = append(vendors, v)
	}
	return vendors, nil
}

// EntriesFromVendors converts a vendor list into a Table entry map
func EntriesFromVendors(vendors []domain.Vendor) map[string]string {
	m := make(map[string]string, len(vendors))
	for _, v := range vendors {
		m[v.Prefix] = v.Organization
	}
	return m
}
