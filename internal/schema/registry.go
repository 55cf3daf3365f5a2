// Package schema holds the embedded sqlite table definitions and the JSON
// Schemas used to validate imported book sources and replacement rules.
package schema

import (
	"embed"
	"fmt"
	"sort"
)

//go:embed schemas/sql/*.sql schemas/json/*.json
var schemaFS embed.FS

// Table represents one sqlite table definition.
type Table struct {
	Name  string // Table name (e.g., "book_sources")
	DDL   string // CREATE statements
	Order int    // Initialization order (lower = first)
}

// tables holds all tables in creation order.
var tables = []Table{
	{Name: "book_sources", Order: 1},
	{Name: "replace_rules", Order: 2},
	{Name: "probe_metrics", Order: 3}, // standalone, keyed by run id
}

// All returns all tables in creation order with their DDL loaded.
func All() ([]Table, error) {
	out := make([]Table, len(tables))
	copy(out, tables)

	for i := range out {
		ddl, err := readDDL(out[i].Name)
		if err != nil {
			return nil, err
		}
		out[i].DDL = ddl
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})

	return out, nil
}

// Get returns a single table by name.
func Get(name string) (*Table, error) {
	for _, t := range tables {
		if t.Name == name {
			ddl, err := readDDL(t.Name)
			if err != nil {
				return nil, err
			}
			return &Table{Name: t.Name, DDL: ddl, Order: t.Order}, nil
		}
	}
	return nil, fmt.Errorf("table not found: %s", name)
}

func readDDL(name string) (string, error) {
	content, err := schemaFS.ReadFile(fmt.Sprintf("schemas/sql/%s.sql", name))
	if err != nil {
		return "", fmt.Errorf("failed to read table %s: %w", name, err)
	}
	return string(content), nil
}
