package schema

import (
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/warehouse"
)

// Kind is the role a table plays in the star schema.
type Kind string

const (
	KindStaging   Kind = "STAGING"
	KindFact      Kind = "FACT"
	KindDimension Kind = "DIMENSION"
)

// Column describes one column of a table.
type Column struct {
	Name       string
	Type       string
	NotNull    bool
	Identity   bool
	SortKey    bool
	DistKey    bool
	PrimaryKey bool
}

// Spec converts the column to its dialect-neutral form.
func (c Column) Spec() warehouse.ColumnSpec {
	return warehouse.ColumnSpec{
		Name:       c.Name,
		Type:       c.Type,
		NotNull:    c.NotNull,
		Identity:   c.Identity,
		SortKey:    c.SortKey,
		DistKey:    c.DistKey,
		PrimaryKey: c.PrimaryKey,
	}
}

// Table is a declared warehouse table. No foreign keys are declared, so
// tables can be created and dropped in any order.
type Table struct {
	Name    string
	Kind    Kind
	Columns []Column
}

// ColumnNames returns the column names in declaration order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// SortKeys returns the columns flagged as sort keys.
func (t Table) SortKeys() []string {
	var keys []string
	for _, c := range t.Columns {
		if c.SortKey {
			keys = append(keys, c.Name)
		}
	}
	return keys
}

// KeyColumns returns the columns flagged as primary key.
func (t Table) KeyColumns() []string {
	var keys []string
	for _, c := range t.Columns {
		if c.PrimaryKey {
			keys = append(keys, c.Name)
		}
	}
	return keys
}
