package schema

import (
	"fmt"
	"strings"

	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/warehouse"
)

// CreateStatement renders an idempotent CREATE TABLE for t.
func CreateStatement(d warehouse.Dialect, t Table) (string, error) {
	name, err := warehouse.Ident(t.Name)
	if err != nil {
		return "", err
	}

	defs := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		if _, err := warehouse.Ident(c.Name); err != nil {
			return "", err
		}
		defs[i] = "    " + d.ColumnDef(c.Spec())
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n)%s",
		name, strings.Join(defs, ",\n"), d.TableSuffix(t.SortKeys())), nil
}

// DropStatement renders an idempotent DROP TABLE for t.
func DropStatement(t Table) (string, error) {
	name, err := warehouse.Ident(t.Name)
	if err != nil {
		return "", err
	}
	return "DROP TABLE IF EXISTS " + name, nil
}
