package schema

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// Visualizer renders declared tables for the terminal.
type Visualizer struct {
	useColor bool
}

// NewVisualizer creates a new visualizer
func NewVisualizer(useColor bool) *Visualizer {
	return &Visualizer{useColor: useColor}
}

// SummaryTable lists tables with their kind, column count and keys.
func (v *Visualizer) SummaryTable(tables []Table) string {
	var buf strings.Builder

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"#", "Table", "Kind", "Columns", "Sort key", "Primary key"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for i, t := range tables {
		table.Append([]string{
			fmt.Sprintf("%d", i+1),
			t.Name,
			v.kind(t.Kind),
			fmt.Sprintf("%d", len(t.Columns)),
			strings.Join(t.SortKeys(), ", "),
			strings.Join(t.KeyColumns(), ", "),
		})
	}

	table.Render()
	return buf.String()
}

// ColumnTable lists the columns of one table.
func (v *Visualizer) ColumnTable(t Table) string {
	var buf strings.Builder

	header := fmt.Sprintf("=== %s %s ===", t.Kind, t.Name)
	if v.useColor {
		header = color.CyanString(header)
	}
	buf.WriteString(header)
	buf.WriteString("\n")

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Column", "Type", "Null", "Hints"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, c := range t.Columns {
		null := "YES"
		if c.NotNull {
			null = "NO"
		}
		table.Append([]string{c.Name, c.Type, null, strings.Join(hints(c), " ")})
	}

	table.Render()
	return buf.String()
}

func (v *Visualizer) kind(k Kind) string {
	if !v.useColor {
		return string(k)
	}
	switch k {
	case KindFact:
		return color.GreenString(string(k))
	case KindDimension:
		return color.BlueString(string(k))
	default:
		return color.YellowString(string(k))
	}
}

func hints(c Column) []string {
	var out []string
	if c.Identity {
		out = append(out, "IDENTITY")
	}
	if c.PrimaryKey {
		out = append(out, "PK")
	}
	if c.SortKey {
		out = append(out, "SORTKEY")
	}
	if c.DistKey {
		out = append(out, "DISTKEY")
	}
	return out
}
