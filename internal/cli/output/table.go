// Package output renders CLI command results as aligned text tables.
package output

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// Table accumulates rows for borderless, left-aligned output.
type Table struct {
	headers []string
	rows    [][]string
}

// NewTable returns an empty table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// Append adds one row. Rows shorter than the header render with empty
// trailing cells.
func (t *Table) Append(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Len returns the number of appended rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Write renders the table to w with an upper-cased header line.
func (t *Table) Write(w io.Writer) error {
	tw := tablewriter.NewWriter(w)
	style(tw)
	tw.SetHeader(t.headers)
	tw.SetAutoFormatHeaders(true)

	for _, row := range t.rows {
		tw.Append(row)
	}
	tw.Render()
	return nil
}

// KeyValue renders label/value pairs without a header line, one pair per
// row separated by a colon.
func KeyValue(w io.Writer, pairs [][2]string) error {
	tw := tablewriter.NewWriter(w)
	style(tw)
	tw.SetColumnSeparator(":")

	for _, pair := range pairs {
		tw.Append([]string{pair[0], pair[1]})
	}
	tw.Render()
	return nil
}

// style strips tablewriter's ASCII borders down to padded columns.
func style(tw *tablewriter.Table) {
	tw.SetAutoWrapText(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetCenterSeparator("")
	tw.SetColumnSeparator("")
	tw.SetRowSeparator("")
	tw.SetHeaderLine(false)
	tw.SetBorder(false)
	tw.SetTablePadding("  ")
	tw.SetNoWhiteSpace(true)
}
