package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// tableColumn describes one column of a rendered result table. Numeric
// columns are right-aligned; MaxWidth caps wide cells such as file paths
// so a deep directory tree does not blow out the terminal.
type tableColumn struct {
	Name     string
	Numeric  bool
	MaxWidth int
}

func renderTable(cols []tableColumn, rows [][]string) string {
	if len(cols) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(cols))
	for i, col := range cols {
		header[i] = col.Name
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(cols))
		for i := range cols {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, len(cols))
	for i, col := range cols {
		cfg := table.ColumnConfig{
			Number:      i + 1,
			Align:       text.AlignLeft,
			AlignHeader: text.AlignLeft,
		}
		if col.Numeric {
			cfg.Align = text.AlignRight
		}
		if col.MaxWidth > 0 {
			cfg.WidthMax = col.MaxWidth
		}
		configs[i] = cfg
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}
