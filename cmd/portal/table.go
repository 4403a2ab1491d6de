package main

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/AndersD76/portalpili-producao-sub005/internal/workflow"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

var colorOutput = isatty.IsTerminal(os.Stdout.Fd())

// statusLabel colors a header status when stdout is a terminal.
func statusLabel(status workflow.Status) string {
	label := string(status)
	if !colorOutput {
		return label
	}
	switch status {
	case workflow.StatusComplete, workflow.StatusApproved:
		return text.Colors{text.FgGreen}.Sprint(label)
	case workflow.StatusPartial:
		return text.Colors{text.FgYellow}.Sprint(label)
	case workflow.StatusRejected, workflow.StatusExpired:
		return text.Colors{text.FgRed}.Sprint(label)
	default:
		return label
	}
}
