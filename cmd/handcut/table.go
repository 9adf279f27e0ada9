package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"handcut/internal/timecode"
)

type column struct {
	title string
	right bool
}

// renderTable draws rows under the given columns. Short rows are padded and
// a non-empty footer is printed beneath the body.
func renderTable(columns []column, rows [][]string, footer []string) string {
	if len(columns) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	titles := make([]string, len(columns))
	for i, c := range columns {
		titles[i] = c.title
	}
	tw.AppendHeader(toRow(len(columns), titles))
	for _, row := range rows {
		tw.AppendRow(toRow(len(columns), row))
	}
	if len(footer) > 0 {
		tw.AppendFooter(toRow(len(columns), footer))
	}

	configs := make([]table.ColumnConfig, len(columns))
	for i, c := range columns {
		align := text.AlignLeft
		if c.right {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			AlignFooter: align,
		}
	}
	tw.SetColumnConfigs(configs)
	return tw.Render() + "\n"
}

func toRow(width int, values []string) table.Row {
	row := make(table.Row, width)
	for i := range row {
		row[i] = ""
		if i < len(values) {
			row[i] = values[i]
		}
	}
	return row
}

func renderHandTable(hands []timecode.HandTimecode) string {
	columns := []column{
		{title: "Hand", right: true},
		{title: "Start"},
		{title: "End"},
		{title: "Length"},
		{title: "Confidence", right: true},
	}
	rows := make([][]string, 0, len(hands))
	for _, h := range hands {
		length := "-"
		if seconds, err := timecode.Duration(h.StartTime, h.EndTime); err == nil {
			length = timecode.FormatTimestamp(seconds)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", h.HandNumber),
			h.StartTime,
			h.EndTime,
			length,
			fmt.Sprintf("%.2f", h.Confidence),
		})
	}
	summary := timecode.Summarize(hands)
	footer := []string{fmt.Sprintf("%d", summary.Count), "", "", timecode.FormatTimestamp(summary.TotalSeconds), ""}
	return renderTable(columns, rows, footer)
}
