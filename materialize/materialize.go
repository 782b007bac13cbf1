// Package materialize implements the table/CSV/chart sinks from
// spec.md §4.8/§2: pure projections of a stream of query.AppGroup
// results, with no business logic of their own — "the engine exposes a
// materialization API" per spec.md §1's Non-goals (notebook rendering
// itself is out of scope; this package is the thin data shape the
// engine hands to whatever renders it).
package materialize

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"altinnaudit.dev/query"
)

// Table is a header row plus one row of string cells per group, column
// order deterministic (tuple columns first, then selected columns, both
// alphabetized).
type Table struct {
	Header []string
	Rows   [][]string
}

func columnNames(groups []*query.AppGroup) []string {
	seen := make(map[string]bool)
	var tuple, selected []string
	for _, g := range groups {
		for k := range g.Tuple {
			if !seen[k] {
				seen[k] = true
				tuple = append(tuple, k)
			}
		}
	}
	seen2 := make(map[string]bool)
	for _, g := range groups {
		for k := range g.Selected {
			if !seen2[k] {
				seen2[k] = true
				selected = append(selected, k)
			}
		}
	}
	sort.Strings(tuple)
	sort.Strings(selected)
	return append(tuple, selected...)
}

// BuildTable renders groups into a Table.
func BuildTable(groups []*query.AppGroup) Table {
	cols := columnNames(groups)
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		row := make([]string, len(cols))
		for i, col := range cols {
			row[i] = fmt.Sprintf("%v", g.Get(col))
		}
		rows = append(rows, row)
	}
	return Table{Header: cols, Rows: rows}
}

// WriteCSV writes groups as CSV to w.
func WriteCSV(w io.Writer, groups []*query.AppGroup) error {
	t := BuildTable(groups)
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// ChartSeries is a single named-value pair used by BarChart/PieChart.
type ChartSeries struct {
	Label string
	Value float64
}

// valueColumn picks the selected column to chart: "n"/"count"/"Count"
// if present, else the first selected column in alphabetical order.
func valueColumn(groups []*query.AppGroup) string {
	cols := columnNames(groups)
	for _, candidate := range []string{"n", "count", "Count"} {
		for _, c := range cols {
			if c == candidate {
				return candidate
			}
		}
	}
	var selected []string
	seen := make(map[string]bool)
	for _, g := range groups {
		for k := range g.Selected {
			if !seen[k] {
				seen[k] = true
				selected = append(selected, k)
			}
		}
	}
	sort.Strings(selected)
	if len(selected) > 0 {
		return selected[0]
	}
	return ""
}

// labelColumn picks the first tuple column as the chart's category
// label.
func labelColumn(groups []*query.AppGroup) string {
	if len(groups) == 0 {
		return ""
	}
	var names []string
	for k := range groups[0].Tuple {
		names = append(names, k)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

func buildChart(groups []*query.AppGroup) []ChartSeries {
	valCol := valueColumn(groups)
	labCol := labelColumn(groups)
	out := make([]ChartSeries, 0, len(groups))
	for _, g := range groups {
		var label string
		if labCol != "" {
			label = fmt.Sprintf("%v", g.Get(labCol))
		}
		var value float64
		switch v := g.Get(valCol).(type) {
		case int:
			value = float64(v)
		case float64:
			value = v
		}
		out = append(out, ChartSeries{Label: label, Value: value})
	}
	return out
}

// BarChart projects groups into (label, value) series for a bar chart.
func BarChart(groups []*query.AppGroup) []ChartSeries { return buildChart(groups) }

// PieChart projects groups into (label, value) series for a pie chart.
// Identical to BarChart: the distinction is purely presentational and
// belongs to the notebook-rendering surface this package hands data to.
func PieChart(groups []*query.AppGroup) []ChartSeries { return buildChart(groups) }
