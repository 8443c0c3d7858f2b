package exporter

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"salespulse/internal/pipeline"
)

// summaryTopGroups limits the aggregation rows shown on the console.
const summaryTopGroups = 10

// WriteSummary renders a console overview of a run: the headline figures,
// the top groups of the first aggregation, segment sizes, discount bins and
// a warning count.
func WriteSummary(w io.Writer, result *pipeline.Result) error {
	tables := BuildTables(result)
	byName := make(map[string]Table, len(tables))
	for _, t := range tables {
		byName[t.Name] = t
	}

	sections := []Table{byName["summary"]}
	if aggs := result.Analysis.Aggregations; len(aggs) > 0 {
		top := byName["aggregation_"+aggs[0].Name]
		if len(top.Rows) > summaryTopGroups {
			top.Rows = top.Rows[:summaryTopGroups]
		}
		sections = append(sections, top)
	}
	if t, ok := byName["segments"]; ok {
		sections = append(sections, t)
	}
	if t, ok := byName["discount_bins"]; ok {
		sections = append(sections, t)
	}

	if err := WriteTables(w, sections); err != nil {
		return err
	}

	if warnings := len(byName["warnings"].Rows); warnings > 0 {
		if _, err := fmt.Fprintf(w, "\n%d degenerate computation warnings, see warnings.csv\n", warnings); err != nil {
			return err
		}
	}
	return nil
}

// WriteTables renders every table in order, each under its name.
func WriteTables(w io.Writer, tables []Table) error {
	for _, t := range tables {
		if _, err := fmt.Fprintf(w, "\n%s\n", t.Name); err != nil {
			return err
		}
		renderTable(w, t)
	}
	return nil
}

func renderTable(w io.Writer, t Table) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(true)
	table.SetHeader(t.Headers)
	table.AppendBulk(t.Rows)
	table.Render()
}
