package output

import (
	"io"
	"strconv"
	"time"

	"github.com/dagu-org/testseries/internal/core"
	"github.com/dagu-org/testseries/internal/runtime"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// InstanceRow is one test run listed by the status table.
type InstanceRow struct {
	ID      int
	Name    string
	State   core.InstanceState
	Result  string
	Note    string
	Created time.Time
}

var instanceHeader = table.Row{
	"#",
	"ID",
	"Test",
	"State",
	"Result",
	"Created",
	"Note",
}

// RenderInstances writes the test runs of a series as a table.
func RenderInstances(w io.Writer, rows []InstanceRow, colorEnabled bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(instanceHeader)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 7, WidthMax: 60},
	})

	for i, row := range rows {
		result := row.Result
		if result == "" {
			result = "-"
		}
		if colorEnabled {
			result = ResultColorize(result, row.Result)
		}
		created := "-"
		if !row.Created.IsZero() {
			created = row.Created.Format("2006-01-02 15:04:05")
		}
		t.AppendRow(table.Row{
			i + 1,
			strconv.Itoa(row.ID),
			row.Name,
			string(row.State),
			result,
			created,
			row.Note,
		})
	}
	t.Render()
}

var summaryHeader = table.Row{
	"Test",
	"Status",
	"Instances",
	"Passed",
	"Duration",
}

// RenderSummary writes one row per definition of a run in launch order,
// followed by definitions that never started.
func RenderSummary(w io.Writer, res *runtime.Result, colorEnabled bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(summaryHeader)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
	})

	seen := make(map[string]bool, len(res.Order))
	names := append([]string(nil), res.Order...)
	for _, n := range res.Order {
		seen[n] = true
	}
	for _, n := range res.Names {
		if !seen[n] {
			names = append(names, n)
		}
	}

	for _, n := range names {
		tr, ok := res.Test(n)
		if !ok {
			continue
		}
		status := StatusText(tr.Status)
		if colorEnabled {
			status = DefinitionColorize(status, tr.Status, tr.Passed)
		}
		duration := "-"
		if !tr.Started.IsZero() && !tr.Finished.IsZero() {
			duration = formatDuration(tr.Finished.Sub(tr.Started))
		}
		t.AppendRow(table.Row{
			tr.Name,
			status,
			len(tr.Instances),
			strconv.FormatBool(tr.Passed),
			duration,
		})
	}
	t.AppendFooter(table.Row{"", "", "", strconv.Itoa(len(res.Names)-len(res.Failed())) + "/" + strconv.Itoa(len(res.Names)), ""})
	t.Render()
}
