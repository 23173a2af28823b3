package cmd

import (
	"errors"
	"fmt"

	"github.com/dagu-org/testseries/internal/cmn/logger"
	"github.com/dagu-org/testseries/internal/cmn/logger/tag"
	"github.com/dagu-org/testseries/internal/output"
	"github.com/dagu-org/testseries/internal/persis/fileseries"
	"github.com/dagu-org/testseries/internal/persis/filetestrun"
	"github.com/spf13/cobra"
)

var errNoSeries = errors.New("no series id given and no previous series recorded")

// Status creates the command that lists the test runs of a series.
func Status() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "status [flags] [series id]",
			Short: "Display the test runs of a series",
			Long: `Show the state and result of every test run in a series.

Without an argument the last series started by the current user is shown.

Example:
  testseries status s12
`,
			Args: cobra.MaximumNArgs(1),
		},
		statusFlags,
		runStatus,
	)
}

var statusFlags []commandLineFlag

func runStatus(ctx *Context, args []string) error {
	var sid string
	if len(args) > 0 {
		sid = args[0]
	} else {
		sid = fileseries.LoadUserSeriesID(ctx, ctx.Config.Paths.UsersDir)
	}
	if sid == "" {
		return errNoSeries
	}

	id, err := fileseries.ParseID(sid)
	if err != nil {
		return err
	}
	series, err := fileseries.Load(ctx, ctx.Config.Paths.SeriesDir, ctx.TestRunStore, id)
	if err != nil {
		return err
	}

	header := fmt.Sprintf("Series %s", series.SeriesID())
	if ts, err := series.Timestamp(); err == nil {
		header += fmt.Sprintf(" (created %s)", ts.Format("2006-01-02 15:04:05"))
	}
	_, _ = fmt.Fprintln(ctx.Stdout, header)

	instances := series.Instances()
	rows := make([]output.InstanceRow, 0, len(instances))
	for _, inst := range instances {
		row := output.InstanceRow{ID: inst.ID(), Name: inst.Name()}
		run, ok := inst.(*filetestrun.TestRun)
		if !ok {
			rows = append(rows, row)
			continue
		}
		row.Created = run.Created()
		if st, err := run.Status(); err == nil {
			row.State = st.State
			row.Note = st.Note
		} else {
			logger.Warn(ctx, "Failed to read test run status", tag.TestRunID(inst.ID()), tag.Error(err))
		}
		if run.IsComplete() {
			if res, err := run.Results(); err == nil {
				row.Result = res.Result
				if res.Note != "" {
					row.Note = res.Note
				}
			}
		}
		rows = append(rows, row)
	}

	output.RenderInstances(ctx.Stdout, rows, ctx.ColorEnabled)
	return nil
}
