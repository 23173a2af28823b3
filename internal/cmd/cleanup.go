package cmd

import (
	"fmt"

	"github.com/dagu-org/testseries/internal/persis/fileseries"
	"github.com/spf13/cobra"
)

// Cleanup creates the command that removes series whose test runs are gone.
func Cleanup() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "cleanup [flags]",
			Short: "Remove orphaned series directories",
			Long: `Remove series directories that no longer link to any existing test run.

Examples:
  testseries cleanup            # Remove orphaned series
  testseries cleanup --dry-run  # Preview what would be removed
`,
			Args: cobra.NoArgs,
		},
		cleanupFlags,
		runCleanup,
	)
}

var cleanupFlags = []commandLineFlag{
	dryRunFlag,
}

func runCleanup(ctx *Context, _ []string) error {
	dryRun, _ := ctx.Command.Flags().GetBool("dry-run")

	removed, err := fileseries.RemoveOrphans(ctx, ctx.Config.Paths.SeriesDir, dryRun)
	if err != nil {
		return fmt.Errorf("failed to clean up series: %w", err)
	}

	if len(removed) == 0 {
		_, _ = fmt.Fprintln(ctx.Stdout, "No orphaned series found")
		return nil
	}

	verb := "Removed"
	if dryRun {
		verb = "Would remove"
	}
	for _, id := range removed {
		_, _ = fmt.Fprintf(ctx.Stdout, "%s %s\n", verb, fileseries.FormatID(id))
	}
	return nil
}
