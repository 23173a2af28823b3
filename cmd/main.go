package main

import (
	"os"

	"github.com/dagu-org/testseries/internal/build"
	"github.com/dagu-org/testseries/internal/cmd"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   build.Slug,
	Short: "TestSeries runs groups of tests ordered by their dependencies",
	Long: `TestSeries runs groups of tests ordered by their dependencies.

A series names tests and the tests they depend on. Each test starts once
its prerequisites are done, and a test can ask to be skipped unless all of
them passed.
`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(cmd.Run())
	rootCmd.AddCommand(cmd.Status())
	rootCmd.AddCommand(cmd.Cleanup())
	rootCmd.AddCommand(cmd.Version())

	build.Version = version
}

var version = "0.0.0"
