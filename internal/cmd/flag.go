package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type commandLineFlag struct {
	name, shorthand, defaultValue, usage string
	required                             bool
	isBool                               bool
	// viperKey is the configuration key the flag overrides, if any.
	viperKey string
}

var (
	configFlag = commandLineFlag{
		name:      "config",
		shorthand: "c",
		usage:     "config file (default is $HOME/.config/testseries/config.yaml)",
		viperKey:  "config",
	}
	quietFlag = commandLineFlag{
		name:      "quiet",
		shorthand: "q",
		usage:     "suppress log output",
		isBool:    true,
	}
	debugFlag = commandLineFlag{
		name:     "debug",
		usage:    "enable debug logging",
		isBool:   true,
		viperKey: "debug",
	}
	workingDirFlag = commandLineFlag{
		name:      "working-dir",
		shorthand: "w",
		usage:     "working directory holding series, test runs and user pointers",
		viperKey:  "paths.workingDir",
	}
	modesFlag = commandLineFlag{
		name:      "modes",
		shorthand: "m",
		usage:     "comma separated modes applied to every test of the series",
	}
	watchFlag = commandLineFlag{
		name:     "watch",
		usage:    "wake on completion markers instead of polling only",
		isBool:   true,
		viperKey: "scheduler.watch",
	}
	noLogsFlag = commandLineFlag{
		name:   "no-logs",
		usage:  "do not print log tails of failed test runs",
		isBool: true,
	}
	dryRunFlag = commandLineFlag{
		name:   "dry-run",
		usage:  "only print what would be removed",
		isBool: true,
	}
)

var baseFlags = []commandLineFlag{configFlag, quietFlag, debugFlag, workingDirFlag}

// initFlags registers the base flags and additional flags on cmd.
func initFlags(cmd *cobra.Command, additionalFlags ...commandLineFlag) {
	flags := append(append([]commandLineFlag{}, baseFlags...), additionalFlags...)
	for _, flag := range flags {
		if flag.isBool {
			cmd.Flags().BoolP(flag.name, flag.shorthand, flag.defaultValue == "true", flag.usage)
		} else {
			cmd.Flags().StringP(flag.name, flag.shorthand, flag.defaultValue, flag.usage)
		}
		if flag.required {
			if err := cmd.MarkFlagRequired(flag.name); err != nil {
				fmt.Printf("failed to mark flag %s as required: %v\n", flag.name, err)
			}
		}
	}
}

// bindFlags binds the flags that carry a viper key.
func bindFlags(cmd *cobra.Command, additionalFlags ...commandLineFlag) error {
	flags := append(append([]commandLineFlag{}, baseFlags...), additionalFlags...)
	for _, flag := range flags {
		if flag.viperKey == "" {
			continue
		}
		if err := viper.BindPFlag(flag.viperKey, cmd.Flags().Lookup(flag.name)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag.name, err)
		}
	}
	return nil
}
