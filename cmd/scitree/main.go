// Command scitree trains random forest classifiers on CSV data, evaluates
// them, and uses saved forests to make predictions.
package main

import (
	"fmt"
	"os"

	"github.com/YuminosukeSato/scitree/pkg/log"
	"github.com/spf13/cobra"
)

type rootCmdConfig struct {
	verbose    bool
	logLevel   string
	logJSON    bool
	configPath string
}

func main() {
	if err := cliParser().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func cliParser() *cobra.Command {
	config := &rootCmdConfig{}
	rootCmd := &cobra.Command{
		Use:   "scitree",
		Short: "scitree grows random forests of decision trees",
		Long:  `A tool to train random forest classifiers from CSV data, evaluate them, and use them to make predictions`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.setupLogging()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&(config.verbose), "verbose", "v", false, "log at debug level")
	rootCmd.PersistentFlags().StringVar(&(config.logLevel), "log-level", "warn", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&(config.logJSON), "log-json", false, "write logs as JSON lines instead of console output")
	rootCmd.PersistentFlags().StringVarP(&(config.configPath), "config", "c", "", "path to a YAML file with forest and split settings (flags take precedence)")
	rootCmd.AddCommand(versionCmd(), trainCmd(config), predictCmd(config), curveCmd(config))
	return rootCmd
}

func (rc *rootCmdConfig) setupLogging() error {
	level := rc.logLevel
	if rc.verbose {
		level = "debug"
	}
	return log.SetupLogger(level, !rc.logJSON)
}
