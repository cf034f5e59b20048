package main

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	s := settingsFromEnv()
	var healthCheck bool

	cmd := &cobra.Command{
		Use:   "cogscore",
		Short: "Cognitive-risk scoring and attribution engine",
		Long: `cogscore turns normalized linguistic features into a calibrated cognitive-risk
score with a confidence estimate, and explains that score as per-feature
contributions that sum exactly to the distance from the baseline.

Responses are written to stdout as JSON; logs go to stderr.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return configureLogging(s.LogLevel, cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if healthCheck {
				return runHealth(cmd, &s)
			}
			return cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&s.ConfigPath, "config", s.ConfigPath, "YAML engine table file (env COGSCORE_CONFIG)")
	flags.StringVar(&s.DBPath, "db", s.DBPath, "SQLite assessment history path; empty disables history (env COGSCORE_DB_PATH)")
	flags.StringVar(&s.LogLevel, "log-level", s.LogLevel, "log level: debug, info, warn, error (env LOG_LEVEL)")
	cmd.Flags().BoolVar(&healthCheck, "health-check", false, "Report available capabilities and exit")

	cmd.AddCommand(newScoreCommand(&s))
	cmd.AddCommand(newExplainCommand(&s))
	cmd.AddCommand(newHealthCommand(&s))
	cmd.AddCommand(newServeCommand(&s))
	cmd.AddCommand(newHistoryCommand(&s))

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
