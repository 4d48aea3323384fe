package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/compozy/storymapper/engine/core"
	"github.com/compozy/storymapper/pkg/version"
)

const (
	defaultConfigFile = "storymapper.yaml"
	defaultEnvFile    = ".env"
)

// RootCmd builds the storymapper command tree.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "storymapper",
		Short:         "Group workshop sticky notes into a story map",
		Long:          `Reads sticky notes, clusters them by meaning and pushes the result as epics and stories.`,
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return SetupGlobalConfig(cmd)
		},
	}

	root.PersistentFlags().String("config", defaultConfigFile, "Path to the config file")
	root.PersistentFlags().String("env-file", defaultEnvFile, "Path to the environment file")
	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error, disabled)")
	root.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	root.PersistentFlags().Bool("log-source", false, "Include source code location in logs")
	root.PersistentFlags().String("log-file", "", "Write logs to this file instead of stderr")

	root.AddCommand(
		RunCmd(),
		GroupCmd(),
		MiroCmd(),
		ConfigCmd(),
	)

	return root
}

// Execute runs the root command and prints a redacted error message on failure.
func Execute() error {
	cmd := RootCmd()
	defer closeLogFile()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+core.RedactError(err)))
		return err
	}
	return nil
}
