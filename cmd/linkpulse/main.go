package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mbvlabs/linkpulse/internal/config"
	"github.com/mbvlabs/linkpulse/internal/logger"
)

var Version = "dev"

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "linkpulse",
		Short: "Monitor the LinkedIn connection behind the triage agent",
		Long: `linkpulse probes the scan agent on a fixed schedule and infers whether
the LinkedIn session behind it is live. The status is served over HTTP and
WebSocket and can be injected into the message-triage dashboard.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if err := config.LoadDotEnv(); err != nil {
				logger.FromEnv().Warn("could not load .env file: %v", err)
			}
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to the YAML config file")

	root.AddCommand(
		newServeCmd(&configPath),
		newCheckCmd(&configPath),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the linkpulse version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "linkpulse version %s\n", Version)
		},
	}
}
