package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mbvlabs/linkpulse/internal/config"
	"github.com/mbvlabs/linkpulse/internal/logger"
	"github.com/mbvlabs/linkpulse/internal/monitor"
	"github.com/mbvlabs/linkpulse/internal/presenter"
)

func newCheckCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run one health check against the scan agent",
		Long: `Send a single health check to the configured scan agent and print the
connection details. Exits non-zero when the agent does not confirm the
connection within the probe timeout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), *configPath, cmd.OutOrStdout(), monitor.Options{})
		},
	}
}

func runCheck(ctx context.Context, configPath string, out io.Writer, monOpts monitor.Options) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	monOpts.AgentID = cfg.ScanAgentID
	// A single check has no streak to wait for.
	if monOpts.FailureThreshold == 0 {
		monOpts.FailureThreshold = 1
	}
	if monOpts.Logger == nil {
		monOpts.Logger = logger.New(cfg.Verbose)
	}
	mon := monitor.New(newInvoker(cfg), monOpts)
	defer mon.Stop()

	changes := mon.Subscribe()
	defer mon.Unsubscribe(changes)

	mon.CheckNow()

	var state monitor.State
	for state.LastChecked == nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changes:
			state = mon.Snapshot()
		}
	}

	fmt.Fprint(out, presenter.RenderTerminal(presenter.Header(state, time.Now())))

	if state.Status != monitor.StatusConnected {
		return fmt.Errorf("connection check failed for scan agent %s", cfg.ScanAgentID)
	}
	return nil
}
