package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mbvlabs/linkpulse/internal/agent"
	"github.com/mbvlabs/linkpulse/internal/config"
	"github.com/mbvlabs/linkpulse/internal/logger"
	"github.com/mbvlabs/linkpulse/internal/monitor"
	"github.com/mbvlabs/linkpulse/internal/presenter"
	"github.com/mbvlabs/linkpulse/internal/proxy"
	"github.com/mbvlabs/linkpulse/internal/server"
	"github.com/mbvlabs/linkpulse/internal/watcher"
)

type serveOptions struct {
	configPath string
	addr       string
	out        io.Writer
	// monitor carries scheduling overrides; the CLI leaves it zero.
	monitor monitor.Options
}

func newServeCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the connection monitor with its HTTP and WebSocket surfaces",
		Long: `Start the connection monitor. The status is exposed at /api/connection,
pushed live over /__linkpulse/events, and, when dashboard_url is set, the
dashboard is proxied with the status widget injected into every page.

The config file is watched and reloaded; changing the scan agent or the
agent endpoint triggers a reconnect.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			go func() {
				select {
				case sig := <-sigChan:
					fmt.Fprintf(cmd.OutOrStdout(), "\nReceived signal: %v\n", sig)
					cancel()
				case <-ctx.Done():
				}
			}()

			return runServe(ctx, serveOptions{
				configPath: *configPath,
				addr:       addr,
				out:        cmd.OutOrStdout(),
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides addr in the config)")
	return cmd
}

func newInvoker(cfg config.Config) agent.Invoker {
	return agent.NewClient(agent.Config{
		Endpoint: cfg.AgentURL,
		APIKey:   cfg.AgentAPIKey,
	})
}

func runServe(ctx context.Context, opts serveOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.addr != "" {
		cfg.Addr = opts.addr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log := logger.New(cfg.Verbose)
	invoker := agent.NewSwappable(newInvoker(cfg))

	monOpts := opts.monitor
	monOpts.AgentID = cfg.ScanAgentID
	monOpts.Logger = log
	mon := monitor.New(invoker, monOpts)
	mon.Start()
	defer mon.Stop()

	api := server.New(mon, log)
	var handler http.Handler = api.Handler()
	if cfg.DashboardURL != "" {
		dashboard, err := proxy.NewServer(cfg.DashboardURL, log)
		if err != nil {
			return err
		}
		handler = dashboard.Handler(handler, server.IsAPIRequest)
	}

	var wg sync.WaitGroup
	errChan := make(chan error, 4)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Serve(ctx, cfg.Addr, handler); err != nil {
			errChan <- fmt.Errorf("http-server: %w", err)
			cancel()
		}
	}()

	if opts.configPath != "" {
		configChanged := make(chan struct{}, 1)

		wg.Add(1)
		go func() {
			defer wg.Done()
			wcfg := watcher.ConfigWatcherConfig{
				Path:   opts.configPath,
				Logger: log,
			}
			if err := watcher.RunConfigWatcher(ctx, configChanged, wcfg); err != nil {
				log.Warn("config reload disabled, cannot watch %s: %v", opts.configPath, err)
			}
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			current := cfg
			for {
				select {
				case <-ctx.Done():
					return
				case <-configChanged:
					current = reloadConfig(opts, current, mon, invoker, log)
				}
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		printStatusChanges(ctx, opts.out, mon)
	}()

	fmt.Fprintf(opts.out, "\n  Listening on: %s\n", cfg.Addr)
	fmt.Fprintf(opts.out, "  Scan agent:   %s\n", cfg.ScanAgentID)
	if cfg.DashboardURL != "" {
		fmt.Fprintf(opts.out, "  Dashboard:    %s (proxied)\n", cfg.DashboardURL)
	}
	fmt.Fprintln(opts.out)

	wg.Wait()
	close(errChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// reloadConfig applies a changed config file to the running monitor and
// returns the config now in effect.
func reloadConfig(
	opts serveOptions,
	current config.Config,
	mon *monitor.Monitor,
	invoker *agent.Swappable,
	log logger.Logger,
) config.Config {
	next, err := config.Load(opts.configPath)
	if err == nil {
		err = next.Validate()
	}
	if err != nil {
		log.Warn("config reload skipped: %v", err)
		return current
	}
	if opts.addr != "" {
		next.Addr = opts.addr
	}
	if next.Addr != current.Addr || next.DashboardURL != current.DashboardURL {
		log.Warn("addr and dashboard_url changes need a restart")
		next.Addr = current.Addr
		next.DashboardURL = current.DashboardURL
	}
	if !current.AgentChanged(next) {
		return next
	}

	endpointChanged := next.AgentURL != current.AgentURL || next.AgentAPIKey != current.AgentAPIKey
	if endpointChanged {
		invoker.Swap(newInvoker(next))
		log.Info("agent endpoint changed to %s", next.AgentURL)
	}
	if next.ScanAgentID != current.ScanAgentID {
		mon.Retarget(next.ScanAgentID)
	} else {
		mon.Reconnect()
	}
	return next
}

// printStatusChanges writes the current status line and another each time
// the status changes.
// Updates that only touch timestamps or latency are skipped.
func printStatusChanges(ctx context.Context, out io.Writer, mon *monitor.Monitor) {
	changes := mon.Subscribe()
	defer mon.Unsubscribe(changes)

	var last monitor.Status
	show := func() {
		state := mon.Snapshot()
		if state.Status == last {
			return
		}
		last = state.Status
		now := time.Now()
		badge := presenter.Header(state, now)
		fmt.Fprintf(out, "%s %s %s\n", now.Format("15:04:05"), logger.Prefix, presenter.StatusLine(badge))
	}

	show()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			show()
		}
	}
}
