// Copyright 2026 © The Selfimprove Authors
// SPDX-License-Identifier: Apache-2.0

// Command selfimprove runs the self-improving agent demonstration: an agent
// applies its power function to an input, upgrades itself to a higher
// exponent, and repeats.
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jllopis/selfimprove/pkg/agent"
	"github.com/jllopis/selfimprove/pkg/config"
	"github.com/jllopis/selfimprove/pkg/service"
	"github.com/jllopis/selfimprove/pkg/telemetry"
	"github.com/jllopis/selfimprove/pkg/transform"
)

const serviceName = "selfimprove"

var version = "dev"

// usageError marks bad flags or arguments.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd := rootCmd(stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		var ue usageError
		if stderrors.As(err, &ue) {
			return 2
		}
		return 1
	}
	return 0
}

func rootCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		configPath  string
		overrides   []string
		printConfig bool
	)
	cmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Run the self-improving agent demo",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.NoArgs(cmd, args); err != nil {
				return usageError{err}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, overrides...)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if printConfig {
				return writeConfig(stdout, cfg)
			}
			logger := telemetry.ConfigureSlog(stderr, cfg.Log.Level, cfg.Log.Format)
			return runDemo(cmd.Context(), cfg, stdout, logger)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})
	cmd.Flags().StringVar(&configPath, "config", "", "path to YAML config file")
	cmd.Flags().StringArrayVar(&overrides, "set", nil, "override a config value (key=value, repeatable)")
	cmd.Flags().BoolVar(&printConfig, "print-config", false, "print the effective configuration and exit")
	return cmd
}

func writeConfig(w io.Writer, cfg *config.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("print config: %w", err)
	}
	return enc.Close()
}

func runDemo(ctx context.Context, cfg *config.Config, stdout io.Writer, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	shutdown, err := telemetry.Init(serviceName, version, cfg.TelemetryOptions())
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	metrics, err := telemetry.NewAgentMetrics()
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	input, err := transform.ParseNumber(cfg.Demo.Input)
	if err != nil {
		return err
	}

	ag, err := agent.New(
		agent.WithOutput(stdout),
		agent.WithLogger(logger),
		agent.WithMetrics(metrics),
		agent.WithService(service.Resolve(ctx, cfg.ServiceOptions(), logger)),
	)
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}
	logger.Info("starting demo",
		telemetry.AttrAgentID, ag.ID(),
		telemetry.AttrServiceName, ag.Service().Name(),
		"iterations", cfg.Demo.Iterations,
		"delay", cfg.Demo.Delay,
	)

	fmt.Fprintln(stdout, "Starting Self-Improving Agent Demo...")
	if err := ag.IterativeImprovement(ctx, input, cfg.Demo.Iterations, cfg.Demo.Delay); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "Demo complete.")
	return nil
}
