// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/AleutianAI/opgraph/cmd/opgraph/config"
	"github.com/AleutianAI/opgraph/pkg/logging"
	"github.com/AleutianAI/opgraph/services/telemetry"
)

// cli holds state shared by the commands of one invocation.
type cli struct {
	configPath string
	logLevel   string
	logJSON    bool

	inPlace  bool
	noUnpack bool

	cfg      config.Config
	logger   *logging.Logger
	shutdown func(context.Context) error

	root *cobra.Command
}

// newCLI builds the command tree.
func newCLI() *cli {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "opgraph",
		Short: "Run dataflow graphs defined in HCL files",
		Long: `opgraph loads a dataflow graph from an HCL definition file, links it
into a callable and runs it on the arguments given on the command line.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}
	rootCmd.PersistentFlags().StringVar(&c.configPath, "config", "",
		"config file (default ~/.opgraph/opgraph.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "",
		"log level: debug, info, warn or error (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&c.logJSON, "log-json", false,
		"log in JSON (overrides config)")

	runCmd := &cobra.Command{
		Use:   "run <graph.hcl> [args...]",
		Short: "Run a graph on numeric arguments and print its outputs",
		Args:  cobra.MinimumNArgs(1),
		RunE:  c.runGraph,
	}
	runCmd.Flags().BoolVar(&c.inPlace, "in-place", false,
		"run against the loaded graph's own slots instead of a clone")
	runCmd.Flags().BoolVar(&c.noUnpack, "no-unpack", false,
		"print a list even when the graph has a single output")

	orderCmd := &cobra.Command{
		Use:   "order <graph.hcl>",
		Short: "Print the execution order and each op's definition site",
		Args:  cobra.ExactArgs(1),
		RunE:  c.printOrder,
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the opgraph configuration file",
	}
	configInitCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.initConfig,
	}

	rootCmd.AddCommand(runCmd, orderCmd, configCmd)
	configCmd.AddCommand(configInitCmd)
	c.root = rootCmd
	return c
}

// Execute runs the command line and then stops telemetry and logging,
// whether or not the command failed.
func (c *cli) Execute() error {
	err := c.root.Execute()
	return multierr.Append(err, c.teardown())
}

// setup loads configuration, applies flag overrides and starts logging and
// telemetry.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	path, required := c.configPath, true
	if path == "" {
		if p, err := config.DefaultPath(); err == nil {
			path, required = p, false
		}
	}

	cfg, err := config.Load(path, required)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = c.logLevel
	}
	if flags.Changed("log-json") {
		cfg.Logging.JSON = c.logJSON
	}
	if flags.Changed("in-place") {
		cfg.Linker.InPlace = c.inPlace
	}
	if flags.Changed("no-unpack") {
		cfg.Linker.UnpackSingle = !c.noUnpack
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	if cfg.Telemetry.Writer == nil {
		cfg.Telemetry.Writer = cmd.OutOrStdout()
	}
	c.cfg = cfg

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	c.logger = logging.New(logging.Config{
		Level:   level,
		JSON:    cfg.Logging.JSON,
		Service: cfg.Logging.Service,
		LogDir:  cfg.Logging.LogDir,
		Writer:  cmd.ErrOrStderr(),
	})

	shutdown, err := telemetry.Init(cmd.Context(), cfg.Telemetry)
	if err != nil {
		return multierr.Append(fmt.Errorf("init telemetry: %w", err), c.logger.Close())
	}
	c.shutdown = shutdown
	return nil
}

// teardown flushes telemetry and closes the logger. Later calls do nothing.
func (c *cli) teardown() error {
	var err error
	if c.shutdown != nil {
		err = multierr.Append(err, c.shutdown(context.Background()))
		c.shutdown = nil
	}
	if c.logger != nil {
		err = multierr.Append(err, c.logger.Close())
	}
	return err
}

func (c *cli) initConfig(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) == 1 {
		path = args[0]
	} else {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	written, err := config.WriteDefault(path)
	if err != nil {
		return err
	}
	if !written {
		fmt.Fprintf(cmd.OutOrStdout(), "config already exists at %s\n", path)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote default config to %s\n", path)
	return nil
}

// errNoGraph is returned when the graph file argument is empty.
var errNoGraph = errors.New("graph file path must not be empty")

func checkGraphPath(path string) error {
	if path == "" {
		return errNoGraph
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("graph file: %w", err)
	}
	return nil
}
