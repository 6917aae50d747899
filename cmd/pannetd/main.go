// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/pannet/lib/config"
	"github.com/bureau-foundation/pannet/lib/process"
	"github.com/bureau-foundation/pannet/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	var configPath string
	var showVersion bool
	flagSet := pflag.NewFlagSet("pannetd", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to pannet.yaml (default: $"+config.EnvConfig+")")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pannetd [flags]\n\nFlags:\n%s", flagSet.FlagUsages())
	}

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return &process.UsageError{Err: err}
	}
	if showVersion {
		version.Print(os.Stdout, "pannetd")
		return nil
	}
	if flagSet.NArg() > 0 {
		return process.Usagef("unexpected argument: %s", flagSet.Arg(0))
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(os.Stderr, cfg.Logging)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runDaemon(ctx, cfg, logger)
}

// loadConfig reads path, or the PANNET_CONFIG file, or falls back to
// the defaults when neither is given.
func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case path != "":
		cfg, err = config.LoadFile(path)
	case os.Getenv(config.EnvConfig) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
