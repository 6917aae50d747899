// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Pannetctl calls the network manager of a running pannetd.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/pannet/lib/bus"
	"github.com/bureau-foundation/pannet/lib/process"
	"github.com/bureau-foundation/pannet/lib/version"
)

const defaultSocket = "/run/pannet/pannet.sock"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		process.Fatal(err)
	}
}

type command struct {
	name    string
	args    string
	summary string
	run     func(ctx context.Context, client *bus.Client, args []string, out io.Writer) error
}

var commands = []command{
	{"list-servers", "", "list server endpoints", runListServers},
	{"create-server", "<service>", "register a server for nap or gn", runCreateServer},
	{"remove-server", "<path>", "remove a server endpoint", runRemoveServer},
	{"list-connections", "", "list established connections", runListConnections},
	{"create-connection", "<address> <service>", "connect to a remote device's service", runCreateConnection},
	{"remove-connection", "<path>", "remove a connection", runRemoveConnection},
	{"info", "<path>", "show a server or connection as JSON", runInfo},
	{"monitor", "", "print lifecycle events until interrupted", runMonitor},
}

func run(ctx context.Context, args []string, out io.Writer) error {
	var socketPath string
	var showVersion bool
	flagSet := pflag.NewFlagSet("pannetctl", pflag.ContinueOnError)
	flagSet.StringVarP(&socketPath, "socket", "s", defaultSocket, "pannetd bus socket")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	flagSet.SetInterspersed(false)
	flagSet.Usage = func() { printUsage(os.Stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return &process.UsageError{Err: err}
	}
	if showVersion {
		version.Print(out, "pannetctl")
		return nil
	}
	if flagSet.NArg() == 0 {
		printUsage(os.Stderr, flagSet)
		return process.Usagef("command required")
	}

	name, rest := flagSet.Arg(0), flagSet.Args()[1:]
	for _, c := range commands {
		if c.name == name {
			return c.run(ctx, bus.NewClient(socketPath), rest, out)
		}
	}
	return process.Usagef("unknown command %q", name)
}

func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, "Usage: pannetctl [flags] <command> [args]\n\nCommands:\n")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-40s %s\n", c.name+" "+c.args, c.summary)
	}
	fmt.Fprintf(w, "\nFlags:\n%s", flagSet.FlagUsages())
}

// requireArgs checks the positional argument count of a command.
func requireArgs(name string, args []string, want ...string) error {
	if len(args) != len(want) {
		return process.Usagef("%s takes %d argument(s): %v", name, len(want), want)
	}
	return nil
}
