// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/bureau-foundation/pannet/lib/bus"
	"github.com/bureau-foundation/pannet/lib/network"
)

func callManager(ctx context.Context, client *bus.Client, member string, args []any, result any) error {
	err := client.Call(ctx, string(network.ManagerPath), network.ManagerInterface, member, args, result)
	return network.FromRemote(err)
}

func printPaths(out io.Writer, paths []string) {
	for _, path := range paths {
		fmt.Fprintln(out, path)
	}
}

func runListServers(ctx context.Context, client *bus.Client, args []string, out io.Writer) error {
	if err := requireArgs("list-servers", args); err != nil {
		return err
	}
	var paths []string
	if err := callManager(ctx, client, "ListServers", nil, &paths); err != nil {
		return err
	}
	printPaths(out, paths)
	return nil
}

func runCreateServer(ctx context.Context, client *bus.Client, args []string, out io.Writer) error {
	if err := requireArgs("create-server", args, "service"); err != nil {
		return err
	}
	var path string
	if err := callManager(ctx, client, "CreateServer", []any{args[0]}, &path); err != nil {
		return err
	}
	fmt.Fprintln(out, path)
	return nil
}

func runRemoveServer(ctx context.Context, client *bus.Client, args []string, _ io.Writer) error {
	if err := requireArgs("remove-server", args, "path"); err != nil {
		return err
	}
	return callManager(ctx, client, "RemoveServer", []any{args[0]}, nil)
}

func runListConnections(ctx context.Context, client *bus.Client, args []string, out io.Writer) error {
	if err := requireArgs("list-connections", args); err != nil {
		return err
	}
	var paths []string
	if err := callManager(ctx, client, "ListConnections", nil, &paths); err != nil {
		return err
	}
	printPaths(out, paths)
	return nil
}

func runCreateConnection(ctx context.Context, client *bus.Client, args []string, out io.Writer) error {
	if err := requireArgs("create-connection", args, "address", "service"); err != nil {
		return err
	}
	var path string
	if err := callManager(ctx, client, "CreateConnection", []any{args[0], args[1]}, &path); err != nil {
		return err
	}
	fmt.Fprintln(out, path)
	return nil
}

func runRemoveConnection(ctx context.Context, client *bus.Client, args []string, _ io.Writer) error {
	if err := requireArgs("remove-connection", args, "path"); err != nil {
		return err
	}
	return callManager(ctx, client, "RemoveConnection", []any{args[0]}, nil)
}

func runInfo(ctx context.Context, client *bus.Client, args []string, out io.Writer) error {
	if err := requireArgs("info", args, "path"); err != nil {
		return err
	}
	path := args[0]

	var info any
	var err error
	switch {
	case strings.HasPrefix(path, string(network.ManagerPath)+"/server/"):
		var server network.ServerInfo
		err = client.Call(ctx, path, network.ServerInterface, "GetInfo", nil, &server)
		info = server
	case strings.HasPrefix(path, string(network.ManagerPath)+"/connection"):
		var connection network.ConnectionInfo
		err = client.Call(ctx, path, network.ConnectionInterface, "GetInfo", nil, &connection)
		info = connection
	default:
		return fmt.Errorf("%s is not a server or connection path", path)
	}
	if err != nil {
		return network.FromRemote(err)
	}

	encoder := json.NewEncoder(out)
	if isTerminal(out) {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(info)
}

// isTerminal reports whether out is an interactive terminal. Piped
// output stays one JSON object per line.
func isTerminal(out io.Writer) bool {
	file, ok := out.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

func runMonitor(ctx context.Context, client *bus.Client, args []string, out io.Writer) error {
	if err := requireArgs("monitor", args); err != nil {
		return err
	}
	subscription, err := client.Subscribe(ctx, string(network.ManagerPath))
	if err != nil {
		return err
	}
	defer subscription.Close()

	for {
		signal, err := subscription.Next()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("event stream ended: %w", err)
		}
		var path string
		if err := signal.DecodeArgs(&path); err != nil {
			fmt.Fprintf(out, "%s (undecodable arguments: %v)\n", signal.Member, err)
			continue
		}
		fmt.Fprintf(out, "%s %s\n", signal.Member, path)
	}
}
