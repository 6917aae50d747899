// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bus

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/bureau-foundation/pannet/lib/codec"
)

// dialTimeout covers only the connect phase.
const dialTimeout = 5 * time.Second

// maxResponseSize is the largest reply the client accepts.
const maxResponseSize = 1024 * 1024

// Client calls objects on a bus served by a SocketServer. Each Call
// uses its own connection.
type Client struct {
	socketPath string
}

// NewClient returns a client for the bus at socketPath.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// Call invokes member on the object at path and decodes the reply data
// into result (if non-nil). A failure reply is returned as
// *RemoteError; transport problems are returned as plain errors.
//
// There is no read deadline beyond ctx: some methods, such as
// CreateConnection, reply only after remote round trips.
func (c *Client) Call(ctx context.Context, path, iface, member string, args []any, result any) error {
	raw, err := EncodeArgs(args...)
	if err != nil {
		return err
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := codec.NewEncoder(conn).Encode(request{
		Kind:      KindCall,
		Path:      path,
		Interface: iface,
		Member:    member,
		Args:      raw,
	}); err != nil {
		return fmt.Errorf("writing %s.%s request: %w", iface, member, err)
	}
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	var response Response
	if err := codec.NewDecoder(io.LimitReader(conn, maxResponseSize)).Decode(&response); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("reading %s.%s reply: %w", iface, member, err)
	}

	if err := response.Err(); err != nil {
		return err
	}
	if result != nil {
		if err := response.Decode(result); err != nil {
			return fmt.Errorf("decoding %s.%s reply: %w", iface, member, err)
		}
	}
	return nil
}

// Subscription is an open signal stream.
type Subscription struct {
	conn    net.Conn
	decoder *codec.Decoder
	stop    func() bool
}

// Subscribe opens a signal stream for prefix and everything below it.
// It returns once the server has registered the subscription, so any
// signal emitted afterwards will be delivered.
func (c *Client) Subscribe(ctx context.Context, prefix string) (*Subscription, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}

	if err := codec.NewEncoder(conn).Encode(request{Kind: KindSubscribe, Path: prefix}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("writing subscribe request: %w", err)
	}

	decoder := codec.NewDecoder(conn)
	var ack Response
	if err := decoder.Decode(&ack); err != nil {
		conn.Close()
		return nil, fmt.Errorf("reading subscribe acknowledgement: %w", err)
	}
	if err := ack.Err(); err != nil {
		conn.Close()
		return nil, err
	}

	return &Subscription{
		conn:    conn,
		decoder: decoder,
		stop:    context.AfterFunc(ctx, func() { conn.Close() }),
	}, nil
}

// Next blocks for the next signal. It returns an error once the stream
// ends.
func (s *Subscription) Next() (Signal, error) {
	var signal Signal
	if err := s.decoder.Decode(&signal); err != nil {
		return Signal{}, err
	}
	return signal, nil
}

// Close ends the subscription.
func (s *Subscription) Close() error {
	s.stop()
	return s.conn.Close()
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", c.socketPath, err)
	}
	return conn, nil
}
