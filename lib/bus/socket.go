// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/bureau-foundation/pannet/lib/codec"
)

// Request kinds.
const (
	KindCall      = "call"
	KindSubscribe = "subscribe"
)

// request is the first (and for calls, only) value a client writes.
type request struct {
	Kind      string           `cbor:"kind"`
	Path      string           `cbor:"path"`
	Interface string           `cbor:"interface,omitempty"`
	Member    string           `cbor:"member,omitempty"`
	Args      codec.RawMessage `cbor:"args,omitempty"`
}

// readTimeout is how long we wait for the client to send its request.
const readTimeout = 30 * time.Second

// writeTimeout bounds each reply or signal write.
const writeTimeout = 10 * time.Second

// maxRequestSize is the largest request accepted. Manager calls carry
// a couple of short strings.
const maxRequestSize = 64 * 1024

// SocketServer serves a Bus on a Unix socket. A call connection stays
// open until its reply is ready, however long that takes; a subscribe
// connection streams signals until the client disconnects or the
// server stops.
type SocketServer struct {
	socketPath string
	bus        *Bus
	logger     *slog.Logger

	activeConnections sync.WaitGroup
}

// NewSocketServer creates a server for b that will listen on
// socketPath.
func NewSocketServer(socketPath string, b *Bus, logger *slog.Logger) *SocketServer {
	return &SocketServer{
		socketPath: socketPath,
		bus:        b,
		logger:     logger,
	}
}

// Serve accepts connections until ctx is cancelled, then waits for
// active connections to finish. Calls still waiting for a reply at
// shutdown are failed with ErrorCanceled. A stale socket file is
// removed before listening and the socket file is removed on return.
func (s *SocketServer) Serve(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(s.socketPath)
	}()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("bus listening", "path", s.socketPath)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.activeConnections.Wait()
	return nil
}

func (s *SocketServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	peer := peerCredentials(conn)

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	var req request
	if err := codec.NewDecoder(io.LimitReader(conn, maxRequestSize)).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return
		}
		s.writeResponse(conn, Response{
			ErrorName: ErrorInvalidArguments,
			Error:     fmt.Sprintf("invalid request: %v", err),
		})
		return
	}
	conn.SetReadDeadline(time.Time{})

	if !ValidPath(req.Path) {
		s.writeResponse(conn, Response{
			ErrorName: ErrorInvalidArguments,
			Error:     fmt.Sprintf("invalid object path %q", req.Path),
		})
		return
	}

	switch req.Kind {
	case KindCall, "":
		s.serveCall(ctx, conn, peer, req)
	case KindSubscribe:
		s.serveSubscription(ctx, conn, peer, req.Path)
	default:
		s.writeResponse(conn, Response{
			ErrorName: ErrorInvalidArguments,
			Error:     fmt.Sprintf("unknown request kind %q", req.Kind),
		})
	}
}

func (s *SocketServer) serveCall(ctx context.Context, conn net.Conn, peer *PeerCredentials, req request) {
	call := NewCall(Message{
		Path:      req.Path,
		Interface: req.Interface,
		Member:    req.Member,
		Args:      req.Args,
	})
	call.Peer = peer

	s.logger.Debug("method call",
		"path", req.Path,
		"interface", req.Interface,
		"member", req.Member,
		"peer", peer,
	)

	s.bus.Dispatch(ctx, call)

	select {
	case <-call.Done():
	case <-ctx.Done():
		call.Fail(&RemoteError{Name: ErrorCanceled, Message: "bus shutting down"})
	}

	response := call.Response()
	if !response.OK {
		s.logger.Debug("method call failed",
			"path", req.Path,
			"member", req.Member,
			"error_name", response.ErrorName,
			"error", response.Error,
		)
	}
	s.writeResponse(conn, response)
}

func (s *SocketServer) serveSubscription(ctx context.Context, conn net.Conn, peer *PeerCredentials, prefix string) {
	signals, unsubscribe := s.bus.Subscribe(prefix)
	defer unsubscribe()

	s.logger.Debug("signal subscription", "prefix", prefix, "peer", peer)

	// Acknowledge so the client knows signals emitted from now on
	// will reach it.
	if !s.writeResponse(conn, Response{OK: true}) {
		return
	}

	// The client sends nothing more; a read returning means it hung up.
	hangup := make(chan struct{})
	go func() {
		io.Copy(io.Discard, conn)
		close(hangup)
	}()

	encoder := codec.NewEncoder(conn)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hangup:
			return
		case signal, ok := <-signals:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := encoder.Encode(signal); err != nil {
				s.logger.Debug("signal write failed", "prefix", prefix, "error", err)
				return
			}
		}
	}
}

// writeResponse sends one reply envelope. Write failures are logged at
// debug level; the connection is closing regardless.
func (s *SocketServer) writeResponse(conn net.Conn, response Response) bool {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := codec.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Debug("failed to write response", "error", err)
		return false
	}
	return true
}
