// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bus

import "log/slog"

// PeerCredentials identifies the process on the other end of a Unix
// socket.
type PeerCredentials struct {
	PID int32
	UID uint32
	GID uint32
}

// LogValue renders the credentials as a log group.
func (p *PeerCredentials) LogValue() slog.Value {
	if p == nil {
		return slog.StringValue("in-process")
	}
	return slog.GroupValue(
		slog.Int("pid", int(p.PID)),
		slog.Uint64("uid", uint64(p.UID)),
		slog.Uint64("gid", uint64(p.GID)),
	)
}
