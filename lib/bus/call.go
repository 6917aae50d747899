// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bus

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bureau-foundation/pannet/lib/codec"
)

// Call is an in-flight method call. Exactly one of Return or Fail takes
// effect; Done is closed once it has.
type Call struct {
	Message

	// Peer identifies the calling process when the call arrived over a
	// Unix socket. Nil for in-process calls.
	Peer *PeerCredentials

	once     sync.Once
	done     chan struct{}
	response Response
}

// NewCall wraps msg for dispatch.
func NewCall(msg Message) *Call {
	return &Call{Message: msg, done: make(chan struct{})}
}

// DecodeArgs decodes the call arguments; see [DecodeArgs].
func (c *Call) DecodeArgs(targets ...any) error {
	return DecodeArgs(c.Args, targets...)
}

// Return replies with value, which is CBOR-encoded into the response
// data. A nil value replies with no data. Reports whether this was the
// call's reply.
func (c *Call) Return(value any) bool {
	response := Response{OK: true}
	if value != nil {
		data, err := codec.Marshal(value)
		if err != nil {
			return c.Fail(fmt.Errorf("internal: marshaling reply: %w", err))
		}
		response.Data = data
	}
	return c.finish(response)
}

// Fail replies with err. The error name comes from the first
// NamedError in err's chain, or ErrorFailed. Reports whether this was
// the call's reply.
func (c *Call) Fail(err error) bool {
	name := ErrorFailed
	var named NamedError
	if errors.As(err, &named) {
		name = named.ErrorName()
	}
	message := err.Error()
	var remote *RemoteError
	if errors.As(err, &remote) && remote == err {
		message = remote.Message
	}
	return c.finish(Response{OK: false, ErrorName: name, Error: message})
}

func (c *Call) finish(response Response) bool {
	delivered := false
	c.once.Do(func() {
		c.response = response
		delivered = true
		close(c.done)
	})
	return delivered
}

// Done is closed once the call has its reply.
func (c *Call) Done() <-chan struct{} { return c.done }

// Response returns the reply. Only meaningful after Done is closed.
func (c *Call) Response() Response {
	<-c.done
	return c.response
}
