// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bus

import (
	"fmt"
	"strings"

	"github.com/bureau-foundation/pannet/lib/codec"
)

// Error names produced by the bus itself. Handlers supply their own
// names through [NamedError].
const (
	ErrorUnknownMethod    = "org.bluez.Error.UnknownMethod"
	ErrorFailed           = "org.bluez.Error.Failed"
	ErrorInvalidArguments = "org.bluez.Error.InvalidArguments"
	ErrorCanceled         = "org.bluez.Error.Canceled"
)

// Message is a method call addressed to an object.
type Message struct {
	Path      string           `cbor:"path"`
	Interface string           `cbor:"interface"`
	Member    string           `cbor:"member"`
	Args      codec.RawMessage `cbor:"args,omitempty"`
}

// Signal is a broadcast from an object to subscribers.
type Signal struct {
	Path      string           `cbor:"path"`
	Interface string           `cbor:"interface"`
	Member    string           `cbor:"member"`
	Args      codec.RawMessage `cbor:"args,omitempty"`
}

// NewSignal builds a Signal carrying args as a CBOR array.
func NewSignal(path, iface, member string, args ...any) (Signal, error) {
	raw, err := EncodeArgs(args...)
	if err != nil {
		return Signal{}, err
	}
	return Signal{Path: path, Interface: iface, Member: member, Args: raw}, nil
}

// DecodeArgs decodes the signal arguments; see [DecodeArgs].
func (s Signal) DecodeArgs(targets ...any) error {
	return DecodeArgs(s.Args, targets...)
}

// Response is the reply envelope for a method call.
type Response struct {
	OK        bool             `cbor:"ok"`
	ErrorName string           `cbor:"error_name,omitempty"`
	Error     string           `cbor:"error,omitempty"`
	Data      codec.RawMessage `cbor:"data,omitempty"`
}

// Err returns nil for a successful response, otherwise a *RemoteError.
func (r Response) Err() error {
	if r.OK {
		return nil
	}
	return &RemoteError{Name: r.ErrorName, Message: r.Error}
}

// Decode unmarshals the reply data into v. A reply without data leaves
// v untouched.
func (r Response) Decode(v any) error {
	if len(r.Data) == 0 {
		return nil
	}
	return codec.Unmarshal(r.Data, v)
}

// NamedError is an error that carries a bus error name.
type NamedError interface {
	error
	ErrorName() string
}

// RemoteError is a failure reply as seen by the caller.
type RemoteError struct {
	Name    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return e.Name
	}
	return e.Name + ": " + e.Message
}

// ErrorName implements NamedError, so a RemoteError relayed through
// another handler keeps its name.
func (e *RemoteError) ErrorName() string { return e.Name }

// EncodeArgs encodes args as a CBOR array. No arguments encode to nil.
func EncodeArgs(args ...any) (codec.RawMessage, error) {
	if len(args) == 0 {
		return nil, nil
	}
	data, err := codec.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encoding arguments: %w", err)
	}
	return codec.RawMessage(data), nil
}

// DecodeArgs decodes a CBOR argument array into targets, one element
// per target. The number of elements must match exactly.
func DecodeArgs(raw codec.RawMessage, targets ...any) error {
	var elements []codec.RawMessage
	if len(raw) > 0 {
		if err := codec.Unmarshal(raw, &elements); err != nil {
			return fmt.Errorf("arguments are not an array: %w", err)
		}
	}
	if len(elements) != len(targets) {
		return fmt.Errorf("expected %d arguments, got %d", len(targets), len(elements))
	}
	for i, element := range elements {
		if err := codec.Unmarshal(element, targets[i]); err != nil {
			return fmt.Errorf("argument %d: %w", i, err)
		}
	}
	return nil
}

// ValidPath reports whether path is a well-formed object path: "/" or
// a sequence of "/element" where each element is non-empty and made of
// ASCII letters, digits, and underscores.
func ValidPath(path string) bool {
	if path == "/" {
		return true
	}
	if !strings.HasPrefix(path, "/") || strings.HasSuffix(path, "/") {
		return false
	}
	for _, element := range strings.Split(path[1:], "/") {
		if element == "" {
			return false
		}
		for _, r := range element {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			default:
				return false
			}
		}
	}
	return true
}

// covers reports whether prefix is path itself or one of its ancestors.
func covers(prefix, path string) bool {
	if prefix == "/" || prefix == path {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}
