// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package network

import (
	"errors"

	"github.com/bureau-foundation/pannet/lib/bus"
)

// Kind classifies manager failures.
type Kind int

const (
	// InvalidArguments: the request has the wrong shape.
	InvalidArguments Kind = iota + 1

	// UnsupportedService: the service name is not a usable role.
	UnsupportedService

	// AdapterUnavailable: no local adapter to operate through.
	AdapterUnavailable

	// ConnectionAttemptFailed: the remote refused or was unreachable
	// during discovery, or a discovery stage timed out.
	ConnectionAttemptFailed

	// NotSupported: the remote has no matching service, or its record
	// is empty.
	NotSupported

	// AlreadyExists is never surfaced: CreateServer for a role that
	// already has a server returns the existing path.
	AlreadyExists

	// Conflict: a promoted connection path is already registered.
	// Correlation ids make this unreachable under correct sequencing.
	Conflict

	// NotFound: remove targeted a path that is not registered.
	NotFound

	// RegistrationFailed: binding a path on the bus, or promotion,
	// failed.
	RegistrationFailed

	// UnknownObject: a call addressed a path under the manager that
	// names no object.
	UnknownObject

	// Canceled: the manager shut down before the request finished.
	Canceled
)

var kindNames = map[Kind]string{
	InvalidArguments:        bus.ErrorInvalidArguments,
	UnsupportedService:      "org.bluez.Error.UnsupportedService",
	AdapterUnavailable:      "org.bluez.Error.NoSuchAdapter",
	ConnectionAttemptFailed: "org.bluez.Error.ConnectionAttemptFailed",
	NotSupported:            "org.bluez.Error.NotSupported",
	AlreadyExists:           "org.bluez.Error.AlreadyExists",
	Conflict:                "org.bluez.Error.Conflict",
	NotFound:                "org.bluez.Error.DoesNotExist",
	RegistrationFailed:      bus.ErrorFailed,
	UnknownObject:           "org.bluez.Error.UnknownConnection",
	Canceled:                bus.ErrorCanceled,
}

var kindStrings = map[Kind]string{
	InvalidArguments:        "invalid arguments",
	UnsupportedService:      "unsupported service",
	AdapterUnavailable:      "adapter unavailable",
	ConnectionAttemptFailed: "connection attempt failed",
	NotSupported:            "not supported",
	AlreadyExists:           "already exists",
	Conflict:                "conflict",
	NotFound:                "not found",
	RegistrationFailed:      "registration failed",
	UnknownObject:           "unknown object",
	Canceled:                "canceled",
}

func (k Kind) String() string {
	if s, ok := kindStrings[k]; ok {
		return s
	}
	return "unknown error kind"
}

// ErrorName is the bus error name replies of this kind carry.
func (k Kind) ErrorName() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return bus.ErrorFailed
}

// Error is a manager failure. Message is the human-readable detail
// sent to the caller; Err, if set, is the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func wrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	message := e.Message
	if message == "" {
		message = e.Kind.String()
	}
	if e.Err != nil {
		return message + ": " + e.Err.Error()
	}
	return message
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorName implements bus.NamedError.
func (e *Error) ErrorName() string { return e.Kind.ErrorName() }

// Is matches another *Error of the same Kind, so the sentinels below
// work with errors.Is.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind && other.Message == "" && other.Err == nil
}

// Sentinels for errors.Is.
var (
	ErrInvalidArguments        = &Error{Kind: InvalidArguments}
	ErrUnsupportedService      = &Error{Kind: UnsupportedService}
	ErrAdapterUnavailable      = &Error{Kind: AdapterUnavailable}
	ErrConnectionAttemptFailed = &Error{Kind: ConnectionAttemptFailed}
	ErrNotSupported            = &Error{Kind: NotSupported}
	ErrConflict                = &Error{Kind: Conflict}
	ErrNotFound                = &Error{Kind: NotFound}
	ErrRegistrationFailed      = &Error{Kind: RegistrationFailed}
	ErrUnknownObject           = &Error{Kind: UnknownObject}
	ErrCanceled                = &Error{Kind: Canceled}
)

// FromRemote converts a failure reply received over the bus back into
// an *Error when its name belongs to the manager. Other errors are
// returned unchanged.
func FromRemote(err error) error {
	var remote *bus.RemoteError
	if !errors.As(err, &remote) {
		return err
	}
	for kind, name := range kindNames {
		if name == remote.Name {
			return &Error{Kind: kind, Message: remote.Message}
		}
	}
	return err
}
