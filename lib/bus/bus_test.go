// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/bureau-foundation/pannet/lib/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func returning(value any) HandlerFunc {
	return func(_ context.Context, call *Call) Result {
		call.Return(value)
		return Handled
	}
}

func declining() HandlerFunc {
	return func(context.Context, *Call) Result { return NotYetHandled }
}

func callOn(t *testing.T, b *Bus, path string) Response {
	t.Helper()
	response, err := b.Call(context.Background(), Message{Path: path, Interface: "test.Iface", Member: "Ping"})
	if err != nil {
		t.Fatalf("Call(%s): %v", path, err)
	}
	return response
}

func TestDispatchPrefersExactPath(t *testing.T) {
	b := New(testLogger())
	if err := b.Bind("/org/test/thing", returning("exact")); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := b.BindFallback("/org/test", returning("fallback")); err != nil {
		t.Fatalf("BindFallback: %v", err)
	}

	var got string
	if err := callOn(t, b, "/org/test/thing").Decode(&got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != "exact" {
		t.Errorf("exact path routed to %q", got)
	}

	if err := callOn(t, b, "/org/test/other").Decode(&got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != "fallback" {
		t.Errorf("child path routed to %q", got)
	}
}

func TestDispatchFallsThroughDecliningHandlers(t *testing.T) {
	b := New(testLogger())
	b.Bind("/org/test", declining())
	b.BindFallback("/org/test", declining())
	b.BindFallback("/org", returning("outer"))

	var got string
	if err := callOn(t, b, "/org/test").Decode(&got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != "outer" {
		t.Errorf("routed to %q, want outer", got)
	}
}

func TestDispatchUnclaimedCallIsUnknownMethod(t *testing.T) {
	b := New(testLogger())
	b.BindFallback("/org/test", declining())

	for _, path := range []string{"/org/test/x", "/elsewhere"} {
		err := callOn(t, b, path).Err()
		var remote *RemoteError
		if !errors.As(err, &remote) || remote.Name != ErrorUnknownMethod {
			t.Errorf("%s: err = %v, want %s", path, err, ErrorUnknownMethod)
		}
	}
}

func TestFallbackDoesNotMatchSiblingPrefix(t *testing.T) {
	b := New(testLogger())
	b.BindFallback("/org/test", returning("test"))

	err := callOn(t, b, "/org/testing").Err()
	if err == nil {
		t.Fatal("/org/testing was routed to the /org/test fallback")
	}
}

func TestBindUnbindErrors(t *testing.T) {
	b := New(testLogger())
	if err := b.Bind("/a/b", returning(nil)); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := b.Bind("/a/b", returning(nil)); !errors.Is(err, ErrPathInUse) {
		t.Errorf("second Bind = %v, want ErrPathInUse", err)
	}
	if !b.Bound("/a/b") {
		t.Error("Bound(/a/b) = false")
	}
	if err := b.Unbind("/a/b"); err != nil {
		t.Fatalf("Unbind: %v", err)
	}
	if err := b.Unbind("/a/b"); !errors.Is(err, ErrNotBound) {
		t.Errorf("second Unbind = %v, want ErrNotBound", err)
	}
	for _, bad := range []string{"", "a/b", "/a/", "/a//b", "/a-b"} {
		if err := b.Bind(bad, returning(nil)); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Bind(%q) = %v, want ErrInvalidPath", bad, err)
		}
	}
}

func TestCallRepliesExactlyOnce(t *testing.T) {
	call := NewCall(Message{Path: "/x"})
	if !call.Fail(errors.New("first")) {
		t.Fatal("first Fail not delivered")
	}
	if call.Return("second") {
		t.Fatal("Return after Fail was delivered")
	}
	if call.Fail(errors.New("third")) {
		t.Fatal("second Fail was delivered")
	}
	response := call.Response()
	if response.OK || response.Error != "first" || response.ErrorName != ErrorFailed {
		t.Errorf("response = %+v", response)
	}
}

type namedTestError struct{}

func (namedTestError) Error() string     { return "path does not exist" }
func (namedTestError) ErrorName() string { return "org.test.Error.DoesNotExist" }

func TestFailUsesNamedError(t *testing.T) {
	call := NewCall(Message{Path: "/x"})
	call.Fail(namedTestError{})
	err := call.Response().Err()
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("Err() = %T", err)
	}
	if remote.Name != "org.test.Error.DoesNotExist" || remote.Message != "path does not exist" {
		t.Errorf("remote = %+v", remote)
	}

	relayed := NewCall(Message{Path: "/y"})
	relayed.Fail(remote)
	if got := relayed.Response(); got.ErrorName != remote.Name || got.Error != remote.Message {
		t.Errorf("relayed response = %+v", got)
	}
}

func TestDecodeArgs(t *testing.T) {
	raw, err := EncodeArgs("00:11:22:33:44:55", "nap")
	if err != nil {
		t.Fatalf("EncodeArgs: %v", err)
	}

	var address, service string
	if err := DecodeArgs(raw, &address, &service); err != nil {
		t.Fatalf("DecodeArgs: %v", err)
	}
	if address != "00:11:22:33:44:55" || service != "nap" {
		t.Errorf("decoded %q %q", address, service)
	}

	if err := DecodeArgs(raw, &address); err == nil {
		t.Error("expected arity error")
	}
	var number uint32
	if err := DecodeArgs(raw, &number, &service); err == nil {
		t.Error("expected type error decoding a string into uint32")
	}
	if err := DecodeArgs(nil); err != nil {
		t.Errorf("zero arguments: %v", err)
	}
	if err := DecodeArgs(nil, &address); err == nil {
		t.Error("expected arity error for missing argument")
	}
}

func TestEmitFiltersByPrefix(t *testing.T) {
	b := New(testLogger())
	signals, unsubscribe := b.Subscribe("/org/test")
	defer unsubscribe()

	outside, _ := NewSignal("/org/other", "test.Iface", "Changed")
	inside, _ := NewSignal("/org/test", "test.Iface", "Created", "/org/test/1")
	b.Emit(outside)
	b.Emit(inside)

	got := testutil.RequireReceive(t, signals, 5*time.Second, "waiting for signal")
	if got.Member != "Created" {
		t.Fatalf("received %s, want Created", got.Member)
	}
	var path string
	if err := got.DecodeArgs(&path); err != nil || path != "/org/test/1" {
		t.Errorf("signal arg = %q (%v)", path, err)
	}
	testutil.RequireNoReceive(t, signals, 50*time.Millisecond, "signal outside prefix")
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New(testLogger())
	signals, unsubscribe := b.Subscribe("/")
	unsubscribe()
	unsubscribe()

	if _, ok := <-signals; ok {
		t.Fatal("channel still open after unsubscribe")
	}
	signal, _ := NewSignal("/x", "i", "m")
	b.Emit(signal)
}
