// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

type sampleCall struct {
	Path   string `cbor:"path"`
	Member string `cbor:"member"`
	Args   []any  `cbor:"args,omitempty"`
}

func TestMarshalDeterministic(t *testing.T) {
	call := sampleCall{
		Path:   "/org/bluez/network",
		Member: "CreateServer",
		Args:   []any{"nap"},
	}

	first, err := Marshal(call)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	second, err := Marshal(call)
	if err != nil {
		t.Fatalf("second Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("deterministic encoding violated: %x != %x", first, second)
	}
}

func TestEncoderDecoderSequence(t *testing.T) {
	calls := []sampleCall{
		{Path: "/org/bluez/network", Member: "ListServers"},
		{Path: "/org/bluez/network", Member: "RemoveServer", Args: []any{"/org/bluez/network/server/1116"}},
	}

	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, call := range calls {
		if err := encoder.Encode(call); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for i, want := range calls {
		var got sampleCall
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode %d: %v", i, err)
		}
		if got.Path != want.Path || got.Member != want.Member || len(got.Args) != len(want.Args) {
			t.Errorf("call %d: got %+v, want %+v", i, got, want)
		}
	}
}

func TestDecodeAnyUsesStringKeyedMaps(t *testing.T) {
	data, err := Marshal(map[string]any{"info": map[string]any{"address": "00:11:22:33:44:55"}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	outer, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded type = %T, want map[string]any", decoded)
	}
	inner, ok := outer["info"].(map[string]any)
	if !ok {
		t.Fatalf("nested type = %T, want map[string]any", outer["info"])
	}
	if inner["address"] != "00:11:22:33:44:55" {
		t.Errorf("address = %v", inner["address"])
	}
}

func TestRawMessageDefersDecoding(t *testing.T) {
	type envelope struct {
		Member string     `cbor:"member"`
		Args   RawMessage `cbor:"args"`
	}
	data, err := Marshal(map[string]any{
		"member": "CreateConnection",
		"args":   []string{"00:11:22:33:44:55", "nap"},
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded envelope
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal envelope: %v", err)
	}
	var args []string
	if err := Unmarshal(decoded.Args, &args); err != nil {
		t.Fatalf("Unmarshal args: %v", err)
	}
	if len(args) != 2 || args[1] != "nap" {
		t.Errorf("args = %v", args)
	}
}
