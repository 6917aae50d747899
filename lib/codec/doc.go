// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR encoding configuration used on the
// network manager bus.
//
// Every bus message, reply envelope, and signal frame is a single CBOR
// value. CBOR is self-delimiting, so a socket carries a plain sequence
// of values with no extra framing. The encoder uses Core Deterministic
// Encoding (RFC 8949 §4.2) so that the same message always encodes to
// the same bytes, which keeps test fixtures and captured traffic
// comparable.
//
// For buffers:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For sockets:
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// Bus types carry `cbor` struct tags. Types that are also printed by
// the CLI as JSON carry `json` tags instead; fxamacker/cbor falls back
// to `json` tags when no `cbor` tag is present.
package codec
