// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the entrypoint helpers shared by pannetd and
// pannetctl: reporting an error to stderr before the structured logger
// exists, and choosing the exit status.
package process
