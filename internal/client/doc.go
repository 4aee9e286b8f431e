// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package client implements the headless sync agent runtime.
//
// It wires local storage, the remote transport, and the sync services into
// a single process lifecycle driven by background workers.
package client
