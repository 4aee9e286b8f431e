// Package server wires and runs the blob server's transport layer.
//
// It owns the HTTP server lifecycle: startup, OS signal handling, and
// graceful shutdown with a bounded drain period.
package server
