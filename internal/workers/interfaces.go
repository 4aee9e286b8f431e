// Package workers manages the application's long-lived background
// workers. It defines the Worker contract and a Workers aggregate that
// starts and stops them as a group.
package workers

import "context"

// Worker is a background task tied to the application lifetime.
// Run must not block: implementations launch their own goroutines and
// return. The context bounds the worker's whole lifetime.
//
// Example implementation:
//
//	type MyWorker struct{}
//
//	func (w *MyWorker) Run(ctx context.Context) {
//	    // start background processing
//	}
//
//	func (w *MyWorker) Stop() {
//	    // block until processing has wound down
//	}
type Worker interface {
	Run(ctx context.Context)
	Stop()
}
