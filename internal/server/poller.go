// Package server wires together the acceptor, reactor, reader, drainer, and
// timeout sweeper into a running TCP service. The Poller interface captures
// just the capability a single-threaded reactor needs: register,
// unregister, and query the currently registered mask for an fd, with
// readable/writable levels. It generalizes a listener-only edge-triggered
// epoll sketch into a full per-connection, level-triggered reactor.
package server

import (
	"context"
	"time"
)

// EventMask is a bitset of event kinds a Poller can report.
type EventMask uint8

const (
	Readable EventMask = 1 << iota
	Writable
)

// Callback is invoked by the reactor when fd becomes ready for the kinds in
// mask. It runs on the single reactor goroutine; it must never block.
type Callback func(fd int, mask EventMask)

// Poller is the minimal event-loop capability the reactor needs from its
// collaborator: register/unregister (fd, direction, callback), and query
// the currently registered mask.
type Poller interface {
	// Register starts watching fd for the given mask, invoking cb on
	// readiness. Calling Register again for an fd already registered
	// replaces its mask and callback (used by the drainer to add/drop
	// Writable interest).
	Register(fd int, mask EventMask, cb Callback) error

	// Unregister stops watching fd entirely.
	Unregister(fd int) error

	// Mask reports the currently registered mask for fd, and whether fd
	// is registered at all.
	Mask(fd int) (EventMask, bool)

	// Run drives the event loop until ctx is canceled or Close is called.
	Run(ctx context.Context) error

	// Close releases the poller's own resources (e.g. the epoll fd).
	Close() error

	// AfterFunc schedules fn to run on the reactor goroutine every period,
	// used to drive the timeout sweeper without a second thread.
	AfterFunc(period time.Duration, fn func()) (cancel func())
}
