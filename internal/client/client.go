// Package client holds the per-connection state machine: socket handle,
// input buffer, parser cursor, argument vector, and the two-tier output
// path (fixed buffer + reply list).
package client

import (
	"container/list"
	"net"
	"time"

	"github.com/adred-codev/kvcore/internal/buffer"
	"github.com/adred-codev/kvcore/internal/reply"
)

// ReqType is the parser mode for the request currently being read.
type ReqType int

const (
	ReqUnknown ReqType = iota
	ReqInline
	ReqMultibulk
)

// Flags is a bitset of client-level latches.
type Flags uint32

const (
	// CloseAfterReply is the one-way latch: once set, no further bytes may
	// be appended, and the drainer closes the client once buf and the
	// reply list are both empty.
	CloseAfterReply Flags = 1 << iota
)

const (
	// FixedBufSize is the per-client staging buffer size (IOBUF_LEN).
	FixedBufSize = 16 * 1024
	// ReplyChunkBytes bounds how large a coalesced tail object may grow.
	ReplyChunkBytes = 16 * 1024
)

// Client is the per-connection record the reactor drives.
type Client struct {
	Conn net.Conn
	FD   int // mirrors Conn's file descriptor for the reactor; 0 once detached

	QueryBuf *buffer.Growable

	ReqType      ReqType
	MultibulkLen int
	BulkLen      int // -1 means "header not yet seen"

	Argv []*reply.Object

	// Buf is the fixed outbound staging buffer; only Buf[:BufPos] is valid.
	Buf    [FixedBufSize]byte
	BufPos int

	// Reply is the ordered list of *reply.Object queued after Buf drains.
	Reply      *list.List
	ReplyBytes int

	// SentLen is how many bytes of the current head unit (Buf or Reply's
	// front) have already been written.
	SentLen int

	Flags Flags

	LastInteraction time.Time
	CreatedAt       time.Time

	// WriteInterestInstalled mirrors whether the reactor currently watches
	// this fd for writability. The reply writer does not read it: it
	// decides whether to install interest from BufPos and the reply list.
	WriteInterestInstalled bool

	// LastCmd is purely for introspection (Info's cmd=...).
	LastCmd string
}

// New constructs a freshly connected Client. The caller is responsible for
// event-loop registration: the reactor package owns that, since this
// package must not import it, which would create an import cycle with the
// very thing that drives Client.
func New(conn net.Conn, fd int) *Client {
	return &Client{
		Conn:            conn,
		FD:              fd,
		QueryBuf:        buffer.NewGrowable(1024),
		ReqType:         ReqUnknown,
		BulkLen:         -1,
		Reply:           list.New(),
		LastInteraction: time.Now(),
		CreatedAt:       time.Now(),
	}
}

// Detached reports whether the client has already been torn down (fd <= 0).
func (c *Client) Detached() bool {
	return c.FD <= 0
}

// Reset prepares the client to parse the next request: frees argv and
// parser cursor state but preserves QueryBuf so pipelined requests keep
// working (resetClient).
func (c *Client) Reset() {
	c.Argv = nil
	c.ReqType = ReqUnknown
	c.MultibulkLen = 0
	c.BulkLen = -1
}

// HasPendingOutput reports whether there is anything left to drain.
func (c *Client) HasPendingOutput() bool {
	return c.BufPos > 0 || c.Reply.Len() > 0
}

// BufEmpty reports whether the fixed outbound buffer currently holds nothing.
func (c *Client) BufEmpty() bool {
	return c.BufPos == 0
}

// Touch records a successful read or non-empty write (lastinteraction).
func (c *Client) Touch() {
	c.LastInteraction = time.Now()
}

// IdleSeconds returns how long it has been since the last interaction.
func (c *Client) IdleSeconds() float64 {
	return time.Since(c.LastInteraction).Seconds()
}
