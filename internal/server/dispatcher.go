package server

import (
	"bytes"

	"github.com/adred-codev/kvcore/internal/client"
	"github.com/adred-codev/kvcore/internal/reply"
	"github.com/adred-codev/kvcore/internal/writer"
)

// DefaultDispatcher is an in-memory command table covering PING, ECHO, SET,
// GET, DEL, COMMAND, and QUIT, enough to exercise the parser, writer, and
// drainer end to end without a persistence or replication layer. No mutex
// guards store: only the reactor goroutine ever calls ProcessCommand.
type DefaultDispatcher struct {
	w     *writer.Writer
	store map[string][]byte
}

func NewDefaultDispatcher(w *writer.Writer) *DefaultDispatcher {
	return &DefaultDispatcher{w: w, store: make(map[string][]byte)}
}

// ProcessCommand implements protocol.Dispatcher. It always returns true:
// these commands never block, so the client is reset after every one.
func (d *DefaultDispatcher) ProcessCommand(c *client.Client) bool {
	if len(c.Argv) == 0 {
		return true
	}

	name := string(bytes.ToUpper(c.Argv[0].Decode()))
	c.LastCmd = name
	args := c.Argv[1:]

	switch name {
	case "PING":
		if len(args) == 0 {
			d.w.AddReply(c, reply.Shared.Pong.Dup())
		} else {
			d.w.AddReplyBulkCBuffer(c, args[0].Decode())
		}
	case "ECHO":
		if len(args) != 1 {
			d.w.AddReplyError(c, "wrong number of arguments for 'echo' command")
			return true
		}
		d.w.AddReplyBulkCBuffer(c, args[0].Decode())
	case "SET":
		if len(args) != 2 {
			d.w.AddReplyError(c, "wrong number of arguments for 'set' command")
			return true
		}
		d.store[string(args[0].Decode())] = append([]byte(nil), args[1].Decode()...)
		d.w.AddReply(c, reply.Shared.OK.Dup())
	case "GET":
		if len(args) != 1 {
			d.w.AddReplyError(c, "wrong number of arguments for 'get' command")
			return true
		}
		v, ok := d.store[string(args[0].Decode())]
		if !ok {
			d.w.AddReplyBulkCString(c, nil)
		} else {
			d.w.AddReplyBulkCBuffer(c, v)
		}
	case "DEL":
		var n int64
		for _, a := range args {
			if _, ok := d.store[string(a.Decode())]; ok {
				delete(d.store, string(a.Decode()))
				n++
			}
		}
		d.w.AddReplyLongLong(c, n)
	case "COMMAND":
		d.w.AddReplyBulkCString(c, nil)
	case "QUIT":
		d.w.AddReply(c, reply.Shared.OK.Dup())
		c.Flags |= client.CloseAfterReply
	default:
		d.w.AddReplyError(c, "unknown command '"+name+"'")
	}

	return true
}
