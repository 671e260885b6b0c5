package protocol

import "github.com/adred-codev/kvcore/internal/client"

// Dispatcher is the external command-processing collaborator:
// ProcessCommand(client) -> {OK, not-OK}. OK means argv was consumed and the
// client should be reset; not-OK means the command took ownership of
// continuation (e.g. a blocking command) and must not be reset here.
type Dispatcher interface {
	ProcessCommand(c *client.Client) (ok bool)
}

// Drive is the top-level parser driver: while querybuf is non-empty and the
// client isn't closing, determine the request type, invoke the matching
// sub-parser, and on a complete parse either reset (empty command) or
// dispatch and conditionally reset.
func Drive(c *client.Client, errs ErrorSink, dispatch Dispatcher) {
	for c.QueryBuf.Len() > 0 {
		if c.Flags&client.CloseAfterReply != 0 {
			return
		}

		switch ParseRequest(c, errs) {
		case NeedMore:
			return
		case ProtocolError:
			// Bytes up to the error were already trimmed and
			// CloseAfterReply was set by setProtocolError; the outer
			// loop condition above will stop future iterations.
			continue
		case Complete:
			if len(c.Argv) == 0 {
				c.Reset()
				continue
			}
			if dispatch.ProcessCommand(c) {
				c.Reset()
			}
		}
	}
}
