package server

import (
	"syscall"

	"github.com/adred-codev/kvcore/internal/client"
	"github.com/adred-codev/kvcore/internal/protocol"
)

// readChunkSize is the stack-buffer size for a single read.
const readChunkSize = 16 * 1024

// onReadable reads up to one chunk, appends to querybuf, enforces the hard
// querybuf cap, then hands off to the parser driver. Reads go straight
// through syscall.Read on the raw fd rather than net.Conn.Read: the reactor
// already gates this callback on the fd's own epoll readiness, and
// net.Conn's blocking API would park the single reactor goroutine on its
// own internal netpoller instead of treating EAGAIN as a benign retry.
//
// currentClient is set around the call so diagnostic code elsewhere in the
// reactor can identify the client mid-parse without threading it through
// every call (see DESIGN.md).
func (s *Server) onReadable(fd int, _ EventMask) {
	c, ok := s.clientByFD(fd)
	if !ok {
		return
	}

	var chunk [readChunkSize]byte
	n, err := syscall.Read(fd, chunk[:])

	if n == 0 {
		s.FreeClient(c) // peer closed
		return
	}
	if n < 0 {
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
			return
		}
		s.metrics.IOErrors.Inc()
		s.FreeClient(c)
		return
	}

	c.QueryBuf.Append(chunk[:n])
	c.Touch()
	s.metrics.BytesRead.Add(float64(n))

	if c.QueryBuf.Len() > s.cfg.ClientMaxQueryBufLen {
		s.logger.Warn().Int("fd", fd).Int("len", c.QueryBuf.Len()).Msg("querybuf limit exceeded, closing client")
		s.FreeClient(c)
		return
	}

	s.currentClient = c
	protocol.Drive(c, s.errSink, s.dispatcher)
	s.currentClient = nil

	if c.Detached() {
		return
	}
	if c.Flags&client.CloseAfterReply != 0 && !c.HasPendingOutput() {
		s.FreeClient(c)
	}
}
