package server

import (
	"syscall"

	"github.com/adred-codev/kvcore/internal/client"
	"github.com/adred-codev/kvcore/internal/reply"
)

// DefaultWriteCapPerEvent bounds how many bytes a single writable event may
// drain for one client, so one busy client cannot starve the others sharing
// the reactor goroutine.
const DefaultWriteCapPerEvent = 64 * 1024

// onWritable drains the fixed buffer, then the reply list, under a per-tick
// byte cap, uninstalling writable interest once idle and honoring
// CloseAfterReply. Writes go straight through syscall.Write on the raw fd
// for the same reason onReadable uses syscall.Read: the reactor already
// gates this callback on writability, and a benign EAGAIN from a partial
// kernel buffer must be retried on the next writable event, not treated as
// an error.
func (s *Server) onWritable(fd int, _ EventMask) {
	c, ok := s.clientByFD(fd)
	if !ok {
		return
	}

	writeCap := DefaultWriteCapPerEvent
	if s.WriteCapPolicy != nil {
		writeCap = s.WriteCapPolicy()
	}

	var totwritten int
	for c.BufPos > 0 || c.Reply.Len() > 0 {
		var head []byte
		usingBuf := c.BufPos > 0

		var frontObj *reply.Object
		if usingBuf {
			head = c.Buf[c.SentLen:c.BufPos]
		} else {
			front := c.Reply.Front()
			frontObj = front.Value.(*reply.Object)
			if frontObj.Len() == 0 {
				c.Reply.Remove(front)
				continue
			}
			head = frontObj.Payload[c.SentLen:]
		}

		n, err := syscall.Write(fd, head)
		if n <= 0 {
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
				break
			}
			s.metrics.IOErrors.Inc()
			s.FreeClient(c)
			return
		}

		c.SentLen += n
		totwritten += n
		c.Touch()
		s.metrics.BytesWritten.Add(float64(n))

		if n == len(head) {
			if usingBuf {
				c.BufPos = 0
			} else {
				front := c.Reply.Front()
				c.Reply.Remove(front)
				c.ReplyBytes -= frontObj.Len()
				frontObj.Release()
			}
			c.SentLen = 0
		}

		if totwritten > writeCap {
			break
		}
	}

	if c.Detached() {
		return
	}

	if c.BufPos == 0 && c.Reply.Len() == 0 {
		c.SentLen = 0
		if err := s.poller.Register(fd, Readable, s.onClientEvent); err != nil {
			s.logger.Warn().Err(err).Int("fd", fd).Msg("failed to drop writable interest after drain")
		}
		c.WriteInterestInstalled = false

		if c.Flags&client.CloseAfterReply != 0 {
			s.FreeClient(c)
		}
	}
}
