// Package protocol implements the two sub-parsers (inline and multi-bulk)
// for the wire protocol, restartable at arbitrary byte boundaries. Each
// parse step returns an explicit Result instead of a sentinel error code,
// and works over byte slices rather than manual pointer arithmetic.
package protocol

import (
	"bytes"
	"fmt"

	"github.com/adred-codev/kvcore/internal/buffer"
	"github.com/adred-codev/kvcore/internal/client"
	"github.com/adred-codev/kvcore/internal/reply"
)

// Result is the ternary outcome of a sub-parser invocation.
type Result int

const (
	NeedMore Result = iota
	Complete
	ProtocolError
)

const (
	// InlineMaxSize bounds an inline request line and a multibulk header
	// line before it is considered a protocol error.
	InlineMaxSize = 64 * 1024
	// MaxMultibulkLen bounds the declared argument count of a multibulk
	// request.
	MaxMultibulkLen = 1024 * 1024
	// MaxBulkLen bounds the declared byte length of a single bulk argument.
	MaxBulkLen = 512 * 1024 * 1024
)

// ErrorSink receives protocol-error replies (addReplyError / addReplyErrorFormat)
// so the parser never has to import the reply writer directly.
type ErrorSink interface {
	AddReplyError(c *client.Client, msg string)
}

// ParseRequest determines the request type if unknown and invokes the
// matching sub-parser once. It is the unit the top-level driver (Drive)
// calls in its loop.
func ParseRequest(c *client.Client, errs ErrorSink) Result {
	if c.ReqType == client.ReqUnknown {
		if len(c.QueryBuf.Bytes()) > 0 && c.QueryBuf.Bytes()[0] == '*' {
			c.ReqType = client.ReqMultibulk
		} else {
			c.ReqType = client.ReqInline
		}
	}

	if c.ReqType == client.ReqInline {
		return parseInline(c, errs)
	}
	return parseMultibulk(c, errs)
}

// setProtocolError marks the client to close after reply and trims the
// consumed prefix from querybuf so a subsequent call starts clean, mirroring
// setProtocolError(c, pos).
func setProtocolError(c *client.Client, pos int) {
	c.Flags |= client.CloseAfterReply
	c.QueryBuf.TrimPrefix(pos)
}

// parseInline implements processInlineBuffer.
func parseInline(c *client.Client, errs ErrorSink) Result {
	buf := c.QueryBuf.Bytes()
	idx := bytes.Index(buf, []byte("\r\n"))
	if idx < 0 {
		if len(buf) > InlineMaxSize {
			errs.AddReplyError(c, "Protocol error: too big inline request")
			setProtocolError(c, 0)
		}
		return NeedMore
	}

	line := buf[:idx]
	tokens := buffer.SplitSpaces(line)

	argv := make([]*reply.Object, 0, len(tokens))
	for _, tok := range tokens {
		if len(tok) == 0 {
			continue
		}
		argv = append(argv, reply.NewRaw(tok))
	}

	c.QueryBuf.TrimPrefix(idx + 2)
	c.Argv = argv
	return Complete
}

// parseMultibulk implements processMultibulkBuffer, phases A and B.
func parseMultibulk(c *client.Client, errs ErrorSink) Result {
	pos := 0

	if c.MultibulkLen == 0 {
		buf := c.QueryBuf.Bytes()
		crIdx := bytes.IndexByte(buf, '\r')
		if crIdx < 0 {
			if len(buf) > InlineMaxSize {
				errs.AddReplyError(c, "Protocol error: too big mbulk count string")
				setProtocolError(c, 0)
			}
			return NeedMore
		}
		if crIdx > len(buf)-2 {
			return NeedMore
		}

		n, ok := parseInt(buf[1:crIdx])
		if !ok || n > MaxMultibulkLen {
			errs.AddReplyError(c, "Protocol error: invalid multibulk length")
			setProtocolError(c, pos)
			return ProtocolError
		}

		pos = crIdx + 2
		if n <= 0 {
			c.QueryBuf.TrimPrefix(pos)
			return Complete
		}

		c.MultibulkLen = int(n)
		c.Argv = make([]*reply.Object, 0, n)
	}

	return parseBulks(c, errs, pos)
}

// parseBulks implements the "redisAssert(c->multibulklen > 0)" loop body of
// processMultibulkBuffer: read the $<len> header if unknown, then the bulk
// payload once enough bytes are buffered.
func parseBulks(c *client.Client, errs ErrorSink, pos int) Result {
	buf := c.QueryBuf.Bytes()

	for c.MultibulkLen > 0 {
		if c.BulkLen == -1 {
			crIdx := bytes.IndexByte(buf[pos:], '\r')
			if crIdx < 0 {
				if len(buf) > InlineMaxSize {
					errs.AddReplyError(c, "Protocol error: too big bulk count string")
					setProtocolError(c, 0)
				}
				break
			}
			crIdx += pos
			if crIdx > len(buf)-2 {
				break
			}

			if buf[pos] != '$' {
				errs.AddReplyError(c, fmt.Sprintf("Protocol error: expected '$', got '%c'", buf[pos]))
				setProtocolError(c, pos)
				return ProtocolError
			}

			n, ok := parseInt(buf[pos+1 : crIdx])
			if !ok || n < 0 || n > MaxBulkLen {
				errs.AddReplyError(c, "Protocol error: invalid bulk length")
				setProtocolError(c, pos)
				return ProtocolError
			}

			pos = crIdx + 2
			c.BulkLen = int(n)
		}

		if len(buf)-pos < c.BulkLen+2 {
			break
		}

		c.Argv = append(c.Argv, reply.NewRaw(buf[pos:pos+c.BulkLen]))
		pos += c.BulkLen + 2
		c.BulkLen = -1
		c.MultibulkLen--
	}

	c.QueryBuf.TrimPrefix(pos)

	if c.MultibulkLen == 0 {
		return Complete
	}
	return NeedMore
}

// parseInt parses a decimal integer as string2ll does: base-10, optional
// leading '-', no surrounding whitespace, no empty input.
func parseInt(b []byte) (int64, bool) {
	if len(b) == 0 {
		return 0, false
	}
	neg := false
	i := 0
	if b[0] == '-' {
		neg = true
		i = 1
	}
	if i >= len(b) {
		return 0, false
	}
	var n int64
	for ; i < len(b); i++ {
		if b[i] < '0' || b[i] > '9' {
			return 0, false
		}
		n = n*10 + int64(b[i]-'0')
	}
	if neg {
		n = -n
	}
	return n, true
}
