package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adred-codev/kvcore/internal/client"
)

// recordingErrs implements ErrorSink and records every error message passed
// to it, for assertions about which protocol errors a malformed input
// triggers.
type recordingErrs struct {
	msgs []string
}

func (r *recordingErrs) AddReplyError(c *client.Client, msg string) {
	r.msgs = append(r.msgs, msg)
}

func argStrings(c *client.Client) []string {
	out := make([]string, len(c.Argv))
	for i, a := range c.Argv {
		out[i] = string(a.Decode())
	}
	return out
}

// Inline PING.
func TestParse_InlinePing(t *testing.T) {
	c := client.New(nil, 1)
	c.QueryBuf.Append([]byte("PING\r\n"))
	errs := &recordingErrs{}

	require.Equal(t, Complete, ParseRequest(c, errs))
	require.Equal(t, []string{"PING"}, argStrings(c))
	require.Equal(t, 0, c.QueryBuf.Len())
}

// Multi-bulk SET.
func TestParse_MultibulkSet(t *testing.T) {
	c := client.New(nil, 1)
	c.QueryBuf.Append([]byte("*3\r\n$3\r\nSET\r\n$3\r\nfoo\r\n$3\r\nbar\r\n"))
	errs := &recordingErrs{}

	require.Equal(t, Complete, ParseRequest(c, errs))
	require.Equal(t, []string{"SET", "foo", "bar"}, argStrings(c))
	require.Equal(t, 0, c.MultibulkLen)
	require.Equal(t, -1, c.BulkLen)
}

// Byte-at-a-time feeding yields the same argv as one shot.
func TestParse_PartialDelivery_ByteAtATime(t *testing.T) {
	full := []byte("*3\r\n$3\r\nSET\r\n$3\r\nfoo\r\n$3\r\nbar\r\n")

	c := client.New(nil, 1)
	errs := &recordingErrs{}

	var result Result
	for i := range full {
		c.QueryBuf.Append(full[i : i+1])
		result = ParseRequest(c, errs)
		if result == Complete {
			require.Equal(t, i, len(full)-1, "completed before all bytes were delivered")
		}
	}
	require.Equal(t, Complete, result)
	require.Equal(t, []string{"SET", "foo", "bar"}, argStrings(c))
}

// Residual querybuf plus the consumed prefix reconstructs the original
// input, checked by driving two pipelined requests through in one buffer.
func TestParse_Pipelined_ConsumedPlusResidualEqualsOriginal(t *testing.T) {
	input := []byte("PING\r\n*1\r\n$4\r\nPING\r\n")
	c := client.New(nil, 1)
	c.QueryBuf.Append(input)
	errs := &recordingErrs{}

	require.Equal(t, Complete, ParseRequest(c, errs))
	require.Equal(t, []string{"PING"}, argStrings(c))
	require.Equal(t, "*1\r\n$4\r\nPING\r\n", string(c.QueryBuf.Bytes()))

	c.Reset()
	require.Equal(t, Complete, ParseRequest(c, errs))
	require.Equal(t, []string{"PING"}, argStrings(c))
	require.Equal(t, 0, c.QueryBuf.Len())
}

// A malformed multibulk sigil sets CloseAfterReply and produces no argv.
func TestParse_ProtocolError_MissingDollar(t *testing.T) {
	c := client.New(nil, 1)
	c.QueryBuf.Append([]byte("*2\r\nPING\r\n"))
	errs := &recordingErrs{}

	require.Equal(t, ProtocolError, ParseRequest(c, errs))
	require.NotZero(t, c.Flags&client.CloseAfterReply)
	require.Empty(t, c.Argv)
	require.Len(t, errs.msgs, 1)
	require.Contains(t, errs.msgs[0], "expected '$', got 'P'")
}

// Oversized inline request.
func TestParse_ProtocolError_InlineTooBig(t *testing.T) {
	c := client.New(nil, 1)
	big := make([]byte, InlineMaxSize+1)
	for i := range big {
		big[i] = 'a'
	}
	c.QueryBuf.Append(big)
	errs := &recordingErrs{}

	require.Equal(t, NeedMore, ParseRequest(c, errs))
	require.NotZero(t, c.Flags&client.CloseAfterReply)
	require.Len(t, errs.msgs, 1)
	require.Contains(t, errs.msgs[0], "too big inline request")
}

// Invalid multibulk length.
func TestParse_ProtocolError_InvalidMultibulkLength(t *testing.T) {
	c := client.New(nil, 1)
	c.QueryBuf.Append([]byte("*abc\r\n"))
	errs := &recordingErrs{}

	require.Equal(t, ProtocolError, ParseRequest(c, errs))
	require.NotZero(t, c.Flags&client.CloseAfterReply)
	require.Empty(t, c.Argv)
}

// Negative/over-limit bulk length.
func TestParse_ProtocolError_InvalidBulkLength(t *testing.T) {
	c := client.New(nil, 1)
	c.QueryBuf.Append([]byte("*1\r\n$-5\r\n"))
	errs := &recordingErrs{}

	require.Equal(t, ProtocolError, ParseRequest(c, errs))
	require.NotZero(t, c.Flags&client.CloseAfterReply)
}

func TestParse_NeedMore_PartialBulkPayload(t *testing.T) {
	c := client.New(nil, 1)
	c.QueryBuf.Append([]byte("*3\r\n$3\r\nSET"))
	errs := &recordingErrs{}

	require.Equal(t, NeedMore, ParseRequest(c, errs))
	require.Zero(t, c.Flags&client.CloseAfterReply)
	// The parsed headers are trimmed; the incomplete payload stays buffered
	// for the next attempt.
	require.Equal(t, "SET", string(c.QueryBuf.Bytes()))
}

func TestParse_InlineEmptyTokensDiscarded(t *testing.T) {
	c := client.New(nil, 1)
	c.QueryBuf.Append([]byte("PING    \r\n"))
	errs := &recordingErrs{}

	require.Equal(t, Complete, ParseRequest(c, errs))
	require.Equal(t, []string{"PING"}, argStrings(c))
}

func TestParse_MultibulkZeroLength_YieldsEmptyCommand(t *testing.T) {
	c := client.New(nil, 1)
	c.QueryBuf.Append([]byte("*0\r\n"))
	errs := &recordingErrs{}

	require.Equal(t, Complete, ParseRequest(c, errs))
	require.Empty(t, c.Argv)
	require.Equal(t, 0, c.QueryBuf.Len())
}
