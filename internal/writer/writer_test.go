package writer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adred-codev/kvcore/internal/client"
	"github.com/adred-codev/kvcore/internal/reply"
)

func newTestClient() *client.Client {
	return client.New(nil, 7)
}

func alwaysInstall(c *client.Client) bool {
	c.WriteInterestInstalled = true
	return true
}

func TestWriter_AddReplyString_UsesFixedBufferFirst(t *testing.T) {
	c := newTestClient()
	w := NewWriter(alwaysInstall)

	w.AddReplyString(c, []byte("+OK\r\n"))

	require.Equal(t, 5, c.BufPos)
	require.Equal(t, 0, c.Reply.Len())
	require.Equal(t, "+OK\r\n", string(c.Buf[:c.BufPos]))
}

func TestWriter_AddReplyBulkCBuffer(t *testing.T) {
	c := newTestClient()
	w := NewWriter(alwaysInstall)

	w.AddReplyBulkCBuffer(c, []byte("hello"))

	require.Equal(t, "$5\r\nhello\r\n", string(c.Buf[:c.BufPos]))
}

func TestWriter_AddReplyBulkCString_Nil(t *testing.T) {
	c := newTestClient()
	w := NewWriter(alwaysInstall)

	w.AddReplyBulkCString(c, nil)
	require.Equal(t, "$-1\r\n", string(c.Buf[:c.BufPos]))
}

func TestWriter_AddReplyLongLong_SharedForZeroAndOne(t *testing.T) {
	c := newTestClient()
	w := NewWriter(alwaysInstall)

	w.AddReplyLongLong(c, 0)
	require.Equal(t, ":0\r\n", string(c.Buf[:c.BufPos]))

	c2 := newTestClient()
	w.AddReplyLongLong(c2, 42)
	require.Equal(t, ":42\r\n", string(c2.Buf[:c2.BufPos]))
}

func TestWriter_AddReplyError(t *testing.T) {
	c := newTestClient()
	w := NewWriter(alwaysInstall)

	w.AddReplyError(c, "wrong number of arguments")
	require.Equal(t, "-ERR wrong number of arguments\r\n", string(c.Buf[:c.BufPos]))
}

// Once the fixed buffer is full, further appends must go to the reply
// list, never back into buf, for the rest of this request.
func TestWriter_OverflowsToReplyList(t *testing.T) {
	c := newTestClient()
	w := NewWriter(alwaysInstall)

	// Fill the fixed buffer entirely.
	w.AddReplyString(c, make([]byte, client.FixedBufSize))
	require.Equal(t, client.FixedBufSize, c.BufPos)
	require.Equal(t, 0, c.Reply.Len())

	w.AddReplyString(c, []byte("spillover"))
	require.Equal(t, 1, c.Reply.Len())
	tail := c.Reply.Back().Value.(*reply.Object)
	require.Equal(t, "spillover", string(tail.Payload))
}

// Coalescing: two small appends to an already-nonempty list merge into the
// same tail object instead of creating a second list node.
func TestWriter_CoalescesSmallAppendsOnTail(t *testing.T) {
	c := newTestClient()
	w := NewWriter(alwaysInstall)

	w.AddReplyString(c, make([]byte, client.FixedBufSize)) // force list usage
	w.AddReplyString(c, []byte("foo"))
	w.AddReplyString(c, []byte("bar"))

	require.Equal(t, 1, c.Reply.Len())
	tail := c.Reply.Back().Value.(*reply.Object)
	require.Equal(t, "foobar", string(tail.Payload))
}

// Coalescing must never mutate a shared (refcount>1) tail object in place;
// it must clone first.
func TestWriter_CoalesceNeverMutatesSharedTail(t *testing.T) {
	c := newTestClient()
	w := NewWriter(alwaysInstall)

	w.AddReplyString(c, make([]byte, client.FixedBufSize)) // force list usage
	w.AddReply(c, reply.Shared.CRLF.Dup())                 // shared tail, refcount bumped

	before := *reply.Shared.CRLF.Refcount
	sharedPayloadBefore := append([]byte(nil), reply.Shared.CRLF.Payload...)

	w.AddReplyString(c, []byte("more"))

	require.Equal(t, string(sharedPayloadBefore), string(reply.Shared.CRLF.Payload), "shared constant must never be mutated")
	tail := c.Reply.Back().Value.(*reply.Object)
	require.Equal(t, "\r\nmore", string(tail.Payload))
	require.Nil(t, tail.Refcount, "coalesced tail must be a private clone")
	require.Equal(t, before-1, *reply.Shared.CRLF.Refcount, "original shared ref released after clone")
}

func TestWriter_CloseAfterReply_DropsFurtherAppends(t *testing.T) {
	c := newTestClient()
	w := NewWriter(alwaysInstall)
	c.Flags |= client.CloseAfterReply

	w.AddReplyString(c, []byte("should not appear"))
	require.Equal(t, 0, c.BufPos)
	require.Equal(t, 0, c.Reply.Len())
}

func TestWriter_InstallFailure_DropsAppend(t *testing.T) {
	c := newTestClient()
	w := NewWriter(func(c *client.Client) bool { return false })

	w.AddReplyString(c, []byte("dropped"))
	require.Equal(t, 0, c.BufPos)
	require.Equal(t, 0, c.Reply.Len())
}
