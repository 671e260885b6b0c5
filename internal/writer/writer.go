package writer

import (
	"fmt"

	"github.com/adred-codev/kvcore/internal/client"
	"github.com/adred-codev/kvcore/internal/reply"
)

// InstallWriteInterest is the hook the Writer calls before an append so the
// reactor starts watching the socket for writability. It is only called
// when both the fixed buffer and the reply list are currently empty, and
// returns false on failure so the caller can drop the append silently.
type InstallWriteInterest func(c *client.Client) bool

// Writer implements the addReply* family of output helpers. It holds no
// state of its own beyond the install-interest hook; everything else lives
// on the Client.
type Writer struct {
	Install InstallWriteInterest

	// OnCoalesce, when set, is called every time an append merges into an
	// existing reply-list tail object instead of starting a new one.
	OnCoalesce func()
}

func NewWriter(install InstallWriteInterest) *Writer {
	return &Writer{Install: install}
}

// AddReply appends obj, decoding non-RAW encodings to a transient RAW view
// first (addReply).
func (w *Writer) AddReply(c *client.Client, obj *reply.Object) {
	if !w.installInterest(c) {
		obj.Release()
		return
	}
	if obj.Encoding == reply.Raw {
		w.place(c, obj.Payload, obj)
		return
	}
	// Decode materializes a fresh byte slice (e.g. an integer's decimal
	// form); obj itself contributes nothing further once its bytes are
	// read, so the caller's Dup() is undone here rather than retained.
	decoded := obj.Decode()
	obj.Release()
	w.place(c, decoded, nil)
}

// AddReplyString appends raw bytes (addReplyString).
func (w *Writer) AddReplyString(c *client.Client, s []byte) {
	if !w.installInterest(c) {
		return
	}
	w.place(c, s, nil)
}

// AddReplySds appends a growable buffer, taking ownership semantically (in
// Go this just means the caller must not reuse b afterwards); mirrors
// addReplySds.
func (w *Writer) AddReplySds(c *client.Client, b []byte) {
	w.AddReplyString(c, b)
}

// AddReplyLongLong appends an integer reply, using the shared 0/1 constants
// when possible (addReplyLongLong).
func (w *Writer) AddReplyLongLong(c *client.Client, n int64) {
	switch n {
	case 0:
		w.AddReply(c, reply.Shared.Zero.Dup())
	case 1:
		w.AddReply(c, reply.Shared.One.Dup())
	default:
		w.AddReplyString(c, []byte(fmt.Sprintf(":%d\r\n", n)))
	}
}

// AddReplyBulkCBuffer emits "$<n>\r\n<bytes>\r\n" (addReplyBulkCBuffer).
func (w *Writer) AddReplyBulkCBuffer(c *client.Client, p []byte) {
	w.AddReplyString(c, []byte(fmt.Sprintf("$%d\r\n", len(p))))
	w.AddReplyString(c, p)
	w.AddReply(c, reply.Shared.CRLF.Dup())
}

// AddReplyBulkCString emits a bulk reply for s, or the shared null bulk if s
// is nil (addReplyBulkCString).
func (w *Writer) AddReplyBulkCString(c *client.Client, s []byte) {
	if s == nil {
		w.AddReply(c, reply.Shared.NullBulk.Dup())
		return
	}
	w.AddReplyBulkCBuffer(c, s)
}

// AddReplyError emits "-ERR <msg>\r\n" (addReplyError / _addReplyError).
func (w *Writer) AddReplyError(c *client.Client, msg string) {
	w.AddReplyString(c, []byte("-ERR "))
	w.AddReplyString(c, []byte(msg))
	w.AddReplyString(c, []byte("\r\n"))
}

// AddReplyStatusFormat emits "+<formatted>\r\n" (addReplyStatusFormat).
func (w *Writer) AddReplyStatusFormat(c *client.Client, format string, args ...any) {
	w.AddReplyString(c, []byte("+"))
	w.AddReplyString(c, []byte(fmt.Sprintf(format, args...)))
	w.AddReplyString(c, []byte("\r\n"))
}

func (w *Writer) installInterest(c *client.Client) bool {
	if c.Flags&client.CloseAfterReply != 0 {
		return false
	}
	if c.Detached() {
		return false
	}
	if !c.BufEmpty() || c.Reply.Len() != 0 {
		return true // interest is already installed
	}
	if w.Install == nil {
		return true
	}
	return w.Install(c)
}

// place tries the fixed buffer first, else appends to the list, coalescing
// into a private tail when possible. obj, when non-nil, is the original
// Object being queued (used so AddReply can push the *same* object
// reference onto the list, carrying the reference the caller took with
// Dup() without bumping it again, rather than an unrelated copy); when nil
// a fresh private Object is created from the bytes.
func (w *Writer) place(c *client.Client, b []byte, obj *reply.Object) {
	if c.Flags&client.CloseAfterReply != 0 {
		if obj != nil {
			obj.Release()
		}
		return
	}

	if c.Reply.Len() == 0 && len(b) <= client.FixedBufSize-c.BufPos {
		copy(c.Buf[c.BufPos:], b)
		c.BufPos += len(b)
		// Bytes are copied into buf, not referenced; the object's
		// contribution ends here.
		if obj != nil {
			obj.Release()
		}
		return
	}

	w.appendToList(c, b, obj)
}

func (w *Writer) appendToList(c *client.Client, b []byte, obj *reply.Object) {
	if c.Reply.Len() == 0 {
		// obj already carries the reference the caller acquired via Dup()
		// for this append; push it directly rather than bumping it again.
		o := obj
		if o == nil {
			o = reply.NewRaw(b)
		}
		c.Reply.PushBack(o)
		c.ReplyBytes += o.Len()
		return
	}

	tailElem := c.Reply.Back()
	tail := tailElem.Value.(*reply.Object)

	if tail.Payload != nil && tail.Len()+len(b) <= client.ReplyChunkBytes {
		c.ReplyBytes -= tail.Len()
		tail = tail.MakeUnique()
		tail.Payload = append(tail.Payload, b...)
		tailElem.Value = tail
		c.ReplyBytes += tail.Len()
		if w.OnCoalesce != nil {
			w.OnCoalesce()
		}
		// b's bytes were copied into tail; obj (if any) is done.
		if obj != nil {
			obj.Release()
		}
		return
	}

	o := obj
	if o == nil {
		o = reply.NewRaw(b)
	}
	c.Reply.PushBack(o)
	c.ReplyBytes += o.Len()
}
