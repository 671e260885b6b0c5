package client

import "fmt"

// Info returns a human-readable snapshot of the client's state, the Go
// analogue of getClientInfoString.
func (c *Client) Info() string {
	flags := "N"
	if c.Flags&CloseAfterReply != 0 {
		flags = "c"
	}

	addr := "?:0"
	if c.Conn != nil {
		addr = c.Conn.RemoteAddr().String()
	}

	cmd := c.LastCmd
	if cmd == "" {
		cmd = "NULL"
	}

	return fmt.Sprintf(
		"addr=%s fd=%d idle=%.0f flags=%s qbuf=%d obl=%d oll=%d reply_bytes=%d cmd=%s",
		addr, c.FD, c.IdleSeconds(), flags,
		c.QueryBuf.Len(), c.BufPos, c.Reply.Len(), c.ReplyBytes, cmd,
	)
}
