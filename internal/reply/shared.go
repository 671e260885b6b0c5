package reply

func pinned(b []byte) *Object {
	rc := int32(1)
	return &Object{Encoding: Raw, Payload: b, Refcount: &rc}
}

// Shared holds the globally preallocated reply constants. Their Refcount is
// pinned at creation and bumped by every Dup(); none of them is ever mutated
// in place, since the coalescing path always calls MakeUnique before
// appending to a tail object.
var Shared = struct {
	OK       *Object
	CRLF     *Object
	Zero     *Object
	One      *Object
	NullBulk *Object
	Pong     *Object
}{
	OK:       pinned([]byte("+OK\r\n")),
	CRLF:     pinned([]byte("\r\n")),
	Zero:     pinned([]byte(":0\r\n")),
	One:      pinned([]byte(":1\r\n")),
	NullBulk: pinned([]byte("$-1\r\n")),
	Pong:     pinned([]byte("+PONG\r\n")),
}
