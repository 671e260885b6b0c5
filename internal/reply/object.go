// Package reply implements the refcount-shared reply payload model described
// in the networking core: byte buffers that can be queued on a client's
// output path without being copied every time a common reply (OK, :0, $-1,
// ...) is sent to thousands of connections.
package reply

import "strconv"

// Encoding tags the logical type of a reply payload.
type Encoding int

const (
	// Raw means Payload is already wire-ready bytes.
	Raw Encoding = iota
	// Integer means Payload is empty and Int holds the logical value;
	// it is formatted to RAW on demand by Decode.
	Integer
)

// Object is an immutable-in-intent byte payload shared by refcount across
// clients. While Refcount > 1 the payload must never be mutated in place;
// callers that want to append must call MakeUnique first.
type Object struct {
	Encoding Encoding
	Payload  []byte
	Int      int64

	// Refcount is nil for values that are never shared (the normal case:
	// a freshly created reply used by exactly one client). It is non-nil
	// only for the preallocated shared constants in Shared, where it starts
	// at 1, is incremented by Dup and decremented by Release; their Payload
	// is never mutated.
	Refcount *int32
}

// NewRaw creates a private (non-shared) RAW object. The returned Object's
// Refcount is nil, signaling exclusive ownership.
func NewRaw(b []byte) *Object {
	cp := make([]byte, len(b))
	copy(cp, b)
	return &Object{Encoding: Raw, Payload: cp}
}

// NewRawString is a convenience wrapper around NewRaw for string input.
func NewRawString(s string) *Object {
	return NewRaw([]byte(s))
}

// NewInteger creates a private Integer-encoded object.
func NewInteger(n int64) *Object {
	return &Object{Encoding: Integer, Int: n}
}

// Dup returns a reference to a shared Object (bumping Refcount) or a private
// copy of a non-shared Object, mirroring dupClientReplyValue: shared
// preallocated constants are reference-counted, everything else is a plain
// value copy since the single-thread model never aliases a private Object
// across two clients without going through Shared.
func (o *Object) Dup() *Object {
	if o.Refcount != nil {
		*o.Refcount++
		return o
	}
	cp := *o
	cp.Payload = append([]byte(nil), o.Payload...)
	return &cp
}

// Release decrements the refcount of a shared object. It is a no-op for
// private objects, which are reclaimed by the garbage collector once
// unreferenced.
func (o *Object) Release() {
	if o.Refcount != nil {
		*o.Refcount--
	}
}

// Shared reports whether this object may not be mutated in place.
func (o *Object) Shared() bool {
	return o.Refcount != nil && *o.Refcount > 1
}

// Decode returns a RAW view of the object's bytes, materializing an Integer
// encoding into its decimal string form. For RAW objects this returns the
// payload directly (no copy); callers must not mutate the result unless they
// first confirm !o.Shared().
func (o *Object) Decode() []byte {
	if o.Encoding == Raw {
		return o.Payload
	}
	return []byte(strconv.FormatInt(o.Int, 10))
}

// MakeUnique returns an Object whose Payload may be safely appended to: if o
// is shared it is cloned (and the original's refcount released) first; if o
// is already private it is returned unchanged. This is the Go analogue of
// dupLastObjectIfNeeded.
func (o *Object) MakeUnique() *Object {
	if !o.Shared() {
		return o
	}
	cp := &Object{
		Encoding: Raw,
		Payload:  append([]byte(nil), o.Payload...),
	}
	o.Release()
	return cp
}

// Len returns the number of payload bytes, the quantity that participates in
// fixed-buffer fit checks and reply_bytes accounting.
func (o *Object) Len() int {
	if o.Encoding == Raw {
		return len(o.Payload)
	}
	return len(o.Decode())
}
