package reply

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRaw_CopiesInput(t *testing.T) {
	src := []byte("hello")
	o := NewRaw(src)
	src[0] = 'H'
	require.Equal(t, "hello", string(o.Payload))
}

func TestInteger_Decode(t *testing.T) {
	o := NewInteger(42)
	require.Equal(t, "42", string(o.Decode()))
	require.Equal(t, 2, o.Len())

	neg := NewInteger(-7)
	require.Equal(t, "-7", string(neg.Decode()))
}

func TestShared_DupBumpsRefcount(t *testing.T) {
	o := Shared.OK
	start := *o.Refcount

	dup := o.Dup()
	require.Same(t, o, dup)
	require.Equal(t, start+1, *o.Refcount)

	dup.Release()
	require.Equal(t, start, *o.Refcount)
}

func TestPrivate_DupCopies(t *testing.T) {
	o := NewRaw([]byte("abc"))
	dup := o.Dup()
	require.NotSame(t, o, dup)
	require.Equal(t, o.Payload, dup.Payload)

	dup.Payload[0] = 'X'
	require.Equal(t, byte('a'), o.Payload[0])
}

func TestMakeUnique_ClonesSharedOnly(t *testing.T) {
	shared := Shared.Zero.Dup() // refcount now 2, Shared()==true
	require.True(t, shared.Shared())

	unique := shared.MakeUnique()
	require.False(t, unique.Shared())
	require.Equal(t, shared.Payload, unique.Payload)

	// Mutating unique must never touch the pinned shared constant.
	unique.Payload = append(unique.Payload, '!')
	require.NotEqual(t, string(unique.Payload), string(Shared.Zero.Payload))
}

func TestMakeUnique_NoopOnPrivate(t *testing.T) {
	o := NewRaw([]byte("abc"))
	require.Same(t, o, o.MakeUnique())
}
