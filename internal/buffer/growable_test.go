package buffer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGrowable_AppendAndBytes(t *testing.T) {
	g := NewGrowable(4)
	g.Append([]byte("hello"))
	g.Append([]byte(" world"))
	require.Equal(t, "hello world", string(g.Bytes()))
	require.Equal(t, 11, g.Len())
}

func TestGrowable_TrimPrefix(t *testing.T) {
	g := NewGrowable(0)
	g.Append([]byte("PING\r\nPONG\r\n"))

	g.TrimPrefix(6)
	require.Equal(t, "PONG\r\n", string(g.Bytes()))

	g.Append([]byte("X"))
	require.Equal(t, "PONG\r\nX", string(g.Bytes()))
}

func TestGrowable_TrimPrefix_PastEnd(t *testing.T) {
	g := NewGrowable(0)
	g.Append([]byte("abc"))
	g.TrimPrefix(100)
	require.Equal(t, 0, g.Len())
}

func TestGrowable_TrimPrefix_Zero(t *testing.T) {
	g := NewGrowable(0)
	g.Append([]byte("abc"))
	g.TrimPrefix(0)
	require.Equal(t, "abc", string(g.Bytes()))
}

func TestGrowable_Reset(t *testing.T) {
	g := NewGrowable(0)
	g.Append([]byte("abc"))
	g.Reset()
	require.Equal(t, 0, g.Len())
	require.GreaterOrEqual(t, g.Cap(), 3)
}

func TestGrowable_IndexCRLF(t *testing.T) {
	g := NewGrowable(0)
	g.Append([]byte("foo\r\nbar"))
	require.Equal(t, 3, g.IndexCRLF(0))
	require.Equal(t, -1, g.IndexCRLF(4))
}

func TestSplitSpaces(t *testing.T) {
	require.Equal(t, [][]byte{[]byte("PING")}, SplitSpaces([]byte("PING")))
	require.Equal(t, [][]byte{[]byte("SET"), []byte("foo"), []byte("bar")}, SplitSpaces([]byte("SET  foo bar")))
	require.Empty(t, SplitSpaces([]byte("   ")))
}
