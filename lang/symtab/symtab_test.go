package symtab

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTableInternIsStable(t *testing.T) {
	tbl := NewTable[string]()
	a := tbl.Intern("foo")
	b := tbl.Intern("bar")
	a2 := tbl.Intern("foo")
	require.Equal(t, a, a2)
	require.NotEqual(t, a, b)
	require.Equal(t, "foo", tbl.Name(a))
	require.Equal(t, "bar", tbl.Name(b))
	require.Equal(t, 2, tbl.Len())
}

func TestTableOverNonStringKeys(t *testing.T) {
	tbl := NewTable[any]()
	a := tbl.Intern(int64(7))
	b := tbl.Intern("seven")
	a2 := tbl.Intern(int64(7))
	require.Equal(t, a, a2)
	require.NotEqual(t, a, b)
	require.Equal(t, int64(7), tbl.Name(a))
	require.Equal(t, "seven", tbl.Name(b))
}

func TestBufferWriteAndSet(t *testing.T) {
	var buf Buffer[int]
	i0 := buf.Write(10)
	i1 := buf.Write(20)
	require.Equal(t, 0, i0)
	require.Equal(t, 1, i1)
	buf.Set(i0, 99)
	require.Equal(t, 99, buf.At(0))
	require.Equal(t, 2, buf.Len())
}
