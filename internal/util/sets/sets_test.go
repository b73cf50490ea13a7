package sets

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSet_BasicOperations(t *testing.T) {
	s := New("b", "a")
	s.Add("c")
	require.True(t, s.Has("a"))
	require.Equal(t, 3, s.Len())

	s.Delete("a")
	require.False(t, s.Has("a"))

	var nilSet Set[string]
	require.False(t, nilSet.Has("a"))
	require.Equal(t, 0, nilSet.Len())
}

func TestSet_DifferenceSorted(t *testing.T) {
	a := New("x", "y", "w")
	b := New("y", "z")

	require.Equal(t, []string{"w", "x"}, Sorted(a.Difference(b)))
	require.Empty(t, Sorted(b.Difference(New("y", "z"))))
	require.Equal(t, []string{"w", "x", "y"}, Sorted(a), "operands are not mutated")
}
