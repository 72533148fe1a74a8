package avl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func collect(itr *Iterator[int]) []string {
	var res []string
	for ; itr.Valid(); itr.Next() {
		res = append(res, itr.Key())
	}
	return res
}

func TestIterator(t *testing.T) {
	root := buildTree(t, "e", "b", "h", "a", "c", "f", "i", "d", "g")

	cases := []struct {
		name      string
		start     string
		end       string
		ascending bool
		expected  []string
	}{
		{"all ascending", "", "", true, []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"}},
		{"all descending", "", "", false, []string{"i", "h", "g", "f", "e", "d", "c", "b", "a"}},
		{"start ascending", "c", "", true, []string{"c", "d", "e", "f", "g", "h", "i"}},
		{"end ascending", "", "d", true, []string{"a", "b", "c"}},
		{"range ascending", "bb", "g", true, []string{"c", "d", "e", "f"}},
		{"range descending", "bb", "g", false, []string{"f", "e", "d", "c"}},
		{"start descending", "h", "", false, []string{"i", "h"}},
		{"empty range", "x", "", true, nil},
		{"inverted range", "f", "c", true, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, collect(NewIterator(root, tc.start, tc.end, tc.ascending)))
		})
	}
}

func TestIteratorEmptyTree(t *testing.T) {
	itr := NewIterator[int](nil, "", "", true)
	require.False(t, itr.Valid())
	require.Empty(t, Entries[int](nil))
}

func TestAllIsRestartable(t *testing.T) {
	root := buildTree(t, "b", "a", "c")
	seq := All(root)

	var first, second []string
	for k := range seq {
		first = append(first, k)
	}
	for k := range seq {
		second = append(second, k)
	}
	require.Equal(t, []string{"a", "b", "c"}, first)
	require.Equal(t, first, second)

	// stopping early must not disturb later traversals
	for k := range seq {
		require.Equal(t, "a", k)
		break
	}
	require.Equal(t, []string{"a", "b", "c"}, keys(root))
}

func TestIteratorSurvivesUpdates(t *testing.T) {
	root := buildTree(t, "a", "b", "c", "d")
	itr := NewIterator(root, "", "", true)
	require.Equal(t, "a", itr.Key())

	updated := Set(root, "bb", 99)
	updated = Remove(updated, "c")

	require.Equal(t, []string{"a", "b", "c", "d"}, collect(itr))
	require.Equal(t, []string{"a", "b", "bb", "d"}, keys(updated))
}

func TestIteratorClose(t *testing.T) {
	root := buildTree(t, "a", "b")
	itr := NewIterator(root, "", "", true)
	itr.Close()
	require.False(t, itr.Valid())
	require.Equal(t, "", itr.Key())
}

func TestRenderDotGraph(t *testing.T) {
	root := buildTree(t, "b", "a", "c")
	graph := RenderDotGraph(root)
	require.Contains(t, graph, "digraph")
	require.Contains(t, graph, "->")
	require.Contains(t, RenderDotGraph[int](nil), "digraph")
}
