package avl

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/btree"
	"pgregory.net/rapid"
)

var keyGen = rapid.StringMatching(`[a-f]{0,3}`)

func TestTreeSims(t *testing.T) {
	rapid.Check(t, testTreeSims)
}

func FuzzTree(f *testing.F) {
	f.Fuzz(rapid.MakeFuzz(testTreeSims))
}

func testTreeSims(t *rapid.T) {
	sim := &SimMachine{
		balanced: rapid.Bool().Draw(t, "balanced"),
	}

	t.Repeat(map[string]func(*rapid.T){
		"":       sim.Check,
		"Set":    sim.Set,
		"Remove": sim.Remove,
		"Get":    sim.Get,
	})
}

// SimMachine drives a persistent tree and a tidwall btree side by side. Every
// tree version it has ever produced is kept along with the entries it held at
// the time, so that mutations can be checked not to leak into old versions.
type SimMachine struct {
	balanced  bool
	root      *Node[int]
	model     btree.Map[string, int]
	history   []*Node[int]
	snapshots [][]Entry[int]
	removed   bool
	counter   int
}

func (s *SimMachine) Check(t *rapid.T) {
	require.NoError(t, Verify(s.root))
	if !s.removed || s.balanced {
		require.NoError(t, VerifyBalanced(s.root))
	}

	var expected []Entry[int]
	s.model.Scan(func(k string, v int) bool {
		expected = append(expected, Entry[int]{Key: k, Value: v})
		return true
	})
	require.Equal(t, expected, nilIfEmpty(Entries(s.root)))
	require.Equal(t, s.model.Len(), Size(s.root))

	for i, old := range s.history {
		require.Equal(t, s.snapshots[i], nilIfEmpty(Entries(old)), "version %d changed", i)
	}
}

func (s *SimMachine) record() {
	s.history = append(s.history, s.root)
	s.snapshots = append(s.snapshots, nilIfEmpty(Entries(s.root)))
}

func (s *SimMachine) Set(t *rapid.T) {
	key := keyGen.Draw(t, "key")
	s.counter++
	s.root = Set(s.root, key, s.counter)
	s.model.Set(key, s.counter)
	s.record()
}

func (s *SimMachine) Remove(t *rapid.T) {
	key := keyGen.Draw(t, "key")
	before := s.root
	if s.balanced {
		s.root = RemoveBalanced(s.root, key)
	} else {
		s.root = Remove(s.root, key)
	}
	if _, ok := s.model.Delete(key); ok {
		s.removed = true
	} else {
		require.Same(t, before, s.root)
	}
	s.record()
}

func (s *SimMachine) Get(t *rapid.T) {
	key := keyGen.Draw(t, "key")
	expected, expectedOk := s.model.Get(key)
	value, ok := Get(s.root, key)
	require.Equal(t, expectedOk, ok)
	require.Equal(t, expected, value)
	require.Equal(t, expectedOk, Has(s.root, key))
}

func nilIfEmpty[V any](entries []Entry[V]) []Entry[V] {
	if len(entries) == 0 {
		return nil
	}
	return entries
}

func TestInsertOnlyBalance(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		keys := rapid.SliceOf(rapid.StringN(0, 8, -1)).Draw(t, "keys")
		var root *Node[int]
		for i, k := range keys {
			root = Set(root, k, i)
		}
		require.NoError(t, VerifyBalanced(root))

		prev := ""
		for i, e := range Entries(root) {
			if i > 0 {
				require.Less(t, prev, e.Key)
			}
			prev = e.Key
		}
	})
}
