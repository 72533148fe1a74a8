package ledger

import (
	"iter"

	"github.com/kocubinski/avl-ledger/avl"
)

// Snapshot is one committed version of the ledger. It is immutable: a
// Snapshot obtained from Current stays readable and unchanged no matter how
// many commits follow it.
type Snapshot[V any] struct {
	root     *avl.Node[V]
	previous *Snapshot[V]
	version  uint64
}

func emptySnapshot[V any]() *Snapshot[V] {
	return &Snapshot[V]{}
}

func newSnapshot[V any](root *avl.Node[V], previous *Snapshot[V]) *Snapshot[V] {
	return &Snapshot[V]{
		root:     root,
		previous: previous,
		version:  previous.version + 1,
	}
}

// Version is 0 for the initial empty snapshot and grows by one with every
// published commit.
func (s *Snapshot[V]) Version() uint64 {
	return s.version
}

// Previous returns the snapshot this one replaced, or nil for the first
// snapshot of a ledger.
func (s *Snapshot[V]) Previous() *Snapshot[V] {
	return s.previous
}

// Root returns the tree root; nil when the snapshot is empty.
func (s *Snapshot[V]) Root() *avl.Node[V] {
	return s.root
}

func (s *Snapshot[V]) Get(key string) (V, bool) {
	return avl.Get(s.root, key)
}

func (s *Snapshot[V]) Has(key string) bool {
	return avl.Has(s.root, key)
}

// Len counts the entries. It is O(n).
func (s *Snapshot[V]) Len() int {
	return avl.Size(s.root)
}

func (s *Snapshot[V]) All() iter.Seq2[string, V] {
	return avl.All(s.root)
}

func (s *Snapshot[V]) OrderedEntries() []avl.Entry[V] {
	return avl.Entries(s.root)
}

func (s *Snapshot[V]) Iterator(start, end string, ascending bool) *avl.Iterator[V] {
	return avl.NewIterator(s.root, start, end, ascending)
}
