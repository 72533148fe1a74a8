package avl

import "iter"

// Iterator walks a tree in key order over the half-open range [start, end).
// An empty start or end leaves that side unbounded. The tree is never
// modified, so an Iterator stays valid however the tree it came from is
// later updated.
type Iterator[V any] struct {
	start, end string
	ascending  bool

	stack []*Node[V]
	key   string
	value V
	valid bool
}

func NewIterator[V any](root *Node[V], start, end string, ascending bool) *Iterator[V] {
	itr := &Iterator[V]{
		start:     start,
		end:       end,
		ascending: ascending,
		stack:     make([]*Node[V], 0, root.height()),
	}
	itr.seek(root)
	itr.Next()
	return itr
}

// seek pushes the boundary path below node onto the stack.
func (itr *Iterator[V]) seek(node *Node[V]) {
	for node != nil {
		if itr.ascending {
			if node.key >= itr.start {
				itr.stack = append(itr.stack, node)
				node = node.left
			} else {
				node = node.right
			}
		} else {
			if itr.end == "" || node.key < itr.end {
				itr.stack = append(itr.stack, node)
				node = node.right
			} else {
				node = node.left
			}
		}
	}
}

func (itr *Iterator[V]) Valid() bool {
	return itr.valid
}

// Next advances to the following entry in iteration order.
func (itr *Iterator[V]) Next() {
	if len(itr.stack) == 0 {
		itr.invalidate()
		return
	}
	node := itr.stack[len(itr.stack)-1]
	itr.stack = itr.stack[:len(itr.stack)-1]

	if itr.ascending {
		if itr.end != "" && node.key >= itr.end {
			itr.invalidate()
			return
		}
		itr.seek(node.right)
	} else {
		if node.key < itr.start {
			itr.invalidate()
			return
		}
		itr.seek(node.left)
	}

	itr.key = node.key
	itr.value = node.value
	itr.valid = true
}

func (itr *Iterator[V]) invalidate() {
	var zero V
	itr.stack = nil
	itr.key = ""
	itr.value = zero
	itr.valid = false
}

func (itr *Iterator[V]) Key() string {
	return itr.key
}

func (itr *Iterator[V]) Value() V {
	return itr.value
}

// Close releases the iterator's traversal state.
func (itr *Iterator[V]) Close() {
	itr.invalidate()
}

// All yields every entry of the tree in ascending key order. The sequence is
// lazy and may be ranged over any number of times.
func All[V any](root *Node[V]) iter.Seq2[string, V] {
	return Range(root, "", "", true)
}

// Range is the iter.Seq2 form of NewIterator.
func Range[V any](root *Node[V], start, end string, ascending bool) iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		for itr := NewIterator(root, start, end, ascending); itr.Valid(); itr.Next() {
			if !yield(itr.Key(), itr.Value()) {
				return
			}
		}
	}
}

// Entries collects the whole tree in ascending key order.
func Entries[V any](root *Node[V]) []Entry[V] {
	entries := make([]Entry[V], 0, Size(root))
	for k, v := range All(root) {
		entries = append(entries, Entry[V]{Key: k, Value: v})
	}
	return entries
}
