package avl

import "strings"

// Node is an immutable element of a persistent AVL tree. A nil *Node is the
// empty tree. Nodes reachable from a published root must never be modified;
// every mutation in this package copies the nodes on the search path and
// shares the rest.
type Node[V any] struct {
	key         string
	value       V
	leftHeight  int8
	rightHeight int8
	left        *Node[V]
	right       *Node[V]
}

// Entry is a key/value pair produced by ordered traversal.
type Entry[V any] struct {
	Key   string
	Value V
}

func newLeafNode[V any](key string, value V) *Node[V] {
	return &Node[V]{key: key, value: value}
}

func (node *Node[V]) Key() string {
	return node.key
}

func (node *Node[V]) Value() V {
	return node.value
}

func (node *Node[V]) Left() *Node[V] {
	return node.left
}

func (node *Node[V]) Right() *Node[V] {
	return node.right
}

func (node *Node[V]) LeftHeight() int8 {
	return node.leftHeight
}

func (node *Node[V]) RightHeight() int8 {
	return node.rightHeight
}

// height of the subtree rooted at node; 0 for the empty tree.
func (node *Node[V]) height() int8 {
	if node == nil {
		return 0
	}
	return maxInt8(node.leftHeight, node.rightHeight) + 1
}

// calcBalance returns rightHeight - leftHeight.
func (node *Node[V]) calcBalance() int {
	return int(node.rightHeight) - int(node.leftHeight)
}

func (node *Node[V]) copy() *Node[V] {
	newNode := *node
	return &newNode
}

func (node *Node[V]) get(key string) (value V, found bool) {
	for node != nil {
		switch strings.Compare(key, node.key) {
		case -1:
			node = node.left
		case 1:
			node = node.right
		default:
			return node.value, true
		}
	}
	return value, false
}

// Get looks key up in the tree rooted at root.
func Get[V any](root *Node[V], key string) (V, bool) {
	return root.get(key)
}

func Has[V any](root *Node[V], key string) bool {
	_, ok := root.get(key)
	return ok
}

// Height returns the height of the tree; a single node has height 1.
func Height[V any](root *Node[V]) int {
	return int(root.height())
}

// Size counts the entries in the tree. It walks the whole tree.
func Size[V any](root *Node[V]) int {
	if root == nil {
		return 0
	}
	return Size(root.left) + 1 + Size(root.right)
}

func maxInt8(a, b int8) int8 {
	if a > b {
		return a
	}
	return b
}
