package avl

import "strings"

// Set returns a new tree with key bound to value. The tree rooted at root is
// left untouched; only the nodes on the search path are copied.
func Set[V any](root *Node[V], key string, value V) *Node[V] {
	return setRecursive(root, key, value)
}

// Remove returns a new tree without key. If key is absent, root itself is
// returned. Heights are refreshed on the way up but the tree is not
// rebalanced, so the balance invariant only holds for trees built by Set.
func Remove[V any](root *Node[V], key string) *Node[V] {
	newRoot, _ := removeRecursive(root, key, false)
	return newRoot
}

// RemoveBalanced is Remove followed by a rebalance of every rebuilt node, so
// that the balance invariant also holds after deletes.
func RemoveBalanced[V any](root *Node[V], key string) *Node[V] {
	newRoot, _ := removeRecursive(root, key, true)
	return newRoot
}

func setRecursive[V any](node *Node[V], key string, value V) *Node[V] {
	if node == nil {
		return newLeafNode(key, value)
	}

	newNode := node.copy()
	switch strings.Compare(key, node.key) {
	case 0:
		// just updating value
		newNode.value = value
		return newNode
	case -1:
		newNode.left = setRecursive(node.left, key, value)
		newNode.leftHeight = newNode.left.height()
	default:
		newNode.right = setRecursive(node.right, key, value)
		newNode.rightHeight = newNode.right.height()
	}

	return balanceNewNode(newNode)
}

// IMPORTANT: nodes passed to this function must be new or copies first.
func balanceNewNode[V any](newNode *Node[V]) *Node[V] {
	switch balance := newNode.calcBalance(); {
	case balance < -1:
		left := newNode.left
		if left.left.height() >= left.right.height() {
			// left left
			return rotateNewRight(newNode)
		}
		// left right
		newNode.left = rotateNewLeft(left.copy())
		newNode.leftHeight = newNode.left.height()
		return rotateNewRight(newNode)
	case balance > 1:
		right := newNode.right
		if right.right.height() >= right.left.height() {
			// right right
			return rotateNewLeft(newNode)
		}
		// right left
		newNode.right = rotateNewRight(right.copy())
		newNode.rightHeight = newNode.right.height()
		return rotateNewLeft(newNode)
	default:
		// nothing changed
		return newNode
	}
}

// IMPORTANT: nodes passed to this function must be new or copies first.
func rotateNewRight[V any](newNode *Node[V]) *Node[V] {
	newSelf := newNode.left.copy()
	newNode.left = newSelf.right
	newNode.leftHeight = newNode.left.height()
	newSelf.right = newNode
	newSelf.rightHeight = newNode.height()
	return newSelf
}

// IMPORTANT: nodes passed to this function must be new or copies first.
func rotateNewLeft[V any](newNode *Node[V]) *Node[V] {
	newSelf := newNode.right.copy()
	newNode.right = newSelf.left
	newNode.rightHeight = newNode.right.height()
	newSelf.left = newNode
	newSelf.leftHeight = newNode.height()
	return newSelf
}

// removeRecursive returns:
// - (node, false) -> key not found, subtree unchanged
// - (nil, true) -> the subtree was a single node holding key
// - (new node, true) -> subtree changed
func removeRecursive[V any](node *Node[V], key string, rebalance bool) (*Node[V], bool) {
	if node == nil {
		return nil, false
	}

	var newNode *Node[V]
	switch strings.Compare(key, node.key) {
	case -1:
		newLeft, removed := removeRecursive(node.left, key, rebalance)
		if !removed {
			return node, false
		}
		newNode = node.copy()
		newNode.left = newLeft
		newNode.leftHeight = newLeft.height()
	case 1:
		newRight, removed := removeRecursive(node.right, key, rebalance)
		if !removed {
			return node, false
		}
		newNode = node.copy()
		newNode.right = newRight
		newNode.rightHeight = newRight.height()
	default:
		switch {
		case node.left != nil:
			promoted, newLeft := shiftRightmost(node.left, rebalance)
			newNode = node.copy()
			newNode.key, newNode.value = promoted.key, promoted.value
			newNode.left = newLeft
			newNode.leftHeight = newLeft.height()
		case node.right != nil:
			promoted, newRight := shiftLeftmost(node.right, rebalance)
			newNode = node.copy()
			newNode.key, newNode.value = promoted.key, promoted.value
			newNode.right = newRight
			newNode.rightHeight = newRight.height()
		default:
			return nil, true
		}
	}

	if rebalance {
		newNode = balanceNewNode(newNode)
	}
	return newNode, true
}

// shiftRightmost detaches the largest entry of the subtree rooted at node,
// returning it along with the remaining subtree.
func shiftRightmost[V any](node *Node[V], rebalance bool) (*Node[V], *Node[V]) {
	if node.right == nil {
		return node, node.left
	}
	rightmost, newRight := shiftRightmost(node.right, rebalance)
	newNode := node.copy()
	newNode.right = newRight
	newNode.rightHeight = newRight.height()
	if rebalance {
		newNode = balanceNewNode(newNode)
	}
	return rightmost, newNode
}

// shiftLeftmost is the mirror of shiftRightmost.
func shiftLeftmost[V any](node *Node[V], rebalance bool) (*Node[V], *Node[V]) {
	if node.left == nil {
		return node, node.right
	}
	leftmost, newLeft := shiftLeftmost(node.left, rebalance)
	newNode := node.copy()
	newNode.left = newLeft
	newNode.leftHeight = newLeft.height()
	if rebalance {
		newNode = balanceNewNode(newNode)
	}
	return leftmost, newNode
}
