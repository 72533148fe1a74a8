package avl

import "fmt"

// Verify checks the BST ordering of the tree and that every stored child
// height matches the child it describes.
func Verify[V any](root *Node[V]) error {
	_, err := verifyRecursive(root, nil, nil, false)
	return err
}

// VerifyBalanced is Verify plus the AVL condition
// |rightHeight - leftHeight| <= 1 at every node. It holds for every tree
// built through Set alone, and for trees whose deletes went through
// RemoveBalanced.
func VerifyBalanced[V any](root *Node[V]) error {
	_, err := verifyRecursive(root, nil, nil, true)
	return err
}

func verifyRecursive[V any](node *Node[V], lower, upper *string, balanced bool) (int8, error) {
	if node == nil {
		return 0, nil
	}
	if lower != nil && node.key <= *lower {
		return 0, fmt.Errorf("key %q is not greater than ancestor %q", node.key, *lower)
	}
	if upper != nil && node.key >= *upper {
		return 0, fmt.Errorf("key %q is not less than ancestor %q", node.key, *upper)
	}

	leftHeight, err := verifyRecursive(node.left, lower, &node.key, balanced)
	if err != nil {
		return 0, err
	}
	rightHeight, err := verifyRecursive(node.right, &node.key, upper, balanced)
	if err != nil {
		return 0, err
	}

	if node.leftHeight != leftHeight {
		return 0, fmt.Errorf("key %q: stored left height %d, actual %d", node.key, node.leftHeight, leftHeight)
	}
	if node.rightHeight != rightHeight {
		return 0, fmt.Errorf("key %q: stored right height %d, actual %d", node.key, node.rightHeight, rightHeight)
	}
	if balanced {
		if balance := node.calcBalance(); balance < -1 || balance > 1 {
			return 0, fmt.Errorf("key %q: balance factor %d out of range", node.key, balance)
		}
	}
	return maxInt8(leftHeight, rightHeight) + 1, nil
}
