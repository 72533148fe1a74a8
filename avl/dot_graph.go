package avl

import (
	"fmt"

	"github.com/emicklei/dot"
)

// RenderDotGraph renders the tree in Graphviz DOT format. Values are printed
// with %v.
func RenderDotGraph[V any](root *Node[V]) string {
	graph := dot.NewGraph(dot.Directed)

	if root == nil {
		return graph.String()
	}

	var traverse func(node *Node[V], parent *dot.Node, direction string)
	traverse = func(node *Node[V], parent *dot.Node, direction string) {
		label := fmt.Sprintf("K:%q V:%v\nLH:%d RH:%d", node.key, node.value, node.leftHeight, node.rightHeight)
		n := graph.Node(node.key).Label(label)
		if parent != nil {
			parent.Edge(n, direction)
		}
		if node.left != nil {
			traverse(node.left, &n, "l")
		}
		if node.right != nil {
			traverse(node.right, &n, "r")
		}
	}

	traverse(root, nil, "")
	return graph.String()
}
