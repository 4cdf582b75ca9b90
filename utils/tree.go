package utils

// TreeNode wraps one input record together with its nested replies.
type TreeNode[T any] struct {
	Item     T              `json:"item"`
	Children []*TreeNode[T] `json:"children"`
}

// BuildForest converts a flat list into a forest using the id and parent-id
// reported by idOf and parentOf. Children keep the relative order of items.
//
// A record whose parent is not in items is a root. When parent references form
// a cycle, the record at which the walk closes the cycle is promoted to a root,
// so every input record appears exactly once in the result.
//
// items is never modified; each call returns a freshly allocated forest.
func BuildForest[T any, K comparable](items []T, idOf func(T) K, parentOf func(T) (K, bool)) []*TreeNode[T] {
	nodes := make([]*TreeNode[T], len(items))
	index := make(map[K]int, len(items))
	for i, item := range items {
		nodes[i] = &TreeNode[T]{Item: item, Children: []*TreeNode[T]{}}
		if _, dup := index[idOf(item)]; !dup {
			index[idOf(item)] = i
		}
	}

	// parentIdx[i] is the index of node i's parent, or -1 for roots.
	parentIdx := make([]int, len(items))
	for i, item := range items {
		parentIdx[i] = -1
		if pid, ok := parentOf(item); ok {
			if p, found := index[pid]; found && p != i {
				parentIdx[i] = p
			}
		}
	}
	breakCycles(parentIdx)

	roots := make([]*TreeNode[T], 0)
	for i, node := range nodes {
		if p := parentIdx[i]; p >= 0 {
			nodes[p].Children = append(nodes[p].Children, node)
		} else {
			roots = append(roots, node)
		}
	}
	return roots
}

// breakCycles walks every parent chain once and detaches the node where a
// chain re-enters itself.
func breakCycles(parentIdx []int) {
	const (
		unvisited = iota
		walking
		done
	)
	state := make([]uint8, len(parentIdx))
	path := make([]int, 0, 16)
	for start := range parentIdx {
		path = path[:0]
		for cur := start; cur >= 0; cur = parentIdx[cur] {
			if state[cur] == done {
				break
			}
			if state[cur] == walking {
				parentIdx[cur] = -1
				break
			}
			state[cur] = walking
			path = append(path, cur)
		}
		for _, n := range path {
			state[n] = done
		}
	}
}

// CountNodes returns the number of nodes in a forest, nested ones included.
func CountNodes[T any](forest []*TreeNode[T]) int {
	n := 0
	for _, node := range forest {
		n += 1 + CountNodes(node.Children)
	}
	return n
}
