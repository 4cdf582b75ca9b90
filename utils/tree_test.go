package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type node struct {
	id     int
	parent int // 0 means none
}

func forest(items []node) []*TreeNode[node] {
	return BuildForest(items,
		func(n node) int { return n.id },
		func(n node) (int, bool) { return n.parent, n.parent != 0 })
}

func ids(nodes []*TreeNode[node]) []int {
	out := make([]int, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Item.id)
	}
	return out
}

func TestBuildForestNesting(t *testing.T) {
	items := []node{{1, 0}, {2, 1}, {3, 0}, {4, 2}, {5, 1}}
	roots := forest(items)

	assert.Equal(t, []int{1, 3}, ids(roots))
	assert.Equal(t, []int{2, 5}, ids(roots[0].Children))
	assert.Equal(t, []int{4}, ids(roots[0].Children[0].Children))
	assert.Empty(t, roots[1].Children)
	assert.Equal(t, len(items), CountNodes(roots))
}

func TestBuildForestChildBeforeParent(t *testing.T) {
	roots := forest([]node{{2, 1}, {1, 0}})
	require.Len(t, roots, 1)
	assert.Equal(t, 1, roots[0].Item.id)
	assert.Equal(t, []int{2}, ids(roots[0].Children))
}

func TestBuildForestOrphanBecomesRoot(t *testing.T) {
	roots := forest([]node{{1, 0}, {2, 99}, {3, 2}})
	assert.Equal(t, []int{1, 2}, ids(roots))
	assert.Equal(t, []int{3}, ids(roots[1].Children))
	assert.Equal(t, 3, CountNodes(roots))
}

func TestBuildForestEmpty(t *testing.T) {
	roots := forest(nil)
	assert.NotNil(t, roots)
	assert.Empty(t, roots)
}

func TestBuildForestCycleKeepsEveryNode(t *testing.T) {
	cases := map[string][]node{
		"self":      {{1, 1}},
		"pair":      {{1, 2}, {2, 1}},
		"triangle":  {{1, 3}, {2, 1}, {3, 2}, {4, 0}},
		"tail":      {{5, 1}, {1, 2}, {2, 1}},
		"two loops": {{1, 2}, {2, 1}, {3, 4}, {4, 3}},
	}
	for name, items := range cases {
		t.Run(name, func(t *testing.T) {
			roots := forest(items)
			assert.NotEmpty(t, roots)
			assert.Equal(t, len(items), CountNodes(roots))
		})
	}
}

func TestBuildForestIsRepeatable(t *testing.T) {
	items := []node{{1, 0}, {2, 1}, {3, 2}}
	snapshot := append([]node(nil), items...)

	a := forest(items)
	b := forest(items)
	assert.Equal(t, a, b)
	assert.NotSame(t, a[0], b[0])
	assert.Equal(t, snapshot, items)
}
