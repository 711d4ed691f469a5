package avl

import (
	"github.com/pkg/errors"
)

// --------------------------------------------------------------------------
// Node
// --------------------------------------------------------------------------

// Node is a tree node holding one item
type Node[T any] struct {
	left   *Node[T]
	right  *Node[T]
	parent *Node[T]
	height int
	cnt    int

	// Item is the stored element. It must not be changed in a way that
	// changes its position under the tree's ordering.
	Item T
}

func height[T any](n *Node[T]) int {
	if n == nil {
		return 0
	}
	return n.height
}

func count[T any](n *Node[T]) int {
	if n == nil {
		return 0
	}
	return n.cnt
}

// update recomputes height and subtree size from the children
func (n *Node[T]) update() {
	n.height = 1 + max(height(n.left), height(n.right))
	n.cnt = 1 + count(n.left) + count(n.right)
}

// Size returns the number of nodes in the subtree rooted at n (including n)
func (n *Node[T]) Size() int {
	return count(n)
}

// Next returns the in-order successor or nil
func (n *Node[T]) Next() *Node[T] {
	if n.right != nil {
		n = n.right
		for n.left != nil {
			n = n.left
		}
		return n
	}
	for n.parent != nil && n.parent.right == n {
		n = n.parent
	}
	return n.parent
}

// Prev returns the in-order predecessor or nil
func (n *Node[T]) Prev() *Node[T] {
	if n.left != nil {
		n = n.left
		for n.right != nil {
			n = n.right
		}
		return n
	}
	for n.parent != nil && n.parent.left == n {
		n = n.parent
	}
	return n.parent
}

// Offset returns the node delta positions away from n in sorted order,
// or nil if that position is outside the tree.
func (n *Node[T]) Offset(delta int64) *Node[T] {
	var pos int64 // position relative to the start node
	for delta != pos {
		if pos < delta && pos+int64(count(n.right)) >= delta {
			// target is inside the right subtree
			n = n.right
			pos += int64(count(n.left)) + 1
		} else if pos > delta && pos-int64(count(n.left)) <= delta {
			// target is inside the left subtree
			n = n.left
			pos -= int64(count(n.right)) + 1
		} else {
			parent := n.parent
			if parent == nil {
				return nil
			}
			if parent.right == n {
				pos -= int64(count(n.left)) + 1
			} else {
				pos += int64(count(n.right)) + 1
			}
			n = parent
		}
	}
	return n
}

// Rank returns the zero-based position of n in sorted order
func (n *Node[T]) Rank() int64 {
	rank := int64(count(n.left))
	for n.parent != nil {
		if n.parent.right == n {
			rank += int64(count(n.parent.left)) + 1
		}
		n = n.parent
	}
	return rank
}

// --------------------------------------------------------------------------
// Tree
// --------------------------------------------------------------------------

// Tree is an AVL tree ordered by cmp. cmp returns <0, 0 or >0.
type Tree[T any] struct {
	root *Node[T]
	cmp  func(a, b T) int
}

// New creates an empty tree ordered by cmp
func New[T any](cmp func(a, b T) int) *Tree[T] {
	return &Tree[T]{cmp: cmp}
}

// Len returns the number of nodes
func (t *Tree[T]) Len() int {
	return count(t.root)
}

// Insert adds item to the tree. If an equal item already exists it is
// replaced in place and replaced is true.
func (t *Tree[T]) Insert(item T) (node *Node[T], replaced bool) {
	var parent *Node[T]
	from := &t.root
	for *from != nil {
		parent = *from
		c := t.cmp(item, parent.Item)
		if c == 0 {
			parent.Item = item
			return parent, true
		}
		if c < 0 {
			from = &parent.left
		} else {
			from = &parent.right
		}
	}

	node = &Node[T]{Item: item, parent: parent, height: 1, cnt: 1}
	*from = node
	t.root = fix(node)
	return node, false
}

// Lookup returns the node holding an item equal to item, or nil
func (t *Tree[T]) Lookup(item T) *Node[T] {
	n := t.root
	for n != nil {
		c := t.cmp(item, n.Item)
		switch {
		case c == 0:
			return n
		case c < 0:
			n = n.left
		default:
			n = n.right
		}
	}
	return nil
}

// Delete removes the item equal to item and returns the stored one
func (t *Tree[T]) Delete(item T) (removed T, ok bool) {
	n := t.Lookup(item)
	if n == nil {
		return removed, false
	}
	t.DeleteNode(n)
	return n.Item, true
}

// DeleteNode removes n, which must be part of this tree. All other node
// pointers stay valid.
func (t *Tree[T]) DeleteNode(n *Node[T]) {
	if n.left == nil || n.right == nil {
		t.root = deleteEasy(n)
	} else {
		// the successor takes the place of n
		victim := n.right
		for victim.left != nil {
			victim = victim.left
		}
		t.root = deleteEasy(victim)

		victim.left, victim.right, victim.parent = n.left, n.right, n.parent
		victim.height, victim.cnt = n.height, n.cnt
		if victim.left != nil {
			victim.left.parent = victim
		}
		if victim.right != nil {
			victim.right.parent = victim
		}
		if parent := n.parent; parent == nil {
			t.root = victim
		} else if parent.left == n {
			parent.left = victim
		} else {
			parent.right = victim
		}
	}
	n.left, n.right, n.parent = nil, nil, nil
	n.height, n.cnt = 0, 0
}

// SeekGE returns the first node whose item is >= item, or nil
func (t *Tree[T]) SeekGE(item T) *Node[T] {
	var found *Node[T]
	for n := t.root; n != nil; {
		if t.cmp(n.Item, item) < 0 {
			n = n.right
		} else {
			found = n
			n = n.left
		}
	}
	return found
}

// Min returns the smallest node or nil
func (t *Tree[T]) Min() *Node[T] {
	n := t.root
	if n == nil {
		return nil
	}
	for n.left != nil {
		n = n.left
	}
	return n
}

// At returns the node with the given rank or nil
func (t *Tree[T]) At(rank int64) *Node[T] {
	if rank < 0 || rank >= int64(t.Len()) {
		return nil
	}
	return t.root.Offset(rank - int64(count(t.root.left)))
}

// Ascend calls fn for every item in order until fn returns false
func (t *Tree[T]) Ascend(fn func(item T) bool) {
	for n := t.Min(); n != nil; n = n.Next() {
		if !fn(n.Item) {
			return
		}
	}
}

// Clear drops all nodes
func (t *Tree[T]) Clear() {
	t.root = nil
}

// Verify checks parent links, balance, heights, subtree sizes and ordering of
// the whole tree. It is meant for tests.
func (t *Tree[T]) Verify() error {
	if t.root != nil && t.root.parent != nil {
		return errors.New("root has a parent")
	}
	var prev *Node[T]
	_, err := t.verify(t.root, &prev)
	return err
}

func (t *Tree[T]) verify(n *Node[T], prev **Node[T]) (int, error) {
	if n == nil {
		return 0, nil
	}
	for _, child := range []*Node[T]{n.left, n.right} {
		if child != nil && child.parent != n {
			return 0, errors.Errorf("broken parent link below node %v", n.Item)
		}
	}

	lc, err := t.verify(n.left, prev)
	if err != nil {
		return 0, err
	}

	if *prev != nil && t.cmp((*prev).Item, n.Item) >= 0 {
		return 0, errors.Errorf("order violated: %v before %v", (*prev).Item, n.Item)
	}
	*prev = n

	rc, err := t.verify(n.right, prev)
	if err != nil {
		return 0, err
	}

	l, r := height(n.left), height(n.right)
	if n.height != 1+max(l, r) {
		return 0, errors.Errorf("wrong height %d at node %v", n.height, n.Item)
	}
	if l-r > 1 || r-l > 1 {
		return 0, errors.Errorf("unbalanced node %v (%d/%d)", n.Item, l, r)
	}
	if n.cnt != 1+lc+rc {
		return 0, errors.Errorf("wrong subtree size %d at node %v, expected %d", n.cnt, n.Item, 1+lc+rc)
	}
	return n.cnt, nil
}

// --------------------------------------------------------------------------
// Balancing
// --------------------------------------------------------------------------

func rotateLeft[T any](n *Node[T]) *Node[T] {
	parent, top, inner := n.parent, n.right, n.right.left
	n.right = inner
	if inner != nil {
		inner.parent = n
	}
	top.parent = parent
	top.left = n
	n.parent = top
	n.update()
	top.update()
	return top
}

func rotateRight[T any](n *Node[T]) *Node[T] {
	parent, top, inner := n.parent, n.left, n.left.right
	n.left = inner
	if inner != nil {
		inner.parent = n
	}
	top.parent = parent
	top.right = n
	n.parent = top
	n.update()
	top.update()
	return top
}

// fixLeft rebalances a node whose left subtree is two levels taller
func fixLeft[T any](n *Node[T]) *Node[T] {
	if height(n.left.left) < height(n.left.right) {
		n.left = rotateLeft(n.left)
	}
	return rotateRight(n)
}

// fixRight rebalances a node whose right subtree is two levels taller
func fixRight[T any](n *Node[T]) *Node[T] {
	if height(n.right.right) < height(n.right.left) {
		n.right = rotateRight(n.right)
	}
	return rotateLeft(n)
}

// fix walks from n to the root, updating and rebalancing every node on the
// way. It returns the new root.
func fix[T any](n *Node[T]) *Node[T] {
	for {
		parent := n.parent
		from := &n
		if parent != nil {
			if parent.left == n {
				from = &parent.left
			} else {
				from = &parent.right
			}
		}

		n.update()
		l, r := height(n.left), height(n.right)
		if l == r+2 {
			*from = fixLeft(n)
		} else if l+2 == r {
			*from = fixRight(n)
		}

		if parent == nil {
			return *from
		}
		n = parent
	}
}

// deleteEasy unlinks a node with at most one child and returns the new root
func deleteEasy[T any](n *Node[T]) *Node[T] {
	child := n.left
	if child == nil {
		child = n.right
	}
	parent := n.parent
	if child != nil {
		child.parent = parent
	}
	if parent == nil {
		return child
	}
	if parent.left == n {
		parent.left = child
	} else {
		parent.right = child
	}
	return fix(parent)
}
