// Package zset implements a sorted set: unique member names with a float score,
// ordered by (score, name).
//
// A ZSet keeps two views of the same members. A hash table keyed by name answers
// existence and score lookups in O(1); an AVL tree keyed by (score, name)
// answers ordered and positional queries in O(log n). Both views reference the
// same *Member and are updated together before any method returns.
package zset

import (
	"bytes"
	"cmp"

	"github.com/ValentinKolb/sKV/lib/db/avl"
	"github.com/ValentinKolb/sKV/lib/db/hashtable"
	"github.com/pkg/errors"
)

// Member is one element of a sorted set
type Member struct {
	Name  []byte
	Score float64
	node  *avl.Node[*Member]
}

// compareMembers orders by score, ties are broken by name
func compareMembers(a, b *Member) int {
	if c := cmp.Compare(a.Score, b.Score); c != 0 {
		return c
	}
	return bytes.Compare(a.Name, b.Name)
}

// ZSet is a sorted set. The zero value is not usable, use New.
type ZSet struct {
	tree  *avl.Tree[*Member]
	index *hashtable.Map[*Member]
}

// New creates an empty sorted set
func New() *ZSet {
	return &ZSet{
		tree:  avl.New[*Member](compareMembers),
		index: hashtable.New[*Member](),
	}
}

// Len returns the number of members
func (z *ZSet) Len() int {
	return z.index.Len()
}

// Insert adds name with score. If name is already present its score is
// updated (the member moves to its new position) and false is returned.
// Scores must not be NaN.
func (z *ZSet) Insert(name []byte, score float64) (inserted bool) {
	if m, ok := z.index.Get(name); ok {
		z.rescore(m, score)
		return false
	}

	m := &Member{
		Name:  append([]byte(nil), name...),
		Score: score,
	}
	m.node, _ = z.tree.Insert(m)
	z.index.Set(m.Name, m)
	return true
}

// rescore moves m to the tree position of the new score
func (z *ZSet) rescore(m *Member, score float64) {
	if m.Score == score {
		return
	}
	z.tree.DeleteNode(m.node)
	m.Score = score
	m.node, _ = z.tree.Insert(m)
}

// Lookup returns the member called name or nil
func (z *ZSet) Lookup(name []byte) *Member {
	m, _ := z.index.Get(name)
	return m
}

// Delete removes m, which must be a member of this set
func (z *ZSet) Delete(m *Member) {
	z.index.Delete(m.Name)
	z.tree.DeleteNode(m.node)
	m.node = nil
}

// Remove deletes the member called name and reports whether it existed
func (z *ZSet) Remove(name []byte) bool {
	m, ok := z.index.Get(name)
	if !ok {
		return false
	}
	z.Delete(m)
	return true
}

// SeekGE returns the first member that is >= (score, name), or nil
func (z *ZSet) SeekGE(score float64, name []byte) *Member {
	n := z.tree.SeekGE(&Member{Name: name, Score: score})
	if n == nil {
		return nil
	}
	return n.Item
}

// Offset returns the member delta positions away from m, or nil
func (z *ZSet) Offset(m *Member, delta int64) *Member {
	if m == nil || m.node == nil {
		return nil
	}
	n := m.node.Offset(delta)
	if n == nil {
		return nil
	}
	return n.Item
}

// Rank returns the zero-based position of m
func (z *ZSet) Rank(m *Member) int64 {
	return m.node.Rank()
}

// Range calls fn for up to limit members starting at start, in order.
// A limit < 0 means no limit.
func (z *ZSet) Range(start *Member, limit int64, fn func(m *Member) bool) {
	if start == nil || start.node == nil {
		return
	}
	for n := start.node; n != nil && limit != 0; n = n.Next() {
		if !fn(n.Item) {
			return
		}
		limit--
	}
}

// Clear removes all members from both views
func (z *ZSet) Clear() {
	z.tree.Ascend(func(m *Member) bool {
		m.node = nil
		return true
	})
	z.tree.Clear()
	z.index.Clear()
}

// Verify checks that the hash index and the tree contain exactly the same
// members and that the tree is consistent. It is meant for tests.
func (z *ZSet) Verify() error {
	if err := z.tree.Verify(); err != nil {
		return err
	}
	if z.tree.Len() != z.index.Len() {
		return errors.Errorf("tree has %d members, index has %d", z.tree.Len(), z.index.Len())
	}

	var err error
	z.tree.Ascend(func(m *Member) bool {
		if indexed, ok := z.index.Get(m.Name); !ok || indexed != m {
			err = errors.Errorf("member %q is in the tree but not in the index", m.Name)
			return false
		}
		if m.node == nil || m.node.Item != m {
			err = errors.Errorf("member %q has a stale tree node", m.Name)
			return false
		}
		return true
	})
	return err
}
