package hashtable

import (
	"bytes"

	"github.com/ValentinKolb/sKV/lib/db/util"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	initialBuckets = 4   // first table size, must be a power of two
	migrateWork    = 128 // max nodes moved from older to newer per call

	// resize when size/buckets > maxLoadNum/maxLoadDen (1.5)
	maxLoadNum = 3
	maxLoadDen = 2
)

// --------------------------------------------------------------------------
// Internal types
// --------------------------------------------------------------------------

// node is a single entry in a bucket chain
type node[V any] struct {
	next  *node[V]
	hcode uint64
	key   []byte
	value V
}

// table is one bucket array with its element count
type table[V any] struct {
	buckets []*node[V]
	mask    uint64
	size    int
}

func newTable[V any](n int) table[V] {
	if n <= 0 || n&(n-1) != 0 {
		panic("hashtable: bucket count must be a power of two")
	}
	return table[V]{
		buckets: make([]*node[V], n),
		mask:    uint64(n - 1),
	}
}

func (t *table[V]) insert(n *node[V]) {
	pos := n.hcode & t.mask
	n.next = t.buckets[pos]
	t.buckets[pos] = n
	t.size++
}

// lookup returns the address of the link pointing at the matching node,
// which allows the caller to unlink it
func (t *table[V]) lookup(key []byte, hcode uint64) **node[V] {
	if t.buckets == nil {
		return nil
	}
	from := &t.buckets[hcode&t.mask]
	for cur := *from; cur != nil; cur = *from {
		if cur.hcode == hcode && bytes.Equal(cur.key, key) {
			return from
		}
		from = &cur.next
	}
	return nil
}

// detach unlinks the node referenced by from
func (t *table[V]) detach(from **node[V]) *node[V] {
	n := *from
	*from = n.next
	n.next = nil
	t.size--
	return n
}

// --------------------------------------------------------------------------
// Map
// --------------------------------------------------------------------------

// Map is a hash table from byte-string keys to values of type V
type Map[V any] struct {
	newer      table[V]
	older      table[V]
	migratePos int
}

// New creates an empty map. Buckets are allocated on the first insert.
func New[V any]() *Map[V] {
	return &Map[V]{}
}

// Get returns the value for key.
func (m *Map[V]) Get(key []byte) (value V, loaded bool) {
	m.helpResizing()
	if from := m.find(key, util.HashBytes(key)); from != nil {
		return (*from).value, true
	}
	return value, false
}

// Has reports whether key is present.
func (m *Map[V]) Has(key []byte) bool {
	_, ok := m.Get(key)
	return ok
}

// Set stores value under key. It returns true if an existing value was replaced.
// The key is copied, the caller may reuse it.
func (m *Map[V]) Set(key []byte, value V) (replaced bool) {
	m.helpResizing()

	hcode := util.HashBytes(key)
	if from := m.find(key, hcode); from != nil {
		(*from).value = value
		return true
	}

	if m.newer.buckets == nil {
		m.newer = newTable[V](initialBuckets)
	}
	m.newer.insert(&node[V]{
		hcode: hcode,
		key:   append([]byte(nil), key...),
		value: value,
	})

	if m.older.buckets == nil && m.newer.size*maxLoadDen > len(m.newer.buckets)*maxLoadNum {
		m.triggerResizing()
	}
	m.helpResizing()
	return false
}

// Delete removes key. It returns the removed value and whether the key existed.
func (m *Map[V]) Delete(key []byte) (value V, existed bool) {
	m.helpResizing()

	hcode := util.HashBytes(key)
	if from := m.newer.lookup(key, hcode); from != nil {
		return m.newer.detach(from).value, true
	}
	if from := m.older.lookup(key, hcode); from != nil {
		return m.older.detach(from).value, true
	}
	return value, false
}

// Len returns the number of stored entries
func (m *Map[V]) Len() int {
	return m.newer.size + m.older.size
}

// ForEach calls fn for every entry until fn returns false.
// The map must not be modified by fn.
func (m *Map[V]) ForEach(fn func(key []byte, value V) bool) {
	for _, t := range []*table[V]{&m.newer, &m.older} {
		for _, head := range t.buckets {
			for n := head; n != nil; n = n.next {
				if !fn(n.key, n.value) {
					return
				}
			}
		}
	}
}

// Clear drops all entries
func (m *Map[V]) Clear() {
	*m = Map[V]{}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// find probes newer first and then older
func (m *Map[V]) find(key []byte, hcode uint64) **node[V] {
	if from := m.newer.lookup(key, hcode); from != nil {
		return from
	}
	return m.older.lookup(key, hcode)
}

// triggerResizing turns newer into older and allocates a table twice the size
func (m *Map[V]) triggerResizing() {
	m.older = m.newer
	m.newer = newTable[V](len(m.older.buckets) * 2)
	m.migratePos = 0
}

// helpResizing moves a bounded number of nodes from older into newer
func (m *Map[V]) helpResizing() {
	if m.older.buckets == nil {
		return
	}

	moved := 0
	for moved < migrateWork && m.older.size > 0 {
		from := &m.older.buckets[m.migratePos]
		if *from == nil {
			m.migratePos++
			continue
		}
		m.newer.insert(m.older.detach(from))
		moved++
	}

	if m.older.size == 0 {
		m.older = table[V]{}
	}
}

// resizing reports whether a migration is in progress
func (m *Map[V]) resizing() bool {
	return m.older.buckets != nil
}
