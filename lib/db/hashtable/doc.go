// Package hashtable implements a chained hash table keyed by opaque byte strings
// that grows incrementally instead of rehashing everything at once.
//
// The map owns two bucket arrays. New entries always go into "newer"; when the
// load factor of newer exceeds maxLoadFactor, newer becomes "older" and a table
// of twice the size takes its place. Every following Get, Set or Delete first
// moves up to migrateWork nodes from older into newer, so no single call pays
// for the whole rehash. Lookups probe newer first and then older, each with its
// own mask. When older is drained it is dropped.
//
// Bucket sizes are always powers of two and the bucket of a node is
// hcode & (len(buckets)-1). The hash is the 64 bit FNV-1a of the key
// (see util.HashBytes) and is never exposed to callers.
//
// Usage:
//
//	m := hashtable.New[[]byte]()
//	m.Set([]byte("foo"), []byte("bar"))
//	v, ok := m.Get([]byte("foo"))
//	existed := m.Delete([]byte("foo"))
//
// The map is not thread-safe.
package hashtable
