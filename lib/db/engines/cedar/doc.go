// Package cedar implements the sKV keyspace (db.KVDB) for a single-threaded
// server.
//
// The package focuses on:
//   - Point lookups through an incrementally resizing hash table, so no single
//     request pays for a full rehash
//   - Sorted sets stored as regular values of the keyspace
//   - Key expiration with a deadline heap that is drained in bounded steps
//
// Key Components:
//
//   - cedarImpl: The database structure implementing db.KVDB. It owns the key
//     table, the deadline heap and the clock used to evaluate deadlines.
//
//   - Entry (internal): One key of the keyspace. It holds either a string value
//     or a *zset.ZSet plus the optional deadline in unix milliseconds.
//
// Internal Mechanisms:
//
//   - Lazy expiration: every lookup checks the deadline of the entry it found
//     and removes the entry if it is due. Callers never observe expired keys.
//
//   - Active expiration: ExpireDue pops due deadlines from the heap (at most
//     the given number per call) and removes the keys. The reactor calls it
//     once per loop iteration and waits no longer than NextExpiry.
//
//   - Emptied sorted sets are removed from the keyspace so a key never exists
//     without a value.
//
// Thread Safety:
//
//	Nothing in this package is synchronised. The server only calls the engine
//	from the reactor goroutine.
package cedar
