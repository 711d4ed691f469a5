// Package db defines the keyspace interface the sKV command dispatcher works
// against.
//
// A keyspace maps opaque byte-string keys to either a string value or a sorted
// set. Keys can carry a deadline after which they disappear.
//
// Key Components:
//
//   - KVDB Interface: string operations (Get, Set, Delete, Keys), expiration
//     (Expire, TTL, NextExpiry, ExpireDue) and sorted set operations (ZAdd,
//     ZRem, ZScore, ZRank, ZCard, ZQuery).
//
//   - ErrWrongType: returned whenever an operation addresses a key holding the
//     other kind of value. It never changes the stored data.
//
// Note on Expiration:
//   - Expiration is lazy and active at the same time. A read of a key whose
//     deadline passed behaves as if the key did not exist, and the owner of the
//     keyspace (the reactor) periodically calls ExpireDue to physically remove
//     due keys. ExpireDue takes a work limit so a burst of deadlines never stalls
//     the event loop.
//   - NextExpiry lets the event loop bound its wait to the next deadline.
//
// Note on Concurrency:
//   - Implementations are single-threaded by contract. The server never calls a
//     KVDB from more than one goroutine; embedded users that do must synchronise
//     externally (see lib/store/lstore).
//
// Related Packages:
//
// The engines/cedar package (github.com/ValentinKolb/sKV/lib/db/engines/cedar)
// implements KVDB on top of the incrementally resizing hash table
// (lib/db/hashtable) and the sorted set (lib/db/zset).
//
// The testing package (github.com/ValentinKolb/sKV/lib/db/testing) provides
// standardized tests and benchmarks for KVDB implementations.
package db
