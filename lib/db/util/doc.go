// Package util provides utility components for the database engines that
// satisfy the db.KVDB interface.
//
// The package contains:
//   - functions: the FNV-1a hash used to distribute keys over hash table buckets
//   - mapheap: a deadline queue that also supports key-based access, used for key expiration
//
// Neither component is thread-safe. They are owned by a single engine instance
// which is only ever touched by the goroutine running the reactor.
package util
