// Package lstore implements an embedded sKV keyspace behind the store.IStore
// interface. It wraps any db.KVDB created by a store.DBFactory.
//
// Key Features:
//   - Pure in-memory storage without persistence
//   - Every operation holds one mutex, so the store can be shared by goroutines
//   - A background goroutine removes expired keys every ExpireInterval
//   - Returned values are copies and stay valid after the call
//
// Usage Example:
//
//	factory := func() db.KVDB { return cedar.NewCedarDB(nil) }
//	s := lstore.NewLocalStore(factory)
//	defer s.Close()
//
//	_ = s.Set("session:123", sessionData)
//	_, _ = s.PExpire("session:123", 5*time.Minute)
//
//	value, exists, err := s.Get("session:123")
//
// The perf tool uses the local store to measure the keyspace without the
// network in between.
package lstore
