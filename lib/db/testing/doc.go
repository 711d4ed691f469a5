// Package testing provides standardised tests and benchmarks for
// database implementations that satisfy the db.KVDB interface.
//
// The package contains:
//   - testing: A conformance suite for the KVDB contract (strings, sorted sets, expiration)
//   - benchmark: Performance tests for the operations the server executes per request
//   - clock: A manually advanced clock so expiration can be tested without sleeping
//
// Example usage:
//
//	// Creating a factory function for your implementation
//	factory := func(clock func() time.Time) db.KVDB {
//		return NewMyDatabase(clock)
//	}
//
//	// Running the standard test suite
//	dbtesting.RunKVDBTests(t, "MyDatabase", factory)
//
//	// Running performance benchmarks
//	dbtesting.RunKVDBBenchmarks(b, "MyDatabase", factory)
package testing
