package testing

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/ValentinKolb/sKV/lib/db"
)

// RunKVDBBenchmarks runs all benchmarks for a key-value database implementations.
// The engines are single threaded, so the benchmarks do not run in parallel.
func RunKVDBBenchmarks(b *testing.B, name string, factory DBFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Set", func(b *testing.B) {
			benchmarkSet(b, factory(time.Now))
		})

		b.Run("SetExisting", func(b *testing.B) {
			benchmarkSetExisting(b, factory(time.Now))
		})

		b.Run("SetWithExpiry", func(b *testing.B) {
			benchmarkSetWithExpiry(b, factory(time.Now))
		})

		b.Run("Get", func(b *testing.B) {
			benchmarkGet(b, factory(time.Now))
		})

		b.Run("Delete", func(b *testing.B) {
			benchmarkDelete(b, factory(time.Now))
		})

		b.Run("ZAdd", func(b *testing.B) {
			benchmarkZAdd(b, factory(time.Now))
		})

		b.Run("ZQuery", func(b *testing.B) {
			benchmarkZQuery(b, factory(time.Now))
		})

		b.Run("MixedUsage", func(b *testing.B) {
			benchmarkMixedUsage(b, factory(time.Now))
		})
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// prepare fills the database with n string keys
func prepare(database db.KVDB, n int) [][]byte {
	keys := make([][]byte, n)
	for i := 0; i < n; i++ {
		keys[i] = []byte(fmt.Sprintf("test-key-%d", i))
		database.Set(keys[i], []byte(fmt.Sprintf("test-value-%d", i)))
	}
	return keys
}

// Benchmark for Set operation
func benchmarkSet(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	value := []byte("test-value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		database.Set([]byte(fmt.Sprintf("test-key-%d", i)), value)
	}
}

// Benchmark for Set operation with existing keys
func benchmarkSetExisting(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	keys := prepare(database, 10_000)
	value := []byte("updated-value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		database.Set(keys[i%len(keys)], value)
	}
}

// benchmarkSetWithExpiry measures Set followed by Expire, including the active expiration
func benchmarkSetWithExpiry(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	value := []byte("test-expiry-value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := []byte(fmt.Sprintf("test-expiry-key-%d", i))
		database.Set(key, value)
		database.Expire(key, time.Duration(i%100)*time.Millisecond)
		if i%1000 == 0 {
			database.ExpireDue(2000)
		}
	}
}

// Benchmark for Get operation
func benchmarkGet(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	keys := prepare(database, 10_000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		database.Get(keys[i%len(keys)])
	}
}

// Benchmark for Delete operation
func benchmarkDelete(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	numKeys := 100_000
	if b.N < numKeys {
		numKeys = b.N
	}
	keys := prepare(database, numKeys)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		database.Delete(keys[i%numKeys])
	}
}

// Benchmark for ZAdd into a single growing set
func benchmarkZAdd(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	key := []byte("zset")
	rnd := rand.New(rand.NewSource(1))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		database.ZAdd(key, rnd.Float64(), []byte(fmt.Sprintf("member-%d", i)))
	}
}

// Benchmark for ZQuery pages of 10 members out of 100k
func benchmarkZQuery(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	key := []byte("zset")
	numMembers := 100_000
	for i := 0; i < numMembers; i++ {
		database.ZAdd(key, float64(i), []byte(fmt.Sprintf("member-%d", i)))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		database.ZQuery(key, float64(i%numMembers), nil, int64(i%50), 10)
	}
}

// Benchmark for mixed usage patterns
func benchmarkMixedUsage(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	keys := prepare(database, 100_000)
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := keys[rnd.Intn(len(keys))]

		// Random operation: 70% Get, 20% Set, 10% Delete
		switch op := rnd.Intn(10); {
		case op < 7:
			database.Get(key)
		case op < 9:
			database.Set(key, []byte("mixed-value"))
		default:
			database.Delete(key)
		}
	}
}
