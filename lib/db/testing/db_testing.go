package testing

import (
	"bytes"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/pkg/errors"
)

// DBFactory is a function that creates a new instance of a KVDB implementation
// reading the current time from clock
type DBFactory func(clock func() time.Time) db.KVDB

// RunKVDBTests runs a comprehensive test suite for a KVDB implementation.
func RunKVDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, newTestDB(factory))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, newTestDB(factory))
		})

		t.Run("Keys", func(t *testing.T) {
			testKeys(t, newTestDB(factory))
		})

		t.Run("WrongType", func(t *testing.T) {
			testWrongType(t, newTestDB(factory))
		})

		t.Run("Expire", func(t *testing.T) {
			testExpire(t, newTestDB(factory))
		})

		t.Run("KeyExpiry", func(t *testing.T) {
			testKeyExpiry(t, newTestDB(factory))
		})

		t.Run("ManyExpiringKeys", func(t *testing.T) {
			testManyExpiringKeys(t, newTestDB(factory))
		})

		t.Run("ZSet", func(t *testing.T) {
			testZSet(t, newTestDB(factory))
		})

		t.Run("ZQuery", func(t *testing.T) {
			testZQuery(t, newTestDB(factory))
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, newTestDB(factory))
		})

		t.Run("RealisticUsage", func(t *testing.T) {
			testRealisticUsage(t, newTestDB(factory))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// testDB bundles a database with the clock it reads
type testDB struct {
	db.KVDB
	clock *ManualClock
}

func newTestDB(factory DBFactory) *testDB {
	clock := NewManualClock(time.UnixMilli(1_700_000_000_000))
	return &testDB{
		KVDB:  factory(clock.Now),
		clock: clock,
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, database *testDB) {
	defer database.Close()

	testKey := []byte("test-key")
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	replaced, err := database.Set(testKey, testValue1)
	if err != nil || replaced {
		t.Errorf("Expected first Set to succeed without replacing, got replaced=%v err=%v", replaced, err)
	}

	result, exists, err := database.Get(testKey)
	if err != nil || !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}
	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	replaced, _ = database.Set(testKey, testValue2)
	if !replaced {
		t.Errorf("Expected second Set to replace the value")
	}

	result, _, _ = database.Get(testKey)
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	_, exists, err = database.Get([]byte("nonexistent-key"))
	if exists || err != nil {
		t.Errorf("Expected nonexistent key to return exists=false without error")
	}

	// the database must own its copy of the value
	input := []byte("owned-value")
	database.Set([]byte("owned"), input)
	input[0] = 'X'
	result, _, _ = database.Get([]byte("owned"))
	if !bytes.Equal(result, []byte("owned-value")) {
		t.Errorf("Set should copy the value, got %s", result)
	}

	// the key must be copied as well
	key := []byte("key-buffer")
	database.Set(key, []byte("v"))
	key[0] = 'X'
	if _, exists, _ = database.Get([]byte("key-buffer")); !exists {
		t.Errorf("Set should copy the key")
	}
}

func testDelete(t *testing.T, database *testDB) {
	defer database.Close()

	testKey := []byte("delete-key")
	database.Set(testKey, []byte("value"))

	if !database.Delete(testKey) {
		t.Errorf("Expected Delete to report an existing key")
	}
	if _, exists, _ := database.Get(testKey); exists {
		t.Errorf("Key should not exist after Delete")
	}
	if database.Delete(testKey) {
		t.Errorf("Expected second Delete to report a missing key")
	}

	// deleting a sorted set
	database.ZAdd([]byte("zset"), 1, []byte("a"))
	if !database.Delete([]byte("zset")) {
		t.Errorf("Expected Delete to remove a sorted set")
	}
	if n, _ := database.ZCard([]byte("zset")); n != 0 {
		t.Errorf("Expected deleted sorted set to be empty, got %d members", n)
	}

	if database.Len() != 0 {
		t.Errorf("Expected empty database, got %d keys", database.Len())
	}
}

func testKeys(t *testing.T, database *testDB) {
	defer database.Close()

	if keys := database.Keys(); len(keys) != 0 {
		t.Errorf("Expected no keys in empty database, got %d", len(keys))
	}

	expected := []string{"a", "b", "c", "zset"}
	database.Set([]byte("a"), []byte("1"))
	database.Set([]byte("b"), []byte("2"))
	database.Set([]byte("c"), []byte("3"))
	database.ZAdd([]byte("zset"), 1, []byte("m"))

	var got []string
	for _, k := range database.Keys() {
		got = append(got, string(k))
	}
	sort.Strings(got)

	if fmt.Sprint(got) != fmt.Sprint(expected) {
		t.Errorf("Expected keys %v, got %v", expected, got)
	}
}

func testWrongType(t *testing.T, database *testDB) {
	defer database.Close()

	database.Set([]byte("str"), []byte("value"))
	database.ZAdd([]byte("zset"), 1, []byte("m"))

	if _, err := database.ZAdd([]byte("str"), 1, []byte("m")); !errors.Is(err, db.ErrWrongType) {
		t.Errorf("Expected ErrWrongType for ZAdd on a string, got %v", err)
	}
	if _, err := database.ZCard([]byte("str")); !errors.Is(err, db.ErrWrongType) {
		t.Errorf("Expected ErrWrongType for ZCard on a string, got %v", err)
	}
	if _, err := database.ZQuery([]byte("str"), 0, nil, 0, -1); !errors.Is(err, db.ErrWrongType) {
		t.Errorf("Expected ErrWrongType for ZQuery on a string, got %v", err)
	}
	if _, _, err := database.Get([]byte("zset")); !errors.Is(err, db.ErrWrongType) {
		t.Errorf("Expected ErrWrongType for Get on a sorted set, got %v", err)
	}
	if _, err := database.Set([]byte("zset"), []byte("v")); !errors.Is(err, db.ErrWrongType) {
		t.Errorf("Expected ErrWrongType for Set on a sorted set, got %v", err)
	}

	// failed operations must not change the values
	if v, _, _ := database.Get([]byte("str")); !bytes.Equal(v, []byte("value")) {
		t.Errorf("String value changed after failed operation: %s", v)
	}
	if n, _ := database.ZCard([]byte("zset")); n != 1 {
		t.Errorf("Sorted set changed after failed operation: %d members", n)
	}
}

func testExpire(t *testing.T, database *testDB) {
	defer database.Close()

	testKey := []byte("ttl-key")

	if ttl := database.TTL(testKey); ttl != db.TTLMissing {
		t.Errorf("Expected TTL %d for missing key, got %d", db.TTLMissing, ttl)
	}
	if database.Expire(testKey, time.Second) {
		t.Errorf("Expire on a missing key should fail")
	}

	database.Set(testKey, []byte("value"))
	if ttl := database.TTL(testKey); ttl != db.TTLPersisted {
		t.Errorf("Expected TTL %d for persistent key, got %d", db.TTLPersisted, ttl)
	}

	if !database.Expire(testKey, 1500*time.Millisecond) {
		t.Errorf("Expire on an existing key should succeed")
	}
	if ttl := database.TTL(testKey); ttl != 1500 {
		t.Errorf("Expected TTL 1500, got %d", ttl)
	}

	database.clock.Advance(500 * time.Millisecond)
	if ttl := database.TTL(testKey); ttl != 1000 {
		t.Errorf("Expected TTL 1000 after 500ms, got %d", ttl)
	}

	// Set keeps the deadline
	database.Set(testKey, []byte("other"))
	if ttl := database.TTL(testKey); ttl != 1000 {
		t.Errorf("Expected Set to keep the TTL, got %d", ttl)
	}

	// a negative ttl makes the key persistent
	if !database.Expire(testKey, -1) {
		t.Errorf("Removing the TTL should succeed")
	}
	if ttl := database.TTL(testKey); ttl != db.TTLPersisted {
		t.Errorf("Expected persistent key after removing the TTL, got %d", ttl)
	}
	if _, ok := database.NextExpiry(); ok {
		t.Errorf("Expected no pending deadline after removing the TTL")
	}

	database.clock.Advance(time.Hour)
	if _, exists, _ := database.Get(testKey); !exists {
		t.Errorf("Persistent key should never expire")
	}

	// sorted sets expire like strings
	database.ZAdd([]byte("zset"), 1, []byte("m"))
	database.Expire([]byte("zset"), 10*time.Millisecond)
	database.clock.Advance(10 * time.Millisecond)
	if n, _ := database.ZCard([]byte("zset")); n != 0 {
		t.Errorf("Expected expired sorted set to be empty, got %d", n)
	}
}

func testKeyExpiry(t *testing.T, database *testDB) {
	defer database.Close()

	testKey := []byte("expiring-key")
	testValue := []byte("expiring-value")

	database.Set(testKey, testValue)
	database.Expire(testKey, 100*time.Millisecond)

	deadline, ok := database.NextExpiry()
	if !ok {
		t.Fatalf("Expected a pending deadline")
	}
	if want := database.clock.Now().Add(100 * time.Millisecond); !deadline.Equal(want) {
		t.Errorf("Expected deadline %v, got %v", want, deadline)
	}

	database.clock.Advance(99 * time.Millisecond)
	result, exists, _ := database.Get(testKey)
	if !exists {
		t.Errorf("Key should still exist after 99ms")
	}
	if !bytes.Equal(result, testValue) {
		t.Errorf("Expected value %s, got %s", testValue, result)
	}

	database.clock.Advance(time.Millisecond)
	if _, exists, _ = database.Get(testKey); exists {
		t.Errorf("Key should have expired after 100ms")
	}
	if ttl := database.TTL(testKey); ttl != db.TTLMissing {
		t.Errorf("Expected expired key to be missing, got TTL %d", ttl)
	}

	// an expired key can be written again and starts without deadline
	database.Set(testKey, testValue)
	if ttl := database.TTL(testKey); ttl != db.TTLPersisted {
		t.Errorf("Expected recreated key to be persistent, got TTL %d", ttl)
	}
	if n := database.ExpireDue(0); n != 0 {
		t.Errorf("Recreated key must not be expired by a stale deadline, expired %d", n)
	}
}

func testManyExpiringKeys(t *testing.T, database *testDB) {
	defer database.Close()

	numKeys := 100

	for i := 0; i < numKeys; i++ {
		key := []byte(fmt.Sprintf("expire-key-%d", i))
		database.Set(key, []byte(fmt.Sprintf("expire-value-%d", i)))
		database.Expire(key, time.Duration(i+1)*time.Millisecond)
	}
	database.Set([]byte("persistent"), []byte("value"))

	if n := database.ExpireDue(0); n != 0 {
		t.Errorf("Expected no due keys, got %d", n)
	}

	database.clock.Advance(50 * time.Millisecond)

	// keys with ttl 1..50 ms are due, collected in bounded steps
	if n := database.ExpireDue(10); n != 10 {
		t.Errorf("Expected ExpireDue to honour the limit, expired %d", n)
	}
	if n := database.ExpireDue(0); n != 40 {
		t.Errorf("Expected remaining 40 due keys to expire, expired %d", n)
	}
	if database.Len() != numKeys-50+1 {
		t.Errorf("Expected %d keys after expiry, got %d", numKeys-50+1, database.Len())
	}

	deadline, ok := database.NextExpiry()
	if !ok {
		t.Fatalf("Expected pending deadlines")
	}
	if want := database.clock.Now().Add(time.Millisecond); !deadline.Equal(want) {
		t.Errorf("Expected next deadline %v, got %v", want, deadline)
	}

	for i := 0; i < numKeys; i++ {
		key := []byte(fmt.Sprintf("expire-key-%d", i))
		_, exists, _ := database.Get(key)
		if (i < 50) == exists {
			t.Errorf("Key %s: expected exists=%v", key, i >= 50)
		}
	}

	database.clock.Advance(time.Second)
	database.ExpireDue(0)
	if database.Len() != 1 {
		t.Errorf("Expected only the persistent key to survive, got %d keys", database.Len())
	}
	if _, ok := database.NextExpiry(); ok {
		t.Errorf("Expected no pending deadline")
	}
}

func testZSet(t *testing.T, database *testDB) {
	defer database.Close()

	key := []byte("zset")

	added, err := database.ZAdd(key, 1, []byte("n1"))
	if err != nil || !added {
		t.Errorf("Expected ZAdd to add a new member, got added=%v err=%v", added, err)
	}
	added, _ = database.ZAdd(key, 2, []byte("n2"))
	if !added {
		t.Errorf("Expected ZAdd to add a second member")
	}
	added, _ = database.ZAdd(key, 1.1, []byte("n1"))
	if added {
		t.Errorf("Expected ZAdd on an existing member to only update the score")
	}

	if score, ok, _ := database.ZScore(key, []byte("n1")); !ok || score != 1.1 {
		t.Errorf("Expected score 1.1, got %v (loaded=%v)", score, ok)
	}
	if _, ok, _ := database.ZScore(key, []byte("missing")); ok {
		t.Errorf("Expected no score for a missing member")
	}
	if _, ok, _ := database.ZScore([]byte("missing"), []byte("n1")); ok {
		t.Errorf("Expected no score for a missing key")
	}

	if rank, ok, _ := database.ZRank(key, []byte("n2")); !ok || rank != 1 {
		t.Errorf("Expected rank 1, got %d (loaded=%v)", rank, ok)
	}
	if n, _ := database.ZCard(key); n != 2 {
		t.Errorf("Expected 2 members, got %d", n)
	}

	if removed, _ := database.ZRem(key, []byte("missing")); removed {
		t.Errorf("Expected ZRem of a missing member to report false")
	}
	if removed, _ := database.ZRem([]byte("missing"), []byte("n1")); removed {
		t.Errorf("Expected ZRem on a missing key to report false")
	}
	if removed, _ := database.ZRem(key, []byte("n1")); !removed {
		t.Errorf("Expected ZRem to remove n1")
	}
	if rank, _, _ := database.ZRank(key, []byte("n2")); rank != 0 {
		t.Errorf("Expected rank 0 after removal, got %d", rank)
	}

	// removing the last member removes the key
	database.ZRem(key, []byte("n2"))
	if database.Len() != 0 {
		t.Errorf("Expected emptied sorted set to be removed, got %d keys", database.Len())
	}
	if n, err := database.ZCard(key); n != 0 || err != nil {
		t.Errorf("Expected ZCard 0 for a missing key, got %d (err=%v)", n, err)
	}
}

func testZQuery(t *testing.T, database *testDB) {
	defer database.Close()

	key := []byte("zset")
	for i := 0; i < 10; i++ {
		database.ZAdd(key, float64(i), []byte(fmt.Sprintf("m%d", i)))
	}
	// equal score ordered by name
	database.ZAdd(key, 5, []byte("m5b"))

	names := func(members []db.ScoredMember) []string {
		out := make([]string, len(members))
		for i, m := range members {
			out[i] = string(m.Name)
		}
		return out
	}

	res, _ := database.ZQuery(key, 0, nil, 0, -1)
	if len(res) != 11 {
		t.Errorf("Expected all 11 members, got %d", len(res))
	}

	res, _ = database.ZQuery(key, 5, nil, 0, 3)
	if fmt.Sprint(names(res)) != "[m5 m5b m6]" {
		t.Errorf("Unexpected query result %v", names(res))
	}
	if res[0].Score != 5 {
		t.Errorf("Expected score 5, got %v", res[0].Score)
	}

	res, _ = database.ZQuery(key, 5, []byte("m5a"), 0, 2)
	if fmt.Sprint(names(res)) != "[m5b m6]" {
		t.Errorf("Unexpected query result %v", names(res))
	}

	res, _ = database.ZQuery(key, 5, nil, -2, 2)
	if fmt.Sprint(names(res)) != "[m3 m4]" {
		t.Errorf("Unexpected query result with negative offset %v", names(res))
	}

	res, _ = database.ZQuery(key, 5, nil, 100, -1)
	if len(res) != 0 {
		t.Errorf("Expected empty result for offset past the end, got %v", names(res))
	}

	res, _ = database.ZQuery(key, 100, nil, 0, -1)
	if len(res) != 0 {
		t.Errorf("Expected empty result when seeking past the last member, got %v", names(res))
	}

	res, _ = database.ZQuery(key, 0, nil, 0, 0)
	if len(res) != 0 {
		t.Errorf("Expected empty result for limit 0, got %v", names(res))
	}

	res, err := database.ZQuery([]byte("missing"), 0, nil, 0, -1)
	if err != nil || len(res) != 0 {
		t.Errorf("Expected empty result for a missing key, got %v (err=%v)", names(res), err)
	}
}

func testEdgeCases(t *testing.T, database *testDB) {
	defer database.Close()

	// empty key and value
	database.Set([]byte{}, []byte{})
	if v, exists, _ := database.Get([]byte{}); !exists || len(v) != 0 {
		t.Errorf("Expected empty key with empty value to exist")
	}

	// binary keys
	binKey := []byte{0, 1, 2, 0xff}
	database.Set(binKey, []byte("bin"))
	if v, _, _ := database.Get(binKey); !bytes.Equal(v, []byte("bin")) {
		t.Errorf("Expected binary key to round trip, got %s", v)
	}

	// large values
	large := make([]byte, 1<<20)
	for i := range large {
		large[i] = byte(i)
	}
	database.Set([]byte("large"), large)
	if v, _, _ := database.Get([]byte("large")); !bytes.Equal(v, large) {
		t.Errorf("Large value did not round trip")
	}

	// infinite scores are allowed
	database.ZAdd([]byte("inf"), math.Inf(-1), []byte("low"))
	database.ZAdd([]byte("inf"), math.Inf(1), []byte("high"))
	if rank, _, _ := database.ZRank([]byte("inf"), []byte("high")); rank != 1 {
		t.Errorf("Expected +inf member to rank last, got %d", rank)
	}

	info := database.GetInfo()
	if info.Keys != database.Len() {
		t.Errorf("Expected info to report %d keys, got %d", database.Len(), info.Keys)
	}
}

func testRealisticUsage(t *testing.T, database *testDB) {
	defer database.Close()

	rnd := rand.New(rand.NewSource(42))
	model := make(map[string]string)

	for i := 0; i < 20_000; i++ {
		key := fmt.Sprintf("key-%d", rnd.Intn(500))
		switch op := rnd.Intn(10); {
		case op < 4:
			value := fmt.Sprintf("value-%d", i)
			database.Set([]byte(key), []byte(value))
			model[key] = value
		case op < 8:
			v, exists, _ := database.Get([]byte(key))
			want, inModel := model[key]
			if exists != inModel || (exists && string(v) != want) {
				t.Fatalf("Get(%s) = %q,%v want %q,%v", key, v, exists, want, inModel)
			}
		default:
			existed := database.Delete([]byte(key))
			_, inModel := model[key]
			if existed != inModel {
				t.Fatalf("Delete(%s) = %v want %v", key, existed, inModel)
			}
			delete(model, key)
		}
	}

	if database.Len() != len(model) {
		t.Errorf("Expected %d keys, got %d", len(model), database.Len())
	}
}
