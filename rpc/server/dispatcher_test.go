package server

import (
	"testing"
	"time"

	"github.com/ValentinKolb/sKV/lib/db/engines/cedar"
	dbtesting "github.com/ValentinKolb/sKV/lib/db/testing"
	"github.com/ValentinKolb/sKV/rpc/protocol"
	"github.com/ValentinKolb/sKV/rpc/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T) (transport.Handler, *dbtesting.ManualClock) {
	t.Helper()
	clock := dbtesting.NewManualClock(time.UnixMilli(1_000_000))
	keyspace := cedar.NewCedarDB(&cedar.DBOptions{Clock: clock.Now})
	t.Cleanup(func() { keyspace.Close() })
	return NewDispatcher(keyspace, 0, DefaultAdapters()...), clock
}

// run executes one command and returns the rendered response
func run(t *testing.T, h transport.Handler, args ...string) string {
	t.Helper()
	raw := make([][]byte, len(args))
	for i, a := range args {
		raw[i] = []byte(a)
	}

	var enc protocol.Encoder
	enc.Begin(nil)
	h.Handle(raw, &enc)
	frame, err := enc.End(protocol.MaxMessageSize)
	require.NoError(t, err)

	v, err := protocol.DecodeValue(frame[protocol.HeaderSize:])
	require.NoError(t, err)
	return v.String()
}

func TestDispatcherStrings(t *testing.T) {
	h, _ := newTestDispatcher(t)

	assert.Equal(t, "nil", run(t, h, "get", "foo"))
	assert.Equal(t, `"OK"`, run(t, h, "set", "foo", "bar"))
	assert.Equal(t, `"bar"`, run(t, h, "get", "foo"))
	assert.Equal(t, `"OK"`, run(t, h, "set", "foo", ""))
	assert.Equal(t, `""`, run(t, h, "get", "foo"))
	assert.Equal(t, `["foo"]`, run(t, h, "keys"))
	assert.Equal(t, "1", run(t, h, "del", "foo"))
	assert.Equal(t, "0", run(t, h, "del", "foo"))
	assert.Equal(t, "[]", run(t, h, "keys"))
}

func TestDispatcherUnknownCommands(t *testing.T) {
	h, _ := newTestDispatcher(t)
	unknown := `err(1, "unknown command.")`

	assert.Equal(t, unknown, run(t, h))
	assert.Equal(t, unknown, run(t, h, "GET", "foo"))
	assert.Equal(t, unknown, run(t, h, "get"))
	assert.Equal(t, unknown, run(t, h, "get", "foo", "bar"))
	assert.Equal(t, unknown, run(t, h, "set", "foo"))
	assert.Equal(t, unknown, run(t, h, "keys", "*"))
	assert.Equal(t, unknown, run(t, h, "flushall"))
}

func TestDispatcherWrongType(t *testing.T) {
	h, _ := newTestDispatcher(t)

	assert.Equal(t, "1", run(t, h, "zadd", "z", "1", "a"))
	assert.Equal(t, `err(3, "expect string")`, run(t, h, "get", "z"))
	assert.Equal(t, `err(3, "expect string")`, run(t, h, "set", "z", "v"))

	assert.Equal(t, `"OK"`, run(t, h, "set", "s", "v"))
	for _, args := range [][]string{
		{"zadd", "s", "1", "a"},
		{"zrem", "s", "a"},
		{"zscore", "s", "a"},
		{"zrank", "s", "a"},
		{"zcard", "s"},
		{"zquery", "s", "0", "", "0", "10"},
		{"zquery", "s", "0", "", "0", "0"},
	} {
		assert.Equal(t, `err(3, "expect zset")`, run(t, h, args...), args)
	}

	// del removes any type
	assert.Equal(t, "1", run(t, h, "del", "z"))
	assert.Equal(t, "nil", run(t, h, "get", "z"))
}

func TestDispatcherZSet(t *testing.T) {
	h, _ := newTestDispatcher(t)

	assert.Equal(t, "[]", run(t, h, "zquery", "zset", "1", "", "0", "10"))
	assert.Equal(t, "1", run(t, h, "zadd", "zset", "1", "n1"))
	assert.Equal(t, "1", run(t, h, "zadd", "zset", "2", "n2"))
	assert.Equal(t, "0", run(t, h, "zadd", "zset", "1.1", "n1"))
	assert.Equal(t, "1.1", run(t, h, "zscore", "zset", "n1"))
	assert.Equal(t, "nil", run(t, h, "zscore", "zset", "n3"))
	assert.Equal(t, "2", run(t, h, "zcard", "zset"))
	assert.Equal(t, "0", run(t, h, "zcard", "missing"))
	assert.Equal(t, "1", run(t, h, "zrank", "zset", "n2"))
	assert.Equal(t, "nil", run(t, h, "zrank", "zset", "n3"))

	assert.Equal(t, `["n1" 1.1 "n2" 2]`, run(t, h, "zquery", "zset", "1", "", "0", "10"))
	assert.Equal(t, `["n2" 2]`, run(t, h, "zquery", "zset", "1.1", "", "1", "10"))
	assert.Equal(t, `[]`, run(t, h, "zquery", "zset", "1.1", "", "2", "10"))
	assert.Equal(t, `["n1" 1.1 "n2" 2]`, run(t, h, "zquery", "zset", "2", "", "-1", "10"))
	assert.Equal(t, `["n1" 1.1]`, run(t, h, "zquery", "zset", "0", "", "0", "2"))
	assert.Equal(t, `["n1" 1.1]`, run(t, h, "zquery", "zset", "0", "", "0", "1"))
	assert.Equal(t, `[]`, run(t, h, "zquery", "zset", "0", "", "0", "0"))
	assert.Equal(t, `[]`, run(t, h, "zquery", "zset", "0", "", "0", "-5"))

	assert.Equal(t, "0", run(t, h, "zrem", "zset", "n3"))
	assert.Equal(t, "1", run(t, h, "zrem", "zset", "n1"))
	assert.Equal(t, `["n2" 2]`, run(t, h, "zquery", "zset", "1", "", "0", "10"))

	// removing the last member removes the key
	assert.Equal(t, "1", run(t, h, "zrem", "zset", "n2"))
	assert.Equal(t, "[]", run(t, h, "keys"))
}

func TestDispatcherBadArguments(t *testing.T) {
	h, _ := newTestDispatcher(t)

	assert.Equal(t, `err(4, "expect float")`, run(t, h, "zadd", "z1", "not-a-number", "a"))
	assert.Equal(t, `err(4, "expect float")`, run(t, h, "zadd", "z1", "nan", "a"))
	assert.Equal(t, `err(4, "expect int")`, run(t, h, "zquery", "z1", "0", "", "0", "bad"))
	assert.Equal(t, `err(4, "expect int")`, run(t, h, "zquery", "z1", "0", "", "1.5", "10"))
	assert.Equal(t, `err(4, "expect float")`, run(t, h, "zquery", "z1", "x", "", "0", "10"))
	assert.Equal(t, `err(4, "expect int")`, run(t, h, "pexpire", "z1", "soon"))

	// nothing was created
	assert.Equal(t, "[]", run(t, h, "keys"))
}

func TestDispatcherInfiniteScores(t *testing.T) {
	h, _ := newTestDispatcher(t)

	assert.Equal(t, "1", run(t, h, "zadd", "z", "inf", "top"))
	assert.Equal(t, "1", run(t, h, "zadd", "z", "-inf", "bottom"))
	assert.Equal(t, "1", run(t, h, "zadd", "z", "0", "middle"))

	assert.Equal(t, `["bottom" -Inf "middle" 0 "top" +Inf]`,
		run(t, h, "zquery", "z", "-inf", "", "0", "100"))
}

func TestDispatcherExpiration(t *testing.T) {
	h, clock := newTestDispatcher(t)

	assert.Equal(t, "0", run(t, h, "pexpire", "key1", "1000"))
	assert.Equal(t, "-2", run(t, h, "pttl", "key1"))

	assert.Equal(t, "1", run(t, h, "zadd", "key1", "5", "test"))
	assert.Equal(t, "-1", run(t, h, "pttl", "key1"))
	assert.Equal(t, "1", run(t, h, "pexpire", "key1", "1000"))
	assert.Equal(t, "1000", run(t, h, "pttl", "key1"))

	at, ok := h.NextTimer()
	require.True(t, ok)
	assert.True(t, clock.Now().Add(time.Second).Equal(at))

	clock.Advance(400 * time.Millisecond)
	assert.Equal(t, "600", run(t, h, "pttl", "key1"))

	// not due yet
	h.ProcessTimers()
	assert.Equal(t, `["key1"]`, run(t, h, "keys"))

	clock.Advance(600 * time.Millisecond)
	h.ProcessTimers()
	assert.Equal(t, "[]", run(t, h, "keys"))
	assert.Equal(t, "nil", run(t, h, "get", "key1"))
	assert.Equal(t, "-2", run(t, h, "pttl", "key1"))

	_, ok = h.NextTimer()
	assert.False(t, ok)
}

func TestDispatcherPersist(t *testing.T) {
	h, clock := newTestDispatcher(t)

	assert.Equal(t, `"OK"`, run(t, h, "set", "k", "v"))
	assert.Equal(t, "1", run(t, h, "pexpire", "k", "10"))
	assert.Equal(t, "1", run(t, h, "pexpire", "k", "-1"))
	assert.Equal(t, "-1", run(t, h, "pttl", "k"))

	clock.Advance(time.Second)
	h.ProcessTimers()
	assert.Equal(t, `"v"`, run(t, h, "get", "k"))

	// set keeps an existing deadline
	assert.Equal(t, "1", run(t, h, "pexpire", "k", "100"))
	assert.Equal(t, `"OK"`, run(t, h, "set", "k", "w"))
	assert.Equal(t, "100", run(t, h, "pttl", "k"))

	// huge values are clamped instead of overflowing
	assert.Equal(t, "1", run(t, h, "pexpire", "k", "9223372036854775807"))
	assert.Equal(t, `"w"`, run(t, h, "get", "k"))
}

func TestDispatcherExpireWorkLimit(t *testing.T) {
	clock := dbtesting.NewManualClock(time.UnixMilli(1_000_000))
	keyspace := cedar.NewCedarDB(&cedar.DBOptions{Clock: clock.Now})
	defer keyspace.Close()
	h := NewDispatcher(keyspace, 3, DefaultAdapters()...)

	for _, k := range []string{"a", "b", "c", "d", "e"} {
		run(t, h, "set", k, "v")
		run(t, h, "pexpire", k, "1")
	}
	clock.Advance(time.Second)

	h.ProcessTimers()
	assert.Equal(t, 2, keyspace.Len())
	h.ProcessTimers()
	assert.Equal(t, 0, keyspace.Len())
}

func TestDispatcherDuplicateCommandPanics(t *testing.T) {
	keyspace := cedar.NewCedarDB(nil)
	defer keyspace.Close()
	assert.Panics(t, func() {
		NewDispatcher(keyspace, 0, NewKVServerAdapter(), NewKVServerAdapter())
	})
}
