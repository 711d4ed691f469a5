package client_test

import (
	"context"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/client"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/server"
	"github.com/ValentinKolb/sKV/rpc/transport/tcp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) store.IStore {
	t.Helper()
	config := common.DefaultServerConfig("127.0.0.1:0")
	config.LogLevel = "error"

	s := server.NewRPCServer(config, tcp.NewTCPServerTransport())
	require.NoError(t, s.Init())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	clientConfig := common.ClientConfig{
		TimeoutSecond: 5,
		Transport: common.ClientTransportConfig{
			Endpoints:              []string{s.Addr()},
			RetryCount:             2,
			ConnectionsPerEndpoint: 2,
			TCPConf:                common.TCPConf{TCPNoDelay: true, TCPLingerSec: -1},
		},
	}
	st, err := client.NewRPCStore(clientConfig, tcp.NewTCPClientTransport())
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, st.Close())
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	return st
}

func requireCode(t *testing.T, err error, code store.RetCode) {
	t.Helper()
	var storeErr *store.Error
	require.True(t, errors.As(err, &storeErr), "expected *store.Error, got %v", err)
	assert.Equal(t, code, storeErr.Code)
}

func TestRPCStoreStrings(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set("foo", []byte("bar")))
	val, ok, err := s.Get("foo")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("bar"), val)

	_, ok, err = s.Get("baz")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("empty", nil))
	val, ok, err = s.Get("empty")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, val)

	keys, err := s.Keys()
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"empty", "foo"}, keys)

	existed, err := s.Delete("foo")
	require.NoError(t, err)
	assert.True(t, existed)
	existed, err = s.Delete("foo")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestRPCStoreSortedSets(t *testing.T) {
	s := newTestStore(t)

	members, err := s.ZQuery("zset", 1, "", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, members)

	added, err := s.ZAdd("zset", 1, "n1")
	require.NoError(t, err)
	assert.True(t, added)
	_, err = s.ZAdd("zset", 2, "n2")
	require.NoError(t, err)
	added, err = s.ZAdd("zset", 1.1, "n1")
	require.NoError(t, err)
	assert.False(t, added)

	score, ok, err := s.ZScore("zset", "n1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1.1, score)

	_, ok, err = s.ZScore("zset", "n3")
	require.NoError(t, err)
	assert.False(t, ok)

	rank, ok, err := s.ZRank("zset", "n2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), rank)

	n, err := s.ZCard("zset")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	members, err = s.ZQuery("zset", 1, "", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []db.ScoredMember{
		{Name: []byte("n1"), Score: 1.1},
		{Name: []byte("n2"), Score: 2},
	}, members)

	// limit counts members on this side
	members, err = s.ZQuery("zset", 1, "", 0, 1)
	require.NoError(t, err)
	require.Len(t, members, 1)

	members, err = s.ZQuery("zset", 1.1, "", 1, math.MaxInt64)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "n2", string(members[0].Name))

	removed, err := s.ZRem("zset", "n1")
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestRPCStoreInfiniteScores(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ZAdd("z", math.Inf(1), "top")
	require.NoError(t, err)
	_, err = s.ZAdd("z", math.Inf(-1), "bottom")
	require.NoError(t, err)

	members, err := s.ZQuery("z", math.Inf(-1), "", 0, 10)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.True(t, math.IsInf(members[0].Score, -1))
	assert.True(t, math.IsInf(members[1].Score, 1))
}

func TestRPCStoreErrors(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set("s", []byte("v")))
	_, err := s.ZAdd("z", 1, "m")
	require.NoError(t, err)

	_, _, err = s.Get("z")
	requireCode(t, err, store.RetCWrongType)

	_, err = s.ZCard("s")
	requireCode(t, err, store.RetCWrongType)

	_, err = s.ZAdd("z", math.NaN(), "m")
	requireCode(t, err, store.RetCInvalidArgument)

	// the connection stays usable
	val, ok, err := s.Get("s")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), val)
}

func TestRPCStoreExpiration(t *testing.T) {
	s := newTestStore(t)

	ok, err := s.PExpire("k", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	ms, err := s.PTTL("k")
	require.NoError(t, err)
	assert.Equal(t, db.TTLMissing, ms)

	require.NoError(t, s.Set("k", []byte("v")))
	ms, err = s.PTTL("k")
	require.NoError(t, err)
	assert.Equal(t, db.TTLPersisted, ms)

	ok, err = s.PExpire("k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ms, err = s.PTTL("k")
	require.NoError(t, err)
	assert.InDelta(t, 60_000, ms, 1_000)

	ok, err = s.PExpire("k", -1)
	require.NoError(t, err)
	assert.True(t, ok)
	ms, err = s.PTTL("k")
	require.NoError(t, err)
	assert.Equal(t, db.TTLPersisted, ms)

	_, err = s.PExpire("k", 30*time.Millisecond)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok, err := s.Get("k")
		return err == nil && !ok
	}, 3*time.Second, 10*time.Millisecond)
}
