package client

import (
	"math"
	"time"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/protocol"
	"github.com/ValentinKolb/sKV/rpc/transport"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// NewRPCStore creates a new RPC store
// The function takes a config and a transport as parameters
// It returns a store.IStore and an error
func NewRPCStore(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
) (store.IStore, error) {

	// Connect the transport
	err := transport.Connect(config)
	if err != nil {
		return nil, err
	}

	return &rpcStore{
		config:    config,
		transport: transport,
	}, nil
}

type rpcStore struct {
	config    common.ClientConfig
	transport transport.IRPCClientTransport
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (s *rpcStore) Get(key string) ([]byte, bool, error) {
	v, err := invokeRPCRequest(s.transport, Args("get", key))
	if err != nil {
		return nil, false, err
	}
	if err := expect(v, protocol.TagStr, protocol.TagNil); err != nil {
		return nil, false, err
	}
	if v.Tag == protocol.TagNil {
		return nil, false, nil
	}
	return v.Str, true, nil
}

func (s *rpcStore) Set(key string, value []byte) error {
	v, err := invokeRPCRequest(s.transport, [][]byte{[]byte("set"), []byte(key), value})
	if err != nil {
		return err
	}
	return expect(v, protocol.TagStr)
}

func (s *rpcStore) Delete(key string) (bool, error) {
	return s.boolCommand("del", key)
}

func (s *rpcStore) Keys() ([]string, error) {
	v, err := invokeRPCRequest(s.transport, Args("keys"))
	if err != nil {
		return nil, err
	}
	if err := expect(v, protocol.TagArr); err != nil {
		return nil, err
	}
	return lo.Map(v.Arr, func(k protocol.Value, _ int) string { return string(k.Str) }), nil
}

func (s *rpcStore) PExpire(key string, ttl time.Duration) (bool, error) {
	ms := ttl.Milliseconds()
	if ttl < 0 {
		ms = -1
	}
	return s.boolCommand("pexpire", key, formatInt(ms))
}

func (s *rpcStore) PTTL(key string) (int64, error) {
	return s.intCommand("pttl", key)
}

func (s *rpcStore) ZAdd(key string, score float64, name string) (bool, error) {
	return s.boolCommand("zadd", key, formatFloat(score), name)
}

func (s *rpcStore) ZRem(key, name string) (bool, error) {
	return s.boolCommand("zrem", key, name)
}

func (s *rpcStore) ZScore(key, name string) (float64, bool, error) {
	v, err := invokeRPCRequest(s.transport, Args("zscore", key, name))
	if err != nil {
		return 0, false, err
	}
	if err := expect(v, protocol.TagDbl, protocol.TagNil); err != nil {
		return 0, false, err
	}
	return v.Dbl, v.Tag == protocol.TagDbl, nil
}

func (s *rpcStore) ZRank(key, name string) (int64, bool, error) {
	v, err := invokeRPCRequest(s.transport, Args("zrank", key, name))
	if err != nil {
		return 0, false, err
	}
	if err := expect(v, protocol.TagInt, protocol.TagNil); err != nil {
		return 0, false, err
	}
	return v.Int, v.Tag == protocol.TagInt, nil
}

func (s *rpcStore) ZCard(key string) (int64, error) {
	return s.intCommand("zcard", key)
}

func (s *rpcStore) ZQuery(key string, score float64, name string, offset, limit int64) ([]db.ScoredMember, error) {
	// the server counts array elements, two per member
	limit = min(max(limit, 0), math.MaxInt64/2) * 2

	v, err := invokeRPCRequest(s.transport, Args("zquery", key, formatFloat(score), name, formatInt(offset), formatInt(limit)))
	if err != nil {
		return nil, err
	}
	if err := expect(v, protocol.TagArr); err != nil {
		return nil, err
	}
	if len(v.Arr)%2 != 0 {
		return nil, errors.Wrapf(ErrUnexpectedResponse, "zquery returned %d elements", len(v.Arr))
	}
	return lo.Map(lo.Chunk(v.Arr, 2), func(pair []protocol.Value, _ int) db.ScoredMember {
		return db.ScoredMember{Name: pair[0].Str, Score: pair[1].Dbl}
	}), nil
}

func (s *rpcStore) Close() error {
	return s.transport.Close()
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func (s *rpcStore) intCommand(args ...string) (int64, error) {
	v, err := invokeRPCRequest(s.transport, Args(args...))
	if err != nil {
		return 0, err
	}
	if err := expect(v, protocol.TagInt); err != nil {
		return 0, err
	}
	return v.Int, nil
}

func (s *rpcStore) boolCommand(args ...string) (bool, error) {
	n, err := s.intCommand(args...)
	return n == 1, err
}
