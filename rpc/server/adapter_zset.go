package server

import (
	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/rpc/protocol"
)

// NewZSetServerAdapter returns the adapter for sorted set values
func NewZSetServerAdapter() IRPCServerAdapter {
	return &zsetServerAdapterImpl{}
}

type zsetServerAdapterImpl struct{}

func (adapter *zsetServerAdapterImpl) Commands() map[string]Command {
	return map[string]Command{
		"zadd":   {Arity: 4, Exec: adapter.zadd},
		"zrem":   {Arity: 3, Exec: adapter.zrem},
		"zscore": {Arity: 3, Exec: adapter.zscore},
		"zrank":  {Arity: 3, Exec: adapter.zrank},
		"zcard":  {Arity: 2, Exec: adapter.zcard},
		"zquery": {Arity: 6, Exec: adapter.zquery},
	}
}

const expectZSet = "expect zset"

// zadd key score name -> INT 1 added | 0 updated
func (adapter *zsetServerAdapterImpl) zadd(keyspace db.KVDB, args [][]byte, out *protocol.Encoder) {
	score, ok := parseFloat(args[2])
	if !ok {
		out.Err(protocol.ErrCodeBadArg, "expect float")
		return
	}
	added, err := keyspace.ZAdd(args[1], score, args[3])
	if err != nil {
		writeErr(out, err, expectZSet)
		return
	}
	out.Int(boolInt(added))
}

// zrem key name -> INT 1 | 0
func (adapter *zsetServerAdapterImpl) zrem(keyspace db.KVDB, args [][]byte, out *protocol.Encoder) {
	removed, err := keyspace.ZRem(args[1], args[2])
	if err != nil {
		writeErr(out, err, expectZSet)
		return
	}
	out.Int(boolInt(removed))
}

// zscore key name -> DBL | NIL
func (adapter *zsetServerAdapterImpl) zscore(keyspace db.KVDB, args [][]byte, out *protocol.Encoder) {
	score, ok, err := keyspace.ZScore(args[1], args[2])
	switch {
	case err != nil:
		writeErr(out, err, expectZSet)
	case !ok:
		out.Nil()
	default:
		out.Dbl(score)
	}
}

// zrank key name -> INT | NIL
func (adapter *zsetServerAdapterImpl) zrank(keyspace db.KVDB, args [][]byte, out *protocol.Encoder) {
	rank, ok, err := keyspace.ZRank(args[1], args[2])
	switch {
	case err != nil:
		writeErr(out, err, expectZSet)
	case !ok:
		out.Nil()
	default:
		out.Int(rank)
	}
}

// zcard key -> INT
func (adapter *zsetServerAdapterImpl) zcard(keyspace db.KVDB, args [][]byte, out *protocol.Encoder) {
	n, err := keyspace.ZCard(args[1])
	if err != nil {
		writeErr(out, err, expectZSet)
		return
	}
	out.Int(int64(n))
}

// zquery key score name offset limit -> ARR of name, score pairs.
// limit counts array elements, so limit 3 returns two members.
func (adapter *zsetServerAdapterImpl) zquery(keyspace db.KVDB, args [][]byte, out *protocol.Encoder) {
	score, ok := parseFloat(args[2])
	if !ok {
		out.Err(protocol.ErrCodeBadArg, "expect float")
		return
	}
	offset, ok1 := parseInt(args[4])
	limit, ok2 := parseInt(args[5])
	if !ok1 || !ok2 {
		out.Err(protocol.ErrCodeBadArg, "expect int")
		return
	}

	if limit <= 0 {
		// the type of the key is still checked
		if _, err := keyspace.ZCard(args[1]); err != nil {
			writeErr(out, err, expectZSet)
			return
		}
		out.Arr(0)
		return
	}

	members, err := keyspace.ZQuery(args[1], score, args[3], offset, limit/2+limit%2)
	if err != nil {
		writeErr(out, err, expectZSet)
		return
	}
	out.Arr(uint32(2 * len(members)))
	for _, m := range members {
		out.Str(m.Name)
		out.Dbl(m.Score)
	}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
