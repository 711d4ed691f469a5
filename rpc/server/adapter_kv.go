package server

import (
	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/rpc/protocol"
)

var okReply = []byte("OK")

// NewKVServerAdapter returns the adapter for string values and the keyspace
func NewKVServerAdapter() IRPCServerAdapter {
	return &kvServerAdapterImpl{}
}

type kvServerAdapterImpl struct{}

func (adapter *kvServerAdapterImpl) Commands() map[string]Command {
	return map[string]Command{
		"get":  {Arity: 2, Exec: adapter.get},
		"set":  {Arity: 3, Exec: adapter.set},
		"del":  {Arity: 2, Exec: adapter.del},
		"keys": {Arity: 1, Exec: adapter.keys},
	}
}

// get key -> STR | NIL
func (adapter *kvServerAdapterImpl) get(keyspace db.KVDB, args [][]byte, out *protocol.Encoder) {
	val, ok, err := keyspace.Get(args[1])
	switch {
	case err != nil:
		writeErr(out, err, "expect string")
	case !ok:
		out.Nil()
	default:
		out.Str(val)
	}
}

// set key value -> STR "OK"
func (adapter *kvServerAdapterImpl) set(keyspace db.KVDB, args [][]byte, out *protocol.Encoder) {
	if _, err := keyspace.Set(args[1], args[2]); err != nil {
		writeErr(out, err, "expect string")
		return
	}
	out.Str(okReply)
}

// del key -> INT 1 | 0
func (adapter *kvServerAdapterImpl) del(keyspace db.KVDB, args [][]byte, out *protocol.Encoder) {
	if keyspace.Delete(args[1]) {
		out.Int(1)
		return
	}
	out.Int(0)
}

// keys -> ARR of STR
func (adapter *kvServerAdapterImpl) keys(keyspace db.KVDB, _ [][]byte, out *protocol.Encoder) {
	keys := keyspace.Keys()
	out.Arr(uint32(len(keys)))
	for _, k := range keys {
		out.Str(k)
	}
}
