package server

import (
	"time"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/rpc/protocol"
)

// NewTTLServerAdapter returns the adapter for key expiration
func NewTTLServerAdapter() IRPCServerAdapter {
	return &ttlServerAdapterImpl{}
}

type ttlServerAdapterImpl struct{}

func (adapter *ttlServerAdapterImpl) Commands() map[string]Command {
	return map[string]Command{
		"pexpire": {Arity: 3, Exec: adapter.pexpire},
		"pttl":    {Arity: 2, Exec: adapter.pttl},
	}
}

// maxTTLMs keeps deadlines representable as time.Duration
const maxTTLMs = int64(time.Duration(1<<63-1) / time.Millisecond)

// pexpire key ms -> INT 1 | 0, a negative ms removes the deadline
func (adapter *ttlServerAdapterImpl) pexpire(keyspace db.KVDB, args [][]byte, out *protocol.Encoder) {
	ms, ok := parseInt(args[2])
	if !ok {
		out.Err(protocol.ErrCodeBadArg, "expect int")
		return
	}
	ms = min(ms, maxTTLMs)

	ttl := time.Duration(ms) * time.Millisecond
	if ms < 0 {
		ttl = -1
	}
	if keyspace.Expire(args[1], ttl) {
		out.Int(1)
		return
	}
	out.Int(0)
}

// pttl key -> INT remaining ms | -1 no deadline | -2 missing
func (adapter *ttlServerAdapterImpl) pttl(keyspace db.KVDB, args [][]byte, out *protocol.Encoder) {
	out.Int(keyspace.TTL(args[1]))
}
