package server

import (
	"fmt"
	"time"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/rpc/protocol"
	"github.com/ValentinKolb/sKV/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
)

var unknownCommands = metrics.GetOrCreateCounter(`skv_commands_total{cmd="unknown"}`)

type dispatchEntry struct {
	Command
	calls *metrics.Counter
}

// dispatcher routes requests to the commands of the registered adapters
// and drives the expiration of keys from the transport loop.
type dispatcher struct {
	keyspace        db.KVDB
	commands        map[string]dispatchEntry
	expireWorkLimit int
}

// NewDispatcher creates a transport handler executing the commands of the adapters
// against keyspace. expireWorkLimit bounds the keys expired per loop iteration,
// zero or less means unbounded.
func NewDispatcher(keyspace db.KVDB, expireWorkLimit int, adapters ...IRPCServerAdapter) transport.Handler {
	d := &dispatcher{
		keyspace:        keyspace,
		commands:        make(map[string]dispatchEntry),
		expireWorkLimit: expireWorkLimit,
	}
	for _, adapter := range adapters {
		for name, cmd := range adapter.Commands() {
			if _, dup := d.commands[name]; dup {
				panic(fmt.Sprintf("command %q registered twice", name))
			}
			d.commands[name] = dispatchEntry{
				Command: cmd,
				calls:   metrics.GetOrCreateCounter(fmt.Sprintf(`skv_commands_total{cmd=%q}`, name)),
			}
		}
	}
	return d
}

func (d *dispatcher) Handle(args [][]byte, out *protocol.Encoder) {
	if len(args) == 0 {
		unknownCommands.Inc()
		out.Err(protocol.ErrCodeUnknown, "unknown command.")
		return
	}
	entry, ok := d.commands[string(args[0])]
	if !ok || entry.Arity != len(args) {
		unknownCommands.Inc()
		out.Err(protocol.ErrCodeUnknown, "unknown command.")
		return
	}
	entry.calls.Inc()
	entry.Exec(d.keyspace, args, out)
}

func (d *dispatcher) NextTimer() (time.Time, bool) {
	return d.keyspace.NextExpiry()
}

func (d *dispatcher) ProcessTimers() {
	if n := d.keyspace.ExpireDue(d.expireWorkLimit); n > 0 {
		Logger.Debugf("expired %d keys", n)
	}
}
