package server

import (
	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/rpc/protocol"
)

// CommandFunc executes one command. args[0] is the command name. It must
// write exactly one value to out.
type CommandFunc func(keyspace db.KVDB, args [][]byte, out *protocol.Encoder)

// Command describes a command of the vocabulary
type Command struct {
	Arity int // number of arguments including the name
	Exec  CommandFunc
}

// IRPCServerAdapter is the interface for all RPC server adapters.
// An adapter groups the commands working on one kind of value.
type IRPCServerAdapter interface {
	// Commands returns the commands of the adapter keyed by name
	Commands() map[string]Command
}
