// Package server implements the command layer of the sKV server.
// It translates decoded requests into operations on the keyspace and writes
// the tagged response values back through the transport encoder.
//
// The package focuses on:
//   - Exact command matching: a command is identified by its name and its arity
//   - Adapter pattern to group the commands working on one kind of value
//   - Driving key expiration from the single transport loop
//
// Key Components:
//
//   - IRPCServerAdapter: Interface for a group of commands. NewKVServerAdapter
//     (get, set, del, keys), NewTTLServerAdapter (pexpire, pttl) and
//     NewZSetServerAdapter (zadd, zrem, zscore, zrank, zcard, zquery) make up
//     the complete vocabulary.
//
//   - NewDispatcher: Creates the transport.Handler routing requests to the
//     adapters. It reports the nearest key deadline to the transport and expires
//     a bounded number of keys per loop iteration.
//
//   - NewRPCServer: Creates a server owning one keyspace and one transport.
//
// Usage Example:
//
//	config := common.DefaultServerConfig("0.0.0.0:1234")
//
//	s := server.NewRPCServer(config, tcp.NewTCPServerTransport())
//	if err := s.Serve(ctx); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Command errors never close a connection. They are returned as ERR values:
//
//	1  unknown command or wrong number of arguments
//	3  the key holds a value of another type
//	4  an argument could not be parsed
//
// Thread Safety:
//
//	All commands run on the goroutine of the transport loop. The keyspace is
//	not shared and needs no locking.
package server
