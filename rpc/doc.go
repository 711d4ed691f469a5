// Package rpc provides the network side of sKV: the wire protocol, the event
// loop serving connections and the client talking to it.
//
// The package is organized into several subpackages:
//
//   - protocol: The binary framing of requests and tagged response values.
//
//   - common: Configuration structures and logging shared by server and client.
//
//   - transport: The single-threaded poll based server loop with its connection
//     state machine, and the client transport. TCP and Unix socket flavours.
//
//   - server: The command dispatcher executing requests against the keyspace.
//
//   - client: A store.IStore over the client transport and the response
//     formatting of the command line client.
package rpc
