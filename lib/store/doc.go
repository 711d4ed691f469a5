// Package store provides a high-level interface to a sKV keyspace that is the
// same whether the keyspace lives in this process or behind a server.
//
// Key Components:
//
//   - IStore Interface: The string, expiration and sorted set operations of the
//     command vocabulary with Go types. Applications can switch between an
//     embedded keyspace and a remote server without code changes.
//
//   - Error System: Command failures are reported as *Error carrying a RetCode
//     that mirrors the code of the ERR value on the wire, so callers can tell a
//     wrong type from a malformed argument.
//
//   - DBFactory: A function type that abstracts the creation of the underlying
//     db.KVDB.
//
// Implementations:
//
//	- Local Store (lstore): Guards a db.KVDB with a mutex and expires keys
//	  in the background. Available in "github.com/ValentinKolb/sKV/lib/store/lstore".
//
//	- RPC Store: Speaks the wire protocol to a sKV server.
//	  Available in "github.com/ValentinKolb/sKV/rpc/client".
package store
