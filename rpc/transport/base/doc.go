// Package base provides the foundation of the sKV transports: a single
// threaded, readiness driven server loop and a blocking client, both
// independent of the socket family. Protocol specific connectors (tcp, unix)
// create the sockets.
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for socket specific
//     operations that allow extending the base transport with different
//     socket families.
//
//   - serverTransport: The event loop. Every iteration builds a poll(2) set
//     from the listening socket, a self pipe used to interrupt the wait, and
//     one entry per connection whose interest follows the state of the
//     connection. Interrupted waits are retried. Readable listeners accept
//     every pending connection and set it non-blocking.
//
//   - conn: The connection state machine (reading, writing, closing). A read
//     event performs one non-blocking read, then every complete frame in the
//     inbound buffer is executed in arrival order and its response appended to
//     the outbound buffer. A write event writes as much as the socket takes.
//     A zero byte read, a failed read or write and every protocol violation
//     move the connection to closing.
//
//   - clientTransport: Client with round-robin over multiple connections,
//     request pipelining and retries with exponential backoff.
//     Requests are only resent when they could not be written.
//
// Resource Management:
//
//   - Connections live in a map keyed by descriptor owned by the loop. Removing
//     a connection from the map closes its descriptor; there is no other way a
//     connection is released.
//
//   - Idle connections are closed after the configured idle timeout. The loop
//     keeps connections in a recency list, so finding expired ones only looks
//     at the front of the list.
//
//   - Connections beyond MaxConnections are closed right after accept.
//
//   - The wait is bounded by the next idle deadline and the next timer of the
//     handler (key expiration), whichever comes first.
//
// Thread Safety:
//
//	The server loop runs on one goroutine and calls the handler from it only.
//	Serve can be stopped from any goroutine by cancelling its context. All
//	public methods of the client transport are safe for concurrent use.
package base
