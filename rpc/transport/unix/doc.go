// Package unix implements the Unix domain socket connectors of the sKV
// transport, for clients running on the same machine as the server.
//
// The endpoint is the path of the socket file. The server connector removes a
// stale file before binding and removes the file again on shutdown.
//
// Key Components:
//
//   - clientConnector: Establishes connections using Unix domain sockets
//
//   - serverConnector: Creates the non-blocking Unix socket the event loop polls
package unix
