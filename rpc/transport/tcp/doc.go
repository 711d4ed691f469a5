// Package tcp implements the TCP socket connectors of the sKV transport.
//
// This package builds on the base package: the server connector creates the
// non-blocking listening socket the event loop polls and applies the socket
// options to every accepted connection, the client connector dials the server
// with the net package and tunes the connection.
//
// Key Components:
//
//   - clientConnector: TCP-specific implementation of base.IClientConnector
//
//   - serverConnector: TCP-specific implementation of base.IServerConnector
//
// Endpoints are host:port pairs. A missing host binds all IPv4 interfaces,
// port 0 binds an ephemeral port (see IRPCServerTransport.Addr).
package tcp
