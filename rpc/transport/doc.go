// Package transport defines the interfaces between the sKV server logic and
// the network.
//
// A server transport owns the listening socket and every accepted connection.
// It frames requests and hands them to a Handler, which writes one response
// per request. Client transports send framed requests and return the decoded
// responses in request order.
//
// The implementations live in the subpackages: base contains the event loop
// and the client core, tcp and unix provide the socket specific connectors.
package transport
