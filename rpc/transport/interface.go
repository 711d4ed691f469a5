package transport

import (
	"context"
	"time"

	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/protocol"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// Handler executes requests on behalf of a server transport.
// All methods are called from the goroutine running the transport, never concurrently.
type Handler interface {
	// Handle executes one request and writes exactly one response value to out.
	// args alias the inbound buffer of the connection and are only valid during the call.
	Handle(args [][]byte, out *protocol.Encoder)

	// NextTimer returns the earliest time the handler wants ProcessTimers to be called
	NextTimer() (at time.Time, ok bool)

	// ProcessTimers runs the work that is due. It is called once per loop iteration.
	ProcessTimers()
}

// IRPCServerTransport is the interface for the RPC transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers the handler that executes requests
	RegisterHandler(handler Handler)

	// Bind creates the listening socket
	Bind(config common.ServerConfig) error

	// Addr returns the address the transport is bound to
	Addr() string

	// Serve runs the event loop until ctx is cancelled
	Serve(ctx context.Context) error

	// Listen is Bind followed by Serve
	Listen(ctx context.Context, config common.ServerConfig) error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error

	// Send sends one request and returns its response
	Send(args [][]byte) (protocol.Value, error)

	// Pipeline sends all requests on one connection before reading the responses.
	// The responses are returned in request order.
	Pipeline(reqs [][][]byte) ([]protocol.Value, error)

	// Close closes the transport connections
	Close() error
}
