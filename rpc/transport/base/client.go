package base

import (
	"bufio"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/protocol"
	"github.com/ValentinKolb/sKV/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/pkg/errors"
)

var clientLogger = logger.GetLogger("client")

// ErrResponseLost is returned when the connection failed after the requests
// were written. The server may have executed them, so they are not resent.
var ErrResponseLost = errors.New("connection lost before the response arrived")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to endpoint
	Connect(endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// clientConnection is one connection to an endpoint. The protocol answers
// requests in order, so a connection carries one exchange at a time.
type clientConnection struct {
	mu       sync.Mutex
	conn     net.Conn
	reader   *bufio.Reader
	endpoint string
	reqBuf   []byte
	parent   *clientTransport
}

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.)
type clientTransport struct {
	connector     IClientConnector
	config        common.ClientConfig
	connections   []*clientConnection
	connectionsMu sync.RWMutex
	nextConnIndex uint64 // Atomic counter for Round Robin
	stopping      atomic.Bool
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{
		connector: connector,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if len(config.Transport.Endpoints) == 0 {
		return errors.New("no endpoints provided")
	}

	// Close all existing connections
	t.closeConnections()

	t.config = config
	t.stopping.Store(false)

	// Set default value for ConnectionsPerEndpoint
	connectionsPerEP := max(1, config.Transport.ConnectionsPerEndpoint)

	connections := make([]*clientConnection, 0, len(config.Transport.Endpoints)*connectionsPerEP)
	for _, endpoint := range config.Transport.Endpoints {
		// Create multiple connections per endpoint
		for i := 0; i < connectionsPerEP; i++ {
			clientConn := &clientConnection{
				endpoint: endpoint,
				parent:   t,
			}

			// Establish the initial connection
			if err := clientConn.reconnect(); err != nil {
				clientLogger.Warningf("Failed to connect to %s (connection %d/%d): %v", endpoint, i+1, connectionsPerEP, err)
				continue
			}

			connections = append(connections, clientConn)
			clientLogger.Debugf("Connected to %s (connection %d/%d)", endpoint, i+1, connectionsPerEP)
		}
	}

	// Check if we have at least one connection
	if len(connections) == 0 {
		return errors.Errorf("failed to connect to any of %v", config.Transport.Endpoints)
	}

	t.connectionsMu.Lock()
	t.connections = connections
	t.connectionsMu.Unlock()

	clientLogger.Debugf("Connected %d out of %d connections to %d endpoints using %s transport",
		len(connections), len(config.Transport.Endpoints)*connectionsPerEP, len(config.Transport.Endpoints), t.connector.GetName())

	return nil
}

func (t *clientTransport) Send(args [][]byte) (protocol.Value, error) {
	resp, err := t.Pipeline([][][]byte{args})
	if err != nil {
		return protocol.Value{}, err
	}
	return resp[0], nil
}

func (t *clientTransport) Pipeline(reqs [][][]byte) ([]protocol.Value, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	// Retry logic with exponential backoff
	var lastErr error

	// We always try at least once
	maxRetries := max(1, t.config.Transport.RetryCount)

	// Initial backoff duration in milliseconds
	backoffMs := 50

	for i := 0; i < maxRetries; i++ {
		if t.stopping.Load() {
			return nil, errors.New("transport is closed")
		}

		conn := t.getNextConnection()
		if conn == nil {
			return nil, errors.New("no active connections available")
		}

		resp, err := conn.exchange(reqs)
		if err == nil {
			return resp, nil
		}

		// a request the server can never accept is not retried, neither is
		// one the server may already have applied
		if errors.Is(err, protocol.ErrTooBig) || errors.Is(err, ErrResponseLost) {
			return nil, err
		}

		lastErr = err
		clientLogger.Debugf("Request attempt %d/%d failed: %v", i+1, maxRetries, err)

		if i+1 < maxRetries {
			// Exponential backoff with a small random jitter (+-10%)
			jitter := float64(backoffMs) * (0.9 + 0.2*rand.Float64())
			time.Sleep(time.Duration(jitter) * time.Millisecond)
			backoffMs *= 2
		}
	}

	// All attempts failed
	return nil, errors.Wrapf(lastErr, "failed to send request after %d attempts", maxRetries)
}

func (t *clientTransport) Close() error {
	t.stopping.Store(true)
	t.closeConnections()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// getNextConnection selects the next connection via Round Robin
func (t *clientTransport) getNextConnection() *clientConnection {
	t.connectionsMu.RLock()
	defer t.connectionsMu.RUnlock()

	if len(t.connections) == 0 {
		return nil
	}
	if len(t.connections) == 1 {
		return t.connections[0]
	}
	index := atomic.AddUint64(&t.nextConnIndex, 1) % uint64(len(t.connections))
	return t.connections[index]
}

// closeConnections closes all active connections
func (t *clientTransport) closeConnections() {
	t.connectionsMu.Lock()
	defer t.connectionsMu.Unlock()

	for _, c := range t.connections {
		c.mu.Lock()
		c.drop()
		c.mu.Unlock()
	}
	t.connections = nil
}

// exchange writes all requests and reads one response per request.
// A failed exchange drops the connection; the next exchange reconnects.
// Read failures wrap ErrResponseLost.
func (c *clientConnection) exchange(reqs [][][]byte) ([]protocol.Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// encode before touching the connection
	c.reqBuf = c.reqBuf[:0]
	for _, args := range reqs {
		var err error
		if c.reqBuf, err = protocol.AppendRequest(c.reqBuf, args); err != nil {
			return nil, err
		}
	}

	if c.conn == nil {
		if err := c.reconnect(); err != nil {
			return nil, err
		}
	}

	if timeout := c.parent.config.Timeout(); timeout > 0 {
		if err := c.conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			c.drop()
			return nil, errors.Wrap(err, "failed to set deadline")
		}
	}

	if _, err := c.conn.Write(c.reqBuf); err != nil {
		c.drop()
		return nil, errors.Wrap(err, "failed to write request")
	}

	resp := make([]protocol.Value, 0, len(reqs))
	for range reqs {
		// every response gets its own buffer since values alias it
		v, err := protocol.ReadResponse(c.reader, nil)
		if err != nil {
			c.drop()
			return nil, errors.Wrapf(ErrResponseLost, "failed to read response: %v", err)
		}
		resp = append(resp, v)
	}
	return resp, nil
}

// drop closes the network connection, the caller holds c.mu
func (c *clientConnection) drop() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.reader = nil
	}
}

// reconnect establishes or restores a connection to the endpoint, the caller holds c.mu
// (or owns c exclusively)
func (c *clientConnection) reconnect() error {
	c.drop()

	// Connect to the endpoint
	conn, err := c.parent.connector.Connect(c.endpoint)
	if err != nil {
		return errors.Wrapf(err, "failed to connect to %s", c.endpoint)
	}

	// Upgrade the connection with protocol-specific settings
	if err := c.parent.connector.UpgradeConnection(conn, c.parent.config); err != nil {
		conn.Close()
		return errors.Wrapf(err, "failed to upgrade connection to %s", c.endpoint)
	}

	size := c.parent.config.Transport.ReadBufferSize
	if size <= 0 {
		size = 64 * 1024
	}
	c.conn = conn
	c.reader = bufio.NewReaderSize(conn, size)
	return nil
}
