package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Shared socket configuration
// --------------------------------------------------------------------------

// SocketConf holds socket buffer sizes (0 = OS default)
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds options only applied to TCP sockets
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int // 0 = disabled
	TCPLingerSec    int // < 0 = OS default
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// Server defaults
const (
	DefaultIdleTimeoutMs     = 5_000
	DefaultReadChunkSize     = 64 * 1024
	DefaultExpireWorkPerTick = 2_000
)

// ServerTransportConfig configures the listening socket
type ServerTransportConfig struct {
	// Endpoint is a host:port for tcp or a socket path for unix
	Endpoint string
	SocketConf
	TCPConf
}

// ServerConfig holds all configuration parameters of the server
type ServerConfig struct {
	Transport ServerTransportConfig

	// Protocol limits
	MaxArgs int // ceiling for the argc of a request

	// Connection policy
	MaxConnections int   // 0 = unlimited
	IdleTimeoutMs  int64 // 0 = connections never time out
	ReadChunkSize  int   // bytes read per readiness event

	// Keyspace maintenance
	ExpireWorkPerTick int // keys expired per loop iteration at most

	// Prometheus metrics endpoint (empty = disabled)
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
}

// DefaultServerConfig returns a configuration with every limit at its default
func DefaultServerConfig(endpoint string) ServerConfig {
	return ServerConfig{
		Transport: ServerTransportConfig{
			Endpoint: endpoint,
			TCPConf:  TCPConf{TCPNoDelay: true, TCPLingerSec: -1},
		},
		MaxArgs:           200_000,
		IdleTimeoutMs:     DefaultIdleTimeoutMs,
		ReadChunkSize:     DefaultReadChunkSize,
		ExpireWorkPerTick: DefaultExpireWorkPerTick,
		LogLevel:          "info",
	}
}

// IdleTimeout returns the idle timeout as duration
func (c *ServerConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutMs) * time.Millisecond
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	orUnlimited := func(v int64) string {
		if v <= 0 {
			return "unlimited"
		}
		return strconv.FormatInt(v, 10)
	}

	// Transport settings
	addSection("Transport")
	addField("Endpoint", c.Transport.Endpoint)
	addField("TCP No Delay", strconv.FormatBool(c.Transport.TCPNoDelay))
	addField("Read Buffer", fmt.Sprintf("%d B", c.Transport.ReadBufferSize))
	addField("Write Buffer", fmt.Sprintf("%d B", c.Transport.WriteBufferSize))

	// Connection policy
	addSection("Connections")
	addField("Max Connections", orUnlimited(int64(c.MaxConnections)))
	if c.IdleTimeoutMs > 0 {
		addField("Idle Timeout", c.IdleTimeout().String())
	} else {
		addField("Idle Timeout", "disabled")
	}
	addField("Read Chunk Size", fmt.Sprintf("%d B", c.ReadChunkSize))
	addField("Max Args", strconv.Itoa(c.MaxArgs))

	// Keyspace
	addSection("Keyspace")
	addField("Expire Work Per Tick", orUnlimited(int64(c.ExpireWorkPerTick)))

	// Observability
	addSection("Observability")
	addField("Log Level", c.LogLevel)
	if c.MetricsEndpoint != "" {
		addField("Metrics Endpoint", c.MetricsEndpoint)
	} else {
		addField("Metrics Endpoint", "disabled")
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientTransportConfig configures the client connections
type ClientTransportConfig struct {
	Endpoints              []string
	RetryCount             int
	ConnectionsPerEndpoint int
	SocketConf
	TCPConf
}

type ClientConfig struct {
	TimeoutSecond int
	Transport     ClientTransportConfig
}

// Timeout returns the request timeout (0 = none)
func (c *ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.Transport.RetryCount))
	addField("Conns Per Endpoint", strconv.Itoa(max(1, c.Transport.ConnectionsPerEndpoint)))
	addField("TCP No Delay", strconv.FormatBool(c.Transport.TCPNoDelay))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
