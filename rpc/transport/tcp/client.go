package tcp

import (
	"net"
	"time"

	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/transport"
	"github.com/ValentinKolb/sKV/rpc/transport/base"
)

// clientConnector implements the IClientConnector interface for TCP sockets
type clientConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "tcp"
}

func (c *clientConnector) Connect(endpoint string) (net.Conn, error) {
	return net.DialTimeout("tcp", endpoint, 5*time.Second)
}

// UpgradeConnection applies the TCP options of config to a dialed connection
func (c *clientConnector) UpgradeConnection(conn net.Conn, config common.ClientConfig) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil // Not a TCP connection, nothing to upgrade
	}
	t := config.Transport

	if err := tcpConn.SetNoDelay(t.TCPNoDelay); err != nil {
		return err
	}
	if t.WriteBufferSize > 0 {
		if err := tcpConn.SetWriteBuffer(t.WriteBufferSize); err != nil {
			return err
		}
	}
	if t.ReadBufferSize > 0 {
		if err := tcpConn.SetReadBuffer(t.ReadBufferSize); err != nil {
			return err
		}
	}
	if t.TCPKeepAliveSec > 0 {
		if err := tcpConn.SetKeepAlive(true); err != nil {
			return err
		}
		if err := tcpConn.SetKeepAlivePeriod(time.Duration(t.TCPKeepAliveSec) * time.Second); err != nil {
			return err
		}
	}
	if t.TCPLingerSec >= 0 {
		if err := tcpConn.SetLinger(t.TCPLingerSec); err != nil {
			return err
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Client Transport Factory Method
// --------------------------------------------------------------------------

// NewTCPClientTransport creates a new TCP client transport
func NewTCPClientTransport() transport.IRPCClientTransport {
	return base.NewBaseClientTransport(&clientConnector{})
}
