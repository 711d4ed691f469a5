package tcp

import (
	"net"
	"strconv"

	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/transport"
	"github.com/ValentinKolb/sKV/rpc/transport/base"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// serverConnector implements the IServerConnector interface for TCP sockets
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "tcp"
}

func (c *serverConnector) Listen(config common.ServerConfig) (int, string, error) {
	addr, err := net.ResolveTCPAddr("tcp", config.Transport.Endpoint)
	if err != nil {
		return -1, "", errors.Wrapf(err, "invalid endpoint %q", config.Transport.Endpoint)
	}
	family, sa, err := toSockaddr(addr)
	if err != nil {
		return -1, "", err
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, "", errors.Wrap(err, "socket")
	}
	unix.CloseOnExec(fd)

	fail := func(op string, err error) (int, string, error) {
		unix.Close(fd)
		return -1, "", errors.Wrap(err, op)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fail("setsockopt SO_REUSEADDR", err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		return fail("bind "+config.Transport.Endpoint, err)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		return fail("listen", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return fail("set non-blocking", err)
	}

	bound, err := unix.Getsockname(fd)
	if err != nil {
		return fail("getsockname", err)
	}
	return fd, sockaddrString(bound), nil
}

// UpgradeConnection applies the TCP options of config to an accepted socket
func (c *serverConnector) UpgradeConnection(fd int, config common.ServerConfig) error {
	t := config.Transport

	// Disable Nagle's algorithm (TCPNoDelay) if configured
	if t.TCPNoDelay {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
			return errors.Wrap(err, "TCP_NODELAY")
		}
	}

	// Set socket buffer sizes if configured
	if t.WriteBufferSize > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, t.WriteBufferSize); err != nil {
			return errors.Wrap(err, "SO_SNDBUF")
		}
	}
	if t.ReadBufferSize > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, t.ReadBufferSize); err != nil {
			return errors.Wrap(err, "SO_RCVBUF")
		}
	}

	// Enable keep-alive if configured, the probe interval is left to the OS
	if t.TCPKeepAliveSec > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1); err != nil {
			return errors.Wrap(err, "SO_KEEPALIVE")
		}
	}

	// Set linger option if configured
	if t.TCPLingerSec >= 0 {
		linger := &unix.Linger{Onoff: 1, Linger: int32(t.TCPLingerSec)}
		if err := unix.SetsockoptLinger(fd, unix.SOL_SOCKET, unix.SO_LINGER, linger); err != nil {
			return errors.Wrap(err, "SO_LINGER")
		}
	}

	return nil
}

func (c *serverConnector) Cleanup(common.ServerConfig) {}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// toSockaddr converts a resolved address into the socket family and address for bind(2)
func toSockaddr(addr *net.TCPAddr) (int, unix.Sockaddr, error) {
	if addr.IP == nil || addr.IP.To4() != nil {
		sa := &unix.SockaddrInet4{Port: addr.Port}
		if addr.IP != nil {
			copy(sa.Addr[:], addr.IP.To4())
		}
		return unix.AF_INET, sa, nil
	}

	sa := &unix.SockaddrInet6{Port: addr.Port}
	copy(sa.Addr[:], addr.IP.To16())
	if addr.Zone != "" {
		iface, err := net.InterfaceByName(addr.Zone)
		if err != nil {
			return 0, nil, errors.Wrapf(err, "unknown zone %q", addr.Zone)
		}
		sa.ZoneId = uint32(iface.Index)
	}
	return unix.AF_INET6, sa, nil
}

// sockaddrString formats a bound address as host:port
func sockaddrString(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return net.JoinHostPort(net.IP(a.Addr[:]).String(), strconv.Itoa(a.Port))
	case *unix.SockaddrInet6:
		return net.JoinHostPort(net.IP(a.Addr[:]).String(), strconv.Itoa(a.Port))
	default:
		return ""
	}
}

// --------------------------------------------------------------------------
// Server Transport Factory Method
// --------------------------------------------------------------------------

// NewTCPServerTransport creates a new TCP server transport
func NewTCPServerTransport() transport.IRPCServerTransport {
	return base.NewBaseServerTransport(&serverConnector{})
}
