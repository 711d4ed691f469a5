package unix

import (
	"os"

	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/transport"
	"github.com/ValentinKolb/sKV/rpc/transport/base"
	"github.com/pkg/errors"
	sys "golang.org/x/sys/unix"
)

// serverConnector implements the IServerConnector interface for Unix sockets
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "unix"
}

func (c *serverConnector) Listen(config common.ServerConfig) (int, string, error) {
	socketPath := config.Transport.Endpoint

	// Remove existing socket file if it exists
	if err := os.RemoveAll(socketPath); err != nil {
		return -1, "", errors.Wrap(err, "failed to remove existing socket")
	}

	fd, err := sys.Socket(sys.AF_UNIX, sys.SOCK_STREAM, 0)
	if err != nil {
		return -1, "", errors.Wrap(err, "socket")
	}
	sys.CloseOnExec(fd)

	if err := sys.Bind(fd, &sys.SockaddrUnix{Name: socketPath}); err != nil {
		sys.Close(fd)
		return -1, "", errors.Wrapf(err, "bind %s", socketPath)
	}
	if err := sys.Listen(fd, sys.SOMAXCONN); err != nil {
		sys.Close(fd)
		return -1, "", errors.Wrap(err, "listen")
	}
	if err := sys.SetNonblock(fd, true); err != nil {
		sys.Close(fd)
		return -1, "", errors.Wrap(err, "set non-blocking")
	}
	return fd, socketPath, nil
}

// UpgradeConnection applies the socket buffer sizes of config
func (c *serverConnector) UpgradeConnection(fd int, config common.ServerConfig) error {
	if size := config.Transport.WriteBufferSize; size > 0 {
		if err := sys.SetsockoptInt(fd, sys.SOL_SOCKET, sys.SO_SNDBUF, size); err != nil {
			return errors.Wrap(err, "SO_SNDBUF")
		}
	}
	if size := config.Transport.ReadBufferSize; size > 0 {
		if err := sys.SetsockoptInt(fd, sys.SOL_SOCKET, sys.SO_RCVBUF, size); err != nil {
			return errors.Wrap(err, "SO_RCVBUF")
		}
	}
	return nil
}

// Cleanup removes the socket file
func (c *serverConnector) Cleanup(config common.ServerConfig) {
	_ = os.Remove(config.Transport.Endpoint)
}

// --------------------------------------------------------------------------
// Server Transport Factory Method
// --------------------------------------------------------------------------

// NewUnixServerTransport creates a new Unix socket server transport
func NewUnixServerTransport() transport.IRPCServerTransport {
	return base.NewBaseServerTransport(&serverConnector{})
}
