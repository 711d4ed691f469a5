package base

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/protocol"
	"github.com/ValentinKolb/sKV/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

var Logger = logger.GetLogger("reactor")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a non-blocking listening socket and returns its descriptor
	// and the address it is bound to
	Listen(config common.ServerConfig) (fd int, addr string, err error)

	// UpgradeConnection applies protocol-specific options to an accepted socket
	UpgradeConnection(fd int, config common.ServerConfig) error

	// Cleanup removes what Listen left behind (e.g. a socket file)
	Cleanup(config common.ServerConfig)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport is a single threaded readiness loop over the listening
// socket and all accepted connections
type serverTransport struct {
	connector IServerConnector
	handler   transport.Handler
	config    common.ServerConfig

	// derived limits
	maxArgs     int
	readChunk   int
	idleTimeout time.Duration

	listenFd int
	addr     string
	wakeR    int // read end of the self pipe interrupting poll
	wakeW    int

	// connections keyed by descriptor, removal is the only way a connection is released
	conns map[int]*conn
	idle  *list.List // recency list, least recently active first

	// poll set, rebuilt every iteration
	pfds    []unix.PollFd
	pollFor []*conn // connection of pfds[i+2]

	mu      sync.Mutex // guards bound and serving
	bound   bool
	serving bool
}

const (
	pollListener = 0
	pollWake     = 1
	pollFirst    = 2
)

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new event loop transport for the given connector
func NewBaseServerTransport(connector IServerConnector) transport.IRPCServerTransport {
	return &serverTransport{
		connector: connector,
		listenFd:  -1,
		wakeR:     -1,
		wakeW:     -1,
		conns:     make(map[int]*conn),
		idle:      list.New(),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.Handler) {
	t.handler = handler
}

func (t *serverTransport) Bind(config common.ServerConfig) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bound {
		return errors.New("transport is already bound")
	}

	t.config = config
	t.maxArgs = config.MaxArgs
	if t.maxArgs <= 0 {
		t.maxArgs = protocol.DefaultMaxArgs
	}
	t.readChunk = config.ReadChunkSize
	if t.readChunk <= 0 {
		t.readChunk = common.DefaultReadChunkSize
	}
	t.idleTimeout = config.IdleTimeout()

	fd, addr, err := t.connector.Listen(config)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s listener", t.connector.GetName())
	}

	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		unix.Close(fd)
		return errors.Wrap(err, "failed to create wakeup pipe")
	}
	for _, pfd := range p {
		unix.CloseOnExec(pfd)
		if err := unix.SetNonblock(pfd, true); err != nil {
			unix.Close(fd)
			unix.Close(p[0])
			unix.Close(p[1])
			return errors.Wrap(err, "failed to configure wakeup pipe")
		}
	}

	t.listenFd, t.addr = fd, addr
	t.wakeR, t.wakeW = p[0], p[1]
	t.bound = true
	return nil
}

func (t *serverTransport) Addr() string {
	return t.addr
}

func (t *serverTransport) Listen(ctx context.Context, config common.ServerConfig) error {
	if err := t.Bind(config); err != nil {
		return err
	}
	return t.Serve(ctx)
}

func (t *serverTransport) Serve(ctx context.Context) error {
	t.mu.Lock()
	if !t.bound {
		t.mu.Unlock()
		return errors.New("transport is not bound")
	}
	if t.serving {
		t.mu.Unlock()
		return errors.New("transport is already serving")
	}
	if t.handler == nil {
		t.mu.Unlock()
		return errors.New("no handler registered")
	}
	t.serving = true
	t.mu.Unlock()

	// interrupt poll once the context is done
	stop := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			unix.Write(t.wakeW, []byte{0})
		case <-stop:
		}
	}()
	defer func() {
		close(stop)
		<-exited
		t.shutdown()
	}()

	Logger.Infof("Serving %s on %s", t.connector.GetName(), t.addr)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := t.poll(); err != nil {
			return err
		}
	}
}

// --------------------------------------------------------------------------
// Event loop
// --------------------------------------------------------------------------

// poll runs one iteration of the event loop
func (t *serverTransport) poll() error {
	t.buildPollSet()

	at, ok := t.nextDeadline()
	timeout := pollTimeout(time.Now(), at, ok)
	for {
		_, err := unix.Poll(t.pfds, timeout)
		if err == nil {
			break
		}
		if err != unix.EINTR {
			return errors.Wrap(err, "poll failed")
		}
	}
	pollWakeups.Inc()

	if t.pfds[pollWake].Revents != 0 {
		t.drainWakeups()
	}

	if t.pfds[pollListener].Revents&unix.POLLIN != 0 {
		t.acceptAll()
	}

	for i, c := range t.pollFor {
		revents := t.pfds[pollFirst+i].Revents
		if revents == 0 {
			continue
		}

		if c.wantRead && revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			c.handleRead(t)
		}
		if c.wantWrite && revents&(unix.POLLOUT|unix.POLLHUP|unix.POLLERR) != 0 {
			c.handleWrite()
		}
		if revents&(unix.POLLERR|unix.POLLNVAL) != 0 {
			c.closeWith(closeIOError)
		}

		if c.wantClose {
			t.release(c)
			continue
		}
		t.touch(c)
	}

	t.closeIdle()
	t.handler.ProcessTimers()
	return nil
}

// buildPollSet fills the poll set from the registered connections
func (t *serverTransport) buildPollSet() {
	t.pfds = append(t.pfds[:0],
		unix.PollFd{Fd: int32(t.listenFd), Events: unix.POLLIN},
		unix.PollFd{Fd: int32(t.wakeR), Events: unix.POLLIN},
	)
	t.pollFor = t.pollFor[:0]
	for fd, c := range t.conns {
		t.pfds = append(t.pfds, unix.PollFd{Fd: int32(fd), Events: c.pollEvents()})
		t.pollFor = append(t.pollFor, c)
	}
}

// nextDeadline returns when the loop has to wake up without socket activity
func (t *serverTransport) nextDeadline() (time.Time, bool) {
	var idleAt time.Time
	var idleOk bool
	if t.idleTimeout > 0 {
		if front := t.idle.Front(); front != nil {
			idleAt, idleOk = front.Value.(*conn).lastActive.Add(t.idleTimeout), true
		}
	}
	timerAt, timerOk := t.handler.NextTimer()
	return earliest(idleAt, idleOk, timerAt, timerOk)
}

// drainWakeups empties the self pipe
func (t *serverTransport) drainWakeups() {
	var buf [64]byte
	for {
		n, err := unix.Read(t.wakeR, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// acceptAll accepts every pending connection
func (t *serverTransport) acceptAll() {
	for {
		fd, _, err := unix.Accept(t.listenFd)
		switch {
		case err == unix.EINTR || err == unix.ECONNABORTED:
			continue
		case err == unix.EAGAIN:
			return
		case err != nil:
			// e.g. EMFILE: leave the rest in the backlog until the next iteration
			Logger.Errorf("Accept error: %v", err)
			return
		}

		if t.config.MaxConnections > 0 && len(t.conns) >= t.config.MaxConnections {
			Logger.Warningf("Rejecting connection: limit of %d connections reached", t.config.MaxConnections)
			unix.Close(fd)
			connsRejected.Inc()
			continue
		}

		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			Logger.Errorf("Failed to set fd %d non-blocking: %v", fd, err)
			unix.Close(fd)
			continue
		}
		if err := t.connector.UpgradeConnection(fd, t.config); err != nil {
			Logger.Warningf("Failed to apply socket options to fd %d: %v", fd, err)
		}

		c := newConn(fd, time.Now())
		c.idleElem = t.idle.PushBack(c)
		t.conns[fd] = c

		connsAccepted.Inc()
		connsActive.Inc()
		Logger.Debugf("Accepted connection fd %d", fd)
	}
}

// touch marks c as active now
func (t *serverTransport) touch(c *conn) {
	c.lastActive = time.Now()
	t.idle.MoveToBack(c.idleElem)
}

// closeIdle releases connections inactive for longer than the idle timeout
func (t *serverTransport) closeIdle() {
	if t.idleTimeout <= 0 {
		return
	}
	now := time.Now()
	for front := t.idle.Front(); front != nil; front = t.idle.Front() {
		c := front.Value.(*conn)
		if now.Sub(c.lastActive) < t.idleTimeout {
			return
		}
		Logger.Debugf("Closing idle connection fd %d", c.fd)
		c.closeWith(closeIdle)
		t.release(c)
	}
}

// release closes the descriptor of c and forgets the connection
func (t *serverTransport) release(c *conn) {
	if _, ok := t.conns[c.fd]; !ok {
		return
	}
	delete(t.conns, c.fd)
	t.idle.Remove(c.idleElem)
	unix.Close(c.fd)

	connsActive.Dec()
	connsClosed(c.reason).Inc()
	Logger.Debugf("Closed connection fd %d (%s)", c.fd, c.reason)
}

// shutdown releases every connection and the listening socket
func (t *serverTransport) shutdown() {
	for _, c := range t.conns {
		c.closeWith(closeShutdown)
		t.release(c)
	}
	unix.Close(t.listenFd)
	unix.Close(t.wakeR)
	unix.Close(t.wakeW)
	t.connector.Cleanup(t.config)

	t.mu.Lock()
	t.bound = false
	t.serving = false
	t.listenFd, t.wakeR, t.wakeW = -1, -1, -1
	t.mu.Unlock()

	Logger.Infof("Stopped %s server on %s", t.connector.GetName(), t.addr)
}
