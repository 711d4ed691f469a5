package base

import (
	"container/list"
	"time"

	"github.com/ValentinKolb/sKV/rpc/protocol"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// conn is the state of one accepted connection. It only records what it
// wants to do next; the server owns the descriptor and releases it once
// wantClose is set.
//
// States:
//
//	reading: wantRead, the outbound buffer is empty
//	writing: wantWrite, responses wait in the outbound buffer
//	closing: wantClose, terminal
type conn struct {
	fd int

	in  []byte // received bytes not yet framed
	out []byte // encoded responses not yet written
	enc protocol.Encoder

	wantRead  bool
	wantWrite bool
	wantClose bool
	reason    closeReason

	lastActive time.Time
	idleElem   *list.Element // position in the recency list of the server
}

func newConn(fd int, now time.Time) *conn {
	return &conn{
		fd:         fd,
		wantRead:   true,
		lastActive: now,
	}
}

// closeWith moves the connection to closing, keeping the first reason
func (c *conn) closeWith(reason closeReason) {
	if !c.wantClose {
		c.wantClose = true
		c.reason = reason
	}
	c.wantRead = false
	c.wantWrite = false
}

// pollEvents returns the poll(2) interest of the connection
func (c *conn) pollEvents() int16 {
	events := int16(unix.POLLERR)
	if c.wantRead {
		events |= unix.POLLIN
	}
	if c.wantWrite {
		events |= unix.POLLOUT
	}
	return events
}

// handleRead performs one non-blocking read and executes every complete
// request found in the inbound buffer
func (c *conn) handleRead(s *serverTransport) {
	c.in = reserve(c.in, s.readChunk)
	n, err := readRetry(c.fd, c.in[len(c.in):cap(c.in)])
	switch {
	case err == unix.EAGAIN:
		return
	case err != nil:
		Logger.Debugf("Read from fd %d failed: %v", c.fd, err)
		c.closeWith(closeIOError)
		return
	case n == 0:
		c.closeWith(closeEOF)
		return
	}
	c.in = c.in[:len(c.in)+n]
	bytesRead.Add(n)

	if err := c.processRequests(s); err != nil {
		Logger.Warningf("Closing fd %d: %v", c.fd, err)
		c.closeWith(closeViolation)
		return
	}

	if len(c.out) > 0 {
		c.wantRead = false
		c.wantWrite = true
		// the socket is most likely writable, so don't wait for the next poll
		c.handleWrite()
	}
}

// processRequests executes all complete frames of the inbound buffer in order
func (c *conn) processRequests(s *serverTransport) error {
	consumed := 0
	defer func() {
		c.in = consume(c.in, consumed)
	}()

	for {
		body, n, err := protocol.CutFrame(c.in[consumed:], protocol.MaxMessageSize)
		if err == protocol.ErrIncomplete {
			return nil
		}
		if err != nil {
			return err
		}

		args, err := protocol.ParseRequest(body, s.maxArgs)
		if err != nil {
			return err
		}

		if err := c.execute(s, args); err != nil {
			return err
		}
		consumed += n
	}
}

// execute runs one request and appends its response to the outbound buffer
func (c *conn) execute(s *serverTransport, args [][]byte) error {
	start := time.Now()

	c.enc.Begin(c.out)
	s.handler.Handle(args, &c.enc)
	out, err := c.enc.End(protocol.MaxMessageSize)
	c.out = out

	requestsTotal.Inc()
	requestDuration.Update(time.Since(start).Seconds())
	return errors.Wrap(err, "encoding response")
}

// handleWrite performs one non-blocking write of the outbound buffer
func (c *conn) handleWrite() {
	n, err := writeRetry(c.fd, c.out)
	switch {
	case err == unix.EAGAIN:
		return
	case err != nil:
		Logger.Debugf("Write to fd %d failed: %v", c.fd, err)
		c.closeWith(closeIOError)
		return
	}
	bytesWritten.Add(n)

	c.out = consume(c.out, n)
	if len(c.out) == 0 {
		c.wantWrite = false
		c.wantRead = true
	}
}

// readRetry reads from fd, retrying interrupted calls
func readRetry(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Read(fd, p)
		if err != unix.EINTR {
			return n, err
		}
	}
}

// writeRetry writes to fd, retrying interrupted calls
func writeRetry(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Write(fd, p)
		if err != unix.EINTR {
			return n, err
		}
	}
}
